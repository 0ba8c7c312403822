package logger_test

import (
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josenovais97/distributed-systems/pkg/logger"
)

func TestGroup(t *testing.T) {
	attr := logger.Group("admission", slog.Int("active", 1), slog.Int("waiting", 2))
	require.Equal(t, "admission", attr.Key)
	require.Equal(t, slog.KindGroup, attr.Value.Kind())
	g := attr.Value.Group()
	require.Len(t, g, 2)
	assert.Equal(t, "active", g[0].Key)
	assert.Equal(t, "waiting", g[1].Key)
}

func TestErrors(t *testing.T) {
	err1 := errors.New("first")
	err2 := errors.New("second")

	attr := logger.Errors(err1, nil, err2)
	require.Equal(t, "errors", attr.Key)
	g := attr.Value.Group()
	require.Len(t, g, 2)
	assert.Equal(t, err1, g[0].Value.Any())
	assert.Equal(t, err2, g[1].Value.Any())

	assert.True(t, logger.Errors(nil).Equal(slog.Attr{}))
}

func TestError(t *testing.T) {
	err := errors.New("boom")
	attr := logger.Error(err)
	require.Equal(t, "error", attr.Key)
	assert.Equal(t, err, attr.Value.Any())

	assert.True(t, logger.Error(nil).Equal(slog.Attr{}))
}

func TestSessionAttrs(t *testing.T) {
	attr := logger.SessionID("abc")
	require.Equal(t, "session_id", attr.Key)
	assert.Equal(t, "abc", attr.Value.Any())
	assert.True(t, logger.SessionID(nil).Equal(slog.Attr{}))

	assert.Equal(t, "alice", logger.Username("alice").Value.String())
	assert.True(t, logger.Username("").Equal(slog.Attr{}))
}

func TestScalarAttrs(t *testing.T) {
	tests := []struct {
		attr slog.Attr
		key  string
	}{
		{logger.Position(3), "position"},
		{logger.Capacity(2), "capacity"},
		{logger.Active(1), "active"},
		{logger.Waiting(4), "waiting"},
		{logger.Keys(5), "keys"},
		{logger.Command("get"), "command"},
		{logger.RemoteAddr("127.0.0.1:1"), "remote_addr"},
		{logger.Component("admission"), "component"},
		{logger.Duration(time.Second), "duration"},
		{logger.Addr(":12345"), "addr"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.key, tt.attr.Key)
	}
	assert.Equal(t, int64(3), logger.Position(3).Value.Int64())
}
