package admin_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josenovais97/distributed-systems/pkg/admin"
)

func TestServer_RunAndShutdown(t *testing.T) {
	t.Parallel()
	var stopped atomic.Bool
	start := make(chan struct{})
	srv := admin.NewFromConfig(admin.Config{Addr: "127.0.0.1:0", ShutdownTimeout: 100 * time.Millisecond},
		admin.WithStartHook(func(*slog.Logger) { close(start) }),
		admin.WithStopHook(func(*slog.Logger) { stopped.Store(true) }),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx, admin.Router(admin.Sources{}, nil)) }()
	<-start

	resp, err := http.Get("http://" + srv.Addr().String() + "/healthz")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, "ALIVE", string(body))
	assert.NotEmpty(t, resp.Header.Get(admin.RequestIDHeader))

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err, "run")
	case <-time.After(time.Second):
		require.Fail(t, "run did not finish")
	}
	assert.True(t, stopped.Load(), "stop hook not executed")
	require.NoError(t, srv.Shutdown(context.Background()), "repeated shutdown")
}

func TestServer_StartError(t *testing.T) {
	t.Parallel()
	srv := admin.New(admin.WithAddr(":invalid"))
	err := srv.Run(context.Background(), nil)
	assert.ErrorIs(t, err, admin.ErrStart)
	assert.Nil(t, srv.Addr())
}

func TestOptionPanics(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		fn   func()
	}{
		{"addr", func() { admin.WithAddr("") }},
		{"read", func() { admin.WithReadTimeout(-time.Second) }},
		{"write", func() { admin.WithWriteTimeout(0) }},
		{"shutdown", func() { admin.WithShutdownTimeout(-time.Second) }},
		{"start hook", func() { admin.WithStartHook(nil) }},
		{"stop hook", func() { admin.WithStopHook(nil) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Panics(t, tt.fn)
		})
	}
}
