package main

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/josenovais97/distributed-systems/pkg/admission"
	"github.com/josenovais97/distributed-systems/pkg/auth"
	"github.com/josenovais97/distributed-systems/pkg/kvstore"
	"github.com/josenovais97/distributed-systems/pkg/server"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{"no args", nil, true},
		{"put", []string{"put", "k", "v"}, false},
		{"put missing value", []string{"put", "k"}, true},
		{"get", []string{"get", "k"}, false},
		{"get extra", []string{"get", "a", "b"}, true},
		{"mput", []string{"mput", "a=1", "b="}, false},
		{"mput bad pair", []string{"mput", "a"}, true},
		{"mput empty", []string{"mput"}, true},
		{"mget", []string{"mget", "a", "b"}, false},
		{"mget empty", []string{"mget"}, true},
		{"unknown", []string{"delete", "k"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := parseCommand(tt.args)
			if tt.wantErr {
				assert.ErrorIs(t, err, errUsage)
				assert.Nil(t, cmd)
				return
			}
			assert.NoError(t, err)
			assert.NotNil(t, cmd)
		})
	}
}

func TestRun_AgainstServer(t *testing.T) {
	started := make(chan struct{})
	srv := server.New(kvstore.New(), admission.New[uuid.UUID](1), auth.NewRegistry(auth.WithBcryptCost(bcrypt.MinCost)),
		server.WithAddr("127.0.0.1:0"),
		server.WithShutdownTimeout(100*time.Millisecond),
		server.WithStartHook(func(*slog.Logger) { close(started) }),
	)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	<-started

	base := []string{"-addr", srv.Addr().String(), "-user", "alice", "-password", "pw", "-timeout", "5s"}
	exec := func(args ...string) (string, error) {
		var out, errOut bytes.Buffer
		err := run(append(append([]string{}, base...), args...), &out, &errOut)
		return out.String(), err
	}

	_, err := exec("get", "k")
	require.Error(t, err, "unknown user without -register")

	_, err = exec("-register", "put", "k", "v")
	require.NoError(t, err)

	out, err := exec("get", "k")
	require.NoError(t, err)
	assert.Equal(t, "v\n", out)

	_, err = exec("mput", "a=1", "b=2")
	require.NoError(t, err)
	out, err = exec("mget", "b", "a", "zz")
	require.NoError(t, err)
	assert.Equal(t, "a=1\nb=2\n", out)

	_, err = exec("get", "zz")
	assert.ErrorIs(t, err, errNotFound)
}
