package client_test

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/josenovais97/distributed-systems/pkg/admission"
	"github.com/josenovais97/distributed-systems/pkg/auth"
	"github.com/josenovais97/distributed-systems/pkg/client"
	"github.com/josenovais97/distributed-systems/pkg/kvstore"
	"github.com/josenovais97/distributed-systems/pkg/protocol"
	"github.com/josenovais97/distributed-systems/pkg/server"
)

func startServer(t *testing.T) string {
	t.Helper()

	started := make(chan struct{})
	srv := server.New(
		kvstore.New(),
		admission.New[uuid.UUID](1),
		auth.NewRegistry(auth.WithBcryptCost(bcrypt.MinCost)),
		server.WithAddr("127.0.0.1:0"),
		server.WithShutdownTimeout(200*time.Millisecond),
		server.WithStartHook(func(*slog.Logger) { close(started) }),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	select {
	case <-started:
	case err := <-done:
		cancel()
		require.FailNow(t, "server did not start", "%v", err)
	case <-time.After(2 * time.Second):
		cancel()
		require.FailNow(t, "server did not start in time")
	}

	t.Cleanup(func() {
		cancel()
		<-done
	})
	return srv.Addr().String()
}

func connect(t *testing.T, ctx context.Context) *client.Client {
	t.Helper()
	c, err := client.Dial(ctx, startServer(t), client.WithRegister(true))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	require.NoError(t, c.Login(ctx, "alice", "pw"))
	return c
}

func TestClient_OversizedRequestLeavesConnectionUsable(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	c := connect(t, ctx)

	require.NoError(t, c.Put(ctx, "a", []byte("1")))

	longKey := strings.Repeat("k", protocol.MaxStringLength+1)
	assert.ErrorIs(t, c.Put(ctx, longKey, []byte("2")), protocol.ErrStringTooLong)
	_, _, err := c.Get(ctx, longKey)
	assert.ErrorIs(t, err, protocol.ErrStringTooLong)
	assert.ErrorIs(t, c.MultiPut(ctx, map[string][]byte{"b": []byte("3"), longKey: nil}), protocol.ErrStringTooLong)
	_, err = c.MultiGet(ctx, []string{"a", longKey})
	assert.ErrorIs(t, err, protocol.ErrStringTooLong)

	got, ok, err := c.Get(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("1"), got)

	all, err := c.MultiGet(ctx, []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{"a": []byte("1")}, all, "rejected batch applied nothing")
}

func TestClient_LoginRejectsOversizedCredentials(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	c, err := client.Dial(ctx, startServer(t), client.WithRegister(true))
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	assert.ErrorIs(t, c.Login(ctx, strings.Repeat("u", protocol.MaxStringLength+1), "pw"), protocol.ErrStringTooLong)
	require.NoError(t, c.Login(ctx, "bob", "pw"))
	require.NoError(t, c.Logout(ctx))
}

func TestClient_ClosedClient(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	c := connect(t, ctx)

	require.NoError(t, c.Close())
	assert.ErrorIs(t, c.Close(), client.ErrClosed)
	assert.ErrorIs(t, c.Put(ctx, "a", nil), client.ErrClosed)
}
