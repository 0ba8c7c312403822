package server

import (
	"log/slog"
	"time"

	"github.com/josenovais97/distributed-systems/pkg/auth"
	"github.com/josenovais97/distributed-systems/pkg/session"
)

// Option configures the server.
type Option func(*config)

// WithAddr sets the address the server listens on.
func WithAddr(addr string) Option {
	if addr == "" {
		panic("WithAddr: addr cannot be empty")
	}
	return func(c *config) { c.addr = addr }
}

// WithIdleTimeout closes connections that send nothing for d while the
// server expects input. Time spent queued for admission does not count.
func WithIdleTimeout(d time.Duration) Option {
	if d <= 0 {
		panic("WithIdleTimeout: duration must be > 0")
	}
	return func(c *config) { c.idleTimeout = d }
}

// WithShutdownTimeout sets the time open sessions get to finish during shutdown.
func WithShutdownTimeout(d time.Duration) Option {
	if d <= 0 {
		panic("WithShutdownTimeout: duration must be > 0")
	}
	return func(c *config) { c.shutdownTimeout = d }
}

// WithMaxValueSize sets the largest accepted value in bytes.
func WithMaxValueSize(n int) Option {
	if n <= 0 {
		panic("WithMaxValueSize: size must be > 0")
	}
	return func(c *config) { c.maxValueSize = n }
}

// WithMaxBatchSize sets the most pairs or keys accepted by one batch command.
func WithMaxBatchSize(n int) Option {
	if n <= 0 {
		panic("WithMaxBatchSize: size must be > 0")
	}
	return func(c *config) { c.maxBatchSize = n }
}

// WithSessionRegistry records every session in r for the lifetime of its
// connection. By default the server keeps a private registry.
func WithSessionRegistry(r *session.Registry) Option {
	if r == nil {
		panic("WithSessionRegistry: nil registry")
	}
	return func(c *config) { c.sessions = r }
}

// WithLoginThrottle refuses logins from hosts with too many recent wrong
// passwords. Without it failed attempts are not limited.
func WithLoginThrottle(t *auth.Throttle) Option {
	if t == nil {
		panic("WithLoginThrottle: nil throttle")
	}
	return func(c *config) { c.throttle = t }
}

// WithLogger supplies an external slog.Logger instance. If nil, a noop logger is used.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithStartHook registers a callback that runs once the server is listening.
func WithStartHook(h func(*slog.Logger)) Option {
	if h == nil {
		panic("WithStartHook: nil hook")
	}
	return func(c *config) {
		c.startHooks = append(c.startHooks, h)
	}
}

// WithStopHook registers a callback that runs after the server shuts down.
func WithStopHook(h func(*slog.Logger)) Option {
	if h == nil {
		panic("WithStopHook: nil hook")
	}
	return func(c *config) {
		c.stopHooks = append(c.stopHooks, h)
	}
}
