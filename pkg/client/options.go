package client

import (
	"log/slog"
	"time"
)

type options struct {
	dialTimeout time.Duration
	register    bool
	onWait      func(position int)
	logger      *slog.Logger
}

type Option func(*options)

// WithDialTimeout bounds connection establishment when the Dial context has
// no earlier deadline.
func WithDialTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.dialTimeout = d
		}
	}
}

// WithRegister makes Login accept the server's offer to register an unknown
// username with the given password.
func WithRegister(register bool) Option {
	return func(o *options) { o.register = register }
}

// WithWaitHandler is called with the queue position each time the server
// reports that the session is still waiting for a slot.
func WithWaitHandler(fn func(position int)) Option {
	return func(o *options) { o.onWait = fn }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}
