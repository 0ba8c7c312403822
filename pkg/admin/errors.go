package admin

import "errors"

var (
	// ErrStart indicates that the admin server failed to start.
	ErrStart = errors.New("failed to start admin HTTP server")
	// ErrShutdown indicates that graceful shutdown failed.
	ErrShutdown = errors.New("failed to shutdown admin HTTP server gracefully")
)
