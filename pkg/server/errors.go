package server

import "errors"

var (
	// ErrStart indicates that the server failed to start listening or accepting.
	ErrStart = errors.New("failed to start kv server")
	// ErrShutdown indicates that graceful shutdown failed.
	ErrShutdown = errors.New("failed to shutdown kv server gracefully")
)
