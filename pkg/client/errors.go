package client

import (
	"errors"
	"fmt"
)

var (
	ErrAuthenticationFailed = errors.New("client: authentication failed")
	ErrRegistrationFailed   = errors.New("client: registration failed")
	ErrServerClosing        = errors.New("client: server is shutting down")
	ErrUnexpectedStatus     = errors.New("client: unexpected status from server")
	ErrClosed               = errors.New("client: connection closed")
)

// ServerError carries the text of an Error reply.
type ServerError struct {
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error: %s", e.Message)
}
