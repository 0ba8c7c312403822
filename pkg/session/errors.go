package session

import "errors"

var (
	// ErrInvalidSession indicates a nil session or one without an id.
	ErrInvalidSession = errors.New("session.invalid")

	// ErrSessionNotFound indicates no live session has the given id.
	ErrSessionNotFound = errors.New("session.not_found")

	// ErrDuplicateSession indicates a session with the same id is already registered.
	ErrDuplicateSession = errors.New("session.duplicate")

	// ErrInvalidTransition indicates a state change the lifecycle does not allow.
	ErrInvalidTransition = errors.New("session.invalid_transition")
)
