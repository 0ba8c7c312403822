package admission

import "errors"

var (
	// ErrControllerClosed is returned by Admit once the controller is closed,
	// including to sessions that were already waiting.
	ErrControllerClosed = errors.New("admission.controller_closed")

	// ErrDuplicateSession is returned when a handle is admitted while it is
	// already waiting or active.
	ErrDuplicateSession = errors.New("admission.duplicate_session")

	// ErrAdmissionAbandoned is joined with the context error when a waiting
	// session's context ends before it was admitted.
	ErrAdmissionAbandoned = errors.New("admission.abandoned")

	// ErrSessionReleased is returned to a waiter whose handle was released by
	// another goroutine before it reached a slot.
	ErrSessionReleased = errors.New("admission.released_while_waiting")
)
