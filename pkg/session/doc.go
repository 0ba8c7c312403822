// Package session models the lifecycle of an authenticated client:
// waiting for a slot, active, then closed.
//
// A Session is created once credentials check out and moves through its
// states with Activate and Close; any other move fails with
// ErrInvalidTransition. The Registry tracks live sessions so operators can
// list them and so shutdown knows who is still connected.
package session
