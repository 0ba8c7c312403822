package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// State is a step in the session lifecycle.
type State string

const (
	// StateWaiting: authenticated and queued for a slot.
	StateWaiting State = "waiting"
	// StateActive: holds a slot and may issue data commands.
	StateActive State = "active"
	// StateClosed is terminal.
	StateClosed State = "closed"
)

// transitions lists the allowed targets for each state.
var transitions = map[State][]State{
	StateWaiting: {StateActive, StateClosed},
	StateActive:  {StateClosed},
}

// Session is one authenticated client's occupancy of the service,
// independent of the connection that carries it.
type Session struct {
	ID         uuid.UUID
	Username   string
	RemoteAddr string
	CreatedAt  time.Time

	mu         sync.RWMutex
	state      State
	admittedAt time.Time
	closedAt   time.Time
}

// Info is a copy of a session's fields, safe to share and marshal.
type Info struct {
	ID         uuid.UUID  `json:"id"`
	Username   string     `json:"username"`
	RemoteAddr string     `json:"remote_addr,omitempty"`
	State      State      `json:"state"`
	CreatedAt  time.Time  `json:"created_at"`
	AdmittedAt *time.Time `json:"admitted_at,omitempty"`
	ClosedAt   *time.Time `json:"closed_at,omitempty"`
}

// New creates a waiting session with a fresh random id.
func New(username, remoteAddr string) *Session {
	return &Session{
		ID:         uuid.New(),
		Username:   username,
		RemoteAddr: remoteAddr,
		CreatedAt:  time.Now(),
		state:      StateWaiting,
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Transition moves the session to the given state. Moves the lifecycle does
// not allow return ErrInvalidTransition and leave the state unchanged.
func (s *Session) Transition(to State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, allowed := range transitions[s.state] {
		if allowed != to {
			continue
		}
		now := time.Now()
		switch to {
		case StateActive:
			s.admittedAt = now
		case StateClosed:
			s.closedAt = now
		}
		s.state = to
		return nil
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.state, to)
}

// Activate marks the session as admitted.
func (s *Session) Activate() error {
	return s.Transition(StateActive)
}

// Close marks the session closed. Closing an already closed session is a no-op.
func (s *Session) Close() error {
	if s.State() == StateClosed {
		return nil
	}
	return s.Transition(StateClosed)
}

// Snapshot returns a consistent copy of the session.
func (s *Session) Snapshot() Info {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info := Info{
		ID:         s.ID,
		Username:   s.Username,
		RemoteAddr: s.RemoteAddr,
		State:      s.state,
		CreatedAt:  s.CreatedAt,
	}
	if !s.admittedAt.IsZero() {
		t := s.admittedAt
		info.AdmittedAt = &t
	}
	if !s.closedAt.IsZero() {
		t := s.closedAt
		info.ClosedAt = &t
	}
	return info
}
