package session

import (
	"slices"
	"sync"

	"github.com/google/uuid"
)

// Registry keeps track of live sessions in memory.
type Registry struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[uuid.UUID]*Session)}
}

// Add registers s.
func (r *Registry) Add(s *Session) error {
	if s == nil || s.ID == uuid.Nil {
		return ErrInvalidSession
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[s.ID]; exists {
		return ErrDuplicateSession
	}
	r.sessions[s.ID] = s
	return nil
}

// Get returns the live session with the given id.
func (r *Registry) Get(id uuid.UUID) (*Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()

	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Delete forgets the session. Unknown ids are ignored.
func (r *Registry) Delete(id uuid.UUID) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

// List returns snapshots of all live sessions, oldest first.
func (r *Registry) List() []Info {
	r.mu.RLock()
	out := make([]Info, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s.Snapshot())
	}
	r.mu.RUnlock()

	slices.SortFunc(out, func(a, b Info) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Stats counts live sessions by state.
func (r *Registry) Stats() (total, waiting, active int) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	total = len(r.sessions)
	for _, s := range r.sessions {
		switch s.State() {
		case StateWaiting:
			waiting++
		case StateActive:
			active++
		}
	}
	return
}
