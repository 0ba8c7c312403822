package session_test

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josenovais97/distributed-systems/pkg/session"
)

func TestRegistry_AddGetDelete(t *testing.T) {
	t.Parallel()
	r := session.NewRegistry()
	s := session.New("alice", "")

	require.NoError(t, r.Add(s))
	assert.ErrorIs(t, r.Add(s), session.ErrDuplicateSession)

	got, err := r.Get(s.ID)
	require.NoError(t, err)
	assert.Same(t, s, got)

	r.Delete(s.ID)
	_, err = r.Get(s.ID)
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
	assert.NotPanics(t, func() { r.Delete(uuid.New()) })
}

func TestRegistry_AddInvalid(t *testing.T) {
	t.Parallel()
	r := session.NewRegistry()
	assert.ErrorIs(t, r.Add(nil), session.ErrInvalidSession)
	assert.ErrorIs(t, r.Add(&session.Session{}), session.ErrInvalidSession)
}

func TestRegistry_ListAndStats(t *testing.T) {
	t.Parallel()
	r := session.NewRegistry()

	first := session.New("a", "")
	second := session.New("b", "")
	third := session.New("c", "")
	for _, s := range []*session.Session{first, second, third} {
		require.NoError(t, r.Add(s))
	}
	require.NoError(t, second.Activate())

	list := r.List()
	require.Len(t, list, 3)
	names := make([]string, 0, len(list))
	for i, info := range list {
		names = append(names, info.Username)
		if i > 0 {
			assert.False(t, info.CreatedAt.Before(list[i-1].CreatedAt), "oldest first")
		}
		if info.ID == second.ID {
			assert.Equal(t, session.StateActive, info.State)
		}
	}
	assert.ElementsMatch(t, []string{"a", "b", "c"}, names)

	total, waiting, active := r.Stats()
	assert.Equal(t, 3, total)
	assert.Equal(t, 2, waiting)
	assert.Equal(t, 1, active)
	assert.Equal(t, 3, r.Len())
}

func TestRegistry_Concurrent(t *testing.T) {
	t.Parallel()
	r := session.NewRegistry()

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s := session.New("user", "")
			if !assert.NoError(t, r.Add(s)) {
				return
			}
			_ = s.Activate()
			_ = r.List()
			r.Delete(s.ID)
		}()
	}
	wg.Wait()
	assert.Zero(t, r.Len())
}
