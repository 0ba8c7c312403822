package admission

import (
	"container/list"
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/josenovais97/distributed-systems/pkg/logger"
)

// WaitFunc is called each time a queued session is woken and finds it still
// cannot be admitted. position is the 1-based place in the waiting queue.
// It may run any number of times, including zero.
type WaitFunc func(position int)

// Stats is a point-in-time view of the controller.
type Stats struct {
	Capacity  int    `json:"capacity"`
	Active    int    `json:"active"`
	Waiting   int    `json:"waiting"`
	Admitted  uint64 `json:"admitted"`
	Released  uint64 `json:"released"`
	Abandoned uint64 `json:"abandoned"`
	Closed    bool   `json:"closed"`
}

type ticket[K comparable] struct {
	id       K
	released bool
}

// Controller bounds the number of concurrently active sessions and admits
// waiting sessions strictly in arrival order.
//
// All queue and active-set state is guarded by one mutex; waiters park on a
// condition variable bound to it. Every change that can make some waiter's
// predicate true (a release, an admission, an abandonment, Close) broadcasts,
// and each waiter re-checks its own predicate after waking.
//
// The zero value is not usable; construct with New.
type Controller[K comparable] struct {
	mu   sync.Mutex
	cond *sync.Cond

	capacity int
	waiting  *list.List // of *ticket[K], head is next to admit
	queued   map[K]*list.Element
	active   map[K]struct{}
	closed   bool

	// gen increments on every broadcast so a waiter that released the lock
	// to run its WaitFunc can tell whether it missed a wake-up.
	gen uint64

	admitted  uint64
	released  uint64
	abandoned uint64

	log *slog.Logger
	now func() time.Time
}

// New creates a controller that allows at most capacity active sessions.
// It panics if capacity is less than 1.
func New[K comparable](capacity int, opts ...Option) *Controller[K] {
	if capacity < 1 {
		panic("admission: capacity must be at least 1")
	}

	o := &options{
		logger: logger.Noop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}

	c := &Controller[K]{
		capacity: capacity,
		waiting:  list.New(),
		queued:   make(map[K]*list.Element),
		active:   make(map[K]struct{}),
		log:      o.logger.With(logger.Component("admission")),
		now:      o.now,
	}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// Admit appends id to the waiting queue and blocks until id is at the head
// of the queue and a slot is free, then moves it to the active set.
//
// notify, if not nil, is invoked without the controller lock held every time
// the waiter wakes and is still not admissible.
//
// Admit returns ErrControllerClosed if the controller is or becomes closed,
// ErrDuplicateSession if id is already queued or active, ErrSessionReleased
// if Release(id) is called while it waits, and an error joining
// ErrAdmissionAbandoned with ctx.Err() if ctx ends first. In every error case
// id holds no slot and no queue entry on return.
func (c *Controller[K]) Admit(ctx context.Context, id K, notify WaitFunc) error {
	start := c.now()
	err := c.enqueueAndWait(ctx, id, notify)
	waited := c.now().Sub(start)

	switch {
	case err == nil:
		c.log.DebugContext(ctx, "session admitted",
			logger.SessionID(id),
			logger.Duration(waited),
		)
	case errors.Is(err, ErrAdmissionAbandoned):
		c.log.DebugContext(ctx, "session abandoned admission wait",
			logger.SessionID(id),
			logger.Duration(waited),
			logger.Error(err),
		)
	}
	return err
}

func (c *Controller[K]) enqueueAndWait(ctx context.Context, id K, notify WaitFunc) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrControllerClosed
	}
	if err := ctx.Err(); err != nil {
		return errors.Join(ErrAdmissionAbandoned, err)
	}
	if _, ok := c.queued[id]; ok {
		return ErrDuplicateSession
	}
	if _, ok := c.active[id]; ok {
		return ErrDuplicateSession
	}

	t := &ticket[K]{id: id}
	elem := c.waiting.PushBack(t)
	c.queued[id] = elem

	// sync.Cond cannot select on ctx.Done, so cancellation is turned into a
	// broadcast; the waiter sees ctx.Err() on its next check.
	stop := context.AfterFunc(ctx, func() {
		c.mu.Lock()
		c.wake()
		c.mu.Unlock()
	})
	defer stop()

	for {
		if t.released {
			return ErrSessionReleased
		}
		if c.closed {
			c.dequeue(elem)
			return ErrControllerClosed
		}
		if err := ctx.Err(); err != nil {
			c.dequeue(elem)
			c.abandoned++
			// The head may have changed.
			c.wake()
			return errors.Join(ErrAdmissionAbandoned, err)
		}

		if len(c.active) < c.capacity && c.waiting.Front() == elem {
			c.dequeue(elem)
			c.active[id] = struct{}{}
			c.admitted++
			// More than one slot may be free; let the new head check too.
			c.wake()
			return nil
		}

		if notify != nil {
			gen := c.gen
			c.notifyUnlocked(notify, c.position(elem))
			if c.gen != gen {
				continue
			}
		}
		c.cond.Wait()
	}
}

// Release frees the slot held by id. If id is still waiting it is removed
// from the queue and its Admit call returns ErrSessionReleased. Releasing an
// unknown id is a no-op. Waiters are always woken.
func (c *Controller[K]) Release(id K) {
	c.mu.Lock()

	var wasActive, wasQueued bool
	if _, ok := c.active[id]; ok {
		delete(c.active, id)
		c.released++
		wasActive = true
	} else if elem, ok := c.queued[id]; ok {
		elem.Value.(*ticket[K]).released = true
		c.dequeue(elem)
		wasQueued = true
	}
	c.wake()
	active, waiting := len(c.active), c.waiting.Len()
	c.mu.Unlock()

	switch {
	case wasActive:
		c.log.Debug("session released",
			logger.SessionID(id),
			logger.Active(active),
			logger.Waiting(waiting),
		)
	case wasQueued:
		c.log.Debug("queued session released before admission",
			logger.SessionID(id),
			logger.Waiting(waiting),
		)
	}
}

// Close shuts the controller down. Sessions blocked in Admit return
// ErrControllerClosed, as do later calls to Admit. Active sessions keep their
// slots until released. Close is idempotent and always returns nil.
func (c *Controller[K]) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.wake()
	active, waiting := len(c.active), c.waiting.Len()
	c.mu.Unlock()

	c.log.Info("admission controller closed",
		logger.Active(active),
		logger.Waiting(waiting),
	)
	return nil
}

// Capacity returns the configured number of slots.
func (c *Controller[K]) Capacity() int {
	return c.capacity
}

// Closed reports whether Close has been called.
func (c *Controller[K]) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// IsActive reports whether id currently holds a slot.
func (c *Controller[K]) IsActive(id K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.active[id]
	return ok
}

// Position returns the 1-based queue position of id, or false if id is not waiting.
func (c *Controller[K]) Position(id K) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	elem, ok := c.queued[id]
	if !ok {
		return 0, false
	}
	return c.position(elem), true
}

// Stats returns a consistent snapshot of the slot, queue and lifetime counters.
func (c *Controller[K]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Capacity:  c.capacity,
		Active:    len(c.active),
		Waiting:   c.waiting.Len(),
		Admitted:  c.admitted,
		Released:  c.released,
		Abandoned: c.abandoned,
		Closed:    c.closed,
	}
}

// wake must be called with mu held.
func (c *Controller[K]) wake() {
	c.gen++
	c.cond.Broadcast()
}

// dequeue must be called with mu held.
func (c *Controller[K]) dequeue(elem *list.Element) {
	t := elem.Value.(*ticket[K])
	if cur, ok := c.queued[t.id]; ok && cur == elem {
		delete(c.queued, t.id)
		c.waiting.Remove(elem)
	}
}

// position must be called with mu held.
func (c *Controller[K]) position(elem *list.Element) int {
	pos := 1
	for e := c.waiting.Front(); e != nil && e != elem; e = e.Next() {
		pos++
	}
	return pos
}

// notifyUnlocked runs fn with mu released and re-acquires it even if fn panics.
func (c *Controller[K]) notifyUnlocked(fn WaitFunc, pos int) {
	c.mu.Unlock()
	defer c.mu.Lock()
	fn(pos)
}
