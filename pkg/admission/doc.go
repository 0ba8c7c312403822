// Package admission implements a bounded-concurrency gate with strict FIFO
// fairness.
//
// A Controller holds at most Capacity sessions in its active set. Sessions
// call Admit, which queues them in arrival order and blocks until they are at
// the head of the queue and a slot is free; they call Release when they are
// done. Freed capacity always goes to the oldest waiter, so no session can be
// overtaken by one that arrived later.
//
// # Usage
//
//	ctrl := admission.New[uuid.UUID](2, admission.WithLogger(log))
//	defer ctrl.Close()
//
//	if err := ctrl.Admit(ctx, sess.ID, func(pos int) {
//	    notifyClient("waiting, position", pos)
//	}); err != nil {
//	    return err
//	}
//	defer ctrl.Release(sess.ID)
//
// # Waiting and cancellation
//
// Waiters park on a sync.Cond and are woken by broadcast whenever a slot is
// freed, a session is admitted or abandons its wait, or the controller is
// closed; each re-checks its own predicate. A waiter whose context ends is
// removed from the queue and Admit returns an error wrapping
// ErrAdmissionAbandoned, so a client that disconnects while queued never
// leaves a phantom entry behind. Close releases every waiter with
// ErrControllerClosed.
//
// The queue is unbounded; overload shows up as waiting time, never as a
// rejection.
package admission
