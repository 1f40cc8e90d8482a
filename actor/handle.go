// Package actor is a small generic actor runtime: spawn a value of any type
// A onto its own worker goroutine, then interact with it only by enqueuing
// Actions through a Handle[A]. An actor's state is only ever touched by its
// own worker goroutine, never by a caller directly.
package actor

import (
	"errors"
	"fmt"
	"sync"

	"github.com/lindqvist/peeractor/logging"
)

// joinHandle is a worker goroutine's completion signal, plus any panic it
// suffered.
type joinHandle struct {
	done chan struct{}
	err  error
}

// joinSlot is a try-lockable home for a joinHandle: whoever acquires the
// lock first is the one that actually waits for the worker to finish;
// everyone else's Stop returns immediately. Without this, two actors that
// hold handles to each other could deadlock trying to join one another from
// within each other's own teardown.
type joinSlot struct {
	mu sync.Mutex
	jh *joinHandle
}

// Handle is a threadsafe reference to a running actor's mailbox. Copies of a
// Handle value all refer to the same actor, so it is already safe to share
// across goroutines without an explicit Clone.
type Handle[A any] struct {
	mailbox *mailbox[A]
	join    *joinSlot
}

// Clone returns a reference to the same actor. Handle already has reference
// semantics, so this is an identity operation kept for API symmetry.
func (h *Handle[A]) Clone() *Handle[A] {
	return h
}

// Spawn starts initial running on its own worker goroutine and returns a
// Handle to it. If initial implements Setter[A], its SetHandle is called
// with the new handle before the goroutine starts, so the first action it
// ever runs can already see its own handle.
//
// The worker drains actions strictly in FIFO order until one returns Stop,
// returns a non-nil error, or panics. On any of those, if the (now-copied)
// state implements Stopper, its Stop method runs before the goroutine exits
// — except after a panic, where the goroutine unwinds immediately and
// teardown is skipped, matching a worker thread that panics without ever
// reaching its own cleanup code.
func Spawn[A any](initial A) *Handle[A] {
	mb := newMailbox[A]()
	done := make(chan struct{})
	jh := &joinHandle{done: done}
	h := &Handle[A]{mailbox: mb, join: &joinSlot{jh: jh}}

	if s, ok := any(&initial).(Setter[A]); ok {
		s.SetHandle(h)
	}

	go func() {
		defer close(done)
		defer mb.close()
		defer func() {
			if r := recover(); r != nil {
				jh.err = panicError(r)
			}
		}()

		state := initial
		for {
			action, ok := mb.recv()
			if !ok {
				break
			}
			outcome, err := action(&state)
			if err != nil {
				logging.Actor("unhandled error in actor thread: %v", err)
				break
			}
			if outcome == Stop {
				break
			}
		}
		if s, ok := any(&state).(Stopper); ok {
			s.Stop()
		}
	}()

	return h
}

// Act enqueues f to run on the actor's worker goroutine. It fails only once
// the worker has stopped and closed its mailbox — the only receiver there
// ever is for this mailbox is gone.
func (h *Handle[A]) Act(f Action[A]) error {
	if !h.mailbox.send(f) {
		return errors.New("actor mailbox closed")
	}
	return nil
}

// Stop asks the actor to stop, then waits for its worker to finish — unless
// another caller is already joining it, in which case Stop returns
// immediately without waiting. That non-blocking try-lock is what makes it
// safe to call Stop concurrently, or from within another actor's own
// teardown, on a cyclic handle graph.
func (h *Handle[A]) Stop() error {
	_ = h.Act(func(*A) (Outcome, error) { return Stop, nil })

	if !h.join.mu.TryLock() {
		return nil
	}
	defer h.join.mu.Unlock()

	jh := h.join.jh
	if jh == nil {
		return nil
	}
	h.join.jh = nil

	<-jh.done
	if jh.err != nil {
		return fmt.Errorf("actor worker panicked: %w", jh.err)
	}
	return nil
}

func panicError(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	if s, ok := r.(string); ok {
		return errors.New(s)
	}
	return fmt.Errorf("%v", r)
}
