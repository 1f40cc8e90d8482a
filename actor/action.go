package actor

// Action is a deferred, one-shot closure applied to an actor's state by its
// worker goroutine. Actions never return a value to their sender; the only
// way to observe their effect is the actor's subsequent behavior, or an
// error that terminates the worker.
type Action[A any] func(*A) (Outcome, error)
