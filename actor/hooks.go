package actor

// Setter lets an actor record a handle to itself. Spawn calls SetHandle
// exactly once, before the worker goroutine starts, so an actor can hand its
// own handle to collaborators (e.g. for registration callbacks) from within
// its first action.
type Setter[A any] interface {
	SetHandle(*Handle[A])
}

// Stopper lets an actor run teardown logic right before its worker goroutine
// exits on a normal Stop or an action error. A panic skips this hook, just
// as it skips the rest of the worker loop.
type Stopper interface {
	Stop()
}
