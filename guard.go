package xsync

import "sync/atomic"

// Locker is implemented by SpinLock and Mutex.
type Locker[T any] interface {
	// Lock blocks until the lock is acquired.
	Lock() *Guard[T]
	// TryLock makes a single acquisition attempt.
	TryLock() (*Guard[T], bool)
	// With runs fn while holding the lock.
	With(fn func(*T))
}

type releaser interface {
	release()
	kind() string
}

// Guard is the proof of a held lock and the only way to reach the guarded value.
//
// Every guard must be unlocked exactly once, usually with defer:
//
//	g := l.Lock()
//	defer g.Unlock()
//	*g.Value()++
//
// Unlocking a guard twice is a fatal error.
type Guard[T any] struct {
	_        noCopy
	value    *T
	lock     releaser
	released atomic.Bool
}

func newGuard[T any](value *T, lock releaser) *Guard[T] {
	return &Guard[T]{value: value, lock: lock}
}

// Value returns a pointer to the guarded value.
// The pointer must not be used after Unlock.
func (g *Guard[T]) Value() *T {
	return g.value
}

// Get returns a copy of the guarded value.
func (g *Guard[T]) Get() T {
	return *g.value
}

// Set replaces the guarded value.
func (g *Guard[T]) Set(v T) {
	*g.value = v
}

// Unlock releases the lock.
func (g *Guard[T]) Unlock() {
	if g.released.Swap(true) {
		fatalf("unlock of unlocked %s", g.lock.kind())
	}
	g.lock.release()
}

func with[T any](l Locker[T], fn func(*T)) {
	g := l.Lock()
	defer g.Unlock()
	fn(g.Value())
}
