package xsync

import "runtime"

type spinControl[T any] struct {
	_        [64]byte
	locked   Atomic[bool]
	_        [64]byte
	guardant T
}

func (c *spinControl[T]) acquire() bool {
	return !c.locked.Swap(true)
}

func (c *spinControl[T]) release() {
	if !c.locked.Swap(false) {
		fatalf("unlock of unlocked spinlock")
	}
}

func (c *spinControl[T]) kind() string {
	return "spinlock"
}

// SpinLock guards a value of type T. Contenders spin, yielding the
// processor after every failed attempt.
//
// Suited for short critical sections. Handles made with Clone share the
// same lock and value.
type SpinLock[T any] struct {
	c *spinControl[T]
}

// NewSpinLock creates an unlocked SpinLock guarding v.
func NewSpinLock[T any](v T) *SpinLock[T] {
	return &SpinLock[T]{c: &spinControl[T]{guardant: v}}
}

// Lock spins until the lock is acquired.
func (l *SpinLock[T]) Lock() *Guard[T] {
	for !l.c.acquire() {
		runtime.Gosched()
	}
	return newGuard(&l.c.guardant, l.c)
}

// TryLock makes a single acquisition attempt.
func (l *SpinLock[T]) TryLock() (*Guard[T], bool) {
	if !l.c.acquire() {
		return nil, false
	}
	return newGuard(&l.c.guardant, l.c), true
}

// With runs fn with the lock held. The lock is released when fn returns or panics.
func (l *SpinLock[T]) With(fn func(*T)) {
	with[T](l, fn)
}

// Clone returns another handle to the same lock.
func (l *SpinLock[T]) Clone() *SpinLock[T] {
	return &SpinLock[T]{c: l.c}
}
