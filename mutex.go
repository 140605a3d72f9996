package xsync

import (
	"runtime"

	"github.com/valyala/fastrand"
)

// defaultSpins bounds the yields a contender makes before it parks.
const defaultSpins = 8

// MutexOption customizes a Mutex.
type MutexOption func(*mutexConfig)

type mutexConfig struct {
	waiters waitQueue
	spins   uint32
}

// WithLockFreeWaitQueue parks contenders on a lock-free queue. This is the default.
func WithLockFreeWaitQueue() MutexOption {
	return func(c *mutexConfig) {
		c.waiters = &lockFreeWaitQueue{}
	}
}

// WithSpinWaitQueue parks contenders on a SpinLock-guarded ring queue.
func WithSpinWaitQueue() MutexOption {
	return func(c *mutexConfig) {
		c.waiters = newSpinWaitQueue()
	}
}

// WithBoundedWaitQueue parks at most capacity contenders on a bounded
// lock-free ring; the rest keep spinning until a slot frees up.
// capacity must be a power of two.
func WithBoundedWaitQueue(capacity uint64) MutexOption {
	return func(c *mutexConfig) {
		c.waiters = &boundedWaitQueue{r: newRing[*waiter](capacity)}
	}
}

// WithSpins sets the upper bound of yields before a contender parks.
// Zero parks on the first failed attempt.
func WithSpins(n int) MutexOption {
	return func(c *mutexConfig) {
		if n < 0 {
			panic("spins must be >= 0")
		}
		c.spins = uint32(n)
	}
}

type mutexControl[T any] struct {
	_        [64]byte
	locked   Atomic[bool]
	_        [64]byte
	waiters  waitQueue
	spins    uint32
	guardant T
}

func (c *mutexControl[T]) acquire() bool {
	return !c.locked.Swap(true)
}

func (c *mutexControl[T]) lock() {
	if c.acquire() {
		return
	}

	if c.spins > 0 {
		for n := fastrand.Uint32n(c.spins) + 1; n > 0; n-- {
			runtime.Gosched()
			if c.acquire() {
				return
			}
		}
	}

	for {
		w := newWaiter()
		if !c.waiters.push(w) {
			runtime.Gosched()
			if c.acquire() {
				return
			}
			continue
		}

		// The holder may have released between the failed attempt and the
		// push; without this retry nobody would wake w.
		if c.acquire() {
			w.cancel()
			return
		}

		w.park()
		if c.acquire() {
			return
		}
	}
}

func (c *mutexControl[T]) release() {
	if !c.locked.Swap(false) {
		fatalf("unlock of unlocked mutex")
	}
	for {
		w, ok := c.waiters.pop()
		if !ok || w.wake() {
			return
		}
		// cancelled entry, try the next one
	}
}

func (c *mutexControl[T]) kind() string {
	return "mutex"
}

// Mutex guards a value of type T. Contenders park on a wait queue instead
// of spinning; every unlock wakes exactly one of them, which then competes
// for the lock again. There is no direct hand-off, so a running goroutine
// may acquire the lock ahead of the woken one.
//
// Handles made with Clone share the same lock and value.
type Mutex[T any] struct {
	c *mutexControl[T]
}

// NewMutex creates an unlocked Mutex guarding v.
func NewMutex[T any](v T, opts ...MutexOption) *Mutex[T] {
	cfg := mutexConfig{spins: defaultSpins}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.waiters == nil {
		WithLockFreeWaitQueue()(&cfg)
	}

	return &Mutex[T]{c: &mutexControl[T]{
		waiters:  cfg.waiters,
		spins:    cfg.spins,
		guardant: v,
	}}
}

// Lock blocks until the lock is acquired.
func (m *Mutex[T]) Lock() *Guard[T] {
	m.c.lock()
	return newGuard(&m.c.guardant, m.c)
}

// TryLock makes a single acquisition attempt.
func (m *Mutex[T]) TryLock() (*Guard[T], bool) {
	if !m.c.acquire() {
		return nil, false
	}
	return newGuard(&m.c.guardant, m.c), true
}

// With runs fn with the lock held. The lock is released when fn returns or panics.
func (m *Mutex[T]) With(fn func(*T)) {
	with[T](m, fn)
}

// Clone returns another handle to the same lock.
func (m *Mutex[T]) Clone() *Mutex[T] {
	return &Mutex[T]{c: m.c}
}
