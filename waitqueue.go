package xsync

import (
	"sync/atomic"

	"github.com/eapache/queue"
)

const (
	waiting int32 = iota
	woken
	cancelled
)

// waiter is one goroutine blocked in Mutex.Lock.
type waiter struct {
	state atomic.Int32
	ready chan struct{}
}

func newWaiter() *waiter {
	return &waiter{ready: make(chan struct{}, 1)}
}

// wake unparks w unless it has already been woken or cancelled.
func (w *waiter) wake() bool {
	if !w.state.CompareAndSwap(waiting, woken) {
		return false
	}
	w.ready <- struct{}{}
	return true
}

// cancel withdraws w from the queue. Returns false if a release already woke it.
func (w *waiter) cancel() bool {
	return w.state.CompareAndSwap(waiting, cancelled)
}

func (w *waiter) park() {
	<-w.ready
}

type waitQueue interface {
	// push returns false if the waiter could not be queued.
	push(w *waiter) bool
	pop() (*waiter, bool)
}

type lockFreeWaitQueue struct {
	q Queue[*waiter]
}

func (q *lockFreeWaitQueue) push(w *waiter) bool {
	q.q.Push(w)
	return true
}

func (q *lockFreeWaitQueue) pop() (*waiter, bool) {
	return q.q.Pop()
}

// spinWaitQueue is a growable ring guarded by a SpinLock.
type spinWaitQueue struct {
	l *SpinLock[*queue.Queue]
}

func newSpinWaitQueue() *spinWaitQueue {
	return &spinWaitQueue{l: NewSpinLock(queue.New())}
}

func (q *spinWaitQueue) push(w *waiter) bool {
	g := q.l.Lock()
	defer g.Unlock()
	g.Get().Add(w)
	return true
}

func (q *spinWaitQueue) pop() (*waiter, bool) {
	g := q.l.Lock()
	defer g.Unlock()
	if g.Get().Length() == 0 {
		return nil, false
	}
	return g.Get().Remove().(*waiter), true
}

type boundedWaitQueue struct {
	r *ring[*waiter]
}

func (q *boundedWaitQueue) push(w *waiter) bool {
	return q.r.push(w)
}

func (q *boundedWaitQueue) pop() (*waiter, bool) {
	return q.r.pop()
}
