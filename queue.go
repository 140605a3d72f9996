package xsync

import "sync/atomic"

type queueNode[T any] struct {
	refs[queueNode[T]]
	next  atomic.Pointer[queueNode[T]]
	value T
}

// Queue is an unbounded lock-free FIFO queue.
//
// Push and Pop may be called concurrently from any number of goroutines.
// Head and tail move independently: producers only touch the tail (and the
// head of an empty queue), consumers claim the head node before unlinking it.
type Queue[T any] struct {
	_    [64]byte
	head atomic.Pointer[ref[queueNode[T]]]
	_    [64]byte
	tail atomic.Pointer[queueNode[T]]
	_    [64]byte
}

// NewQueue creates an empty queue.
func NewQueue[T any]() *Queue[T] {
	return &Queue[T]{}
}

// Push appends v to the tail of the queue.
func (q *Queue[T]) Push(v T) {
	n := &queueNode[T]{value: v}
	n.init(n)

	prev := q.tail.Swap(n)
	if prev != nil {
		prev.next.Store(n)
		return
	}

	// n starts a new chain. The head may still be claimed by the pop that
	// detached the previous tail; wait for it to commit.
	var spins uint32
	for !q.head.CompareAndSwap(nil, &n.plain) {
		spins++
		backoff(spins)
	}
}

// Pop removes and returns the value at the head of the queue.
// Returns (zero, false) if the queue is empty.
func (q *Queue[T]) Pop() (T, bool) {
	n := q.claim()
	if n == nil {
		var zero T
		return zero, false
	}
	q.unlink(n)

	v := n.value
	var zero T
	n.value = zero
	n.next.Store(nil)
	return v, true
}

func (q *Queue[T]) claim() *queueNode[T] {
	return claimTop(&q.head, func(n *queueNode[T]) *ref[queueNode[T]] { return &n.claim })
}

// unlink commits the removal of the claimed head node n.
func (q *Queue[T]) unlink(n *queueNode[T]) {
	var after *ref[queueNode[T]]
	next := n.next.Load()
	if next == nil && !q.tail.CompareAndSwap(n, nil) {
		// a producer swapped the tail past n and is about to link it
		var spins uint32
		for next = n.next.Load(); next == nil; next = n.next.Load() {
			spins++
			backoff(spins)
		}
	}
	if next != nil {
		after = &next.plain
	}

	if !q.head.CompareAndSwap(&n.claim, after) {
		fatalf("claimed queue head changed during pop")
	}
}

// Empty reports whether the queue held no poppable values at the moment of the call.
func (q *Queue[T]) Empty() bool {
	return q.head.Load() == nil
}

// Drain pops every remaining value, passing each to fn if fn is not nil.
// Returns the number of values removed.
func (q *Queue[T]) Drain(fn func(T)) int {
	return drain(q.Pop, fn)
}
