package xsync

import "sync/atomic"

type stackNode[T any] struct {
	refs[stackNode[T]]
	prev  atomic.Pointer[ref[stackNode[T]]]
	value T
}

// Stack is an unbounded lock-free LIFO stack.
//
// Push and Pop may be called concurrently from any number of goroutines.
// A pop claims the top node before unlinking it; pushes and other pops wait
// for the claim to be committed instead of racing past it.
type Stack[T any] struct {
	_   [64]byte
	top atomic.Pointer[ref[stackNode[T]]]
	_   [64]byte
}

// NewStack creates an empty stack.
func NewStack[T any]() *Stack[T] {
	return &Stack[T]{}
}

// Push puts v on top of the stack.
func (s *Stack[T]) Push(v T) {
	n := &stackNode[T]{value: v}
	n.init(n)

	var spins uint32
	for {
		top := s.top.Load()
		if top == nil || !top.claimed {
			n.prev.Store(top)
			if s.top.CompareAndSwap(top, &n.plain) {
				return
			}
		}
		// top is mid-pop or moved, retry
		spins++
		backoff(spins)
	}
}

// Pop removes and returns the top value.
// Returns (zero, false) if the stack is empty.
func (s *Stack[T]) Pop() (T, bool) {
	n := s.claim()
	if n == nil {
		var zero T
		return zero, false
	}
	s.unlink(n)

	v := n.value
	var zero T
	n.value = zero
	n.prev.Store(nil)
	return v, true
}

func (s *Stack[T]) claim() *stackNode[T] {
	return claimTop(&s.top, func(n *stackNode[T]) *ref[stackNode[T]] { return &n.claim })
}

// unlink commits the removal of the claimed top node n.
func (s *Stack[T]) unlink(n *stackNode[T]) {
	if !s.top.CompareAndSwap(&n.claim, n.prev.Load()) {
		fatalf("claimed stack top changed during pop")
	}
}

// Empty reports whether the stack held no values at the moment of the call.
func (s *Stack[T]) Empty() bool {
	return s.top.Load() == nil
}

// Drain pops every remaining value, passing each to fn if fn is not nil.
// Returns the number of values removed.
func (s *Stack[T]) Drain(fn func(T)) int {
	return drain(s.Pop, fn)
}

func drain[T any](pop func() (T, bool), fn func(T)) int {
	var count int
	for {
		v, ok := pop()
		if !ok {
			return count
		}
		if fn != nil {
			fn(v)
		}
		count++
	}
}
