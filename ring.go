package xsync

import (
	"runtime"
	"sync/atomic"
)

// Bounded MPMC ring after Dmitry Vyukov:
// https://www.1024cores.net/home/lock-free-algorithms/queues/bounded-mpmc-queue

type slot[T any] struct {
	seq atomic.Uint64 // sequence number (controls visibility and slot ownership)
	val T
}

type ring[T any] struct {
	_        [64]byte
	mask     uint64
	capacity uint64
	slots    []slot[T]
	_        [64]byte
	enqueue  atomic.Uint64 // logical tail index (producers)
	_        [64]byte
	dequeue  atomic.Uint64 // logical head index (consumers)
	_        [64]byte
}

const goschedEvery = 64 // reduce runtime.Gosched() frequency in hot loops

func backoff(spins uint32) {
	if spins%goschedEvery == 0 {
		runtime.Gosched()
	}
}

// newRing creates a bounded ring.
// 'capacity' must be a power of two (1<<k).
func newRing[T any](capacity uint64) *ring[T] {
	if capacity == 0 || (capacity&(capacity-1)) != 0 {
		panic("capacity must be power of 2 and > 0")
	}

	slots := make([]slot[T], capacity)
	for i := uint64(0); i < capacity; i++ {
		slots[i].seq.Store(i)
	}

	return &ring[T]{
		mask:     capacity - 1,
		capacity: capacity,
		slots:    slots,
	}
}

// push appends v. Returns false if the ring is full.
func (r *ring[T]) push(v T) bool {
	var spins uint32
	for {
		pos := r.enqueue.Load()
		s := &r.slots[pos&r.mask]

		diff := int64(s.seq.Load()) - int64(pos)
		switch {
		case diff == 0:
			if r.enqueue.CompareAndSwap(pos, pos+1) {
				s.val = v
				// publish: seq = pos+1
				s.seq.Store(pos + 1)
				return true
			}
		case diff < 0:
			// consumer has not freed this slot yet
			return false
		}
		// lost the race or slot still belongs to a previous cycle
		spins++
		backoff(spins)
	}
}

// pop removes the oldest value. Returns (zero, false) if the ring is empty.
func (r *ring[T]) pop() (T, bool) {
	var zero T
	var spins uint32
	for {
		pos := r.dequeue.Load()
		s := &r.slots[pos&r.mask]

		diff := int64(s.seq.Load()) - int64(pos+1)
		switch {
		case diff == 0:
			if r.dequeue.CompareAndSwap(pos, pos+1) {
				v := s.val
				s.val = zero
				// next time this physical slot is used at pos+capacity
				s.seq.Store(pos + r.capacity)
				return v, true
			}
		case diff < 0:
			return zero, false
		}
		// another consumer won, or a producer is mid-publish
		spins++
		backoff(spins)
	}
}
