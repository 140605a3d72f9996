package xsync

import (
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
)

func TestQueueSequential(t *testing.T) {
	const N = 10_000

	q := NewQueue[int]()
	if _, ok := q.Pop(); ok {
		t.Fatalf("pop from a new queue succeeded")
	}

	for i := 0; i < N; i++ {
		q.Push(i)
	}
	for i := 0; i < N; i++ {
		v, ok := q.Pop()
		if !ok {
			t.Fatalf("pop failed at %d (queue unexpectedly empty)", i)
		}
		if v != i {
			t.Fatalf("expected %d, got %d (FIFO violated)", i, v)
		}
	}

	if !q.Empty() {
		t.Fatalf("queue not empty after popping everything")
	}

	// the queue is reusable after running dry
	q.Push(7)
	if v, ok := q.Pop(); !ok || v != 7 {
		t.Fatalf("expected 7 after refill, got %d (ok=%v)", v, ok)
	}
}

func TestQueueDrain(t *testing.T) {
	q := NewQueue[int]()
	for i := 0; i < 100; i++ {
		q.Push(i)
	}

	sum := 0
	if n := q.Drain(func(v int) { sum += v }); n != 100 {
		t.Fatalf("drained %d values, expected 100", n)
	}
	if sum != 99*100/2 {
		t.Fatalf("drained sum %d, expected %d", sum, 99*100/2)
	}
	if !q.Empty() {
		t.Fatalf("queue not empty after drain")
	}
}

// Single producer, single consumer running together: values arrive in order.
func TestQueueSPSCOrder(t *testing.T) {
	const N = 100_000

	q := NewQueue[int]()
	done := make(chan struct{})

	go func() {
		defer close(done)
		for i := 0; i < N; i++ {
			q.Push(i)
		}
	}()

	for next := 0; next < N; {
		v, ok := q.Pop()
		if !ok {
			runtime.Gosched()
			continue
		}
		if v != next {
			t.Fatalf("expected %d, got %d (FIFO violated)", next, v)
		}
		next++
	}
	<-done
}

// Producers and consumers run together; every value is popped exactly once.
func TestQueueConcurrent(t *testing.T) {
	const (
		N           = 100_000
		producers   = 8
		consumers   = 8
		perProducer = N / producers
	)

	q := NewQueue[int]()
	seen := make([]int32, N)
	var consumed atomic.Int64

	var wg sync.WaitGroup
	wg.Add(producers + consumers)

	for c := 0; c < consumers; c++ {
		go func() {
			defer wg.Done()
			for consumed.Load() < N {
				v, ok := q.Pop()
				if !ok {
					runtime.Gosched()
					continue
				}
				atomic.AddInt32(&seen[v], 1)
				consumed.Add(1)
			}
		}()
	}

	for p := 0; p < producers; p++ {
		go func(from, to int) {
			defer wg.Done()
			for i := from; i < to; i++ {
				q.Push(i)
			}
		}(p*perProducer, (p+1)*perProducer)
	}

	wg.Wait()

	for i := 0; i < N; i++ {
		if seen[i] != 1 {
			t.Fatalf("value %d seen %d times (expected 1)", i, seen[i])
		}
	}
}

// Each goroutine pushes one value and pops one value in a loop, so the
// queue keeps running dry and the tail keeps being detached and relinked.
func TestQueueEmptyTransitions(t *testing.T) {
	const (
		goroutines = 4
		rounds     = 20_000
		N          = goroutines * rounds
	)

	q := NewQueue[int]()
	seen := make([]int32, N)

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for g := 0; g < goroutines; g++ {
		go func(base int) {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				q.Push(base + i)
				for {
					v, ok := q.Pop()
					if ok {
						atomic.AddInt32(&seen[v], 1)
						break
					}
					runtime.Gosched()
				}
			}
		}(g * rounds)
	}
	wg.Wait()

	for i := 0; i < N; i++ {
		if seen[i] != 1 {
			t.Fatalf("value %d seen %d times (expected 1)", i, seen[i])
		}
	}
	if !q.Empty() {
		t.Fatalf("queue not empty at the end")
	}
}

func TestQueueCorruptedClaimIsFatal(t *testing.T) {
	out := expectFatal(t, func() {
		q := NewQueue[int]()
		q.Push(1)
		q.Push(2)
		n := q.claim()
		q.head.Store(nil)
		q.unlink(n)
	})
	expectContains(t, out, "claimed queue head changed during pop")
}

func BenchmarkQueuePushPop(b *testing.B) {
	q := NewQueue[int]()
	b.RunParallel(func(pb *testing.PB) {
		for i := 0; pb.Next(); i++ {
			q.Push(i)
			q.Pop()
		}
	})
}
