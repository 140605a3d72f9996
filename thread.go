package xsync

import (
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"
)

// ErrPinUnsupported is logged when WithCPU is used on a platform without thread affinity.
var ErrPinUnsupported = errors.New("cpu pinning is not supported on this platform")

// handle lifecycle
const (
	alive int32 = iota
	joined
	detached
)

// ThreadOption customizes a Thread.
type ThreadOption func(*threadConfig)

type threadConfig struct {
	name string
	cpu  int
}

// WithName labels the thread in log messages.
func WithName(name string) ThreadOption {
	return func(c *threadConfig) {
		c.name = name
	}
}

// WithCPU pins the thread to the given CPU.
// A failure to pin is logged and the thread runs unpinned.
func WithCPU(cpu int) ThreadOption {
	if cpu < 0 {
		panic("cpu must be >= 0")
	}
	return func(c *threadConfig) {
		c.cpu = cpu
	}
}

// Thread runs a function on a dedicated OS thread and carries its result
// back to the goroutine that joins it.
//
// The thread starts as soon as it is created. Every Thread must be either
// joined or detached, exactly once. A Thread collected by the garbage
// collector while neither is logged.
type Thread[R any] struct {
	_       noCopy
	name    string
	state   *atomic.Int32
	started chan struct{}
	done    chan struct{}
	tid     int
	result  R
}

// start is the record handed to the new thread.
type start[A, R any] struct {
	fn  func(A) R
	arg A
	cpu int
}

// Go starts fn(arg) on a new thread.
func Go[A, R any](fn func(A) R, arg A, opts ...ThreadOption) *Thread[R] {
	cfg := threadConfig{cpu: -1}
	for _, opt := range opts {
		opt(&cfg)
	}

	t := &Thread[R]{
		name:    cfg.name,
		state:   new(atomic.Int32),
		started: make(chan struct{}),
		done:    make(chan struct{}),
	}
	runtime.AddCleanup(t, reportLeak, leak{name: cfg.name, state: t.state})
	go run(t, &start[A, R]{fn: fn, arg: arg, cpu: cfg.cpu})
	return t
}

// leak is what the cleanup of a Thread sees. It must not point back to the Thread.
type leak struct {
	name  string
	state *atomic.Int32
}

func reportLeak(l leak) {
	if l.state.Load() == alive {
		logf("thread %q collected without being joined or detached", l.name)
	}
}

// Spawn starts fn on a new thread.
func Spawn[R any](fn func() R, opts ...ThreadOption) *Thread[R] {
	return Go(func(struct{}) R { return fn() }, struct{}{}, opts...)
}

// Run starts fn on a new thread. Joining it only waits for completion.
func Run(fn func(), opts ...ThreadOption) *Thread[struct{}] {
	return Spawn(func() struct{} {
		fn()
		return struct{}{}
	}, opts...)
}

func run[A, R any](t *Thread[R], s *start[A, R]) {
	// Never unlocked: the OS thread is torn down when the body returns.
	runtime.LockOSThread()

	t.tid = currentThreadID()
	if s.cpu >= 0 {
		if err := pinCurrentThread(s.cpu); err != nil {
			logf("thread %q (tid %d): pin to cpu %d: %v", t.name, t.tid, s.cpu, err)
		}
	}
	close(t.started)

	defer close(t.done)
	t.result = s.fn(s.arg)
}

// Join waits for the thread to finish and returns its result.
// Panics if the thread was already joined or detached.
func (t *Thread[R]) Join() R {
	if !t.state.CompareAndSwap(alive, joined) {
		panic("thread already joined or detached")
	}
	<-t.done

	r := t.result
	var zero R
	t.result = zero
	return r
}

// Detach gives up the result. The thread keeps running and its resources
// are reclaimed once it finishes.
// Panics if the thread was already joined or detached.
func (t *Thread[R]) Detach() {
	if !t.state.CompareAndSwap(alive, detached) {
		panic("thread already joined or detached")
	}
}

// Done is closed when the thread body returns.
func (t *Thread[R]) Done() <-chan struct{} {
	return t.done
}

// ID returns the native id of the thread, or 0 where the platform has none.
// Waits for the thread to start.
func (t *Thread[R]) ID() int {
	<-t.started
	return t.tid
}

func (t *Thread[R]) String() string {
	if t.name != "" {
		return t.name
	}
	select {
	case <-t.started:
		return fmt.Sprintf("tid=%d", t.tid)
	default:
		return "starting"
	}
}

// JoinAll joins every thread in order and returns their results.
func JoinAll[R any](threads []*Thread[R]) []R {
	results := make([]R, len(threads))
	for i, t := range threads {
		results[i] = t.Join()
	}
	return results
}
