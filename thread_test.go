package xsync

import (
	"log"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestThreadJoinReturnsResult(t *testing.T) {
	th := Go(func(x int) int { return x + 1 }, 41)
	if v := th.Join(); v != 42 {
		t.Fatalf("expected 42, got %d", v)
	}
}

func TestThreadSpawnAndRun(t *testing.T) {
	s := Spawn(func() string { return "done" })
	if v := s.Join(); v != "done" {
		t.Fatalf("expected %q, got %q", "done", v)
	}

	// Join makes the body's writes visible to the joiner.
	var written []int
	r := Run(func() { written = append(written, 1, 2, 3) })
	r.Join()
	if len(written) != 3 {
		t.Fatalf("writes of the joined thread are not visible: %v", written)
	}
}

func TestThreadJoinTwicePanics(t *testing.T) {
	th := Run(func() {})
	th.Join()

	defer func() {
		if recover() == nil {
			t.Fatalf("second Join did not panic")
		}
	}()
	th.Join()
}

func TestThreadJoinAfterDetachPanics(t *testing.T) {
	release := make(chan struct{})
	th := Run(func() { <-release })
	th.Detach()
	close(release)

	select {
	case <-th.Done():
	case <-time.After(10 * time.Second):
		t.Fatalf("detached thread did not finish")
	}

	defer func() {
		if recover() == nil {
			t.Fatalf("Join after Detach did not panic")
		}
	}()
	th.Join()
}

func TestJoinAll(t *testing.T) {
	const N = 16

	threads := make([]*Thread[int], N)
	for i := range threads {
		threads[i] = Go(func(x int) int { return x * x }, i)
	}

	for i, v := range JoinAll(threads) {
		if v != i*i {
			t.Fatalf("result %d is %d, expected %d", i, v, i*i)
		}
	}
}

// Threads run in parallel: all of them can be blocked at the same time.
func TestThreadsRunConcurrently(t *testing.T) {
	const N = 8

	var started sync.WaitGroup
	started.Add(N)
	release := make(chan struct{})

	threads := make([]*Thread[struct{}], N)
	for i := range threads {
		threads[i] = Run(func() {
			started.Done()
			<-release
		}, WithName("blocked"))
	}

	started.Wait()
	close(release)
	JoinAll(threads)
}

// The benchmark workload: workers add into a guarded accumulator, the
// spawner reads the total after joining them all.
func TestThreadsAccumulate(t *testing.T) {
	const (
		workers = 8
		K       = 1_000
	)

	for _, desc := range lockers[uint64]() {
		t.Run(desc.Name, func(t *testing.T) {
			acc := desc.Create(0)

			threads := make([]*Thread[uint64], workers)
			for i := range threads {
				threads[i] = Go(func(n int) uint64 {
					for j := 0; j < n; j++ {
						acc.With(func(v *uint64) { *v++ })
					}
					return uint64(n)
				}, K)
			}

			var sum uint64
			for _, v := range JoinAll(threads) {
				sum += v
			}

			g := acc.Lock()
			defer g.Unlock()
			if v := g.Get(); v != sum || v != workers*K {
				t.Fatalf("accumulated %d, workers reported %d, expected %d", v, sum, workers*K)
			}
		})
	}
}

func TestWithCPURejectsNegative(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	WithCPU(-1)
}

func TestThreadString(t *testing.T) {
	th := Run(func() {}, WithName("worker-1"))
	if s := th.String(); s != "worker-1" {
		t.Fatalf("expected worker-1, got %q", s)
	}
	th.Join()
}

// lineSink collects log lines written from any goroutine.
type lineSink chan string

func (s lineSink) Write(p []byte) (int, error) {
	select {
	case s <- string(p):
	default:
	}
	return len(p), nil
}

// A handle dropped without Join or Detach is reported once it is collected.
func TestThreadLeakIsLogged(t *testing.T) {
	lines := make(lineSink, 64)
	SetLogger(log.New(lines, "", 0))
	defer SetLogger(nil)

	done := func() <-chan struct{} {
		return Run(func() {}, WithName("leaked")).Done()
	}()
	<-done

	const want = `thread "leaked" collected without being joined or detached`
	deadline := time.After(10 * time.Second)
	for {
		runtime.GC()
		select {
		case line := <-lines:
			if strings.Contains(line, want) {
				return
			}
		case <-deadline:
			t.Fatalf("leaked thread was not reported")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func BenchmarkThreadSpawnJoin(b *testing.B) {
	for i := 0; i < b.N; i++ {
		Go(func(x int) int { return x }, i).Join()
	}
}
