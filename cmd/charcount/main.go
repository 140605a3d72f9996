// Command charcount counts occurrences of a character in a file using
// several worker threads that add their partial counts to a shared,
// lock-guarded accumulator.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"log"
	"os"
	"runtime"

	"github.com/loov/hrtime"

	"github.com/aradilov/xsync"
)

func main() {
	var (
		file    = flag.String("file", "", "file to process")
		threads = flag.Int("threads", runtime.NumCPU(), "number of worker threads")
		char    = flag.String("char", "", "character to count")
		lock    = flag.String("lock", "mutex", "accumulator lock: spin or mutex")
		pin     = flag.Bool("pin", false, "pin worker i to cpu i mod NumCPU")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage:\n\t%s -file <file> -threads <n> -char <c>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	log.SetFlags(0)
	log.SetPrefix("charcount: ")

	if *file == "" {
		usagef("no file provided")
	}
	if len(*char) != 1 {
		usagef("invalid character to count %q", *char)
	}
	if *threads < 1 {
		usagef("invalid number of threads %d", *threads)
	}
	acc, err := newAccumulator(*lock)
	if err != nil {
		usagef("%v", err)
	}

	data, unmap, err := mapFile(*file)
	if err != nil {
		log.Fatal(err)
	}
	defer unmap()

	n := *threads
	if n > len(data)/2 {
		log.Printf("%d threads exceed half of the file size (%d), using %d", n, len(data), len(data)/2)
		n = len(data) / 2
	}

	start := hrtime.TSC()
	total := count(data, (*char)[0], n, acc, *pin)
	stop := hrtime.TSC()

	fmt.Println(total)
	log.Printf("%d threads, %s lock, %v", n, *lock, (stop - start).ApproxDuration())
}

func usagef(format string, args ...any) {
	log.Printf(format, args...)
	flag.Usage()
	os.Exit(1)
}

func newAccumulator(kind string) (xsync.Locker[uint64], error) {
	switch kind {
	case "spin":
		return xsync.NewSpinLock[uint64](0), nil
	case "mutex":
		return xsync.NewMutex[uint64](0), nil
	default:
		return nil, fmt.Errorf("unknown lock %q", kind)
	}
}

// count splits data into n blocks, the last one taking the remainder,
// and counts c in each block on its own thread.
func count(data []byte, c byte, n int, acc xsync.Locker[uint64], pin bool) uint64 {
	block := len(data) / n
	workers := make([]*xsync.Thread[struct{}], 0, n)
	for i := 0; i < n; i++ {
		lo, hi := i*block, (i+1)*block
		if i == n-1 {
			hi = len(data)
		}

		var opts []xsync.ThreadOption
		if pin {
			opts = append(opts, xsync.WithCPU(i%runtime.NumCPU()))
		}
		workers = append(workers, xsync.Go(func(b []byte) struct{} {
			k := uint64(bytes.Count(b, []byte{c}))
			acc.With(func(v *uint64) { *v += k })
			return struct{}{}
		}, data[lo:hi], opts...))
	}
	xsync.JoinAll(workers)

	g := acc.Lock()
	defer g.Unlock()
	return g.Get()
}
