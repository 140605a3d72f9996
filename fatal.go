package xsync

import (
	"fmt"
	"log"
	"os"
	"sync/atomic"
)

var logger atomic.Pointer[log.Logger]

func init() {
	logger.Store(log.New(os.Stderr, "xsync: ", log.LstdFlags))
}

// SetLogger replaces the logger used for fatal errors and thread diagnostics.
// A nil logger restores the default one writing to stderr.
func SetLogger(l *log.Logger) {
	if l == nil {
		l = log.New(os.Stderr, "xsync: ", log.LstdFlags)
	}
	logger.Store(l)
}

func logf(format string, args ...any) {
	logger.Load().Printf(format, args...)
}

// fatalf reports a broken concurrency invariant and terminates the process.
// Unlike panic it cannot be recovered.
func fatalf(format string, args ...any) {
	logger.Load().Output(2, "fatal error: "+fmt.Sprintf(format, args...))
	os.Exit(2)
}
