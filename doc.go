// Package xsync provides hand-built concurrency primitives: atomic word
// cells, lock-free stack and queue, a spinning lock and a parking mutex
// that hand out guards to the value they protect, and OS-thread workers
// that return a typed result when joined.
package xsync
