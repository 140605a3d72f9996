//go:build linux

package xsync

import "golang.org/x/sys/unix"

func currentThreadID() int {
	return unix.Gettid()
}

// pinCurrentThread restricts the calling OS thread to a single CPU.
// The goroutine must be locked to its thread.
func pinCurrentThread(cpu int) error {
	var set unix.CPUSet
	set.Zero()
	set.Set(cpu)
	return unix.SchedSetaffinity(0, &set)
}
