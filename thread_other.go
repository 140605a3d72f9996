//go:build !linux

package xsync

func currentThreadID() int {
	return 0
}

func pinCurrentThread(int) error {
	return ErrPinUnsupported
}
