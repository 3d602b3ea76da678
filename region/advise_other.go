//go:build !linux

package region

func applyFadvise(fd int, size int64) {}

func applyMadvise(data []byte) {}
