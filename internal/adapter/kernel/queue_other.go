//go:build !linux && !darwin

package kernel

// ReadQueue returns the bytes currently queued for reading on fd.
func ReadQueue(fd int) (n int, label string, ok bool) {
	return 0, "", false
}

// WriteQueue returns the bytes currently queued for writing on fd.
func WriteQueue(fd int) (n int, label string, ok bool) {
	return 0, "", false
}

// QueueSpace returns the remaining buffer space on fd.
func QueueSpace(fd int) (n int, label string, ok bool) {
	return 0, "", false
}
