package kernel

import "golang.org/x/sys/unix"

// Darwin supports FIONREAD on every descriptor type but has no
// write-queue or free-space ioctl.

// ReadQueue returns the bytes currently queued for reading on fd.
func ReadQueue(fd int) (n int, label string, ok bool) {
	v, err := unix.IoctlGetInt(fd, unix.FIONREAD)
	if err != nil {
		return 0, "", false
	}
	return v, "FIONREAD", true
}

// WriteQueue returns the bytes currently queued for writing on fd.
func WriteQueue(fd int) (n int, label string, ok bool) {
	return 0, "", false
}

// QueueSpace returns the remaining buffer space on fd.
func QueueSpace(fd int) (n int, label string, ok bool) {
	return 0, "", false
}
