package kernel

import "golang.org/x/sys/unix"

// Linux exposes FIONREAD and SIOCOUTQ but neither works reliably on
// pipes or FIFOs, so queue queries are limited to socket-backed fds.
// There is no free-space ioctl at all.

// ReadQueue returns the bytes currently queued for reading on fd.
func ReadQueue(fd int) (n int, label string, ok bool) {
	if !IsSocket(fd) {
		return 0, "", false
	}
	v, err := unix.IoctlGetInt(fd, unix.SIOCINQ)
	if err != nil {
		return 0, "", false
	}
	return v, "FIONREAD", true
}

// WriteQueue returns the bytes currently queued for writing on fd.
func WriteQueue(fd int) (n int, label string, ok bool) {
	if !IsSocket(fd) {
		return 0, "", false
	}
	v, err := unix.IoctlGetInt(fd, unix.SIOCOUTQ)
	if err != nil {
		return 0, "", false
	}
	return v, "SIOCOUTQ", true
}

// QueueSpace returns the remaining buffer space on fd.
func QueueSpace(fd int) (n int, label string, ok bool) {
	return 0, "", false
}
