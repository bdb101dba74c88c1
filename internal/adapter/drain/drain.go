// Package drain recovers whatever the kernel buffered on the read
// side of a probed channel.
package drain

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"

	"ipcbuf/internal/adapter/kernel"
	"ipcbuf/internal/domain"
)

// defaultBufSize matches the stdio BUFSIZ the tool historically used.
const defaultBufSize = 8192

// Engine reads a nonblocking endpoint until it is empty or closed.
type Engine struct {
	rep  domain.Reporter
	read func(fd int, p []byte) (int, error)
}

// New creates a drain engine.
func New(rep domain.Reporter) *Engine {
	return &Engine{rep: rep, read: unix.Read}
}

// Drain consumes fd until the read queue is empty, a read would
// block, or the peer closed. minBuf is the largest chunk ever written
// to the channel; the read buffer is at least that big so datagram
// reads are never truncated. Returns the total bytes recovered.
func (e *Engine) Drain(fd, minBuf int) (int, error) {
	e.rep.Printf("Draining...\n")

	bufsiz := defaultBufSize
	if minBuf > bufsiz {
		bufsiz = minBuf
	}
	buf := make([]byte, bufsiz)

	if err := unix.SetNonblock(fd, true); err != nil {
		return 0, fmt.Errorf("set read end nonblocking: %w", err)
	}

	total := 0
	for {
		if n, label, ok := kernel.ReadQueue(fd); ok {
			e.rep.Metric(label, n)
			if n == 0 {
				break
			}
		}

		nr, err := e.read(fd, buf)
		if err != nil {
			// EWOULDBLOCK aliases EAGAIN on every supported platform.
			if errors.Is(err, unix.EAGAIN) {
				break
			}
			return total, fmt.Errorf("read: %w", err)
		}
		total += nr
		if nr == 0 {
			// EOF: the write side closed and everything queued has
			// been recovered.
			break
		}
	}

	return total, nil
}
