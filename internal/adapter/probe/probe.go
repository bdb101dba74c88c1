// Package probe drives nonblocking writes against a channel's write
// endpoint to discover how much the kernel will buffer.
//
// A single write attempt has three interesting outcomes beyond plain
// success: EAGAIN means the channel is full — that is the capacity
// boundary the probe is looking for, not an error. EMSGSIZE and
// ENOBUFS mean the offered payload itself exceeds what the transport
// takes in one call, so the same logical chunk is retried one byte
// smaller. Everything else is a genuine fault.
package probe

import (
	"bytes"
	"errors"
	"fmt"

	"golang.org/x/sys/unix"

	"ipcbuf/internal/adapter/kernel"
	"ipcbuf/internal/domain"
)

// Engine is the capacity probe. It is single-use: one Probe call per
// engine, mirroring the one-measurement-per-run design.
type Engine struct {
	cfg   domain.RunConfig
	rep   domain.Reporter
	log   domain.Logger
	res   domain.ProbeResult
	write func(fd int, p []byte) (int, error)
}

// New creates a probe engine for one run.
func New(cfg domain.RunConfig, rep domain.Reporter, log domain.Logger) *Engine {
	return &Engine{cfg: cfg, rep: rep, log: log, write: unix.Write}
}

// Probe runs the configured strategy against fd and returns the
// accumulated result. The endpoint is forced nonblocking first; the
// remaining-space and queued-bytes ioctls bracket the writes where
// the platform supports them.
func (e *Engine) Probe(fd int) (domain.ProbeResult, error) {
	if err := unix.SetNonblock(fd, true); err != nil {
		return e.res, fmt.Errorf("set write end nonblocking: %w", err)
	}

	if n, label, ok := kernel.QueueSpace(fd); ok {
		e.rep.Metric(label, n)
	}
	e.rep.Printf("\n")

	var err error
	if e.cfg.Mode == domain.ModeLoop {
		err = e.writeLoop(fd)
	} else {
		err = e.writeChunks(fd)
	}
	if err != nil {
		return e.res, err
	}

	if n, label, ok := kernel.WriteQueue(fd); ok {
		e.rep.Metric(label, n)
	}
	e.rep.Final(e.res.Total)
	return e.res, nil
}

// writeLoop grows the chunk size after every fully accepted write:
// doubling when no increment is configured, otherwise adding it. The
// first write that is refused or only partially accepted ends the
// search.
func (e *Engine) writeLoop(fd int) error {
	count := e.cfg.Chunk1
	iters := 0
	for {
		n, stop, err := e.writeChunk(fd, count)
		if err != nil {
			return err
		}
		if stop {
			break
		}
		iters++
		if n != count {
			// Partial or shrunk write: the kernel took what it could;
			// the boundary is found.
			break
		}

		next := count * 2
		if e.cfg.Chunk2 >= 0 {
			next = count + e.cfg.Chunk2
		}
		if next == 0 {
			// A zero-byte chunk with no increment can never grow.
			break
		}
		count = next
	}

	e.rep.Metric("Iterations", iters)
	e.res.Iterations = iters
	return nil
}

// writeChunks writes the initial chunk and then the configured number
// of additional chunks, regardless of individual outcomes. When no
// second size is given the additional chunks reuse the initial size
// and the initial write counts as the first of them.
func (e *Engine) writeChunks(fd int) error {
	c1, c2 := e.cfg.Chunk1, e.cfg.Chunk2
	start := 0
	if c2 < 1 {
		start = 1
		c2 = c1
	}

	e.describeChunks(c1, c2, start)

	if _, stop, err := e.writeChunk(fd, c1); err != nil {
		return err
	} else if !stop {
		e.res.Iterations++
	}
	for i := start; i < e.cfg.NumChunks; i++ {
		if _, stop, err := e.writeChunk(fd, c2); err != nil {
			return err
		} else if !stop {
			e.res.Iterations++
		}
	}
	return nil
}

func (e *Engine) describeChunks(c1, c2, start int) {
	total := c1
	switch {
	case start == 0:
		total = c1 + e.cfg.NumChunks*c2
		e.rep.Printf("Trying to write %d + (%d * %d) = %d", c1, e.cfg.NumChunks, c2, total)
	case c1 > 1 && e.cfg.NumChunks > 1:
		total = c1 * e.cfg.NumChunks
		e.rep.Printf("Trying to write %d * %d = %d", c1, e.cfg.NumChunks, total)
	default:
		e.rep.Printf("Trying to write %d", c1)
	}
	if total > 1 {
		e.rep.Printf(" bytes...\n")
	} else {
		e.rep.Printf(" byte...\n")
	}
}

// writeChunk attempts one logical chunk. It returns the bytes the
// kernel accepted, and stop=true when the channel reported its
// boundary (would-block, or shrinking reached zero). Only unexpected
// errnos surface as err.
func (e *Engine) writeChunk(fd, count int) (n int, stop bool, err error) {
	wanted := count
	buf := bytes.Repeat([]byte{'x'}, count)
	shrunk := false

	for {
		n, werr := e.write(fd, buf[:count])
		if werr == nil {
			e.res.Total += n
			if n > e.res.Largest {
				e.res.Largest = n
			}
			e.rep.Progress(n, wanted, e.res.Total)
			return n, false, nil
		}

		switch {
		case errors.Is(werr, unix.EMSGSIZE) || errors.Is(werr, unix.ENOBUFS):
			// The payload exceeds the per-call ceiling; retry the same
			// logical chunk one byte smaller.
			count--
			if count < 1 {
				e.log.Error("unable to write even a single byte", "err", werr)
				return 0, true, nil
			}
			shrunk = true
		case errors.Is(werr, unix.EAGAIN):
			// EWOULDBLOCK aliases EAGAIN on every supported platform.
			// The channel is full: capacity reached.
			if shrunk {
				e.rep.Metric("MSGSIZE", count)
			}
			e.log.Info("channel full", "remaining", count, "err", werr.Error())
			return 0, true, nil
		default:
			return 0, true, fmt.Errorf("write: %w", werr)
		}
	}
}
