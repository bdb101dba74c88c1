package channel

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"

	"ipcbuf/internal/adapter/kernel"
	"ipcbuf/internal/domain"
)

// Pipe provisions an unnamed pipe.
type Pipe struct {
	cfg domain.RunConfig
	rep domain.Reporter
	log domain.Logger
	dr  domain.Drainer

	wClosed bool
	torn    bool
}

// NewPipe creates the pipe provisioner.
func NewPipe(cfg domain.RunConfig, rep domain.Reporter, log domain.Logger, dr domain.Drainer) *Pipe {
	return &Pipe{cfg: cfg, rep: rep, log: log, dr: dr}
}

// Describe returns the test header label.
func (p *Pipe) Describe() string { return "pipe" }

// Provision creates the pipe and applies an explicit capacity request.
func (p *Pipe) Provision() (domain.Endpoints, error) {
	var fds [2]int
	if err := unix.Pipe(fds[:]); err != nil {
		return domain.Endpoints{}, fmt.Errorf("pipe: %w", err)
	}
	for _, fd := range fds {
		if err := unix.SetNonblock(fd, true); err != nil {
			closeQuiet(fds[0])
			closeQuiet(fds[1])
			return domain.Endpoints{}, fmt.Errorf("set nonblocking: %w", err)
		}
	}

	if p.cfg.PipeBuf >= 0 {
		if err := kernel.SetPipeCapacity(fds[1], p.cfg.PipeBuf); err != nil {
			closeQuiet(fds[0])
			closeQuiet(fds[1])
			if errors.Is(err, kernel.ErrUnsupported) {
				// The user explicitly asked; silently ignoring the
				// request would be misleading.
				return domain.Endpoints{}, fmt.Errorf("setting the pipe size is %w", err)
			}
			return domain.Endpoints{}, fmt.Errorf("fcntl(F_SETPIPE_SZ): %w", err)
		}
		p.log.Info("pipe capacity set", "bytes", p.cfg.PipeBuf)
	}

	return domain.Endpoints{R: fds[0], W: fds[1]}, nil
}

// PreReport emits the atomic-write constant and the current ring
// buffer size where the platform exposes it.
func (p *Pipe) PreReport(ep domain.Endpoints) error {
	if v, ok := kernel.PipeBufConstant(); ok {
		p.rep.Metric("PIPE_BUF", v)
	}
	size, err := kernel.PipeCapacity(ep.W)
	if err != nil {
		if errors.Is(err, kernel.ErrUnsupported) {
			return nil
		}
		return fmt.Errorf("fcntl(F_GETPIPE_SZ): %w", err)
	}
	p.rep.Metric("F_GETPIPE_SZ", size)
	return nil
}

// Drain closes the write end so the reader sees EOF, then recovers
// the buffered bytes.
func (p *Pipe) Drain(ep domain.Endpoints, minBuf int) (int, error) {
	closeQuiet(ep.W)
	p.wClosed = true
	return p.dr.Drain(ep.R, minBuf)
}

// Teardown closes both endpoints. Safe to call more than once.
func (p *Pipe) Teardown(ep domain.Endpoints) {
	if p.torn {
		return
	}
	p.torn = true
	if !p.wClosed {
		closeQuiet(ep.W)
	}
	closeQuiet(ep.R)
}
