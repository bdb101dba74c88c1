package channel

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"ipcbuf/internal/domain"
)

// Fifo provisions a named FIFO node in the working directory.
type Fifo struct {
	cfg domain.RunConfig
	rep domain.Reporter
	log domain.Logger
	dr  domain.Drainer

	created bool
	wClosed bool
	torn    bool
}

// NewFifo creates the FIFO provisioner.
func NewFifo(cfg domain.RunConfig, rep domain.Reporter, log domain.Logger, dr domain.Drainer) *Fifo {
	return &Fifo{cfg: cfg, rep: rep, log: log, dr: dr}
}

// Describe returns the test header label.
func (f *Fifo) Describe() string { return "fifo" }

// Provision creates the FIFO node and opens both ends nonblocking.
// A leftover node from a previous abnormal exit makes mkfifo fail;
// teardown removes ours unconditionally.
func (f *Fifo) Provision() (domain.Endpoints, error) {
	if err := unix.Mkfifo(f.cfg.FifoPath, 0o644); err != nil {
		return domain.Endpoints{}, fmt.Errorf("mkfifo %s: %w", f.cfg.FifoPath, err)
	}
	f.created = true

	// The read end must open first: a nonblocking write-only open of a
	// FIFO with no reader fails with ENXIO.
	rfd, err := unix.Open(f.cfg.FifoPath, unix.O_RDONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		f.removeNode()
		return domain.Endpoints{}, fmt.Errorf("open %s for reading: %w", f.cfg.FifoPath, err)
	}
	wfd, err := unix.Open(f.cfg.FifoPath, unix.O_WRONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		closeQuiet(rfd)
		f.removeNode()
		return domain.Endpoints{}, fmt.Errorf("open %s for writing: %w", f.cfg.FifoPath, err)
	}

	return domain.Endpoints{R: rfd, W: wfd}, nil
}

// PreReport has nothing to add for FIFOs.
func (f *Fifo) PreReport(domain.Endpoints) error { return nil }

// Drain closes the write end so the reader sees EOF, then recovers
// the buffered bytes.
func (f *Fifo) Drain(ep domain.Endpoints, minBuf int) (int, error) {
	closeQuiet(ep.W)
	f.wClosed = true
	return f.dr.Drain(ep.R, minBuf)
}

// Teardown closes both endpoints and removes the FIFO node.
func (f *Fifo) Teardown(ep domain.Endpoints) {
	if f.torn {
		return
	}
	f.torn = true
	if !f.wClosed {
		closeQuiet(ep.W)
	}
	closeQuiet(ep.R)
	f.removeNode()
}

func (f *Fifo) removeNode() {
	if !f.created {
		return
	}
	f.created = false
	if err := os.Remove(f.cfg.FifoPath); err != nil && !os.IsNotExist(err) {
		f.log.Error("remove fifo node failed", "path", f.cfg.FifoPath, "err", err)
	}
}
