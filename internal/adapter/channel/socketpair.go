package channel

import (
	"fmt"

	"golang.org/x/sys/unix"

	"ipcbuf/internal/domain"
)

// SocketPair provisions a connected AF_UNIX pair in one call.
type SocketPair struct {
	cfg domain.RunConfig
	rep domain.Reporter
	log domain.Logger
	dr  domain.Drainer

	torn bool
}

// NewSocketPair creates the socketpair provisioner.
func NewSocketPair(cfg domain.RunConfig, rep domain.Reporter, log domain.Logger, dr domain.Drainer) *SocketPair {
	return &SocketPair{cfg: cfg, rep: rep, log: log, dr: dr}
}

// Describe returns the test header label.
func (s *SocketPair) Describe() string {
	return fmt.Sprintf("socketpair %s", s.cfg.Type)
}

// Provision creates the pair and applies requested buffer sizes:
// receive on the read end, send on the write end.
func (s *SocketPair) Provision() (domain.Endpoints, error) {
	styp := unix.SOCK_DGRAM
	if s.cfg.Type == domain.TypeStream {
		styp = unix.SOCK_STREAM
	}
	fds, err := unix.Socketpair(unix.AF_UNIX, styp, 0)
	if err != nil {
		return domain.Endpoints{}, fmt.Errorf("socketpair: %w", err)
	}
	for _, fd := range fds {
		if err := unix.SetNonblock(fd, true); err != nil {
			closeQuiet(fds[0])
			closeQuiet(fds[1])
			return domain.Endpoints{}, fmt.Errorf("set nonblocking: %w", err)
		}
	}
	if err := applyBufferSizes(s.cfg, fds[0], fds[1]); err != nil {
		closeQuiet(fds[0])
		closeQuiet(fds[1])
		return domain.Endpoints{}, err
	}
	return domain.Endpoints{R: fds[0], W: fds[1]}, nil
}

// PreReport emits the local-domain tunable and the effective buffer
// sizes of both ends.
func (s *SocketPair) PreReport(ep domain.Endpoints) error {
	if err := reportTunable(s.rep, domain.VariantSocketPair, domain.DomainLocal, s.cfg.Type); err != nil {
		return err
	}
	if err := reportSockOpt(s.rep, ep.R, unix.SO_RCVBUF, "SO_RCVBUF"); err != nil {
		return err
	}
	return reportSockOpt(s.rep, ep.W, unix.SO_SNDBUF, "SO_SNDBUF")
}

// Drain recovers whatever the kernel buffered on the read end. The
// write end stays open; the drain stops when the queue is empty.
func (s *SocketPair) Drain(ep domain.Endpoints, minBuf int) (int, error) {
	return s.dr.Drain(ep.R, minBuf)
}

// Teardown closes both endpoints.
func (s *SocketPair) Teardown(ep domain.Endpoints) {
	if s.torn {
		return
	}
	s.torn = true
	closeQuiet(ep.W)
	closeQuiet(ep.R)
}
