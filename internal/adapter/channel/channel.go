// Package channel provisions the IPC channel variants: an unnamed
// pipe, a named FIFO, a socketpair, and a bound socket in the local,
// IPv4, or IPv6 loopback domain. Each variant owns its endpoints and
// any transient filesystem path from creation to teardown.
package channel

import (
	"fmt"

	"golang.org/x/sys/unix"

	"ipcbuf/internal/adapter/kernel"
	"ipcbuf/internal/domain"
)

// ForVariant returns the provisioner for the configured variant.
func ForVariant(cfg domain.RunConfig, rep domain.Reporter, log domain.Logger, dr domain.Drainer) domain.Provisioner {
	switch cfg.Variant {
	case domain.VariantFifo:
		return NewFifo(cfg, rep, log, dr)
	case domain.VariantSocket:
		return NewSocket(cfg, rep, log, dr)
	case domain.VariantSocketPair:
		return NewSocketPair(cfg, rep, log, dr)
	default:
		return NewPipe(cfg, rep, log, dr)
	}
}

// applyBufferSizes applies any requested SO_RCVBUF/SO_SNDBUF values.
// Pass -1 for an fd that has no corresponding side.
func applyBufferSizes(cfg domain.RunConfig, rfd, wfd int) error {
	if rfd >= 0 && cfg.RcvBuf >= 0 {
		if err := kernel.SetRcvBuf(rfd, cfg.RcvBuf); err != nil {
			return fmt.Errorf("setsockopt(SO_RCVBUF): %w", err)
		}
	}
	if wfd >= 0 && cfg.SndBuf >= 0 {
		if err := kernel.SetSndBuf(wfd, cfg.SndBuf); err != nil {
			return fmt.Errorf("setsockopt(SO_SNDBUF): %w", err)
		}
	}
	return nil
}

// reportSockOpt emits one socket option value as a metric line.
func reportSockOpt(rep domain.Reporter, fd, opt int, label string) error {
	v, err := kernel.SockOptInt(fd, opt)
	if err != nil {
		return fmt.Errorf("getsockopt(%s): %w", label, err)
	}
	rep.Metric(label, v)
	return nil
}

// reportTunable looks up and emits the kernel tunable relevant to the
// channel shape, if the platform maps one.
func reportTunable(rep domain.Reporter, v domain.Variant, d domain.SockDomain, t domain.SockType) error {
	name, ok := kernel.TunableName(v, d, t)
	if !ok {
		return nil
	}
	val, err := kernel.ReadTunable(name)
	if err != nil {
		return err
	}
	rep.Metric(kernel.TunableLabel(name), val)
	return nil
}

func closeQuiet(fd int) {
	if fd >= 0 {
		_ = unix.Close(fd)
	}
}
