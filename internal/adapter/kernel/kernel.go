// Package kernel holds the stateless queries against kernel-reported
// buffer state: queue-depth ioctls, socket options, system tunables,
// and the pipe capacity control. Platform-divergent pieces live in
// _linux/_darwin/_other files; a query that has no equivalent on the
// current platform reports unsupported rather than failing.
package kernel

import (
	"errors"
	"strings"

	"golang.org/x/sys/unix"
)

// ErrUnsupported marks a control the current platform does not offer.
var ErrUnsupported = errors.New("not supported on this platform")

// IsSocket reports whether fd refers to a socket. Queue ioctls are
// gated on this where the control codes do not apply to pipes.
func IsSocket(fd int) bool {
	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		return false
	}
	return st.Mode&unix.S_IFMT == unix.S_IFSOCK
}

// SockOptInt reads a SOL_SOCKET integer option (SO_SNDBUF, SO_RCVBUF,
// SO_SNDLOWAT).
func SockOptInt(fd, opt int) (int, error) {
	return unix.GetsockoptInt(fd, unix.SOL_SOCKET, opt)
}

// SetRcvBuf requests a receive buffer size on fd.
func SetRcvBuf(fd, size int) error {
	return unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_RCVBUF, size)
}

// SetSndBuf requests a send buffer size on fd.
func SetSndBuf(fd, size int) error {
	return unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_SNDBUF, size)
}

// TunableLabel shortens a dotted tunable name to its last component
// for report output ("net.unix.max_dgram_qlen" -> "max_dgram_qlen").
func TunableLabel(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 && i+1 < len(name) {
		return name[i+1:]
	}
	return name
}
