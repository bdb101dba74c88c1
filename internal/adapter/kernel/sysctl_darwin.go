package kernel

import (
	"fmt"

	"golang.org/x/sys/unix"

	"ipcbuf/internal/domain"
)

// TunableName maps a channel shape to the kernel tunable worth
// reporting next to the measurement. No entry means the query is
// skipped.
func TunableName(v domain.Variant, d domain.SockDomain, t domain.SockType) (string, bool) {
	if v == domain.VariantSocketPair {
		return "net.local.dgram.recvspace", true
	}
	if v != domain.VariantSocket {
		return "", false
	}
	switch d {
	case domain.DomainLocal:
		if t == domain.TypeStream {
			return "net.local.stream.recvspace", true
		}
		return "net.local.dgram.recvspace", true
	case domain.DomainInet:
		if t == domain.TypeStream {
			return "net.inet.tcp.recvspace", true
		}
		return "net.inet.udp.recvspace", true
	}
	return "", false
}

// ReadTunable reads a named sysctl value.
func ReadTunable(name string) (int, error) {
	v, err := unix.SysctlUint32(name)
	if err != nil {
		return 0, fmt.Errorf("sysctl %s: %w", name, err)
	}
	return int(v), nil
}
