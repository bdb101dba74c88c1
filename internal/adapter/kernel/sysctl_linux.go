package kernel

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"ipcbuf/internal/domain"
)

// TunableName maps a channel shape to the kernel tunable worth
// reporting next to the measurement. Linux only exposes a comparable
// value for local datagram queues; no entry means the query is
// skipped.
func TunableName(v domain.Variant, d domain.SockDomain, t domain.SockType) (string, bool) {
	if v == domain.VariantSocketPair {
		return "net.unix.max_dgram_qlen", true
	}
	if v == domain.VariantSocket && d == domain.DomainLocal && t == domain.TypeDgram {
		return "net.unix.max_dgram_qlen", true
	}
	return "", false
}

// ReadTunable reads a dotted sysctl name through /proc/sys.
func ReadTunable(name string) (int, error) {
	path := "/proc/sys/" + strings.ReplaceAll(name, ".", "/")
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", path, err)
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", path, err)
	}
	return n, nil
}
