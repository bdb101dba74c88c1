//go:build !linux && !darwin

package kernel

import "ipcbuf/internal/domain"

// TunableName has no mappings on this platform; every tunable query
// is skipped.
func TunableName(v domain.Variant, d domain.SockDomain, t domain.SockType) (string, bool) {
	return "", false
}

// ReadTunable reads a named kernel tunable.
func ReadTunable(name string) (int, error) {
	return 0, ErrUnsupported
}
