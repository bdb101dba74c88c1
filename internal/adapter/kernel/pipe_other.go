//go:build !linux

package kernel

// pipeBufConst is the POSIX minimum atomic-write limit, which is what
// the BSD family ships as PIPE_BUF.
const pipeBufConst = 512

// PipeBufConstant returns the platform's PIPE_BUF value.
func PipeBufConstant() (int, bool) {
	return pipeBufConst, true
}

// PipeCapacity reads the pipe ring-buffer size of fd. Only Linux
// exposes this control.
func PipeCapacity(fd int) (int, error) {
	return 0, ErrUnsupported
}

// SetPipeCapacity resizes the pipe ring buffer of fd. Only Linux
// exposes this control.
func SetPipeCapacity(fd, size int) error {
	return ErrUnsupported
}
