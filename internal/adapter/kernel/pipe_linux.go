package kernel

import "golang.org/x/sys/unix"

// pipeBufConst is the kernel ABI atomic-write limit (PIPE_BUF).
const pipeBufConst = 4096

// PipeBufConstant returns the platform's PIPE_BUF value.
func PipeBufConstant() (int, bool) {
	return pipeBufConst, true
}

// PipeCapacity reads the pipe ring-buffer size of fd.
func PipeCapacity(fd int) (int, error) {
	return unix.FcntlInt(uintptr(fd), unix.F_GETPIPE_SZ, 0)
}

// SetPipeCapacity resizes the pipe ring buffer of fd.
func SetPipeCapacity(fd, size int) error {
	_, err := unix.FcntlInt(uintptr(fd), unix.F_SETPIPE_SZ, size)
	return err
}
