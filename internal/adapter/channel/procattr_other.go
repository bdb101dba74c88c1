//go:build !linux

package channel

import "syscall"

// sysProcAttr returns process attributes that put the drain-role
// child in its own process group. Pdeathsig is not available on
// non-Linux platforms.
func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		Setpgid: true,
	}
}
