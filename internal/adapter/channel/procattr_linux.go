package channel

import "syscall"

// sysProcAttr returns process attributes that put the drain-role
// child in its own process group. Pdeathsig is a Linux-only safety
// net: if the orchestrator dies unexpectedly, the kernel sends
// SIGTERM to the child so it does not linger in accept.
func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		Setpgid:   true,
		Pdeathsig: syscall.SIGTERM,
	}
}
