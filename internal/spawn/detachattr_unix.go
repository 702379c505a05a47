//go:build unix

package spawn

import "syscall"

// detachAttr puts the spawned process into its own process group so that the
// launcher's exit (or a Ctrl+C aimed at it) does not take the service down
// with it.
func detachAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		Setpgid: true,
		Pgid:    0,
	}
}

// terminate kills the whole process group of pid.
func terminate(pid int) error {
	return syscall.Kill(-pid, syscall.SIGKILL)
}
