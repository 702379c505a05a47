package spawn

import (
	"os"
	"syscall"
)

// createNewConsole is CREATE_NEW_CONSOLE, which syscall does not export.
const createNewConsole = 0x00000010

// detachAttr gives the spawned process its own console and process group, so
// Ctrl+Break events only affect the service, not the launcher, and the
// service keeps running after the launcher window closes.
func detachAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP | createNewConsole,
	}
}

// terminate kills the process. Windows has no process-group kill equivalent
// to the unix negative-pid signal, so only the direct child is targeted.
func terminate(pid int) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return proc.Kill()
}
