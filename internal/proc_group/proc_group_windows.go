//go:build windows

package procgroup

import (
	"os/exec"
	"syscall"
)

// SetProcGrp starts cmd in a new process group so the capture helper
// is isolated from console control events.
func SetProcGrp(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP,
	}
}
