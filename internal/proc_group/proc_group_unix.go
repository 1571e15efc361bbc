//go:build !windows

package procgroup

import (
	"os/exec"
	"syscall"
)

// SetProcGrp places cmd in its own process group so the capture helper
// does not receive the terminal's signals.
func SetProcGrp(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}
}
