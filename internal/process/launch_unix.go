//go:build !windows

package process

import (
	"os/exec"
	"syscall"
)

// setSysProcAttr puts the child in its own process group so console
// signals (Ctrl-C) do not reach it.
func setSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}
