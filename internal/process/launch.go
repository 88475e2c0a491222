package process

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// Launch starts exe detached from the console, with dir as its working
// directory, and returns the new PID. The child is not waited on.
func Launch(exe, dir string, args ...string) (int, error) {
	if _, err := os.Stat(exe); err != nil {
		return 0, fmt.Errorf("executable %s: %w", exe, err)
	}
	if dir == "" {
		dir = filepath.Dir(exe)
	}

	cmd := exec.Command(exe, args...) //nolint:gosec // G204: exe is a discovered installation binary
	cmd.Dir = dir
	setSysProcAttr(cmd)

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("starting %s: %w", filepath.Base(exe), err)
	}
	pid := cmd.Process.Pid
	// Release so the child outlives us without becoming a zombie we own.
	_ = cmd.Process.Release()
	return pid, nil
}
