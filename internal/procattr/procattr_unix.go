//go:build !linux && !windows

// Package procattr configures agent subprocesses so they can be stopped as a
// unit and do not outlive the bridge.
package procattr

import (
	"os/exec"
	"syscall"
)

// Set puts the child in its own process group. Pdeathsig is Linux-only.
func Set(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}
}
