//go:build windows

// Package procattr configures agent subprocesses so they can be stopped as a
// unit and do not outlive the bridge.
package procattr

import (
	"os"
	"os/exec"
	"syscall"
)

// createNoWindow keeps console CLIs from flashing a window
const createNoWindow = 0x08000000

// Set hides the console window of the child.
func Set(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: createNoWindow,
	}
}

// Terminate stops the process. Windows has no graceful signal for console
// children started without a window, so this kills.
func Terminate(p *os.Process) error {
	if p == nil {
		return nil
	}
	return p.Kill()
}

// Kill forcefully stops the process.
func Kill(p *os.Process) error {
	if p == nil {
		return nil
	}
	return p.Kill()
}
