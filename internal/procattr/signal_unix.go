//go:build !windows

package procattr

import (
	"os"
	"syscall"
)

// Terminate sends SIGTERM to the process group, falling back to the process
// itself when it was not started as a group leader.
func Terminate(p *os.Process) error {
	return signalGroup(p, syscall.SIGTERM)
}

// Kill sends SIGKILL to the process group.
func Kill(p *os.Process) error {
	return signalGroup(p, syscall.SIGKILL)
}

func signalGroup(p *os.Process, sig syscall.Signal) error {
	if p == nil {
		return nil
	}
	if err := syscall.Kill(-p.Pid, sig); err == nil {
		return nil
	}
	return p.Signal(sig)
}
