//go:build !windows

package backend

import (
	"os/exec"
	"syscall"
)

// ProcAttr puts child players in their own process group.
func ProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		Setpgid: true,
	}
}

// KillProcess kills the child and everything it spawned.
func KillProcess(cmd *exec.Cmd) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	return cmd.Process.Kill()
}
