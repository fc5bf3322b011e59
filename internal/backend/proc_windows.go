//go:build windows

package backend

import (
	"os/exec"
	"syscall"
)

func ProcAttr() *syscall.SysProcAttr {
	return nil
}

func KillProcess(cmd *exec.Cmd) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	return cmd.Process.Kill()
}
