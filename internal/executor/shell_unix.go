//go:build unix

package executor

import (
	"os/exec"
	"syscall"
)

// detach runs the process in its own session so it survives the parent
// tree's signals (spec.md §4.2: "spawned detached").
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}
