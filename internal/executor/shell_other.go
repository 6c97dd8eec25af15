//go:build !unix

package executor

import "os/exec"

// detach is a no-op on platforms without POSIX session semantics.
func detach(cmd *exec.Cmd) {}
