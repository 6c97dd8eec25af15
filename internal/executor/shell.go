package executor

import (
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/conductor-hq/conductord/internal/event"
)

// forbiddenMeta are the metacharacters a Shell action's command must not
// contain (spec.md §4.2). A dedicated whitelist/absolute-path check, not
// a shell interpreter, validates the command: Conductor never execs
// through /bin/sh.
const forbiddenMeta = ";&|><$`\n\x00"

// ShellPolicy resolves and authorizes a Shell action's command.
type ShellPolicy struct {
	Whitelist map[string]string // logical name -> resolved absolute path
}

// Resolve validates command against the forbidden-metacharacter rule and
// resolves it to an absolute, executable path: either command is already
// absolute, or it is a whitelist key.
func (p ShellPolicy) Resolve(command string) (string, error) {
	if strings.ContainsAny(command, forbiddenMeta) {
		return "", event.NewActionFailed(event.ActionShell, "command contains forbidden metacharacter")
	}
	if filepath.IsAbs(command) {
		return command, nil
	}
	if resolved, ok := p.Whitelist[command]; ok {
		return resolved, nil
	}
	return "", event.NewActionFailed(event.ActionShell, "command not absolute and not in whitelist: "+command)
}

// runShell spawns the resolved command detached, with each argument
// passed as a list element (never through a shell), capturing combined
// output into a bounded ring buffer.
func runShell(path string, args []string) error {
	for _, a := range args {
		if strings.ContainsAny(a, forbiddenMeta) {
			return event.NewActionFailed(event.ActionShell, "argument contains forbidden metacharacter")
		}
	}

	cmd := exec.Command(path, args...)
	out := newRingBuffer(64 * 1024)
	cmd.Stdout = out
	cmd.Stderr = out
	detach(cmd)

	if err := cmd.Start(); err != nil {
		return event.NewActionFailed(event.ActionShell, err.Error())
	}
	go func() {
		_ = cmd.Wait()
	}()
	return nil
}
