package executor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShellPolicyResolvesAbsolutePath(t *testing.T) {
	p := ShellPolicy{}
	resolved, err := p.Resolve("/bin/echo")
	require.NoError(t, err)
	assert.Equal(t, "/bin/echo", resolved)
}

func TestShellPolicyResolvesFromWhitelist(t *testing.T) {
	p := ShellPolicy{Whitelist: map[string]string{"echo": "/bin/echo"}}
	resolved, err := p.Resolve("echo")
	require.NoError(t, err)
	assert.Equal(t, "/bin/echo", resolved)
}

func TestShellPolicyRejectsUnknownRelativeCommand(t *testing.T) {
	p := ShellPolicy{}
	_, err := p.Resolve("echo")
	assert.Error(t, err)
}

func TestShellPolicyRejectsForbiddenMetacharacters(t *testing.T) {
	p := ShellPolicy{}
	for _, bad := range []string{"/bin/echo; rm -rf /", "/bin/echo | cat", "/bin/echo > out", "/bin/echo $(whoami)", "/bin/echo `whoami`"} {
		_, err := p.Resolve(bad)
		assert.Error(t, err, "expected rejection for %q", bad)
	}
}
