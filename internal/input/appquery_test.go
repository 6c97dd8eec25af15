package input

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessAppQueryFrontmostAppIsAlwaysEmpty(t *testing.T) {
	assert.Equal(t, "", ProcessAppQuery{}.FrontmostApp())
}

func TestProcessAppQueryActiveAppsIncludesSelf(t *testing.T) {
	names := ProcessAppQuery{}.ActiveApps()
	assert.NotEmpty(t, names, "scanning /proc on a running test binary should find at least this process")

	self, err := os.ReadFile("/proc/self/comm")
	require.NoError(t, err)
	assert.Contains(t, names, strings.TrimSpace(string(self)))
}
