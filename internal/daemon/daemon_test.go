package daemon

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAdjacentModeWrapsForward(t *testing.T) {
	names := []string{"a", "b", "c"}
	assert.Equal(t, "b", adjacentMode(names, "a", 1))
	assert.Equal(t, "c", adjacentMode(names, "b", 1))
	assert.Equal(t, "a", adjacentMode(names, "c", 1))
}

func TestAdjacentModeWrapsBackward(t *testing.T) {
	names := []string{"a", "b", "c"}
	assert.Equal(t, "c", adjacentMode(names, "a", -1))
	assert.Equal(t, "a", adjacentMode(names, "b", -1))
	assert.Equal(t, "b", adjacentMode(names, "c", -1))
}

func TestAdjacentModeEmptyListReturnsCurrent(t *testing.T) {
	assert.Equal(t, "x", adjacentMode(nil, "x", 1))
}

func TestAdjacentModeUnknownCurrentDefaultsFromStart(t *testing.T) {
	names := []string{"a", "b", "c"}
	assert.Equal(t, "b", adjacentMode(names, "missing", 1))
}
