package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModeByNameFindsAndMisses(t *testing.T) {
	cfg := &Configuration{Modes: []Mode{{Name: "default"}, {Name: "gaming"}}}
	m := cfg.ModeByName("gaming")
	require.NotNil(t, m)
	assert.Equal(t, "gaming", m.Name)
	assert.Nil(t, cfg.ModeByName("missing"))
}

func TestModeNamesPreservesDeclarationOrder(t *testing.T) {
	cfg := &Configuration{Modes: []Mode{{Name: "a"}, {Name: "b"}, {Name: "c"}}}
	assert.Equal(t, []string{"a", "b", "c"}, cfg.ModeNames())
}

func TestModeNamesEmptyConfiguration(t *testing.T) {
	cfg := &Configuration{}
	assert.Empty(t, cfg.ModeNames())
}
