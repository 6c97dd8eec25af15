package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConditionDepthLeaf(t *testing.T) {
	c := &Condition{Type: CondAppRunning, AppName: "foo"}
	assert.Equal(t, 1, c.Depth())
}

func TestConditionDepthNestedAndOr(t *testing.T) {
	leaf := Condition{Type: CondModeIs, ModeName: "default"}
	and := &Condition{Type: CondAnd, List: []Condition{leaf, leaf}}
	assert.Equal(t, 2, and.Depth())

	or := &Condition{Type: CondOr, List: []Condition{*and, leaf}}
	assert.Equal(t, 3, or.Depth())
}

func TestConditionDepthNot(t *testing.T) {
	leaf := &Condition{Type: CondAppFrontmost, AppName: "x"}
	not := &Condition{Type: CondNot, Inner: leaf}
	assert.Equal(t, 2, not.Depth())
}

func TestConditionDepthNilIsZero(t *testing.T) {
	var c *Condition
	assert.Equal(t, 0, c.Depth())
}
