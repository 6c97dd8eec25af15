package executor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/conductor-hq/conductord/internal/event"
)

func TestEvaluateConditionNilIsTrue(t *testing.T) {
	assert.True(t, EvaluateCondition(nil, Environment{}))
}

func TestEvaluateTimeRangeNonWrapping(t *testing.T) {
	c := &event.Condition{Type: event.CondTimeRange, Start: "09:00", End: "17:00"}
	inRange := Environment{Now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	outOfRange := Environment{Now: time.Date(2026, 1, 1, 20, 0, 0, 0, time.UTC)}
	assert.True(t, EvaluateCondition(c, inRange))
	assert.False(t, EvaluateCondition(c, outOfRange))
}

func TestEvaluateTimeRangeWrapsMidnight(t *testing.T) {
	c := &event.Condition{Type: event.CondTimeRange, Start: "22:00", End: "06:00"}
	lateNight := Environment{Now: time.Date(2026, 1, 1, 23, 30, 0, 0, time.UTC)}
	earlyMorning := Environment{Now: time.Date(2026, 1, 1, 3, 0, 0, 0, time.UTC)}
	midday := Environment{Now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	assert.True(t, EvaluateCondition(c, lateNight))
	assert.True(t, EvaluateCondition(c, earlyMorning))
	assert.False(t, EvaluateCondition(c, midday))
}

func TestEvaluateAppRunning(t *testing.T) {
	c := &event.Condition{Type: event.CondAppRunning, AppName: "firefox"}
	assert.True(t, EvaluateCondition(c, Environment{ActiveApps: []string{"firefox", "bash"}}))
	assert.False(t, EvaluateCondition(c, Environment{ActiveApps: []string{"bash"}}))
}

func TestEvaluateModeIs(t *testing.T) {
	c := &event.Condition{Type: event.CondModeIs, ModeName: "gaming"}
	assert.True(t, EvaluateCondition(c, Environment{ActiveMode: "gaming"}))
	assert.False(t, EvaluateCondition(c, Environment{ActiveMode: "default"}))
}

func TestEvaluateAndOrNot(t *testing.T) {
	a := event.Condition{Type: event.CondModeIs, ModeName: "gaming"}
	b := event.Condition{Type: event.CondAppRunning, AppName: "steam"}
	and := &event.Condition{Type: event.CondAnd, List: []event.Condition{a, b}}
	or := &event.Condition{Type: event.CondOr, List: []event.Condition{a, b}}
	not := &event.Condition{Type: event.CondNot, Inner: &a}

	env := Environment{ActiveMode: "gaming", ActiveApps: nil}
	assert.False(t, EvaluateCondition(and, env))
	assert.True(t, EvaluateCondition(or, env))
	assert.False(t, EvaluateCondition(not, env))
}
