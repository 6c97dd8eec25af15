package executor

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conductor-hq/conductord/internal/event"
)

type fakeKeys struct {
	keystrokes [][]event.KeyCode
	texts      []string
}

func (f *fakeKeys) Keystroke(keys []event.KeyCode, mods []event.ModifierKey) error {
	f.keystrokes = append(f.keystrokes, keys)
	return nil
}

func (f *fakeKeys) TypeText(s string) error {
	f.texts = append(f.texts, s)
	return nil
}

type fakeMode struct {
	set  []string
	next int
	prev int
}

func (f *fakeMode) SetMode(name string) error { f.set = append(f.set, name); return nil }
func (f *fakeMode) NextMode() error           { f.next++; return nil }
func (f *fakeMode) PrevMode() error           { f.prev++; return nil }

type fakePlugins struct {
	calls []string
}

func (f *fakePlugins) Invoke(ctx context.Context, id string, payload json.RawMessage, ac *ActionContext) error {
	f.calls = append(f.calls, id)
	return nil
}

func newTestExecutor(keys *fakeKeys, mode *fakeMode, plugins *fakePlugins) *Executor {
	return New(ShellPolicy{}, keys, nil, nil, plugins, mode, NoopAppQuery{}, func() string { return "default" })
}

func TestExecuteSequenceRunsStepsInOrder(t *testing.T) {
	keys := &fakeKeys{}
	x := newTestExecutor(keys, &fakeMode{}, &fakePlugins{})
	a := &event.Action{Type: event.ActionSequence, Steps: []event.Action{
		{Type: event.ActionKeystroke, Keys: []event.KeyCode{"a"}},
		{Type: event.ActionKeystroke, Keys: []event.KeyCode{"b"}},
	}}
	err := x.Execute(context.Background(), a, &ActionContext{})
	require.NoError(t, err)
	require.Len(t, keys.keystrokes, 2)
	assert.Equal(t, event.KeyCode("a"), keys.keystrokes[0][0])
	assert.Equal(t, event.KeyCode("b"), keys.keystrokes[1][0])
}

func TestExecuteSequencePropagatesShellFailureAndStops(t *testing.T) {
	keys := &fakeKeys{}
	x := newTestExecutor(keys, &fakeMode{}, &fakePlugins{})
	a := &event.Action{Type: event.ActionSequence, Steps: []event.Action{
		{Type: event.ActionShell, Command: "not-absolute-and-not-whitelisted"},
		{Type: event.ActionKeystroke, Keys: []event.KeyCode{"unreached"}},
	}}
	err := x.Execute(context.Background(), a, &ActionContext{})
	require.Error(t, err)
	assert.Empty(t, keys.keystrokes)
}

func TestExecuteVelocityRangePicksBand(t *testing.T) {
	keys := &fakeKeys{}
	x := newTestExecutor(keys, &fakeMode{}, &fakePlugins{})
	a := &event.Action{
		Type:   event.ActionVelocityRange,
		Soft:   &event.Action{Type: event.ActionKeystroke, Keys: []event.KeyCode{"soft"}},
		Medium: &event.Action{Type: event.ActionKeystroke, Keys: []event.KeyCode{"medium"}},
		Hard:   &event.Action{Type: event.ActionKeystroke, Keys: []event.KeyCode{"hard"}},
	}
	require.NoError(t, x.Execute(context.Background(), a, &ActionContext{Band: event.BandMedium}))
	require.Len(t, keys.keystrokes, 1)
	assert.Equal(t, event.KeyCode("medium"), keys.keystrokes[0][0])
}

func TestExecuteConditionalBranches(t *testing.T) {
	keys := &fakeKeys{}
	x := newTestExecutor(keys, &fakeMode{}, &fakePlugins{})
	a := &event.Action{
		Type:      event.ActionConditional,
		Condition: &event.Condition{Type: event.CondModeIs, ModeName: "default"},
		Then:      &event.Action{Type: event.ActionKeystroke, Keys: []event.KeyCode{"then"}},
		Else:      &event.Action{Type: event.ActionKeystroke, Keys: []event.KeyCode{"else"}},
	}
	require.NoError(t, x.Execute(context.Background(), a, &ActionContext{ActiveMode: "default"}))
	require.Len(t, keys.keystrokes, 1)
	assert.Equal(t, event.KeyCode("then"), keys.keystrokes[0][0])
}

func TestExecuteRepeatRunsCountTimes(t *testing.T) {
	keys := &fakeKeys{}
	x := newTestExecutor(keys, &fakeMode{}, &fakePlugins{})
	a := &event.Action{
		Type:         event.ActionRepeat,
		Count:        3,
		RepeatAction: &event.Action{Type: event.ActionKeystroke, Keys: []event.KeyCode{"r"}},
	}
	require.NoError(t, x.Execute(context.Background(), a, &ActionContext{}))
	assert.Len(t, keys.keystrokes, 3)
}

func TestExecuteRepeatRejectsCountAboveMax(t *testing.T) {
	keys := &fakeKeys{}
	x := newTestExecutor(keys, &fakeMode{}, &fakePlugins{})
	a := &event.Action{
		Type:         event.ActionRepeat,
		Count:        event.MaxRepeatCount + 1,
		RepeatAction: &event.Action{Type: event.ActionKeystroke, Keys: []event.KeyCode{"r"}},
	}
	err := x.Execute(context.Background(), a, &ActionContext{})
	assert.Error(t, err)
}

func TestExecuteModeChangeNextPrevAndNamed(t *testing.T) {
	mode := &fakeMode{}
	x := newTestExecutor(&fakeKeys{}, mode, &fakePlugins{})

	require.NoError(t, x.Execute(context.Background(), &event.Action{Type: event.ActionModeChange, ModeName: string(event.ModeNext)}, &ActionContext{}))
	require.NoError(t, x.Execute(context.Background(), &event.Action{Type: event.ActionModeChange, ModeName: string(event.ModePrev)}, &ActionContext{}))
	require.NoError(t, x.Execute(context.Background(), &event.Action{Type: event.ActionModeChange, ModeName: "gaming"}, &ActionContext{}))

	assert.Equal(t, 1, mode.next)
	assert.Equal(t, 1, mode.prev)
	assert.Equal(t, []string{"gaming"}, mode.set)
}

func TestExecutePluginInvokesHost(t *testing.T) {
	plugins := &fakePlugins{}
	x := newTestExecutor(&fakeKeys{}, &fakeMode{}, plugins)
	a := &event.Action{Type: event.ActionPlugin, PluginID: "my-plugin"}
	require.NoError(t, x.Execute(context.Background(), a, &ActionContext{}))
	assert.Equal(t, []string{"my-plugin"}, plugins.calls)
}

func TestExecuteNilActionIsNoop(t *testing.T) {
	x := newTestExecutor(&fakeKeys{}, &fakeMode{}, &fakePlugins{})
	assert.NoError(t, x.Execute(context.Background(), nil, &ActionContext{}))
}

func TestExecuteUnknownActionTypeFails(t *testing.T) {
	x := newTestExecutor(&fakeKeys{}, &fakeMode{}, &fakePlugins{})
	err := x.Execute(context.Background(), &event.Action{Type: "Bogus"}, &ActionContext{})
	assert.Error(t, err)
}
