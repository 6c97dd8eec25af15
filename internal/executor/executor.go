// Package executor runs the action tree produced by a mapping match:
// sequencing, delay, bounded repeat, conditional branching, velocity-band
// selection, and the execution leaves (keystroke, text, shell, launch,
// MIDI out, mode change, plugin invocation). No suspending operation here
// blocks the mapping engine -- the daemon dispatches a tree and moves on
// (spec.md §4.2, §5).
package executor

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/conductor-hq/conductord/internal/event"
)

// ModeChanger lets a ModeChange action mutate the daemon's active mode.
type ModeChanger interface {
	SetMode(name string) error
	NextMode() error
	PrevMode() error
}

// KeystrokeSynth is the external collaborator that turns domain key
// codes into OS keystroke events; out of this repository's scope
// (spec.md §1), wired in by the daemon's platform adapter.
type KeystrokeSynth interface {
	Keystroke(keys []event.KeyCode, mods []event.ModifierKey) error
	TypeText(s string) error
}

// Launcher starts a named application; out of scope, platform-supplied.
type Launcher interface {
	Launch(app string) error
}

// PluginInvoker delegates a Plugin action to the plugin host.
type PluginInvoker interface {
	Invoke(ctx context.Context, id string, payload json.RawMessage, ac *ActionContext) error
}

// Executor holds the collaborators every action leaf may need.
type Executor struct {
	Shell    ShellPolicy
	Keys     KeystrokeSynth
	Launch   Launcher
	Midi     *midiPortCache
	Plugins  PluginInvoker
	Mode     ModeChanger
	Apps     AppQuery
	ActiveMode func() string
}

// New builds an Executor. midi may be nil if no MIDI output is
// configured.
func New(shell ShellPolicy, keys KeystrokeSynth, launch Launcher, midi MidiOutput, plugins PluginInvoker, mode ModeChanger, apps AppQuery, activeMode func() string) *Executor {
	return &Executor{
		Shell: shell, Keys: keys, Launch: launch,
		Midi: newMidiPortCache(midi), Plugins: plugins, Mode: mode, Apps: apps,
		ActiveMode: activeMode,
	}
}

// ActionContext carries the data a matched mapping's action tree is
// executed with (spec.md §4.2 "Context{resolved_velocity, timestamp,
// triggering_event, active_mode}"), plus the lazily-built, tree-scoped
// Environment used by Conditional nodes.
type ActionContext struct {
	ResolvedVelocity int
	Band             event.Band
	Timestamp        time.Time
	TriggeringEvent  event.Event
	ActiveMode       string

	env     *Environment
	apps    AppQuery
}

func (ac *ActionContext) environment() Environment {
	if ac.env == nil {
		e := buildEnvironment(time.Now(), ac.apps, ac.ActiveMode)
		ac.env = &e
	}
	return *ac.env
}

// Execute runs one action tree to completion or until ctx is cancelled.
// Composites propagate the first error from a child; leaves never panic
// and return a typed *event.Error (spec.md §4.2 "Failure semantics").
func (x *Executor) Execute(ctx context.Context, a *event.Action, ac *ActionContext) error {
	if a == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	ac.apps = x.Apps

	switch a.Type {
	case event.ActionSequence:
		return x.execSequence(ctx, a, ac)
	case event.ActionDelay:
		return x.execDelay(ctx, a)
	case event.ActionRepeat:
		return x.execRepeat(ctx, a, ac)
	case event.ActionConditional:
		return x.execConditional(ctx, a, ac)
	case event.ActionVelocityRange:
		return x.execVelocityRange(ctx, a, ac)
	case event.ActionKeystroke:
		return x.execKeystroke(a)
	case event.ActionText:
		return x.execText(a)
	case event.ActionShell:
		return x.execShell(a)
	case event.ActionLaunch:
		return x.execLaunch(a)
	case event.ActionSendMidi:
		return x.execSendMidi(a)
	case event.ActionModeChange:
		return x.execModeChange(a)
	case event.ActionPlugin:
		return x.execPlugin(ctx, a, ac)
	default:
		return event.NewActionFailed(a.Type, "unknown action type")
	}
}

func (x *Executor) execSequence(ctx context.Context, a *event.Action, ac *ActionContext) error {
	for i := range a.Steps {
		if err := x.Execute(ctx, &a.Steps[i], ac); err != nil {
			log.Printf("[Executor] sequence step %d failed: %v", i, err)
			return err
		}
	}
	return nil
}

func (x *Executor) execDelay(ctx context.Context, a *event.Action) error {
	d := time.Duration(a.DelayMs) * time.Millisecond
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (x *Executor) execRepeat(ctx context.Context, a *event.Action, ac *ActionContext) error {
	if a.Count > event.MaxRepeatCount {
		return event.NewActionFailed(event.ActionRepeat, "count exceeds maximum")
	}
	for i := 0; i < a.Count; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := x.Execute(ctx, a.RepeatAction, ac); err != nil {
			return err
		}
	}
	return nil
}

func (x *Executor) execConditional(ctx context.Context, a *event.Action, ac *ActionContext) error {
	env := ac.environment()
	if EvaluateCondition(a.Condition, env) {
		return x.Execute(ctx, a.Then, ac)
	}
	return x.Execute(ctx, a.Else, ac)
}

func (x *Executor) execVelocityRange(ctx context.Context, a *event.Action, ac *ActionContext) error {
	var sub *event.Action
	switch ac.Band {
	case event.BandSoft:
		sub = a.Soft
	case event.BandMedium:
		sub = a.Medium
	default:
		sub = a.Hard
	}
	return x.Execute(ctx, sub, ac)
}

func (x *Executor) execKeystroke(a *event.Action) error {
	if x.Keys == nil {
		return event.NewActionFailed(event.ActionKeystroke, "no keystroke synthesizer configured")
	}
	if err := x.Keys.Keystroke(a.Keys, a.Modifiers); err != nil {
		return event.NewActionFailed(event.ActionKeystroke, err.Error())
	}
	return nil
}

func (x *Executor) execText(a *event.Action) error {
	if x.Keys == nil {
		return event.NewActionFailed(event.ActionText, "no keystroke synthesizer configured")
	}
	if err := x.Keys.TypeText(a.Text); err != nil {
		return event.NewActionFailed(event.ActionText, err.Error())
	}
	return nil
}

func (x *Executor) execShell(a *event.Action) error {
	path, err := x.Shell.Resolve(a.Command)
	if err != nil {
		return err
	}
	return runShell(path, a.Args)
}

func (x *Executor) execLaunch(a *event.Action) error {
	if x.Launch == nil {
		return event.NewActionFailed(event.ActionLaunch, "no launcher configured")
	}
	if err := x.Launch.Launch(a.App); err != nil {
		return event.NewActionFailed(event.ActionLaunch, err.Error())
	}
	return nil
}

func (x *Executor) execSendMidi(a *event.Action) error {
	return x.Midi.send(a.Port, a.Message)
}

func (x *Executor) execModeChange(a *event.Action) error {
	if x.Mode == nil {
		return event.NewActionFailed(event.ActionModeChange, "no mode changer configured")
	}
	switch event.ModeTarget(a.ModeName) {
	case event.ModeNext:
		return x.Mode.NextMode()
	case event.ModePrev:
		return x.Mode.PrevMode()
	default:
		if err := x.Mode.SetMode(a.ModeName); err != nil {
			return event.NewActionFailed(event.ActionModeChange, err.Error())
		}
		return nil
	}
}

func (x *Executor) execPlugin(ctx context.Context, a *event.Action, ac *ActionContext) error {
	if x.Plugins == nil {
		return event.NewActionFailed(event.ActionPlugin, "no plugin host configured")
	}
	return x.Plugins.Invoke(ctx, a.PluginID, a.Payload, ac)
}
