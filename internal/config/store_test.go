package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conductor-hq/conductord/internal/event"
)

const validTOML = `
[device]
name = "Launchpad"
auto_connect = true

[advanced_settings]
chord_timeout_ms = 80
double_tap_timeout_ms = 250
hold_threshold_ms = 400

[[modes]]
name = "default"

[[modes.mappings]]
description = "play note"
[modes.mappings.trigger]
type = "Note"
note = 60
channel = 0
[modes.mappings.action]
type = "Keystroke"
keys = ["a"]

[[global_mappings]]
[global_mappings.trigger]
type = "CC"
cc = 1
channel = 0
[global_mappings.action]
type = "ModeChange"
mode_name = "__next__"
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "conductor.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestNewLoadsValidConfig(t *testing.T) {
	path := writeConfig(t, validTOML)
	store, err := New(path)
	require.NoError(t, err)

	cfg := store.Current()
	assert.Equal(t, "Launchpad", cfg.DevicePrefs.Name)
	assert.True(t, cfg.DevicePrefs.AutoConnect)
	assert.Equal(t, 80, cfg.AdvancedTimings.ChordTimeoutMs)
	require.Len(t, cfg.Modes, 1)
	assert.Equal(t, "default", cfg.Modes[0].Name)
	require.Len(t, cfg.GlobalMappings, 1)
}

func TestReloadRejectsInvalidAndKeepsPriorSnapshot(t *testing.T) {
	path := writeConfig(t, validTOML)
	store, err := New(path)
	require.NoError(t, err)
	before := store.Current()

	require.NoError(t, os.WriteFile(path, []byte(`
[[modes]]
name = ""
`), 0o600))

	err = store.Reload()
	require.Error(t, err)
	assert.Same(t, before, store.Current())
}

func TestReloadAppliesValidChangeAndFiresCallback(t *testing.T) {
	path := writeConfig(t, validTOML)
	store, err := New(path)
	require.NoError(t, err)

	var notified *event.Configuration
	store.OnReload(func(cfg *event.Configuration) { notified = cfg })

	require.NoError(t, os.WriteFile(path, []byte(validTOML+"\n"), 0o600))
	require.NoError(t, store.Reload())

	require.NotNil(t, notified)
	assert.Same(t, store.Current(), notified)
}

func TestTranslateRejectsNoModes(t *testing.T) {
	err := Validate(writeConfig(t, `
[[global_mappings]]
[global_mappings.trigger]
type = "CC"
cc = 1
[global_mappings.action]
type = "Keystroke"
keys = ["a"]
`))
	require.Error(t, err)
}

func TestTranslateRejectsUnknownModeChangeTarget(t *testing.T) {
	bad := `
[[modes]]
name = "default"

[[modes.mappings]]
[modes.mappings.trigger]
type = "Note"
note = 1
[modes.mappings.action]
type = "ModeChange"
mode_name = "nonexistent"
`
	require.Error(t, Validate(writeConfig(t, bad)))
}

func TestTranslateRejectsNoteChordWithOneNote(t *testing.T) {
	bad := `
[[modes]]
name = "default"

[[modes.mappings]]
[modes.mappings.trigger]
type = "NoteChord"
notes = [60]
[modes.mappings.action]
type = "Keystroke"
keys = ["a"]
`
	require.Error(t, Validate(writeConfig(t, bad)))
}

func TestTranslateAppliesGlobalTimingDefaultsWhenTriggerOmitsThem(t *testing.T) {
	path := writeConfig(t, `
[advanced_settings]
chord_timeout_ms = 80
double_tap_timeout_ms = 250
hold_threshold_ms = 400

[[modes]]
name = "default"

[[modes.mappings]]
[modes.mappings.trigger]
type = "LongPress"
note = 60
[modes.mappings.action]
type = "Keystroke"
keys = ["a"]

[[modes.mappings]]
[modes.mappings.trigger]
type = "DoubleTap"
note = 61
[modes.mappings.action]
type = "Keystroke"
keys = ["b"]

[[modes.mappings]]
[modes.mappings.trigger]
type = "NoteChord"
notes = [62, 63]
[modes.mappings.action]
type = "Keystroke"
keys = ["c"]
`)
	store, err := New(path)
	require.NoError(t, err)

	mappings := store.Current().Modes[0].Mappings
	assert.Equal(t, 400, mappings[0].Trigger.DurationMs)
	assert.Equal(t, 250, mappings[1].Trigger.TimeoutMs)
	assert.Equal(t, 80, mappings[2].Trigger.TimeoutMs)
}

func TestTranslateKeepsExplicitTriggerTimingOverGlobalDefault(t *testing.T) {
	path := writeConfig(t, `
[advanced_settings]
hold_threshold_ms = 400

[[modes]]
name = "default"

[[modes.mappings]]
[modes.mappings.trigger]
type = "LongPress"
note = 60
duration_ms = 900
[modes.mappings.action]
type = "Keystroke"
keys = ["a"]
`)
	store, err := New(path)
	require.NoError(t, err)

	assert.Equal(t, 900, store.Current().Modes[0].Mappings[0].Trigger.DurationMs)
}

func TestTranslateRejectsCurveIntensityOutOfRange(t *testing.T) {
	bad := `
[[modes]]
name = "default"

[[modes.mappings]]
[modes.mappings.trigger]
type = "Note"
note = 1
[modes.mappings.curve]
type = "Linear"
intensity = 2.0
[modes.mappings.action]
type = "Keystroke"
keys = ["a"]
`
	require.Error(t, Validate(writeConfig(t, bad)))
}
