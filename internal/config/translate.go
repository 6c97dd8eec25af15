package config

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/conductor-hq/conductord/internal/event"
	"github.com/conductor-hq/conductord/internal/plugin"
)

// pluginSpec is a loaded-but-not-yet-granted plugin declaration, handed to
// the daemon so it can call plugin.Host.Load with the path resolved and
// the capability list translated.
type pluginSpec struct {
	ID           string
	Path         string
	Capabilities []plugin.Capability
}

// translate converts a decoded rawConfig into a validated
// event.Configuration, enforcing every invariant spec.md §3 lists. It
// returns the first violation found rather than accumulating all of them,
// matching the config store's "reject whole file, keep prior snapshot"
// reload policy.
func translate(path string, raw *rawConfig) (*event.Configuration, []pluginSpec, error) {
	cfg := &event.Configuration{
		DevicePrefs: event.DevicePrefs{Name: raw.Device.Name, AutoConnect: raw.Device.AutoConnect},
		AdvancedTimings: event.AdvancedTimings{
			ChordTimeoutMs:     orDefault(raw.AdvancedTimings.ChordTimeoutMs, 75),
			DoubleTapTimeoutMs: orDefault(raw.AdvancedTimings.DoubleTapTimeoutMs, 300),
			HoldThresholdMs:    orDefault(raw.AdvancedTimings.HoldThresholdMs, 500),
		},
	}
	if cfg.AdvancedTimings.ChordTimeoutMs <= 0 || cfg.AdvancedTimings.DoubleTapTimeoutMs <= 0 || cfg.AdvancedTimings.HoldThresholdMs <= 0 {
		return nil, nil, event.NewConfigInvalid(path, "advanced_timings thresholds must be strictly positive", 0)
	}

	seenModes := make(map[string]bool)
	for _, rm := range raw.Modes {
		if rm.Name == "" {
			return nil, nil, event.NewConfigInvalid(path, "mode name must not be empty", 0)
		}
		if seenModes[rm.Name] {
			return nil, nil, event.NewConfigInvalid(path, fmt.Sprintf("duplicate mode name %q", rm.Name), 0)
		}
		seenModes[rm.Name] = true

		mappings, err := translateMappings(path, rm.Mappings, cfg.AdvancedTimings)
		if err != nil {
			return nil, nil, err
		}
		cfg.Modes = append(cfg.Modes, event.Mode{Name: rm.Name, Mappings: mappings})
	}
	if len(cfg.Modes) == 0 {
		return nil, nil, event.NewConfigInvalid(path, "at least one mode is required", 0)
	}

	globals, err := translateMappings(path, raw.GlobalMappings, cfg.AdvancedTimings)
	if err != nil {
		return nil, nil, err
	}
	cfg.GlobalMappings = globals

	// ModeChange targets must reference a known mode (or Next/Prev); this
	// can only be checked once every mode name above is known.
	if err := validateModeChangeTargets(path, cfg); err != nil {
		return nil, nil, err
	}

	specs := make([]pluginSpec, 0, len(raw.Plugins))
	for _, rp := range raw.Plugins {
		if rp.ID == "" || rp.Path == "" {
			return nil, nil, event.NewConfigInvalid(path, "plugin entries require id and path", 0)
		}
		caps := make([]plugin.Capability, 0, len(rp.Capabilities))
		for _, c := range rp.Capabilities {
			cap, ok := parseCapability(c)
			if !ok {
				return nil, nil, event.NewConfigInvalid(path, fmt.Sprintf("plugin %q: unknown capability %q", rp.ID, c), 0)
			}
			caps = append(caps, cap)
		}
		specs = append(specs, pluginSpec{ID: rp.ID, Path: rp.Path, Capabilities: caps})
	}

	return cfg, specs, nil
}

func orDefault(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

func parseCapability(s string) (plugin.Capability, bool) {
	switch plugin.Capability(s) {
	case plugin.CapNetwork, plugin.CapFilesystem, plugin.CapProcess:
		return plugin.Capability(s), true
	default:
		return "", false
	}
}

func translateMappings(path string, raws []rawMapping, timings event.AdvancedTimings) ([]event.Mapping, error) {
	out := make([]event.Mapping, 0, len(raws))
	for i, rm := range raws {
		trig, err := translateTrigger(path, rm.Trigger, timings)
		if err != nil {
			return nil, err
		}
		act, err := translateAction(path, &rm.Action, 0)
		if err != nil {
			return nil, err
		}
		var curve *event.VelocityCurve
		if rm.Curve != nil {
			c, err := translateCurve(path, rm.Curve)
			if err != nil {
				return nil, err
			}
			curve = c
		}
		out = append(out, event.Mapping{
			Trigger:     trig,
			Action:      *act,
			Description: rm.Description,
			Curve:       curve,
			Order:       i,
		})
	}
	return out, nil
}

func translateCurve(path string, rc *rawCurve) (*event.VelocityCurve, error) {
	ct := event.CurveType(rc.Type)
	switch ct {
	case event.CurveLinear, event.CurveExponential, event.CurveLogarithmic, event.CurveSCurve:
	default:
		return nil, event.NewConfigInvalid(path, fmt.Sprintf("unknown curve type %q", rc.Type), 0)
	}
	if rc.Intensity < 0 || rc.Intensity > 1 {
		return nil, event.NewConfigInvalid(path, "curve intensity must be within [0,1]", 0)
	}
	return &event.VelocityCurve{Type: ct, Intensity: rc.Intensity}, nil
}

func translateTrigger(path string, rt rawTrigger, timings event.AdvancedTimings) (event.Trigger, error) {
	tt := event.TriggerType(rt.Type)
	channel := -1
	if rt.Channel != nil {
		channel = *rt.Channel
	}
	t := event.Trigger{
		Type:        tt,
		Note:        rt.Note,
		VelocityMin: rt.VelocityMin,
		SoftMax:     rt.SoftMax,
		MediumMax:   rt.MediumMax,
		DurationMs:  rt.DurationMs,
		TimeoutMs:   rt.TimeoutMs,
		CC:          rt.CC,
		Direction:   event.EncoderDirection(rt.Direction),
		Absolute:    rt.Absolute,
		ValueMin:    rt.ValueMin,
		Channel:     channel,
		ButtonID:    rt.ButtonID,
		AxisID:      rt.AxisID,
	}

	// A mapping that omits its own duration_ms/timeout_ms falls back to the
	// configured global threshold for its gesture family rather than 0.
	switch tt {
	case event.TriggerLongPress:
		t.DurationMs = orDefault(t.DurationMs, timings.HoldThresholdMs)
	case event.TriggerDoubleTap:
		t.TimeoutMs = orDefault(t.TimeoutMs, timings.DoubleTapTimeoutMs)
	case event.TriggerNoteChord:
		t.TimeoutMs = orDefault(t.TimeoutMs, timings.ChordTimeoutMs)
	}

	switch tt {
	case event.TriggerNote, event.TriggerVelocityRange, event.TriggerLongPress, event.TriggerDoubleTap, event.TriggerAftertouch:
		// note-keyed triggers; nothing further to validate structurally.
	case event.TriggerNoteChord:
		notes := dedupSorted(rt.Notes)
		if len(notes) < 2 {
			return event.Trigger{}, event.NewConfigInvalid(path, "NoteChord requires at least 2 distinct notes", 0)
		}
		t.Notes = notes
	case event.TriggerEncoderTurn, event.TriggerCC:
		if rt.Direction != "" {
			switch t.Direction {
			case event.DirCw, event.DirCcw, event.DirAny:
			default:
				return event.Trigger{}, event.NewConfigInvalid(path, fmt.Sprintf("unknown encoder direction %q", rt.Direction), 0)
			}
		}
	case event.TriggerPitchBend, event.TriggerGamepadButton, event.TriggerGamepadAxis:
	default:
		return event.Trigger{}, event.NewConfigInvalid(path, fmt.Sprintf("unknown trigger type %q", rt.Type), 0)
	}
	return t, nil
}

func dedupSorted(in []int) []int {
	seen := make(map[int]bool, len(in))
	out := make([]int, 0, len(in))
	for _, n := range in {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	sort.Ints(out)
	return out
}

func translateAction(path string, ra *rawAction, depth int) (*event.Action, error) {
	if ra == nil {
		return nil, nil
	}
	if depth > event.MaxConditionDepth {
		return nil, event.NewConfigInvalid(path, "action tree nested too deeply", 0)
	}
	at := event.ActionType(ra.Type)
	a := &event.Action{Type: at}

	switch at {
	case event.ActionKeystroke:
		for _, k := range ra.Keys {
			a.Keys = append(a.Keys, event.KeyCode(k))
		}
		for _, m := range ra.Modifiers {
			a.Modifiers = append(a.Modifiers, event.ModifierKey(m))
		}
		if len(a.Keys) == 0 {
			return nil, event.NewConfigInvalid(path, "Keystroke requires at least one key", 0)
		}
	case event.ActionText:
		a.Text = ra.Text
	case event.ActionShell:
		a.Command = ra.Command
		a.Args = ra.Args
		if a.Command == "" {
			return nil, event.NewConfigInvalid(path, "Shell requires a command", 0)
		}
	case event.ActionLaunch:
		a.App = ra.App
		if a.App == "" {
			return nil, event.NewConfigInvalid(path, "Launch requires an app", 0)
		}
	case event.ActionSendMidi:
		a.Port = ra.Port
		msg := make([]byte, len(ra.Message))
		for i, b := range ra.Message {
			msg[i] = byte(b)
		}
		a.Message = msg
		if a.Port == "" {
			return nil, event.NewConfigInvalid(path, "SendMidi requires a port", 0)
		}
	case event.ActionModeChange:
		a.ModeName = ra.ModeName
		if a.ModeName == "" {
			return nil, event.NewConfigInvalid(path, "ModeChange requires mode_name (or __next__/__prev__)", 0)
		}
	case event.ActionPlugin:
		a.PluginID = ra.PluginID
		if a.PluginID == "" {
			return nil, event.NewConfigInvalid(path, "Plugin action requires plugin_id", 0)
		}
		if ra.Payload != "" {
			if !json.Valid([]byte(ra.Payload)) {
				return nil, event.NewConfigInvalid(path, fmt.Sprintf("plugin %q: payload is not valid JSON", ra.PluginID), 0)
			}
			a.Payload = json.RawMessage(ra.Payload)
		}
	case event.ActionSequence:
		for i := range ra.Steps {
			step, err := translateAction(path, &ra.Steps[i], depth+1)
			if err != nil {
				return nil, err
			}
			a.Steps = append(a.Steps, *step)
		}
		if len(a.Steps) == 0 {
			return nil, event.NewConfigInvalid(path, "Sequence requires at least one step", 0)
		}
	case event.ActionDelay:
		a.DelayMs = ra.DelayMs
		if a.DelayMs < 0 {
			return nil, event.NewConfigInvalid(path, "Delay requires delay_ms >= 0", 0)
		}
	case event.ActionRepeat:
		if ra.Count <= 0 || ra.Count > event.MaxRepeatCount {
			return nil, event.NewConfigInvalid(path, fmt.Sprintf("Repeat count must be in [1,%d]", event.MaxRepeatCount), 0)
		}
		inner, err := translateAction(path, ra.RepeatAction, depth+1)
		if err != nil {
			return nil, err
		}
		if inner == nil {
			return nil, event.NewConfigInvalid(path, "Repeat requires repeat_action", 0)
		}
		a.RepeatAction = inner
		a.Count = ra.Count
	case event.ActionConditional:
		cond, err := translateCondition(path, ra.Condition, 0)
		if err != nil {
			return nil, err
		}
		if cond == nil {
			return nil, event.NewConfigInvalid(path, "Conditional requires a condition", 0)
		}
		then, err := translateAction(path, ra.Then, depth+1)
		if err != nil {
			return nil, err
		}
		els, err := translateAction(path, ra.Else, depth+1)
		if err != nil {
			return nil, err
		}
		a.Condition = cond
		a.Then = then
		a.Else = els
	case event.ActionVelocityRange:
		soft, err := translateAction(path, ra.Soft, depth+1)
		if err != nil {
			return nil, err
		}
		med, err := translateAction(path, ra.Medium, depth+1)
		if err != nil {
			return nil, err
		}
		hard, err := translateAction(path, ra.Hard, depth+1)
		if err != nil {
			return nil, err
		}
		a.Soft, a.Medium, a.Hard = soft, med, hard
	default:
		return nil, event.NewConfigInvalid(path, fmt.Sprintf("unknown action type %q", ra.Type), 0)
	}
	return a, nil
}

func translateCondition(path string, rc *rawCondition, depth int) (*event.Condition, error) {
	if rc == nil {
		return nil, nil
	}
	if depth >= event.MaxConditionDepth {
		return nil, event.NewConfigInvalid(path, "condition tree exceeds maximum depth of 8", 0)
	}
	ct := event.ConditionType(rc.Type)
	c := &event.Condition{Type: ct, Start: rc.Start, End: rc.End, AppName: rc.AppName, ModeName: rc.ModeName}

	switch ct {
	case event.CondTimeRange:
		if rc.Start == "" || rc.End == "" {
			return nil, event.NewConfigInvalid(path, "TimeRange requires start and end", 0)
		}
	case event.CondDayOfWeek:
		days := make(map[int]bool, len(rc.Days))
		for _, d := range rc.Days {
			if d < 0 || d > 6 {
				return nil, event.NewConfigInvalid(path, fmt.Sprintf("invalid day_of_week %d", d), 0)
			}
			days[d] = true
		}
		c.Days = days
	case event.CondAppRunning, event.CondAppFrontmost:
		if rc.AppName == "" {
			return nil, event.NewConfigInvalid(path, "app condition requires app_name", 0)
		}
	case event.CondModeIs:
		if rc.ModeName == "" {
			return nil, event.NewConfigInvalid(path, "ModeIs requires mode_name", 0)
		}
	case event.CondAnd, event.CondOr:
		for i := range rc.List {
			inner, err := translateCondition(path, &rc.List[i], depth+1)
			if err != nil {
				return nil, err
			}
			c.List = append(c.List, *inner)
		}
		if len(c.List) == 0 {
			return nil, event.NewConfigInvalid(path, fmt.Sprintf("%s requires at least one child condition", ct), 0)
		}
	case event.CondNot:
		inner, err := translateCondition(path, rc.Not, depth+1)
		if err != nil {
			return nil, err
		}
		if inner == nil {
			return nil, event.NewConfigInvalid(path, "Not requires a child condition", 0)
		}
		c.Inner = inner
	default:
		return nil, event.NewConfigInvalid(path, fmt.Sprintf("unknown condition type %q", rc.Type), 0)
	}
	if c.Depth() > event.MaxConditionDepth {
		return nil, event.NewConfigInvalid(path, "condition tree exceeds maximum depth of 8", 0)
	}
	return c, nil
}

func validateModeChangeTargets(path string, cfg *event.Configuration) error {
	known := make(map[string]bool, len(cfg.Modes))
	for _, m := range cfg.Modes {
		known[m.Name] = true
	}
	check := func(mappings []event.Mapping) error {
		for _, m := range mappings {
			if err := checkAction(&m.Action, known); err != nil {
				return err
			}
		}
		return nil
	}
	if err := check(cfg.GlobalMappings); err != nil {
		return err
	}
	for _, mode := range cfg.Modes {
		if err := check(mode.Mappings); err != nil {
			return err
		}
	}
	_ = path
	return nil
}

func checkAction(a *event.Action, known map[string]bool) error {
	if a == nil {
		return nil
	}
	if a.Type == event.ActionModeChange {
		switch event.ModeTarget(a.ModeName) {
		case event.ModeNext, event.ModePrev:
		default:
			if !known[a.ModeName] {
				return event.NewConfigInvalid("", fmt.Sprintf("ModeChange targets unknown mode %q", a.ModeName), 0)
			}
		}
	}
	for i := range a.Steps {
		if err := checkAction(&a.Steps[i], known); err != nil {
			return err
		}
	}
	if err := checkAction(a.RepeatAction, known); err != nil {
		return err
	}
	if err := checkAction(a.Then, known); err != nil {
		return err
	}
	if err := checkAction(a.Else, known); err != nil {
		return err
	}
	if err := checkAction(a.Soft, known); err != nil {
		return err
	}
	if err := checkAction(a.Medium, known); err != nil {
		return err
	}
	return checkAction(a.Hard, known)
}
