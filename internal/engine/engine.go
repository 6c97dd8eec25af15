// Package engine implements the stateful mapping engine: it consumes a
// stream of time-stamped event.Event values, maintains per-note and
// per-axis timing state, and emits (Mapping, ResolvedVelocity, Timestamp)
// matches under a configurable active mode with deterministic precedence
// (spec.md §4.1).
package engine

import (
	"log"
	"sync"
	"time"

	"github.com/conductor-hq/conductord/internal/curve"
	"github.com/conductor-hq/conductord/internal/event"
)

// Match is one resolved (Mapping, ResolvedVelocity, Timestamp) tuple.
type Match struct {
	Mapping   *event.Mapping
	Velocity  int
	Timestamp time.Time
	Mode      string     // mode the mapping was sourced from, "" for global
	Band      event.Band // populated only for VelocityRange matches
}

// candidate is a mapping annotated with the mode it was drawn from, used
// internally for precedence resolution.
type candidate struct {
	mapping *event.Mapping
	mode    string // "" for global
}

// Engine is the stateful matcher. All mutation happens under mu; the
// engine never blocks on an action and never panics on malformed input
// (spec.md §4.1 "Failure semantics").
type Engine struct {
	mu sync.Mutex

	cfg        *event.Configuration
	activeMode string

	notes  map[noteKey]*noteState
	chords map[*event.Mapping]*chordBuffer
	timers []timer

	lastAxisCC map[noteKey]int // absolute-mode EncoderTurn last value, keyed by (cc,channel)

	droppedEvents uint64
}

// New creates an Engine with the given initial configuration and active
// mode.
func New(cfg *event.Configuration, activeMode string) *Engine {
	return &Engine{
		cfg:        cfg,
		activeMode: activeMode,
		notes:      make(map[noteKey]*noteState),
		chords:     make(map[*event.Mapping]*chordBuffer),
		lastAxisCC: make(map[noteKey]int),
	}
}

// SetConfiguration atomically swaps the configuration snapshot. Any event
// already in flight continues to be matched against the snapshot it
// started with; this call only affects events processed afterward
// (spec.md §5 "Config swaps occur between events").
func (e *Engine) SetConfiguration(cfg *event.Configuration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg = cfg
	if cfg.ModeByName(e.activeMode) == nil && len(cfg.Modes) > 0 {
		e.activeMode = cfg.Modes[0].Name
	}
}

// ActiveMode returns the currently active mode name.
func (e *Engine) ActiveMode() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.activeMode
}

// SetActiveMode changes the active mode, flushing in-flight timers whose
// mapping belonged to the outgoing mode. Global-mapping timers are
// retained (spec.md §4.1 "Mode-change atomicity").
func (e *Engine) SetActiveMode(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if name != "" && e.cfg.ModeByName(name) == nil {
		return event.NewConfigInvalid("", "unknown mode: "+name, 0)
	}
	outgoing := e.activeMode
	e.activeMode = name

	kept := e.timers[:0]
	for _, t := range e.timers {
		if t.mode == "" || t.mode != outgoing {
			kept = append(kept, t)
		}
	}
	e.timers = kept

	for m, buf := range e.chords {
		_ = buf
		if modeOfMapping(e.cfg, m) == outgoing {
			delete(e.chords, m)
		}
	}
	return nil
}

func modeOfMapping(cfg *event.Configuration, target *event.Mapping) string {
	for _, mode := range cfg.Modes {
		for i := range mode.Mappings {
			if &mode.Mappings[i] == target {
				return mode.Name
			}
		}
	}
	return ""
}

// candidates returns global + active-mode mappings compatible with the
// given trigger types, tagged with their source mode.
func (e *Engine) candidates(types map[event.TriggerType]bool) []candidate {
	var out []candidate
	for i := range e.cfg.GlobalMappings {
		m := &e.cfg.GlobalMappings[i]
		if types[m.Trigger.Type] {
			out = append(out, candidate{mapping: m, mode: ""})
		}
	}
	if mode := e.cfg.ModeByName(e.activeMode); mode != nil {
		for i := range mode.Mappings {
			m := &mode.Mappings[i]
			if types[m.Trigger.Type] {
				out = append(out, candidate{mapping: m, mode: mode.Name})
			}
		}
	}
	return out
}

// choose applies the precedence rule (spec.md §4.1 step 4) over a set of
// candidates that are all eligible to fire on the same terminating event,
// returning at most one.
func choose(cands []candidate) *candidate {
	if len(cands) == 0 {
		return nil
	}
	best := cands[0]
	for _, c := range cands[1:] {
		if better(c, best) {
			best = c
		}
	}
	return &best
}

// better reports whether a outranks b under (a) gesture precedence, (b)
// mode-local over global, (c) earlier declaration over later.
func better(a, b candidate) bool {
	if a.mapping.Trigger.Type != b.mapping.Trigger.Type {
		return a.mapping.Trigger.Type.Less(b.mapping.Trigger.Type)
	}
	aLocal, bLocal := a.mode != "", b.mode != ""
	if aLocal != bLocal {
		return aLocal
	}
	return a.mapping.Order < b.mapping.Order
}

var allSimpleTriggerTypes = []event.TriggerType{
	event.TriggerCC, event.TriggerAftertouch, event.TriggerPitchBend,
	event.TriggerGamepadButton, event.TriggerGamepadAxis, event.TriggerEncoderTurn,
}

// Process consumes one event, updates engine state, and returns at most
// one Match (spec.md §8: "at most one mapping fires per event").
// Malformed events are dropped with a counter increment; Process never
// panics.
func (e *Engine) Process(ev event.Event) (result *Match) {
	defer func() {
		if r := recover(); r != nil {
			e.mu.Lock()
			e.droppedEvents++
			e.mu.Unlock()
			log.Printf("[Engine] recovered from panic processing event: %v", r)
			result = nil
		}
	}()

	e.mu.Lock()
	defer e.mu.Unlock()

	switch ev.Kind {
	case event.KindNoteOn:
		return e.processNoteOn(ev)
	case event.KindNoteOff:
		e.processNoteOff(ev)
		return nil
	case event.KindControlChange:
		return e.processControlChange(ev)
	default:
		return e.processSimple(ev)
	}
}

// processSimple handles Aftertouch, PitchBend, GamepadButton, GamepadAxis.
func (e *Engine) processSimple(ev event.Event) *Match {
	types := map[event.TriggerType]bool{}
	switch ev.Kind {
	case event.KindAftertouch:
		types[event.TriggerAftertouch] = true
	case event.KindPitchBend:
		types[event.TriggerPitchBend] = true
	case event.KindGamepadButton:
		if !ev.Pressed {
			return nil
		}
		types[event.TriggerGamepadButton] = true
	case event.KindGamepadAxis:
		types[event.TriggerGamepadAxis] = true
	default:
		return nil
	}

	var eligible []candidate
	for _, c := range e.candidates(types) {
		if simpleMatches(c.mapping.Trigger, ev) {
			eligible = append(eligible, c)
		}
	}
	best := choose(eligible)
	if best == nil {
		return nil
	}
	return e.emit(best, ev, ev.Pressure)
}

func simpleMatches(t event.Trigger, ev event.Event) bool {
	if t.Channel >= 0 && ev.Channel != t.Channel && ev.Kind != event.KindGamepadButton && ev.Kind != event.KindGamepadAxis {
		return false
	}
	switch t.Type {
	case event.TriggerAftertouch:
		if t.Note >= 0 && ev.Note != t.Note {
			return false
		}
		return true
	case event.TriggerPitchBend:
		if t.ValueMin > 0 {
			d := ev.PitchValue
			if d < 0 {
				d = -d
			}
			return d >= t.ValueMin
		}
		return true
	case event.TriggerGamepadButton:
		return ev.ButtonID == t.ButtonID
	case event.TriggerGamepadAxis:
		return ev.AxisID == t.AxisID
	default:
		return false
	}
}

func (e *Engine) emit(c *candidate, ev event.Event, rawVelocity int) *Match {
	v := curve.Apply(c.mapping.Curve, rawVelocity)
	return &Match{Mapping: c.mapping, Velocity: v, Timestamp: ev.Timestamp, Mode: c.mode}
}
