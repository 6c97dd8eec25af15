package engine

import (
	"time"

	"github.com/conductor-hq/conductord/internal/event"
)

// noteKey identifies per-note timing state.
type noteKey struct {
	note    int
	channel int
}

// noteState is the per-note timing state described in spec.md §4.1:
// "{press_ts?, release_ts?, pending_long_press_deadline?,
// pending_double_tap_deadline?, tap_count}". It is private to the engine
// and only ever touched under the engine's lock.
//
// pressTs survives release (it is the timestamp of the most recent
// NoteOn) so DoubleTap can compare successive NoteOn timestamps
// (spec.md §9 Open Questions: this implementation measures inter-NoteOn
// intervals, not NoteOff-to-NoteOn). held tracks whether the note is
// currently down, which is what LongPress consults at its deadline.
type noteState struct {
	pressTs  time.Time
	hasPress bool
	held     bool

	releaseTs  time.Time
	hasRelease bool
}

// timerKind tags what an armed deadline represents.
type timerKind int

const (
	timerLongPress timerKind = iota
	timerChordTimeout
)

// timer is an entry in the engine's monotonic deadline queue (spec.md
// §4.1 "Pending-timer handling").
type timer struct {
	kind     timerKind
	deadline time.Time
	note     int
	channel  int
	pressTs  time.Time // LongPress: the exact press this timer was armed for
	mapping  *event.Mapping
	mode     string // name of the mode the mapping belongs to, "" for global

	// chord-timeout specific: snapshot of the original per-note NoteOn
	// events captured when each note joined the chord buffer, so that a
	// lapsed chord can retroactively resolve the constituent Note /
	// VelocityRange / DoubleTap mappings (spec.md §9 Open Questions: "the
	// safe policy is to fire Note mappings after chord_timeout_ms elapses
	// without completion").
	chordEvents map[int]event.Event
	chordBuf    *chordBuffer
}

// chordBuffer tracks progress toward a NoteChord trigger. pressed holds
// only the notes currently held (shrinks on NoteOff, used to test
// completion); allJoined is append-only and feeds the chord-timeout
// timer's deferred single-note resolution, so a note released before the
// chord completes still gets its simple Note/VelocityRange/DoubleTap
// mapping resolved at chord-timeout.
type chordBuffer struct {
	firstTs   time.Time
	pressed   map[int]event.Event
	allJoined map[int]event.Event
	armed     bool
}
