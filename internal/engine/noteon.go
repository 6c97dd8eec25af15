package engine

import (
	"time"

	"github.com/conductor-hq/conductord/internal/curve"
	"github.com/conductor-hq/conductord/internal/event"
)

// processNoteOn implements the NoteOn branch of the match algorithm
// (spec.md §4.1 step 3), including chord buffering, deferred single-note
// resolution, DoubleTap, VelocityRange, Note, and LongPress arming.
func (e *Engine) processNoteOn(ev event.Event) *Match {
	key := noteKey{note: ev.Note, channel: ev.Channel}
	st := e.notes[key]
	if st == nil {
		st = &noteState{}
		e.notes[key] = st
	}

	chordCands := e.candidates(map[event.TriggerType]bool{event.TriggerNoteChord: true})
	var inChord bool
	for i := range chordCands {
		c := chordCands[i]
		if containsNote(c.mapping.Trigger.Notes, ev.Note) {
			if match := e.joinChord(&c, ev); match != nil {
				st.held = true
				st.hasPress = true
				st.pressTs = ev.Timestamp
				return match
			}
			inChord = true
			break
		}
	}

	if inChord {
		// Chord pending: defer single-note resolution per spec.md §9 Open
		// Questions ("fire Note mappings after chord_timeout_ms elapses
		// without completion"). The chord-join already scheduled the
		// chord-timeout timer with this event captured.
		st.held = true
		st.hasPress = true
		st.pressTs = ev.Timestamp
		e.armLongPress(ev, key)
		return nil
	}

	result := e.resolveSingleNote(ev, st)

	st.held = true
	st.hasPress = true
	st.pressTs = ev.Timestamp

	e.armLongPress(ev, key)
	return result
}

// resolveSingleNote applies DoubleTap > VelocityRange > Note precedence
// for a NoteOn not (or no longer) part of a pending chord. st still holds
// the *previous* press timestamp at this point; the caller updates it
// after this returns.
func (e *Engine) resolveSingleNote(ev event.Event, st *noteState) *Match {
	var eligible []candidate

	for _, c := range e.candidates(map[event.TriggerType]bool{event.TriggerDoubleTap: true}) {
		t := c.mapping.Trigger
		if t.Note != ev.Note {
			continue
		}
		if st.hasPress {
			elapsed := ev.Timestamp.Sub(st.pressTs)
			if elapsed >= 0 && elapsed <= time.Duration(t.TimeoutMs)*time.Millisecond {
				eligible = append(eligible, c)
			}
		}
	}

	for _, c := range e.candidates(map[event.TriggerType]bool{event.TriggerVelocityRange: true}) {
		t := c.mapping.Trigger
		if t.Note == ev.Note && ev.Channel == orAnyChannel(t.Channel, ev.Channel) {
			eligible = append(eligible, c)
		}
	}

	for _, c := range e.candidates(map[event.TriggerType]bool{event.TriggerNote: true}) {
		t := c.mapping.Trigger
		if t.Note == ev.Note && ev.Velocity >= t.VelocityMin && ev.Channel == orAnyChannel(t.Channel, ev.Channel) {
			eligible = append(eligible, c)
		}
	}

	best := choose(eligible)
	if best == nil {
		return nil
	}

	if best.mapping.Trigger.Type == event.TriggerVelocityRange {
		band := resolveBand(best.mapping.Trigger, ev.Velocity)
		return e.emitVelocityRange(best, ev, band)
	}
	return e.emit(best, ev, ev.Velocity)
}

func orAnyChannel(triggerChannel, eventChannel int) int {
	if triggerChannel < 0 {
		return eventChannel
	}
	return triggerChannel
}

func resolveBand(t event.Trigger, velocity int) event.Band {
	switch {
	case velocity <= t.SoftMax:
		return event.BandSoft
	case velocity <= t.MediumMax:
		return event.BandMedium
	default:
		return event.BandHard
	}
}

func (e *Engine) emitVelocityRange(c *candidate, ev event.Event, band event.Band) *Match {
	v := curve.Apply(c.mapping.Curve, ev.Velocity)
	return &Match{Mapping: c.mapping, Velocity: v, Timestamp: ev.Timestamp, Mode: c.mode, Band: band}
}

// joinChord adds a note to a chord candidate's buffer, firing the chord
// mapping if the buffer is now complete within the timeout. Returns nil
// if the chord is still pending.
func (e *Engine) joinChord(c *candidate, ev event.Event) *Match {
	buf := e.chords[c.mapping]
	if buf == nil {
		buf = &chordBuffer{firstTs: ev.Timestamp, pressed: map[int]event.Event{}, allJoined: map[int]event.Event{}}
		e.chords[c.mapping] = buf
	}
	buf.pressed[ev.Note] = ev
	buf.allJoined[ev.Note] = ev

	if !buf.armed {
		buf.armed = true
		e.timers = append(e.timers, timer{
			kind:        timerChordTimeout,
			deadline:    buf.firstTs.Add(time.Duration(c.mapping.Trigger.TimeoutMs) * time.Millisecond),
			mapping:     c.mapping,
			mode:        c.mode,
			chordEvents: buf.allJoined,
			chordBuf:    buf,
		})
	}

	if len(buf.pressed) == len(c.mapping.Trigger.Notes) && ev.Timestamp.Sub(buf.firstTs) <= time.Duration(c.mapping.Trigger.TimeoutMs)*time.Millisecond {
		delete(e.chords, c.mapping)
		e.removeChordTimer(c.mapping)
		return e.emit(c, ev, averageVelocity(buf.pressed))
	}
	return nil
}

func (e *Engine) removeChordTimer(m *event.Mapping) {
	kept := e.timers[:0]
	for _, t := range e.timers {
		if t.kind == timerChordTimeout && t.mapping == m {
			continue
		}
		kept = append(kept, t)
	}
	e.timers = kept
}

func averageVelocity(pressed map[int]event.Event) int {
	if len(pressed) == 0 {
		return 0
	}
	sum := 0
	for _, ev := range pressed {
		sum += ev.Velocity
	}
	return sum / len(pressed)
}

func containsNote(notes []int, note int) bool {
	for _, n := range notes {
		if n == note {
			return true
		}
	}
	return false
}

// armLongPress schedules a LongPress firing for every matching candidate
// on this note, to be evaluated at press_ts + duration_ms if the note is
// still held then (spec.md §4.1: "Fires exactly once per press").
func (e *Engine) armLongPress(ev event.Event, key noteKey) {
	for _, c := range e.candidates(map[event.TriggerType]bool{event.TriggerLongPress: true}) {
		if c.mapping.Trigger.Note != ev.Note {
			continue
		}
		e.timers = append(e.timers, timer{
			kind:     timerLongPress,
			deadline: ev.Timestamp.Add(time.Duration(c.mapping.Trigger.DurationMs) * time.Millisecond),
			note:     key.note,
			channel:  key.channel,
			pressTs:  ev.Timestamp,
			mapping:  c.mapping,
			mode:     c.mode,
		})
	}
}

// processNoteOff updates release state. Chord buffers lose the released
// note, so that chord cannot complete unless the note is pressed again
// within the chord window (otherwise the chord-timeout timer resolves the
// deferred single-note mappings when it fires).
func (e *Engine) processNoteOff(ev event.Event) {
	key := noteKey{note: ev.Note, channel: ev.Channel}
	st := e.notes[key]
	if st == nil {
		st = &noteState{}
		e.notes[key] = st
	}
	st.held = false
	st.hasRelease = true
	st.releaseTs = ev.Timestamp

	for _, buf := range e.chords {
		delete(buf.pressed, ev.Note)
	}
}
