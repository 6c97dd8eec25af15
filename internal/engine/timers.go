package engine

import (
	"time"
)

// NextDeadline returns the earliest pending timer deadline, if any. The
// service layer wakes the engine at this time and calls Tick (spec.md
// §4.1 "Pending-timer handling").
func (e *Engine) NextDeadline() (time.Time, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.timers) == 0 {
		return time.Time{}, false
	}
	best := e.timers[0].deadline
	for _, t := range e.timers[1:] {
		if t.deadline.Before(best) {
			best = t.deadline
		}
	}
	return best, true
}

// Tick evaluates timers whose deadline is at or before now, removing each
// one it evaluates from the queue, and returns at most one Match (spec.md
// §8: "at most one mapping fires per event" -- a timer firing counts as a
// terminating event in its own right). If several timers are
// simultaneously due, they are resolved in deadline order and only the
// first eligible match is returned; callers should call Tick again to
// drain the rest. A nil result means no due timer is left.
func (e *Engine) Tick(now time.Time) *Match {
	e.mu.Lock()
	defer e.mu.Unlock()

	for {
		due := -1
		for i, t := range e.timers {
			if !t.deadline.After(now) {
				if due == -1 || t.deadline.Before(e.timers[due].deadline) {
					due = i
				}
			}
		}
		if due == -1 {
			return nil
		}
		t := e.timers[due]
		e.timers = append(e.timers[:due], e.timers[due+1:]...)

		var m *Match
		switch t.kind {
		case timerLongPress:
			m = e.fireLongPress(t)
		case timerChordTimeout:
			m = e.fireChordTimeout(t)
		}
		if m != nil {
			return m
		}
	}
}

func (e *Engine) fireLongPress(t timer) *Match {
	st := e.notes[noteKey{note: t.note, channel: t.channel}]
	if st == nil || !st.held || !st.pressTs.Equal(t.pressTs) {
		return nil // released before the deadline, or a later press is in progress
	}
	return &Match{Mapping: t.mapping, Velocity: 127, Timestamp: t.deadline, Mode: t.mode}
}

// fireChordTimeout resolves the deferred single-note mappings for every
// note that joined an incomplete chord and returns the highest-precedence
// match among them. The other notes' matches are not fired, since they
// all stem from one lapsed chord window, not independent terminating
// events.
func (e *Engine) fireChordTimeout(t timer) *Match {
	if e.chords[t.mapping] == t.chordBuf {
		delete(e.chords, t.mapping)
	}

	var eligible []*Match
	for note, ev := range t.chordEvents {
		st := e.notes[noteKey{note: note, channel: ev.Channel}]
		if st == nil {
			st = &noteState{}
		}
		if m := e.resolveSingleNote(ev, st); m != nil {
			eligible = append(eligible, m)
		}
	}
	if len(eligible) == 0 {
		return nil
	}
	best := eligible[0]
	for _, m := range eligible[1:] {
		if better(candidate{mapping: m.Mapping, mode: m.Mode}, candidate{mapping: best.Mapping, mode: best.Mode}) {
			best = m
		}
	}
	return best
}

// DroppedEvents returns the count of malformed events dropped so far.
func (e *Engine) DroppedEvents() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.droppedEvents
}
