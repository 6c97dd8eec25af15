package engine

import "github.com/conductor-hq/conductord/internal/event"

// processControlChange resolves EncoderTurn (composite gesture) over plain
// CC field matches per spec.md §4.1 step 3/4: EncoderTurn interprets
// two's-complement relative values (1..63 => Cw, 65..127 => Ccw) unless
// the trigger is declared Absolute, in which case direction is derived
// from the delta against the last observed value for that controller
// (spec.md §4.1: "absolute-mode devices compared to last value").
func (e *Engine) processControlChange(ev event.Event) *Match {
	key := noteKey{note: ev.Controller, channel: ev.Channel}

	var eligible []candidate
	for _, c := range e.candidates(map[event.TriggerType]bool{event.TriggerEncoderTurn: true}) {
		t := c.mapping.Trigger
		if t.CC != ev.Controller {
			continue
		}
		if dir, ok := encoderDirection(t, ev, e.lastAxisCC, key); ok {
			if t.Direction == event.DirAny || t.Direction == dir {
				eligible = append(eligible, c)
			}
		}
	}
	for _, c := range e.candidates(map[event.TriggerType]bool{event.TriggerCC: true}) {
		t := c.mapping.Trigger
		if t.CC == ev.Controller && ev.Value >= t.ValueMin && ev.Channel == orAnyChannel(t.Channel, ev.Channel) {
			eligible = append(eligible, c)
		}
	}

	e.lastAxisCC[key] = ev.Value

	best := choose(eligible)
	if best == nil {
		return nil
	}
	return e.emit(best, ev, ev.Value)
}

// encoderDirection resolves the turn direction for one EncoderTurn
// candidate, returning ok=false when the value carries no direction
// (e.g. relative value 0 or 64, the reset/center markers).
func encoderDirection(t event.Trigger, ev event.Event, last map[noteKey]int, key noteKey) (event.EncoderDirection, bool) {
	if t.Absolute {
		prev, known := last[key]
		if !known {
			return "", false
		}
		switch {
		case ev.Value > prev:
			return event.DirCw, true
		case ev.Value < prev:
			return event.DirCcw, true
		default:
			return "", false
		}
	}

	switch {
	case ev.Value >= 1 && ev.Value <= 63:
		return event.DirCw, true
	case ev.Value >= 65 && ev.Value <= 127:
		return event.DirCcw, true
	default:
		return "", false
	}
}
