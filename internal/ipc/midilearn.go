package ipc

import (
	"sync"
	"time"

	"github.com/conductor-hq/conductord/internal/event"
)

// LearnState is the MIDI-learn session state machine (spec.md §4.6).
type LearnState string

const (
	LearnIdle      LearnState = "Idle"
	LearnActive    LearnState = "Active"
	LearnCompleted LearnState = "Completed"
	LearnTimedOut  LearnState = "TimedOut"
	LearnCancelled LearnState = "Cancelled"
)

// LearnResult is the captured trigger a completed session yields,
// pre-filled with the fields a config author would paste into a mapping.
type LearnResult struct {
	Type    event.TriggerType `json:"type"`
	Note    int               `json:"note,omitempty"`
	CC      int               `json:"cc,omitempty"`
	Channel int               `json:"channel"`
}

// LearnSession coordinates one capture window. The engine's normal
// matching is unaffected: events are still processed for mappings and
// additionally offered to the active session (spec.md §4.6 "events pass
// through to matching but are additionally offered to the session").
type LearnSession struct {
	mu      sync.Mutex
	state   LearnState
	deadline time.Time
	result  *LearnResult
	timer   *time.Timer
}

// NewLearnSession creates a session in the Idle state.
func NewLearnSession() *LearnSession {
	return &LearnSession{state: LearnIdle}
}

// Start begins a capture window. Starting while already Active rejects
// with Busy (spec.md §4.6 "second start while one is active rejects with
// Busy").
func (s *LearnSession) Start(timeout time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == LearnActive {
		return event.NewBusy("midi_learn")
	}
	s.state = LearnActive
	s.result = nil
	s.deadline = time.Now().Add(timeout)
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(timeout, s.onTimeout)
	return nil
}

func (s *LearnSession) onTimeout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == LearnActive {
		s.state = LearnTimedOut
	}
}

// Cancel ends an active session without a result.
func (s *LearnSession) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
	}
	if s.state == LearnActive {
		s.state = LearnCancelled
	}
}

// Status reports the current state.
func (s *LearnSession) Status() LearnState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Result returns the captured trigger, if the session completed.
func (s *LearnSession) Result() *LearnResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Offer hands one live event to the session; the first compatible event
// (NoteOn, CC, GamepadButton, GamepadAxis) completes the session
// (spec.md §4.6 "the first compatible event is recorded and returned").
func (s *LearnSession) Offer(ev event.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != LearnActive {
		return
	}
	res := learnResultFor(ev)
	if res == nil {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.result = res
	s.state = LearnCompleted
}

func learnResultFor(ev event.Event) *LearnResult {
	switch ev.Kind {
	case event.KindNoteOn:
		return &LearnResult{Type: event.TriggerNote, Note: ev.Note, Channel: ev.Channel}
	case event.KindControlChange:
		return &LearnResult{Type: event.TriggerCC, CC: ev.Controller, Channel: ev.Channel}
	case event.KindGamepadButton:
		if ev.Pressed {
			return &LearnResult{Type: event.TriggerGamepadButton, Note: ev.ButtonID}
		}
		return nil
	case event.KindGamepadAxis:
		return &LearnResult{Type: event.TriggerGamepadAxis, Note: ev.AxisID}
	default:
		return nil
	}
}
