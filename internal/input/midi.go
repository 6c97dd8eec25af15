package input

import (
	"context"
	"fmt"
	"log"
	"time"

	midi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"github.com/sony/gobreaker"

	"github.com/conductor-hq/conductord/internal/event"
)

// MidiAdapter listens on a configured input port and decodes channel
// messages into normalised event.Event values; it also implements
// executor.MidiOutput so the same adapter backs SendMidi actions.
type MidiAdapter struct {
	deviceName  string
	autoConnect bool

	breaker *gobreaker.CircuitBreaker

	in drivers.In
}

// newBreaker bounds how aggressively a dropped device is retried
// (spec.md §7 "DeviceUnavailable{name} -- adapter retries with
// backoff"), implemented as a circuit breaker: repeated open failures
// trip the breaker and back off before the next dial attempt.
func newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "midi:" + name,
		MaxRequests: 1,
		Interval:    0,
		Timeout:     5 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("[MIDI] %s: %s -> %s", name, from, to)
		},
	})
}

// NewMidiAdapter creates an adapter for the named device (empty name
// means "first available port").
func NewMidiAdapter(deviceName string, autoConnect bool) *MidiAdapter {
	return &MidiAdapter{deviceName: deviceName, autoConnect: autoConnect, breaker: newBreaker(deviceName)}
}

// Start opens the configured input port and emits a normalised event for
// every NoteOn/NoteOff/ControlChange/Aftertouch/PitchBend message it
// receives until ctx is cancelled.
func (a *MidiAdapter) Start(ctx context.Context, emit Emit) {
	stop, err := a.connectAndListen(emit)
	if err != nil {
		log.Printf("[MIDI] %v", event.NewDeviceUnavailable(a.deviceName, err.Error()))
		if !a.autoConnect {
			return
		}
		go a.retryLoop(ctx, emit)
		return
	}
	go func() {
		<-ctx.Done()
		stop()
		if a.in != nil {
			a.in.Close()
		}
	}()
}

func (a *MidiAdapter) retryLoop(ctx context.Context, emit Emit) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := a.breaker.Execute(func() (interface{}, error) {
				stop, err := a.connectAndListen(emit)
				if err != nil {
					return nil, err
				}
				go func() {
					<-ctx.Done()
					stop()
				}()
				return nil, nil
			}); err == nil {
				return
			}
		}
	}
}

func (a *MidiAdapter) connectAndListen(emit Emit) (func(), error) {
	in, err := a.findIn()
	if err != nil {
		return nil, err
	}
	a.in = in
	stop, err := midi.ListenTo(in, func(msg midi.Message, _ int32) {
		a.handleMessage(msg, emit)
	})
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", a.deviceName, err)
	}
	log.Printf("[MIDI] listening on %s", in)
	return stop, nil
}

func (a *MidiAdapter) findIn() (drivers.In, error) {
	if a.deviceName != "" {
		return midi.FindInPort(a.deviceName)
	}
	ins := midi.InPorts()
	if len(ins) == 0 {
		return nil, fmt.Errorf("no MIDI input ports available")
	}
	return ins[0], nil
}

func (a *MidiAdapter) handleMessage(msg midi.Message, emit Emit) {
	now := time.Now()
	var ch, note, vel uint8
	var cc, val uint8
	var pbRel int16

	switch {
	case msg.GetNoteOn(&ch, &note, &vel):
		emit(event.NoteOn(now, int(note), int(vel), int(ch)))
	case msg.GetNoteOff(&ch, &note, &vel):
		emit(event.NoteOff(now, int(note), int(ch)))
	case msg.GetControlChange(&ch, &cc, &val):
		emit(event.Event{Kind: event.KindControlChange, Timestamp: now, Channel: int(ch), Controller: int(cc), Value: int(val)})
	case msg.GetAfterTouch(&ch, &val):
		emit(event.Event{Kind: event.KindAftertouch, Timestamp: now, Channel: int(ch), Pressure: int(val)})
	case msg.GetPitchBend(&ch, &pbRel, nil):
		emit(event.Event{Kind: event.KindPitchBend, Timestamp: now, Channel: int(ch), PitchValue: int(pbRel)})
	}
}

// ListInputs enumerates available MIDI input ports, for the IPC
// list_devices response.
func (a *MidiAdapter) ListInputs() []string {
	ins := midi.InPorts()
	names := make([]string, len(ins))
	for i, in := range ins {
		names[i] = in.String()
	}
	return names
}

// ListOutputs implements executor.MidiOutput.
func (a *MidiAdapter) ListOutputs() []string {
	outs := midi.OutPorts()
	names := make([]string, len(outs))
	for i, o := range outs {
		names[i] = o.String()
	}
	return names
}

// SendTo implements executor.MidiOutput: look up the named output port,
// open it and write the raw message. The lookup and open happen on every
// call; no port handle is cached here.
func (a *MidiAdapter) SendTo(portName string, message []byte) error {
	out, err := midi.FindOutPort(portName)
	if err != nil {
		return event.NewDeviceUnavailable(portName, err.Error())
	}
	if err := out.Open(); err != nil {
		return event.NewDeviceUnavailable(portName, err.Error())
	}
	return out.Send(message)
}
