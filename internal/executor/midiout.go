package executor

import (
	"sync"

	"github.com/conductor-hq/conductord/internal/event"
)

// MidiOutput is the external collaborator that enumerates and writes to
// MIDI output ports; internal/input's MIDI adapter implements it.
type MidiOutput interface {
	ListOutputs() []string
	SendTo(portName string, message []byte) error
}

// midiPortCache caches an output enumeration and refreshes it once on a
// send failure before giving up (spec.md §4.2: "looks up port by exact
// name against a cached enumeration; refreshes enumeration on failure and
// retries once").
type midiPortCache struct {
	mu     sync.Mutex
	out    MidiOutput
	cached map[string]bool
}

func newMidiPortCache(out MidiOutput) *midiPortCache {
	c := &midiPortCache{out: out}
	c.refresh()
	return c
}

func (c *midiPortCache) refresh() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cached = make(map[string]bool)
	if c.out == nil {
		return
	}
	for _, name := range c.out.ListOutputs() {
		c.cached[name] = true
	}
}

func (c *midiPortCache) has(port string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cached[port]
}

func (c *midiPortCache) send(port string, message []byte) error {
	if c.out == nil {
		return event.NewActionFailed(event.ActionSendMidi, "no MIDI output configured")
	}
	if !c.has(port) {
		c.refresh()
		if !c.has(port) {
			return event.NewActionFailed(event.ActionSendMidi, "unknown output port: "+port)
		}
	}
	if err := c.out.SendTo(port, message); err != nil {
		c.refresh()
		if err2 := c.out.SendTo(port, message); err2 != nil {
			return event.NewActionFailed(event.ActionSendMidi, err2.Error())
		}
	}
	return nil
}
