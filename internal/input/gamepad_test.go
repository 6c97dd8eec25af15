package input

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conductor-hq/conductord/internal/event"
)

func jsEvent(valLo, valHi, typeByte, number byte) []byte {
	return []byte{0, 0, 0, 0, valLo, valHi, typeByte, number}
}

func TestDecodeButtonPressAndRelease(t *testing.T) {
	a := NewGamepadAdapter()
	var got []event.Event
	emit := func(ev event.Event) { got = append(got, ev) }

	a.decode(jsEvent(0x01, 0x00, jsEventButton, 3), emit)
	a.decode(jsEvent(0x00, 0x00, jsEventButton, 3), emit)

	require.Len(t, got, 2)
	assert.Equal(t, event.KindGamepadButton, got[0].Kind)
	assert.Equal(t, 3, got[0].ButtonID)
	assert.True(t, got[0].Pressed)
	assert.False(t, got[1].Pressed)
}

func TestDecodeAxisWithinDeadzoneIsSuppressed(t *testing.T) {
	a := NewGamepadAdapter()
	var got []event.Event
	emit := func(ev event.Event) { got = append(got, ev) }

	// value 1000 < default deadzone 4000
	a.decode(jsEvent(0xE8, 0x03, jsEventAxis, 0), emit)
	assert.Empty(t, got)
}

func TestDecodeAxisBeyondDeadzoneEmits(t *testing.T) {
	a := NewGamepadAdapter()
	var got []event.Event
	emit := func(ev event.Event) { got = append(got, ev) }

	// value 20000, little-endian int16: lo=0x20 hi=0x4E
	a.decode(jsEvent(0x20, 0x4E, jsEventAxis, 1), emit)
	require.Len(t, got, 1)
	assert.Equal(t, event.KindGamepadAxis, got[0].Kind)
	assert.Equal(t, 1, got[0].AxisID)
	assert.InDelta(t, 20000.0/32767.0, got[0].AxisVal, 0.0001)
}

func TestDecodeInitFlagEventsAreIgnored(t *testing.T) {
	a := NewGamepadAdapter()
	var got []event.Event
	emit := func(ev event.Event) { got = append(got, ev) }

	a.decode(jsEvent(0x01, 0x00, jsEventButton|jsEventInit, 0), emit)
	assert.Empty(t, got)
}
