package event

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNoteOnClampsFields(t *testing.T) {
	ev := NoteOn(time.Now(), 200, -10, 99)
	assert.Equal(t, 127, ev.Note)
	assert.Equal(t, 0, ev.Velocity)
	assert.Equal(t, 15, ev.Channel)
	assert.Equal(t, KindNoteOn, ev.Kind)
}

func TestNoteOffClampsFields(t *testing.T) {
	ev := NoteOff(time.Now(), -1, 20)
	assert.Equal(t, 0, ev.Note)
	assert.Equal(t, 15, ev.Channel)
	assert.Equal(t, KindNoteOff, ev.Kind)
}
