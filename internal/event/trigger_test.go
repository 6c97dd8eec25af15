package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTriggerPrecedenceOrder(t *testing.T) {
	assert.True(t, TriggerNoteChord.Less(TriggerDoubleTap))
	assert.True(t, TriggerDoubleTap.Less(TriggerLongPress))
	assert.True(t, TriggerLongPress.Less(TriggerVelocityRange))
	assert.True(t, TriggerVelocityRange.Less(TriggerNote))

	assert.False(t, TriggerNote.Less(TriggerNoteChord))
	assert.False(t, TriggerNote.Less(TriggerNote))
}

func TestBareNoteRanksBelowLongPress(t *testing.T) {
	assert.True(t, TriggerLongPress.Less(TriggerNote))
	assert.False(t, TriggerNote.Less(TriggerLongPress))
}

func TestUnrankedTriggerTypesTieWithNote(t *testing.T) {
	assert.False(t, TriggerCC.Less(TriggerNote))
	assert.False(t, TriggerNote.Less(TriggerCC))
	assert.False(t, TriggerGamepadButton.Less(TriggerAftertouch))
}
