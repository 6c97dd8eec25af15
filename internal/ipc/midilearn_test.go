package ipc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conductor-hq/conductord/internal/event"
)

func TestLearnSessionStartRejectsWhileActive(t *testing.T) {
	s := NewLearnSession()
	require.NoError(t, s.Start(time.Minute))
	err := s.Start(time.Minute)
	require.Error(t, err)
	var ferr *event.Error
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, event.ErrBusy, ferr.Kind)
}

func TestLearnSessionOfferCompletesOnNoteOn(t *testing.T) {
	s := NewLearnSession()
	require.NoError(t, s.Start(time.Minute))
	s.Offer(event.NoteOn(time.Now(), 60, 100, 2))

	assert.Equal(t, LearnCompleted, s.Status())
	res := s.Result()
	require.NotNil(t, res)
	assert.Equal(t, event.TriggerNote, res.Type)
	assert.Equal(t, 60, res.Note)
	assert.Equal(t, 2, res.Channel)
}

func TestLearnSessionOfferIgnoredWhenIdle(t *testing.T) {
	s := NewLearnSession()
	s.Offer(event.NoteOn(time.Now(), 60, 100, 0))
	assert.Equal(t, LearnIdle, s.Status())
	assert.Nil(t, s.Result())
}

func TestLearnSessionCancelFromActive(t *testing.T) {
	s := NewLearnSession()
	require.NoError(t, s.Start(time.Minute))
	s.Cancel()
	assert.Equal(t, LearnCancelled, s.Status())
}

func TestLearnSessionTimesOut(t *testing.T) {
	s := NewLearnSession()
	require.NoError(t, s.Start(10 * time.Millisecond))
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, LearnTimedOut, s.Status())
}

func TestLearnResultForGamepadButtonOnlyOnPress(t *testing.T) {
	s := NewLearnSession()
	require.NoError(t, s.Start(time.Minute))
	s.Offer(event.Event{Kind: event.KindGamepadButton, Pressed: false, ButtonID: 3})
	assert.Equal(t, LearnActive, s.Status(), "release events must not complete the session")

	s.Offer(event.Event{Kind: event.KindGamepadButton, Pressed: true, ButtonID: 3})
	assert.Equal(t, LearnCompleted, s.Status())
	assert.Equal(t, 3, s.Result().Note)
}
