package keystate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestPedalOff: a held note stays sounding until the pedal releases it.
func TestPedalOff(t *testing.T) {
	now := time.Now()
	s := New(now)
	s.NoteOn(0, now)
	s.NoteOff(0, true, now)
	require.True(t, s.IsSounding())
	s.PedalOff(0, now)
	require.False(t, s.IsSounding())
}

func TestNoteOnReturnsStateChangeOnlyOnFirstChannel(t *testing.T) {
	now := time.Now()
	s := New(now)
	require.True(t, s.NoteOn(0, now))
	require.False(t, s.NoteOn(1, now)) // already sounding, no state change
}

func TestNoteOffWithoutPedalReleasesImmediately(t *testing.T) {
	now := time.Now()
	s := New(now)
	s.NoteOn(2, now)
	require.True(t, s.NoteOff(2, false, now))
	require.False(t, s.IsSounding())
}

func TestNoteOffDoesNotSignalStateChangeWhileOtherChannelSounds(t *testing.T) {
	now := time.Now()
	s := New(now)
	s.NoteOn(0, now)
	s.NoteOn(1, now)
	require.False(t, s.NoteOff(0, false, now))
	require.True(t, s.IsSounding())
	require.True(t, s.NoteOff(1, false, now))
	require.False(t, s.IsSounding())
}

func TestLastChangeUpdatesOnlyOnTransitions(t *testing.T) {
	t0 := time.Now()
	s := New(t0)
	t1 := t0.Add(time.Second)
	s.NoteOn(0, t1)
	require.Equal(t, t1, s.LastChange())

	t2 := t1.Add(time.Second)
	s.NoteOn(1, t2) // already sounding: no transition, no LastChange update
	require.Equal(t, t1, s.LastChange())
}
