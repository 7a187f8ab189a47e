// Package keystate tracks, per MIDI note number, whether that note is
// currently sounding on any MIDI channel and whether the sustain pedal is
// holding it past its note-off.
package keystate

import "time"

// KeyState tracks one note's on/held bitmask across up to 16 channels.
type KeyState struct {
	lastChange   time.Time
	onChannels   uint16
	heldChannels uint16
}

// New builds a KeyState with no channels on or held.
func New(t time.Time) *KeyState {
	return &KeyState{lastChange: t}
}

// LastChange returns the last time this note's sounding state flipped.
func (k *KeyState) LastChange() time.Time { return k.lastChange }

// IsSounding reports whether the note sounds on any channel, on or held.
func (k *KeyState) IsSounding() bool {
	return k.onChannels != 0 || k.heldChannels != 0
}

// NoteOn marks channel as on. Returns true iff the note transitioned from
// silent to sounding.
func (k *KeyState) NoteOn(channel uint8, t time.Time) bool {
	stateChange := !k.IsSounding()
	if stateChange {
		k.lastChange = t
	}
	k.onChannels |= 1 << channel
	return stateChange
}

// NoteOff marks channel as off, moving it into the held mask if
// pedalHold is set. Returns true iff the note transitioned from sounding
// to silent.
func (k *KeyState) NoteOff(channel uint8, pedalHold bool, t time.Time) bool {
	wasSounding := k.IsSounding()
	if pedalHold {
		k.heldChannels |= k.onChannels & (1 << channel)
	}
	k.onChannels &^= 1 << channel
	if wasSounding && !k.IsSounding() {
		k.lastChange = t
		return true
	}
	return false
}

// PedalOff releases channel from the held mask. Returns true iff the note
// transitioned from sounding to silent.
func (k *KeyState) PedalOff(channel uint8, t time.Time) bool {
	wasSounding := k.IsSounding()
	k.heldChannels &^= 1 << channel
	if wasSounding && !k.IsSounding() {
		k.lastChange = t
		return true
	}
	return false
}
