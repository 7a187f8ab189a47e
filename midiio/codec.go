// Package midiio wraps gitlab.com/gomidi/midi/v2 for wire-level MIDI
// parsing/construction and for the two-state port connection lifecycle.
package midiio

import (
	"fmt"

	"gitlab.com/gomidi/midi/v2"
)

// Event is the decoded shape of one channel-voice MIDI message, the set
// Process's incoming-MIDI dispatch switches on.
type Event interface{ isEvent() }

type NoteOnEvent struct {
	Channel, Note, Velocity uint8
}

type NoteOffEvent struct {
	Channel, Note uint8
}

type HoldEvent struct {
	Channel, Value uint8
}

// SostenutoEvent and SoftEvent are the two bindable pedal edges; Process
// consults its bindings on their down/up transitions and forwards the
// raw bytes either way.
type SostenutoEvent struct {
	Channel, Value uint8
}

type SoftEvent struct {
	Channel, Value uint8
}

// OtherEvent is any channel-voice message Process forwards unchanged
// (program change received on input, aftertouch, etc).
type OtherEvent struct {
	Bytes []byte
}

func (NoteOnEvent) isEvent()    {}
func (NoteOffEvent) isEvent()   {}
func (HoldEvent) isEvent()      {}
func (SostenutoEvent) isEvent() {}
func (SoftEvent) isEvent()      {}
func (OtherEvent) isEvent()     {}

const (
	holdController      = 64
	sostenutoController = 66
	softController      = 67
)

// Parse decodes a channel-voice MIDI message into an Event. NoteOn with
// velocity 0 is normalised to NoteOffEvent, per the MIDI 1.0 convention.
func Parse(bytes []byte) (Event, error) {
	m := midi.Message(bytes)
	var ch, key, vel, controller, value uint8
	switch {
	case m.GetNoteStart(&ch, &key, &vel):
		return NoteOnEvent{Channel: ch, Note: key, Velocity: vel}, nil
	case m.GetNoteEnd(&ch, &key):
		return NoteOffEvent{Channel: ch, Note: key}, nil
	case m.GetControlChange(&ch, &controller, &value):
		switch controller {
		case holdController:
			return HoldEvent{Channel: ch, Value: value}, nil
		case sostenutoController:
			return SostenutoEvent{Channel: ch, Value: value}, nil
		case softController:
			return SoftEvent{Channel: ch, Value: value}, nil
		}
	}
	if len(bytes) == 0 || bytes[0] < 0x80 || bytes[0] >= 0xF0 {
		return nil, fmt.Errorf("midiio: not a channel-voice message: % x", bytes)
	}
	return OtherEvent{Bytes: append([]byte(nil), bytes...)}, nil
}

// EncodeNoteOn builds a raw NoteOn message.
func EncodeNoteOn(channel, note, velocity uint8) []byte {
	return midi.NoteOn(channel, note, velocity)
}

// EncodeNoteOff builds a raw NoteOff message.
func EncodeNoteOff(channel, note uint8) []byte {
	return midi.NoteOff(channel, note)
}

// EncodePitchBend builds a raw PitchBend message from a centre-8192
// 14-bit value.
func EncodePitchBend(channel uint8, bend14 int) []byte {
	rel := int16(bend14 - 8192)
	return midi.Pitchbend(channel, rel)
}

// EncodeHold builds a raw sustain-pedal (CC 64) message.
func EncodeHold(channel, value uint8) []byte {
	return midi.ControlChange(channel, holdController, value)
}

// EncodeProgramChange builds a raw ProgramChange message.
func EncodeProgramChange(channel, program uint8) []byte {
	return midi.ProgramChange(channel, program)
}

// EncodeAllSoundOff builds a raw channel-mode "all sound off" (CC 120)
// message, used by the Backend's reset sequence.
func EncodeAllSoundOff(channel uint8) []byte {
	return midi.ControlChange(channel, 120, 0)
}
