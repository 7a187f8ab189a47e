// Package backend implements the Pitchbend12 backend: it translates
// abstract retune/note events into per-channel NoteOn/NoteOff/PitchBend/
// ControlChange MIDI over exactly 12 output channels, one channel lane
// per key class.
package backend

import (
	"fmt"
	"math"
	"time"

	"github.com/carlhammann/adaptuner-go/interval"
	"github.com/carlhammann/adaptuner-go/keystate"
	"github.com/carlhammann/adaptuner-go/midiio"
	"github.com/carlhammann/adaptuner-go/msg"
)

const bendCentre = 8192

// Config is Pitchbend12's serializable configuration. Channels are
// 0-based here; the config layer converts from the 1..16 numbering of the
// document.
type Config struct {
	BendRange interval.Semitones
	Channels  [12]uint8
}

// Pitchbend12 owns the backend state: the 12 output channels, the
// per-channel pitch-bend cache, per-key sounding state and the bend
// range.
type Pitchbend12 struct {
	channels [12]uint8

	// bends[i] is the bend most recently sent on channels[i]
	bends [12]uint16

	keyState  [128]keystate.KeyState
	tunings   [128]interval.Semitones
	pedalHold [16]bool

	bendRange interval.Semitones
}

// New builds a Pitchbend12, validating the channel set: exactly 12
// distinct channels in 0..15. On violation the backend refuses to start.
func New(cfg Config, now time.Time) (*Pitchbend12, error) {
	var seen [16]bool
	for _, ch := range cfg.Channels {
		if ch > 15 {
			return nil, fmt.Errorf("backend: channel %d out of range 0..15", ch)
		}
		if seen[ch] {
			return nil, fmt.Errorf("backend: channel %d configured twice", ch)
		}
		seen[ch] = true
	}
	if cfg.BendRange <= 0 {
		return nil, fmt.Errorf("backend: bend range must be positive, got %v", cfg.BendRange)
	}

	b := &Pitchbend12{channels: cfg.Channels, bendRange: cfg.BendRange}
	for i := range b.bends {
		b.bends[i] = bendCentre
	}
	for i := range b.keyState {
		b.keyState[i] = *keystate.New(now)
		b.tunings[i] = interval.Semitones(i)
	}
	return b, nil
}

// ExtractConfig returns the backend's current serializable configuration.
func (b *Pitchbend12) ExtractConfig() Config {
	return Config{BendRange: b.bendRange, Channels: b.channels}
}

func (b *Pitchbend12) bendFromSemitones(semitones interval.Semitones) uint16 {
	bend := math.Round(8191.0*semitones/b.bendRange) + bendCentre
	if bend < 0 {
		return 0
	}
	if bend > 16383 {
		return 16383
	}
	return uint16(bend)
}

func (b *Pitchbend12) semitonesFromBend(bend uint16) interval.Semitones {
	return (interval.Semitones(bend) - bendCentre) / 8191.0 * b.bendRange
}

func sendMidi(out *[]msg.FromBackend, bytes []byte, t time.Time) {
	*out = append(*out, msg.OutgoingMidi{Bytes: bytes, Time: t})
}

// handleRetune computes the desired bend for note's channel lane,
// emitting a PitchBend only when it differs from the cached value, plus a
// DetunedNote diagnostic when the bend range is exceeded; the clamped
// bend is sent anyway.
func (b *Pitchbend12) handleRetune(note uint8, tuning interval.Semitones, t time.Time, out *[]msg.FromBackend) {
	lane := int(note) % 12
	relative := tuning - interval.Semitones(note)
	desired := b.bendFromSemitones(relative)
	if b.bends[lane] != desired {
		sendMidi(out, midiio.EncodePitchBend(b.channels[lane], int(desired)), t)
		b.bends[lane] = desired
	}
	b.tunings[note] = tuning
	if relative > b.bendRange || relative < -b.bendRange {
		*out = append(*out, msg.BackendDetunedNote{
			Note:        note,
			ShouldBe:    tuning,
			Actual:      interval.Semitones(note) + b.semitonesFromBend(desired),
			Explanation: "exceeded bend range",
			Time:        t,
		})
	}
}

// reset re-centres every lane's bend, releases the hold pedal and cuts
// all sound on the 12 output channels. When clearKeys
// is false the key-state and tuning tables survive, so a follow-up
// resendBends can restore the bends of still-sounding notes.
func (b *Pitchbend12) reset(t time.Time, clearKeys bool, out *[]msg.FromBackend) {
	for i := range b.bends {
		b.bends[i] = bendCentre
	}
	b.pedalHold = [16]bool{}
	if clearKeys {
		for i := range b.keyState {
			b.keyState[i] = *keystate.New(t)
			b.tunings[i] = interval.Semitones(i)
		}
	}

	for i, ch := range b.channels {
		sendMidi(out, midiio.EncodePitchBend(ch, int(b.bends[i])), t)
		sendMidi(out, midiio.EncodeHold(ch, 0), t)
		sendMidi(out, midiio.EncodeAllSoundOff(ch), t)
	}
}

// resendBends re-derives and re-sends the bend of every sounding note, in
// MIDI-key order, after a reset that preserved the key state.
func (b *Pitchbend12) resendBends(t time.Time, out *[]msg.FromBackend) {
	for note := 0; note < 128; note++ {
		if b.keyState[note].IsSounding() {
			b.handleRetune(uint8(note), b.tunings[note], t, out)
		}
	}
}

// Handle processes one inbound message, appending any outgoing MIDI and
// UI diagnostics to out.
func (b *Pitchbend12) Handle(m msg.ToBackend, out *[]msg.FromBackend) {
	switch e := m.(type) {
	case msg.BackendStart:
		b.reset(e.Time, true, out)

	case msg.Reset:
		b.reset(e.Time, true, out)

	case msg.BackendStop:
		// the run loop exits; nothing to emit

	case msg.NoteOn:
		sendMidi(out, midiio.EncodeNoteOn(b.channels[int(e.Note)%12], e.Note, e.Velocity), e.Time)
		b.keyState[e.Note].NoteOn(e.Channel, e.Time)

	case msg.NoteOff:
		sendMidi(out, midiio.EncodeNoteOff(b.channels[int(e.Note)%12], e.Note), e.Time)
		b.keyState[e.Note].NoteOff(e.Channel, b.pedalHold[e.Channel], e.Time)

	case msg.TunedNoteOn:
		// retune strictly before the note starts
		b.handleRetune(e.Note, e.Tuning, e.Time, out)
		sendMidi(out, midiio.EncodeNoteOn(b.channels[int(e.Note)%12], e.Note, e.Velocity), e.Time)
		b.keyState[e.Note].NoteOn(e.Channel, e.Time)

	case msg.BackendRetune:
		b.handleRetune(e.Note, e.Tuning, e.Time, out)

	case msg.PedalHold:
		for _, ch := range b.channels {
			sendMidi(out, midiio.EncodeHold(ch, e.Value), e.Time)
		}
		b.pedalHold[e.Channel] = e.Value > 0
		if e.Value == 0 {
			for i := range b.keyState {
				b.keyState[i].PedalOff(e.Channel, e.Time)
			}
		}

	case msg.ProgramChange:
		for _, ch := range b.channels {
			sendMidi(out, midiio.EncodeProgramChange(ch, e.Program), e.Time)
		}

	case msg.BendRange:
		b.bendRange = e.Semitones
		b.reset(e.Time, false, out)
		b.resendBends(e.Time, out)

	case msg.ChannelsToUse:
		if fresh, err := New(Config{BendRange: b.bendRange, Channels: e.Channels}, e.Time); err == nil {
			b.channels = fresh.channels
		}
		b.reset(e.Time, false, out)
		b.resendBends(e.Time, out)

	case msg.ForwardMidi:
		sendMidi(out, e.Bytes, e.Time)

	case msg.GetCurrentConfig:
		*out = append(*out, msg.CurrentConfig{Config: b.ExtractConfig()})

	case msg.RestartWithConfig:
		if cfg, ok := e.Config.(Config); ok {
			if fresh, err := New(cfg, e.Time); err == nil {
				*b = *fresh
			}
		}
		b.reset(e.Time, true, out)

	case msg.RestartWithCurrentConfig:
		if fresh, err := New(b.ExtractConfig(), e.Time); err == nil {
			*b = *fresh
		}
		b.reset(e.Time, true, out)
	}
}
