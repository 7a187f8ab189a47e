// Package msg defines the message schema exchanged between the MidiIn,
// Process, Backend and MidiOut actors, per the message schema tables.
// Messages on the event path carry their own Time field so that
// downstream actors can propagate the originating Instant unchanged,
// letting MidiOut measure input-to-output latency. UI-only status
// messages (strategy status reports, connection state, latency reports,
// parse errors, CurrentConfig) and the ToProcessStrategy wrapper carry no
// Time field.
package msg

import (
	"time"

	"github.com/carlhammann/adaptuner-go/interval"
	"github.com/carlhammann/adaptuner-go/strategy/harmony"
	"github.com/carlhammann/adaptuner-go/util/listaction"
)

// StrategyAction is a user- or UI-triggered strategy control action,
// dispatched through ToStrategy.Action.
type StrategyAction int

const (
	IncrementNeighbourhoodIndex StrategyAction = iota
	DecrementNeighbourhoodIndex
	SetReferenceToLowest
	SetReferenceToHighest
)

// ToProcess is the inbound message set of the Process actor.
type ToProcess interface{ isToProcess() }

type IncomingMidi struct {
	Bytes []byte
	Time  time.Time
}

type ToProcessStrategy struct{ Inner ToStrategy }

// StartStrategy triggers the strategy's startup sequence inside the
// Process actor, so startup emissions share the same linearization point
// as live events.
type StartStrategy struct{ Time time.Time }

type ProcessStop struct{ Time time.Time }

func (IncomingMidi) isToProcess() {}
func (ToProcessStrategy) isToProcess() {}
func (StartStrategy) isToProcess() {}
func (ProcessStop) isToProcess() {}

// ToStrategy is the message set accepted by a Strategy implementation.
type ToStrategy interface{ isToStrategy() }

type Consider struct {
	Stack *interval.Stack
	Time  time.Time
}

type SetReference struct {
	Reference *interval.Stack
	Time      time.Time
}

type SetTuningReference struct {
	Reference *interval.Reference
	Time      time.Time
}

type Action struct {
	Action StrategyAction
	Time   time.Time
}

type NeighbourhoodListAction struct {
	Action listaction.Action
	Time   time.Time
}

type ApplyTemperamentToNeighbourhood struct {
	Temperament   *interval.Temperament
	Neighbourhood int
	Time          time.Time
}

type MakeNeighbourhoodPure struct {
	Neighbourhood int
	Time          time.Time
}

type ChordListAction struct {
	Action listaction.Action
	Time   time.Time
}

type PushNewChord struct {
	Pattern harmony.PatternConfig
	Time    time.Time
}

type AllowExtraHighNotes struct {
	PatternIndex int
	Allow        bool
	Time         time.Time
}

type EnableChordList struct {
	Enable bool
	Time   time.Time
}

func (Consider) isToStrategy() {}
func (SetReference) isToStrategy() {}
func (SetTuningReference) isToStrategy() {}
func (Action) isToStrategy() {}
func (NeighbourhoodListAction) isToStrategy() {}
func (ApplyTemperamentToNeighbourhood) isToStrategy() {}
func (MakeNeighbourhoodPure) isToStrategy() {}
func (ChordListAction) isToStrategy() {}
func (PushNewChord) isToStrategy() {}
func (AllowExtraHighNotes) isToStrategy() {}
func (EnableChordList) isToStrategy() {}

// MsgTime extracts the timestamp carried by any ToStrategy variant.
func (c Consider) MsgTime() time.Time { return c.Time }
func (s SetReference) MsgTime() time.Time { return s.Time }
func (s SetTuningReference) MsgTime() time.Time { return s.Time }
func (a Action) MsgTime() time.Time { return a.Time }
func (n NeighbourhoodListAction) MsgTime() time.Time { return n.Time }
func (a ApplyTemperamentToNeighbourhood) MsgTime() time.Time { return a.Time }
func (m MakeNeighbourhoodPure) MsgTime() time.Time { return m.Time }
func (c ChordListAction) MsgTime() time.Time { return c.Time }
func (p PushNewChord) MsgTime() time.Time { return p.Time }
func (a AllowExtraHighNotes) MsgTime() time.Time { return a.Time }
func (e EnableChordList) MsgTime() time.Time { return e.Time }

// FromStrategy is emitted by a Strategy implementation; it fans out to
// both Backend and the UI.
type FromStrategy interface{ isFromStrategy() }

type Retune struct {
	Note        uint8
	Tuning      interval.Semitones
	TuningStack *interval.Stack
	Time        time.Time
}

type StrategyConsider struct{ Stack *interval.Stack }

type StrategySetReference struct{ Stack *interval.Stack }

type StrategySetTuningReference struct{ Reference *interval.Reference }

type CurrentNeighbourhoodIndex struct{ Index int }

// CurrentHarmony reports the harmony selector's most recent fit.
// PatternIndex and Reference are nil when no pattern matched.
type CurrentHarmony struct {
	PatternIndex *int
	Reference    *interval.Stack
}

type StrategyDetunedNote struct {
	Note        uint8
	ShouldBe    interval.Semitones
	Actual      interval.Semitones
	Explanation string
}

// MidiParseErr reports an unparseable incoming MIDI message to the UI;
// the event is discarded and the Process actor continues.
type MidiParseErr struct{ Reason string }

func (Retune) isFromStrategy() {}
func (MidiParseErr) isFromStrategy() {}
func (StrategyConsider) isFromStrategy() {}
func (StrategySetReference) isFromStrategy() {}
func (StrategySetTuningReference) isFromStrategy() {}
func (CurrentNeighbourhoodIndex) isFromStrategy() {}
func (CurrentHarmony) isFromStrategy() {}
func (StrategyDetunedNote) isFromStrategy() {}

// ToBackend is the inbound message set of the Backend actor.
type ToBackend interface{ isToBackend() }

type NoteOn struct {
	Channel  uint8 // the input channel, for the Backend's key-state bookkeeping
	Note     uint8
	Velocity uint8
	Time     time.Time
}

type NoteOff struct {
	Channel uint8
	Note    uint8
	Time    time.Time
}

type TunedNoteOn struct {
	Channel     uint8
	Note        uint8
	Velocity    uint8
	Tuning      interval.Semitones
	TuningStack *interval.Stack
	Time        time.Time
}

type PedalHold struct {
	Channel uint8
	Value   uint8
	Time    time.Time
}

type ProgramChange struct {
	Program uint8
	Time    time.Time
}

type BackendRetune struct {
	Note        uint8
	Tuning      interval.Semitones
	TuningStack *interval.Stack
	Time        time.Time
}

type BendRange struct {
	Semitones float64
	Time      time.Time
}

type ChannelsToUse struct {
	Channels [12]uint8
	Time     time.Time
}

type ForwardMidi struct {
	Bytes []byte
	Time  time.Time
}

type GetCurrentConfig struct{ Time time.Time }

// RestartWithConfig carries an opaque, already-parsed backend config
// document; the Backend actor is parametric in its concrete type so this
// package stores it as `any` to avoid an import cycle with config.
type RestartWithConfig struct {
	Config any
	Time   time.Time
}

type RestartWithCurrentConfig struct{ Time time.Time }

type BackendStart struct{ Time time.Time }

type BackendStop struct{ Time time.Time }

type Reset struct{ Time time.Time }

func (NoteOn) isToBackend() {}
func (NoteOff) isToBackend() {}
func (TunedNoteOn) isToBackend() {}
func (PedalHold) isToBackend() {}
func (ProgramChange) isToBackend() {}
func (BackendRetune) isToBackend() {}
func (BendRange) isToBackend() {}
func (ChannelsToUse) isToBackend() {}
func (ForwardMidi) isToBackend() {}
func (GetCurrentConfig) isToBackend() {}
func (RestartWithConfig) isToBackend() {}
func (RestartWithCurrentConfig) isToBackend() {}
func (BackendStart) isToBackend() {}
func (BackendStop) isToBackend() {}
func (Reset) isToBackend() {}

// FromBackend fans out to MidiOut (OutgoingMidi) and the UI (everything
// else).
type FromBackend interface{ isFromBackend() }

type OutgoingMidi struct {
	Bytes []byte
	Time  time.Time
}

type BackendDetunedNote struct {
	Note        uint8
	ShouldBe    interval.Semitones
	Actual      interval.Semitones
	Explanation string
	Time        time.Time
}

type CurrentConfig struct{ Config any }

func (OutgoingMidi) isFromBackend() {}
func (BackendDetunedNote) isFromBackend() {}
func (CurrentConfig) isFromBackend() {}

// ToMidiIn is the inbound message set of the MidiIn actor, driving its
// Unconnected/Connected port lifecycle.
type ToMidiIn interface{ isToMidiIn() }

type ConnectIn struct {
	PortName string
	Time     time.Time
}

type DisconnectIn struct{ Time time.Time }

type MidiInStop struct{ Time time.Time }

func (ConnectIn) isToMidiIn() {}
func (DisconnectIn) isToMidiIn() {}
func (MidiInStop) isToMidiIn() {}

// FromMidiIn fans out to Process (IncomingMidi) and the UI (everything
// else).
type FromMidiIn interface{ isFromMidiIn() }

type FromMidiInIncomingMidi struct {
	Bytes []byte
	Time  time.Time
}

type MidiInConnected struct{ PortName string }

type MidiInDisconnected struct{ AvailablePorts []string }

type MidiInConnectionError struct{ Reason string }

func (FromMidiInIncomingMidi) isFromMidiIn() {}
func (MidiInConnected) isFromMidiIn() {}
func (MidiInDisconnected) isFromMidiIn() {}
func (MidiInConnectionError) isFromMidiIn() {}

// ToMidiOut is the inbound message set of the MidiOut actor.
type ToMidiOut interface{ isToMidiOut() }

type ConnectOut struct {
	PortName string
	Time     time.Time
}

type DisconnectOut struct{ Time time.Time }

type MidiOutStop struct{ Time time.Time }

type SendMidi struct {
	Bytes []byte
	Time  time.Time
}

func (ConnectOut) isToMidiOut() {}
func (DisconnectOut) isToMidiOut() {}
func (MidiOutStop) isToMidiOut() {}
func (SendMidi) isToMidiOut() {}

// FromMidiOut reports UI-bound connection state and per-event latency.
type FromMidiOut interface{ isFromMidiOut() }

type MidiOutConnected struct{ PortName string }

type MidiOutDisconnected struct{ AvailablePorts []string }

type MidiOutConnectionError struct{ Reason string }

// LatencyReport carries the wall-clock delay between an event's
// originating Instant and the moment MidiOut wrote its bytes to the OS.
type LatencyReport struct {
	Latency time.Duration
}

func (MidiOutConnected) isFromMidiOut() {}
func (MidiOutDisconnected) isFromMidiOut() {}
func (MidiOutConnectionError) isFromMidiOut() {}
func (LatencyReport) isFromMidiOut() {}
