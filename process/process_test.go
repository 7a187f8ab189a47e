package process

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gitlab.com/gomidi/midi/v2"

	"github.com/carlhammann/adaptuner-go/bindings"
	"github.com/carlhammann/adaptuner-go/interval"
	"github.com/carlhammann/adaptuner-go/msg"
	"github.com/carlhammann/adaptuner-go/strategy"
	"github.com/carlhammann/adaptuner-go/strategy/harmony"
	"github.com/carlhammann/adaptuner-go/strategy/melody"
)

// ji12 is the 5-limit just chromatic scale on C, one entry per key class.
var ji12 = [][]interval.StackCoeff{
	{0, 0, 0}, {1, -1, -1}, {-1, 2, 0}, {0, 1, -1}, {0, 0, 1}, {1, -1, 0},
	{-1, 2, 1}, {0, 1, 0}, {1, 0, -1}, {1, -1, 1}, {0, 2, -1}, {0, 1, 1},
}

func testMelodyConfig(basis *interval.Basis) melody.Config {
	entries := make([]harmony.NeighbourhoodEntry, len(ji12))
	for i, target := range ji12 {
		entries[i] = harmony.NeighbourhoodEntry{Target: target}
	}
	return melody.Config{
		Neighbourhoods: []melody.NeighbourhoodConfig{
			{Complete: true, PeriodIndex: 0, Entries: entries},
			{Complete: true, PeriodIndex: 0}, // plain octaves, for switch tests
		},
		TuningReference: &interval.Reference{
			Stack:           interval.NewZeroStack(basis),
			C4MidiSemitones: 60,
		},
		Reference: []interval.StackCoeff{0, 0, 0},
	}
}

func newTestProcess(t *testing.T, enableChords bool, binds *bindings.Bindings) *Process {
	t.Helper()
	basis := interval.FiveLimitBasis()
	chords := harmony.NewChordList(basis, enableChords, []harmony.PatternConfig{{
		Name:                "major third",
		Classes:             []int{0, 4},
		AllowExtraHighNotes: false,
		Neighbourhood: []harmony.NeighbourhoodEntry{
			{Target: []interval.StackCoeff{0, 0, 0}},
			{Target: []interval.StackCoeff{0, 0, 1}},
		},
	}})
	m := melody.NewStaticTuning(basis, testMelodyConfig(basis))
	return New(basis, strategy.NewTwoStep(chords, m), binds, 2, time.Now())
}

func handle(p *Process, bytes []byte) (toBackend []msg.ToBackend, out []msg.FromStrategy) {
	p.HandleIncomingMidi(bytes, time.Now(), &toBackend, &out)
	return
}

// TestTunedNoteOnCarriesTuning plays scenario S1 at the Process level: a
// single NoteOn becomes one TunedNoteOn whose tuning is the exact 12-TET
// pitch, with no plain NoteOn alongside and no DetunedNote.
func TestTunedNoteOnCarriesTuning(t *testing.T) {
	p := newTestProcess(t, false, nil)

	toBackend, out := handle(p, midi.NoteOn(0, 60, 100))

	require.Len(t, toBackend, 1)
	tuned, ok := toBackend[0].(msg.TunedNoteOn)
	require.True(t, ok)
	require.Equal(t, uint8(60), tuned.Note)
	require.Equal(t, uint8(100), tuned.Velocity)
	require.InDelta(t, 60.0, tuned.Tuning, 1e-12)

	for _, ev := range out {
		_, isDetuned := ev.(msg.StrategyDetunedNote)
		require.False(t, isDetuned)
	}
}

// TestHarmonyRetunesBeforeNoteOn plays scenario S2: with C already down,
// pressing E matches the {0,4} pattern; the retune of the already-
// sounding C reaches the Backend before E's TunedNoteOn, and E is one
// syntonic comma low.
func TestHarmonyRetunesBeforeNoteOn(t *testing.T) {
	p := newTestProcess(t, true, nil)

	handle(p, midi.NoteOn(0, 60, 100))
	toBackend, _ := handle(p, midi.NoteOn(0, 64, 100))

	var sawTuned bool
	for _, ev := range toBackend {
		switch e := ev.(type) {
		case msg.BackendRetune:
			require.False(t, sawTuned, "Retune after the TunedNoteOn it must precede")
			require.Equal(t, uint8(60), e.Note)
		case msg.TunedNoteOn:
			sawTuned = true
			require.Equal(t, uint8(64), e.Note)
			third := interval.FiveLimitBasis().Generators[2].Semitones
			require.InDelta(t, 60+third, e.Tuning, 1e-12)
		}
	}
	require.True(t, sawTuned)
}

// TestSustainPedalExtendsNote plays scenario S4: a NoteOff under a held
// pedal is withheld from the Backend and the key keeps sounding; pedal
// release delivers it.
func TestSustainPedalExtendsNote(t *testing.T) {
	p := newTestProcess(t, false, nil)

	handle(p, midi.NoteOn(0, 60, 100))
	handle(p, midi.ControlChange(0, 64, 127))
	toBackend, _ := handle(p, midi.NoteOff(0, 60))

	require.True(t, p.KeyStates[60].IsSounding())
	for _, ev := range toBackend {
		_, isOff := ev.(msg.NoteOff)
		require.False(t, isOff, "NoteOff must not reach the Backend while the pedal holds")
	}

	toBackend, _ = handle(p, midi.ControlChange(0, 64, 0))
	require.False(t, p.KeyStates[60].IsSounding())

	var sawOff bool
	for _, ev := range toBackend {
		if off, ok := ev.(msg.NoteOff); ok {
			require.Equal(t, uint8(60), off.Note)
			sawOff = true
		}
	}
	require.True(t, sawOff)
}

// TestPedalReleaseWhileKeyHeld: releasing the pedal while the key is
// still pressed leaves the note sounding and sends no NoteOff.
func TestPedalReleaseWhileKeyHeld(t *testing.T) {
	p := newTestProcess(t, false, nil)

	handle(p, midi.NoteOn(0, 60, 100))
	handle(p, midi.ControlChange(0, 64, 127))
	toBackend, _ := handle(p, midi.ControlChange(0, 64, 0))

	require.True(t, p.KeyStates[60].IsSounding())
	for _, ev := range toBackend {
		_, isOff := ev.(msg.NoteOff)
		require.False(t, isOff)
	}
}

// TestNeighbourhoodSwitchRetunesSounding plays scenario S5: with two held
// notes, switching neighbourhoods retunes both, in MIDI-key order.
func TestNeighbourhoodSwitchRetunesSounding(t *testing.T) {
	p := newTestProcess(t, false, nil)

	handle(p, midi.NoteOn(0, 60, 100))
	handle(p, midi.NoteOn(0, 67, 100))

	var toBackend []msg.ToBackend
	var out []msg.FromStrategy
	p.HandleToStrategy(msg.Action{Action: msg.IncrementNeighbourhoodIndex, Time: time.Now()}, &toBackend, &out)

	var retuned []uint8
	for _, ev := range toBackend {
		if r, ok := ev.(msg.BackendRetune); ok {
			retuned = append(retuned, r.Note)
		}
	}
	require.Equal(t, []uint8{60, 67}, retuned)
}

// TestUnparseableMidiIsReported: garbage bytes produce a MidiParseErr,
// no state change and no Backend traffic.
func TestUnparseableMidiIsReported(t *testing.T) {
	p := newTestProcess(t, false, nil)

	toBackend, out := handle(p, []byte{0x42})

	require.Empty(t, toBackend)
	require.Len(t, out, 1)
	_, ok := out[0].(msg.MidiParseErr)
	require.True(t, ok)
}

// TestOtherMidiForwardedUnchanged: channel-voice messages the engine does
// not interpret pass through with their bytes intact.
func TestOtherMidiForwardedUnchanged(t *testing.T) {
	p := newTestProcess(t, false, nil)

	bytes := midi.ControlChange(0, 1, 42) // mod wheel
	toBackend, _ := handle(p, bytes)

	require.Len(t, toBackend, 1)
	fwd, ok := toBackend[0].(msg.ForwardMidi)
	require.True(t, ok)
	require.Equal(t, []byte(bytes), fwd.Bytes)
}

// TestSostenutoBindingFiresAction: a bound sostenuto-down edge runs its
// strategy action; the raw pedal bytes still reach the Backend.
func TestSostenutoBindingFiresAction(t *testing.T) {
	binds := bindings.New()
	binds.Insert(bindings.MidiTriggerOf(bindings.SostenutoDown), msg.IncrementNeighbourhoodIndex)
	p := newTestProcess(t, false, binds)

	handle(p, midi.NoteOn(0, 60, 100))
	toBackend, out := handle(p, midi.ControlChange(0, 66, 127))

	var sawForward bool
	for _, ev := range toBackend {
		if _, ok := ev.(msg.ForwardMidi); ok {
			sawForward = true
		}
	}
	require.True(t, sawForward)

	var sawIndex bool
	for _, ev := range out {
		if idx, ok := ev.(msg.CurrentNeighbourhoodIndex); ok {
			require.Equal(t, 1, idx.Index)
			sawIndex = true
		}
	}
	require.True(t, sawIndex)
}

// TestBendRangeDiagnostic: a retune outside the configured bend range
// raises the Process-level DetunedNote diagnostic.
func TestBendRangeDiagnostic(t *testing.T) {
	p := newTestProcess(t, false, nil)
	p.BendRange = 0.05 // narrower than the just chromatic's commas

	toBackend, out := handle(p, midi.NoteOn(0, 64, 100))
	require.Len(t, toBackend, 1)

	var sawDetuned bool
	for _, ev := range out {
		if d, ok := ev.(msg.StrategyDetunedNote); ok {
			require.Equal(t, uint8(64), d.Note)
			require.Equal(t, "exceeded bend range", d.Explanation)
			sawDetuned = true
		}
	}
	require.True(t, sawDetuned)
}
