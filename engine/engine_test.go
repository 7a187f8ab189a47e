package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gitlab.com/gomidi/midi/v2"

	"github.com/carlhammann/adaptuner-go/backend"
	"github.com/carlhammann/adaptuner-go/interval"
	"github.com/carlhammann/adaptuner-go/msg"
	"github.com/carlhammann/adaptuner-go/process"
	"github.com/carlhammann/adaptuner-go/strategy"
	"github.com/carlhammann/adaptuner-go/strategy/harmony"
	"github.com/carlhammann/adaptuner-go/strategy/melody"
)

func newPipeline(t *testing.T) (*Engine, *process.Process, *backend.Pitchbend12) {
	t.Helper()
	basis := interval.FiveLimitBasis()
	now := time.Now()

	m := melody.NewStaticTuning(basis, melody.Config{
		Neighbourhoods: []melody.NeighbourhoodConfig{{Complete: true, PeriodIndex: 0}},
		TuningReference: &interval.Reference{
			Stack:           interval.NewZeroStack(basis),
			C4MidiSemitones: 60,
		},
		Reference: []interval.StackCoeff{0, 0, 0},
	})
	chords := harmony.NewChordList(basis, false, nil)
	p := process.New(basis, strategy.NewTwoStep(chords, m), nil, 2, now)

	b, err := backend.New(backend.Config{
		BendRange: 2,
		Channels:  [12]uint8{0, 1, 2, 3, 4, 5, 6, 7, 8, 10, 11, 12},
	}, now)
	require.NoError(t, err)

	return New(), p, b
}

func receiveSend(t *testing.T, e *Engine) msg.SendMidi {
	t.Helper()
	select {
	case m := <-e.ToMidiOut:
		sm, ok := m.(msg.SendMidi)
		require.True(t, ok)
		return sm
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for outgoing MIDI")
		return msg.SendMidi{}
	}
}

// TestPipelineDeliversNoteOnWithTimestamp drives a NoteOn through
// Process and Backend and checks that the originating timestamp survives
// to the MidiOut-bound message, so latency reports measure the full
// input-to-output path.
func TestPipelineDeliversNoteOnWithTimestamp(t *testing.T) {
	e, p, b := newPipeline(t)
	go e.runProcess(p)
	go e.runBackend(b)
	defer func() {
		e.ToProcess <- msg.ProcessStop{Time: time.Now()}
		e.ToBackend <- msg.BackendStop{Time: time.Now()}
	}()

	stamp := time.Now().Add(-time.Millisecond)
	e.ToProcess <- msg.IncomingMidi{Bytes: midi.NoteOn(0, 60, 100), Time: stamp}

	sm := receiveSend(t, e)
	var ch, key, vel uint8
	require.True(t, midi.Message(sm.Bytes).GetNoteOn(&ch, &key, &vel))
	require.Equal(t, uint8(60), key)
	require.Equal(t, stamp, sm.Time)
}

// TestStopDrainsActors: Stop-style messages terminate both loops.
func TestStopDrainsActors(t *testing.T) {
	e, p, b := newPipeline(t)
	go e.runProcess(p)
	go e.runBackend(b)

	e.ToProcess <- msg.ProcessStop{Time: time.Now()}
	e.ToBackend <- msg.BackendStop{Time: time.Now()}

	for i := 0; i < 2; i++ {
		select {
		case <-e.done:
		case <-time.After(2 * time.Second):
			t.Fatal("actor loop did not exit")
		}
	}
}
