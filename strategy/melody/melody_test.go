package melody

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/carlhammann/adaptuner-go/interval"
	"github.com/carlhammann/adaptuner-go/keystate"
	"github.com/carlhammann/adaptuner-go/msg"
	"github.com/carlhammann/adaptuner-go/neighbourhood"
	"github.com/carlhammann/adaptuner-go/strategy/harmony"
)

func soundingKeys(notes ...int) *[128]keystate.KeyState {
	var keys [128]keystate.KeyState
	now := time.Now()
	for i := range keys {
		keys[i] = *keystate.New(now)
	}
	for _, n := range notes {
		keys[n].NoteOn(0, now)
	}
	return &keys
}

func zeroTunings(basis *interval.Basis) *[128]*interval.Stack {
	var tunings [128]*interval.Stack
	for i := range tunings {
		tunings[i] = interval.NewZeroStack(basis)
	}
	return &tunings
}

func chromaticConfig(basis *interval.Basis) Config {
	targets := [][]interval.StackCoeff{
		{0, 0, 0}, {1, -1, -1}, {-1, 2, 0}, {0, 1, -1}, {0, 0, 1}, {1, -1, 0},
		{-1, 2, 1}, {0, 1, 0}, {1, 0, -1}, {1, -1, 1}, {0, 2, -1}, {0, 1, 1},
	}
	entries := make([]harmony.NeighbourhoodEntry, len(targets))
	for i, target := range targets {
		entries[i] = harmony.NeighbourhoodEntry{Target: target}
	}
	return Config{
		Neighbourhoods: []NeighbourhoodConfig{
			{Complete: true, PeriodIndex: 0, Entries: entries},
			{Complete: true, PeriodIndex: 0},
		},
		TuningReference: &interval.Reference{
			Stack:           interval.NewZeroStack(basis),
			C4MidiSemitones: 60,
		},
		Reference: []interval.StackCoeff{0, 0, 0},
	}
}

// TestStartEmitsSequence checks the startup order: SetTuningReference,
// SetReference, CurrentNeighbourhoodIndex, one Consider per entry, then
// retunes.
func TestStartEmitsSequence(t *testing.T) {
	basis := interval.FiveLimitBasis()
	s := NewStaticTuning(basis, chromaticConfig(basis))

	keys := soundingKeys(60)
	tunings := zeroTunings(basis)
	var out []msg.FromStrategy
	s.Start(keys, tunings, nil, time.Now(), &out)

	require.GreaterOrEqual(t, len(out), 4)
	_, ok := out[0].(msg.StrategySetTuningReference)
	require.True(t, ok)
	_, ok = out[1].(msg.StrategySetReference)
	require.True(t, ok)
	idx, ok := out[2].(msg.CurrentNeighbourhoodIndex)
	require.True(t, ok)
	require.Equal(t, 0, idx.Index)

	considers := 0
	retunes := 0
	for _, ev := range out[3:] {
		switch ev.(type) {
		case msg.StrategyConsider:
			require.Zero(t, retunes, "Considers come before retunes")
			considers++
		case msg.Retune:
			retunes++
		}
	}
	require.Equal(t, 12, considers)
	require.Equal(t, 1, retunes)
}

// TestSolveTunesFromChromaticNeighbourhood: E4 lands on the pure major
// third above C4 (about 13.7 cents below 12-TET) in the 5-limit chromatic
// neighbourhood.
func TestSolveTunesFromChromaticNeighbourhood(t *testing.T) {
	basis := interval.FiveLimitBasis()
	s := NewStaticTuning(basis, chromaticConfig(basis))

	keys := soundingKeys(64)
	tunings := zeroTunings(basis)
	var out []msg.FromStrategy
	ok, _ := s.Solve(keys, tunings, nil, time.Now(), &out)
	require.True(t, ok)

	third := basis.Generators[2].Semitones
	require.InDelta(t, 60+third, s.AbsoluteSemitones(tunings[64]), 1e-12)
}

// TestIncrementNeighbourhoodWraps: the index wraps modulo the list
// length, in both directions.
func TestIncrementNeighbourhoodWraps(t *testing.T) {
	basis := interval.FiveLimitBasis()
	s := NewStaticTuning(basis, chromaticConfig(basis))

	keys := soundingKeys()
	tunings := zeroTunings(basis)
	var out []msg.FromStrategy

	ok, _ := s.HandleMsg(keys, tunings, nil, msg.Action{Action: msg.DecrementNeighbourhoodIndex, Time: time.Now()}, &out)
	require.True(t, ok)
	require.Equal(t, 1, s.CurrIndex)

	ok, _ = s.HandleMsg(keys, tunings, nil, msg.Action{Action: msg.IncrementNeighbourhoodIndex, Time: time.Now()}, &out)
	require.True(t, ok)
	require.Equal(t, 0, s.CurrIndex)
}

// TestConsiderInsertsIntoCurrentNeighbourhood: a Consider broadcast
// returns the canonical inserted stack and retunes sounding keys.
func TestConsiderInsertsIntoCurrentNeighbourhood(t *testing.T) {
	basis := interval.FiveLimitBasis()
	s := NewStaticTuning(basis, chromaticConfig(basis))

	keys := soundingKeys(64)
	tunings := zeroTunings(basis)
	var out []msg.FromStrategy

	// replace E's entry with the Pythagorean third (four fifths down two
	// octaves)
	pythagorean := interval.NewPureStack(basis, []interval.StackCoeff{-2, 4, 0})
	ok, _ := s.HandleMsg(keys, tunings, nil, msg.Consider{Stack: pythagorean, Time: time.Now()}, &out)
	require.True(t, ok)

	var sawConsider bool
	for _, ev := range out {
		if c, ok := ev.(msg.StrategyConsider); ok {
			require.Equal(t, []interval.StackCoeff{-2, 4, 0}, c.Stack.Target)
			sawConsider = true
		}
	}
	require.True(t, sawConsider)
	require.Equal(t, []interval.StackCoeff{-2, 4, 0}, tunings[64].Target)
}

// TestSetReferenceToLowest re-roots the lattice on the lowest sounding
// key and retunes everything from there.
func TestSetReferenceToLowest(t *testing.T) {
	basis := interval.FiveLimitBasis()
	s := NewStaticTuning(basis, chromaticConfig(basis))

	keys := soundingKeys(55, 64)
	tunings := zeroTunings(basis)
	var out []msg.FromStrategy
	_, _ = s.Solve(keys, tunings, nil, time.Now(), &out)

	out = nil
	ok, _ := s.HandleMsg(keys, tunings, nil, msg.Action{Action: msg.SetReferenceToLowest, Time: time.Now()}, &out)
	require.True(t, ok)
	require.True(t, interval.Equal(s.Reference, tunings[55]))

	var sawSetReference bool
	for _, ev := range out {
		if _, ok := ev.(msg.StrategySetReference); ok {
			sawSetReference = true
		}
	}
	require.True(t, sawSetReference)
}

// TestOverlayReanchorsThroughProcessChannel: with fixed=false and no
// debounce window, a harmony whose reference tuning differs from the
// current reference is pushed back through the Process channel as an
// ordinary SetReference.
func TestOverlayReanchorsThroughProcessChannel(t *testing.T) {
	basis := interval.FiveLimitBasis()
	reenter := make(chan msg.ToProcess, 1)
	s := NewNeighbourhoods(basis, NeighbourhoodsConfig{
		Fixed:   false,
		GroupMs: 0,
		Inner:   chromaticConfig(basis),
	}, reenter)

	pattern := neighbourhood.NewPartial(basis)
	pattern.Insert(interval.NewZeroStack(basis))
	h := &harmony.Harmony{Neighbourhood: pattern, Reference: 64}

	keys := soundingKeys(64)
	tunings := zeroTunings(basis)
	var out []msg.FromStrategy
	ok, ref := s.Solve(keys, tunings, h, time.Now(), &out)
	require.True(t, ok)
	require.NotNil(t, ref)

	select {
	case m := <-reenter:
		inner, ok := m.(msg.ToProcessStrategy)
		require.True(t, ok)
		set, ok := inner.Inner.(msg.SetReference)
		require.True(t, ok)
		require.True(t, interval.Equal(ref, set.Reference))
	default:
		t.Fatal("expected a reanchoring SetReference on the process channel")
	}
}

// TestOverlayFixedNeverReanchors: the fixed overlay leaves the reference
// alone no matter what the harmony says.
func TestOverlayFixedNeverReanchors(t *testing.T) {
	basis := interval.FiveLimitBasis()
	reenter := make(chan msg.ToProcess, 1)
	s := NewNeighbourhoods(basis, NeighbourhoodsConfig{
		Fixed:   true,
		GroupMs: 0,
		Inner:   chromaticConfig(basis),
	}, reenter)

	pattern := neighbourhood.NewPartial(basis)
	pattern.Insert(interval.NewZeroStack(basis))
	h := &harmony.Harmony{Neighbourhood: pattern, Reference: 64}

	keys := soundingKeys(64)
	tunings := zeroTunings(basis)
	var out []msg.FromStrategy
	s.Solve(keys, tunings, h, time.Now(), &out)

	select {
	case <-reenter:
		t.Fatal("fixed overlay must not reanchor")
	default:
	}
}
