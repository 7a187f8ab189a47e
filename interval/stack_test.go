package interval

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStackSemitonesAndKeyNumber(t *testing.T) {
	basis := FiveLimitBasis()
	// A pure major third above C4: target = actual = [0,0,1].
	third := NewPureStack(basis, []StackCoeff{0, 0, 1})
	require.InDelta(t, 3.8631371386483481, third.Semitones(), 1e-9)
	require.Equal(t, 4, third.KeyNumber())
}

func TestStackAbsoluteSemitonesRoundTrip(t *testing.T) {
	basis := FiveLimitBasis()
	s := NewPureStack(basis, []StackCoeff{1, 0, 0}) // one octave up
	c4 := Semitones(60)
	abs := s.AbsoluteSemitones(c4)
	require.Equal(t, Semitones(72), abs)
	// Integer arithmetic recovers the key number exactly.
	require.Equal(t, 72, int(abs))
}

func TestApplyThenRemoveTemperamentIsIdentity(t *testing.T) {
	// Apply a temperament, then make the stack pure again, and it must be
	// bitwise identical to the original.
	basis := FiveLimitBasis()
	s := NewPureStack(basis, []StackCoeff{0, 4, 0})
	original := s.Clone()

	// Quarter-comma meantone: the octave and third equations are identity,
	// the fifth equation identifies four tempered fifths with two octaves
	// plus a pure major third.
	temp := &Temperament{
		Name: "quarter-comma meantone",
		Tempered: [][]int64{
			{1, 0, 0},
			{0, 0, 1},
			{0, 4, 0},
		},
		Pure: [][]int64{
			{1, 0, 0},
			{0, 0, 1},
			{2, 0, 1},
		},
	}
	require.NoError(t, temp.Realize(basis))
	require.NoError(t, temp.Apply(s))
	require.NotEqual(t, original.Actual, s.Actual)

	s.MakePure()
	require.True(t, Equal(original, s))
}

func TestTemperamentMapsTemperedToPure(t *testing.T) {
	basis := FiveLimitBasis()
	temp := &Temperament{
		Name: "quarter-comma meantone",
		Tempered: [][]int64{
			{1, 0, 0},
			{0, 0, 1},
			{0, 4, 0},
		},
		Pure: [][]int64{
			{1, 0, 0},
			{0, 0, 1},
			{2, 0, 1},
		},
	}
	require.NoError(t, temp.Realize(basis))

	// Four fifths land on two octaves plus a pure major third.
	s := NewPureStack(basis, []StackCoeff{0, 4, 0})
	require.NoError(t, temp.Apply(s))
	require.Equal(t, []StackCoeff{2, 0, 1}, s.Actual)
	require.Equal(t, []StackCoeff{0, 4, 0}, s.Target)

	// Stacks fixed by the temperament keep their exponents.
	third := NewPureStack(basis, []StackCoeff{0, 0, 1})
	require.NoError(t, temp.Apply(third))
	require.Equal(t, []StackCoeff{0, 0, 1}, third.Actual)
}

func TestTemperamentKeySpanMismatch(t *testing.T) {
	basis := FiveLimitBasis()
	// Row 2 claims 2 tempered fifths (key span 14) equal a pure octave
	// (key span 12): mismatched key spans.
	temp := &Temperament{
		Name: "bad",
		Tempered: [][]int64{
			{1, 0, 0},
			{0, 1, 0},
			{0, 2, 0},
		},
		Pure: [][]int64{
			{1, 0, 0},
			{0, 1, 0},
			{1, 0, 0},
		},
	}
	err := temp.Realize(basis)
	require.Error(t, err)
	var mismatch *KeySpanMismatchError
	require.ErrorAs(t, err, &mismatch)
	require.Equal(t, 2, mismatch.Row)
}

func TestTemperamentIndeterminateSystem(t *testing.T) {
	basis := FiveLimitBasis()
	temp := &Temperament{
		Name: "singular",
		Tempered: [][]int64{
			{1, 0, 0},
			{0, 1, 0},
			{1, 1, 0}, // linear combination of the first two rows: singular
		},
		Pure: [][]int64{
			{1, 0, 0},
			{0, 1, 0},
			{1, 1, 0},
		},
	}
	err := temp.Realize(basis)
	require.Error(t, err)
	luErr, ok := err.(*LUError)
	require.True(t, ok)
	require.Equal(t, MatrixDegenerate, luErr.Kind)
}
