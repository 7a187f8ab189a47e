package config

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/carlhammann/adaptuner-go/interval"
	"github.com/carlhammann/adaptuner-go/msg"
)

// TestRoundTrip: deserialize(serialize(c)) must recover c exactly.
func TestRoundTrip(t *testing.T) {
	c := Default()
	data, err := Marshal(c)
	require.NoError(t, err)

	back, err := Parse(data)
	require.NoError(t, err)
	require.Equal(t, c, back)
}

func TestRejectsUnknownFields(t *testing.T) {
	c := Default()
	data, err := Marshal(c)
	require.NoError(t, err)

	_, err = Parse(append(data, []byte("\nbogus-key: 1\n")...))
	require.Error(t, err)
}

func TestRejectsBadChannelCount(t *testing.T) {
	c := Default()
	c.Backend.Pitchbend12.Channels = c.Backend.Pitchbend12.Channels[:11]
	data, err := Marshal(c)
	require.NoError(t, err)

	_, err = Parse(data)
	require.Error(t, err)
	require.Contains(t, err.Error(), "12 channels")
}

func TestRejectsBadNamedIntervalCoeffs(t *testing.T) {
	doc := []byte(`
process:
  static-tuning:
    neighbourhoods: []
    tuning-reference: { stack: [0, 0, 0], c4-midi-semitones: 60 }
    reference: [0, 0, 0]
backend:
  pitchbend12:
    bend-range: 2
    channels: [1, 2, 3, 4, 5, 6, 7, 8, 9, 11, 12, 13]
gui: {}
`)
	_, err := Parse(doc)
	require.NoError(t, err)

	bad := append(doc, []byte(`named-intervals: [{ name: x, short-name: x, coeffs: ["nonsense"] }]`)...)
	c, err := Parse(bad)
	require.NoError(t, err)
	_, err = c.BuildNamedIntervals(1)
	require.Error(t, err)
}

func TestBuildBackendConfigConvertsChannels(t *testing.T) {
	c := Default()
	bc := c.BuildBackendConfig()
	require.Equal(t, [12]uint8{0, 1, 2, 3, 4, 5, 6, 7, 8, 10, 11, 12}, bc.Channels)
	require.Equal(t, 2.0, bc.BendRange)
}

func TestBuildStrategyAndExtract(t *testing.T) {
	c := Default()
	basis := interval.FiveLimitBasis()
	reenter := make(chan msg.ToProcess, 1)

	s, err := c.BuildStrategy(basis, reenter)
	require.NoError(t, err)

	extracted := ExtractProcessConfig(s.ExtractConfig())
	require.NotNil(t, extracted.TwoStep)
	require.True(t, extracted.TwoStep.Harmony.ChordList.Enabled)
	require.Len(t, extracted.TwoStep.Harmony.ChordList.Patterns, 2)
	require.NotNil(t, extracted.TwoStep.Melody.Neighbourhoods)
	require.Len(t, extracted.TwoStep.Melody.Neighbourhoods.StaticTuning.Neighbourhoods[0].Entries, 12)
}

func TestBuildTemperamentsRealizes(t *testing.T) {
	c := Default()
	basis := interval.FiveLimitBasis()
	ts, err := c.BuildTemperaments(basis)
	require.NoError(t, err)
	require.Len(t, ts, 1)
	require.True(t, ts[0].Realized())
}

func TestBuildTemperamentsRejectsKeySpanMismatch(t *testing.T) {
	c := Default()
	// a fifth tempered to an octave spans 7 keys on one side, 12 on the other
	c.TemperamentDefinitions = []TemperamentConfig{{
		Name:     "broken",
		Tempered: [][]int64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}},
		Pure:     [][]int64{{1, 0, 0}, {1, 0, 0}, {0, 0, 1}},
	}}
	_, err := c.BuildTemperaments(interval.FiveLimitBasis())
	require.Error(t, err)
}

func TestBuildBindings(t *testing.T) {
	c := Default()
	b, err := c.BuildBindings()
	require.NoError(t, err)
	require.Equal(t, 2, b.Len())

	c.Bindings = append(c.Bindings, BindingConfig{Trigger: "soft-up", Action: "no-such-action"})
	_, err = c.BuildBindings()
	require.Error(t, err)
}
