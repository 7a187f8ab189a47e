// Package strategy composes the harmony selector and melody solver into
// the single capability set the Process actor drives on every MIDI
// event.
package strategy

import (
	"time"

	"github.com/carlhammann/adaptuner-go/interval"
	"github.com/carlhammann/adaptuner-go/keystate"
	"github.com/carlhammann/adaptuner-go/msg"
	"github.com/carlhammann/adaptuner-go/strategy/harmony"
	"github.com/carlhammann/adaptuner-go/strategy/melody"
)

// Strategy is the decision procedure the Process actor drives: it maps
// the held keys to concrete per-note tunings.
type Strategy interface {
	NoteOn(keys *[128]keystate.KeyState, tunings *[128]*interval.Stack, note uint8, t time.Time, out *[]msg.FromStrategy) (interval.Semitones, *interval.Stack, bool)
	NoteOff(keys *[128]keystate.KeyState, tunings *[128]*interval.Stack, notes []uint8, t time.Time, out *[]msg.FromStrategy) bool
	HandleMsg(keys *[128]keystate.KeyState, tunings *[128]*interval.Stack, m msg.ToStrategy, out *[]msg.FromStrategy) bool
	Start(keys *[128]keystate.KeyState, tunings *[128]*interval.Stack, t time.Time, out *[]msg.FromStrategy)
	ExtractConfig() Config
}

// Config is Strategy's serializable configuration. Only the TwoStep
// variant is modeled: a top-level static tuning is a degenerate TwoStep
// with the chord list disabled.
type Config struct {
	Harmony harmony.Config
	Melody  melody.Config
	// MelodyIsOverlay distinguishes a plain StaticTuning melody from a
	// Neighbourhoods overlay sharing the same Config payload.
	MelodyIsOverlay bool
	Overlay         melody.NeighbourhoodsConfig
}

// TwoStep is the shipped Strategy: a ChordList harmony selector feeding a
// melody.Strategy solver on every note/pedal event.
type TwoStep struct {
	Harmony *harmony.ChordList
	Melody  melody.Strategy
}

// NewTwoStep builds a TwoStep from its already-constructed collaborators.
func NewTwoStep(h *harmony.ChordList, m melody.Strategy) *TwoStep {
	return &TwoStep{Harmony: h, Melody: m}
}

func (t *TwoStep) solve(keys *[128]keystate.KeyState, tunings *[128]*interval.Stack, time_ time.Time, out *[]msg.FromStrategy) bool {
	patternIndex, h := t.Harmony.Solve(keys)
	success, reference := t.Melody.Solve(keys, tunings, h, time_, out)
	*out = append(*out, msg.CurrentHarmony{PatternIndex: patternIndex, Reference: referenceStack(reference)})
	return success
}

func referenceStack(s *interval.Stack) *interval.Stack {
	if s == nil {
		return nil
	}
	return s
}

// NoteOn implements Strategy.
func (t *TwoStep) NoteOn(keys *[128]keystate.KeyState, tunings *[128]*interval.Stack, note uint8, time_ time.Time, out *[]msg.FromStrategy) (interval.Semitones, *interval.Stack, bool) {
	if !t.solve(keys, tunings, time_, out) {
		return 0, nil, false
	}
	stack := tunings[note]
	return t.Melody.AbsoluteSemitones(stack), stack, true
}

// NoteOff implements Strategy.
func (t *TwoStep) NoteOff(keys *[128]keystate.KeyState, tunings *[128]*interval.Stack, _ []uint8, time_ time.Time, out *[]msg.FromStrategy) bool {
	return t.solve(keys, tunings, time_, out)
}

// HandleMsg implements Strategy. Chord-list edits are applied to the
// harmony selector directly; everything else is routed to the melody
// solver with the freshly recomputed harmony fit.
func (t *TwoStep) HandleMsg(keys *[128]keystate.KeyState, tunings *[128]*interval.Stack, m msg.ToStrategy, out *[]msg.FromStrategy) bool {
	switch a := m.(type) {
	case msg.ChordListAction:
		if !t.Harmony.HandleChordListAction(a.Action) {
			return false
		}
		return t.solve(keys, tunings, a.Time, out)
	case msg.PushNewChord:
		if !t.Harmony.PushNewChord(a.Pattern) {
			return false
		}
		return t.solve(keys, tunings, a.Time, out)
	case msg.AllowExtraHighNotes:
		t.Harmony.AllowExtraHighNotes(a.PatternIndex, a.Allow)
		return t.solve(keys, tunings, a.Time, out)
	case msg.EnableChordList:
		t.Harmony.EnableChordList(a.Enable)
		return t.solve(keys, tunings, a.Time, out)
	default:
		patternIndex, h := t.Harmony.Solve(keys)
		success, reference := t.Melody.HandleMsg(keys, tunings, h, m, out)
		*out = append(*out, msg.CurrentHarmony{PatternIndex: patternIndex, Reference: referenceStack(reference)})
		return success
	}
}

// Start implements Strategy.
func (t *TwoStep) Start(keys *[128]keystate.KeyState, tunings *[128]*interval.Stack, time_ time.Time, out *[]msg.FromStrategy) {
	patternIndex, h := t.Harmony.Solve(keys)
	reference := t.Melody.Start(keys, tunings, h, time_, out)
	*out = append(*out, msg.CurrentHarmony{PatternIndex: patternIndex, Reference: referenceStack(reference)})
}

// ExtractConfig implements Strategy.
func (t *TwoStep) ExtractConfig() Config {
	overlay, isOverlay := t.Melody.(*melody.Neighbourhoods)
	cfg := Config{Harmony: t.Harmony.ExtractHarmonyConfig(), Melody: t.Melody.ExtractConfig()}
	if isOverlay {
		cfg.MelodyIsOverlay = true
		cfg.Overlay = overlay.ExtractOverlayConfig()
	}
	return cfg
}
