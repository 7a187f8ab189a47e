// Package melody implements the second half of the two-step tuning
// strategy: the solver that, given an optional harmony fit, assigns a
// concrete tuning stack to every sounding MIDI key.
package melody

import (
	"time"

	"github.com/carlhammann/adaptuner-go/interval"
	"github.com/carlhammann/adaptuner-go/keystate"
	"github.com/carlhammann/adaptuner-go/msg"
	"github.com/carlhammann/adaptuner-go/neighbourhood"
	"github.com/carlhammann/adaptuner-go/strategy/harmony"
	"github.com/carlhammann/adaptuner-go/util/listaction"
)

// Strategy is the melody half of the two-step strategy: it turns a
// harmony fit (or its absence) into concrete per-key tuning stacks.
type Strategy interface {
	Solve(keys *[128]keystate.KeyState, tunings *[128]*interval.Stack, h *harmony.Harmony, t time.Time, out *[]msg.FromStrategy) (bool, *interval.Stack)
	HandleMsg(keys *[128]keystate.KeyState, tunings *[128]*interval.Stack, h *harmony.Harmony, m msg.ToStrategy, out *[]msg.FromStrategy) (bool, *interval.Stack)
	Start(keys *[128]keystate.KeyState, tunings *[128]*interval.Stack, h *harmony.Harmony, t time.Time, out *[]msg.FromStrategy) *interval.Stack
	AbsoluteSemitones(s *interval.Stack) interval.Semitones
	ExtractConfig() Config
}

// NeighbourhoodConfig is the serializable description of one of
// StaticTuning's switchable neighbourhoods.
type NeighbourhoodConfig struct {
	// Complete selects a CompleteAligned neighbourhood (total, periodic);
	// otherwise a Partial one is built.
	Complete    bool
	PeriodIndex int // generator index of the period, used only if Complete
	Entries     []harmony.NeighbourhoodEntry
}

func buildNeighbourhood(basis *interval.Basis, cfg NeighbourhoodConfig) neighbourhood.Neighbourhood {
	var n neighbourhood.Neighbourhood
	if cfg.Complete {
		n = neighbourhood.NewCompleteAligned(basis, cfg.PeriodIndex)
	} else {
		n = neighbourhood.NewPartial(basis)
	}
	for _, e := range cfg.Entries {
		n.Insert(interval.NewPureStack(basis, e.Target))
	}
	return n
}

func extractNeighbourhood(n neighbourhood.Neighbourhood, complete bool, periodIndex int) NeighbourhoodConfig {
	var entries []harmony.NeighbourhoodEntry
	n.ForEachStack(func(offset int, s *interval.Stack) {
		entries = append(entries, harmony.NeighbourhoodEntry{Offset: offset, Target: append([]interval.StackCoeff(nil), s.Target...)})
	})
	return NeighbourhoodConfig{Complete: complete, PeriodIndex: periodIndex, Entries: entries}
}

// Config is StaticTuning's serializable state: the switchable
// neighbourhoods, the absolute anchor and the reference stack.
type Config struct {
	Neighbourhoods  []NeighbourhoodConfig
	TuningReference *interval.Reference
	Reference       []interval.StackCoeff
}

// StaticTuning is the base melody solver: a list of switchable
// neighbourhoods, a tuning reference (absolute anchor) and a reference
// stack (the lattice's "0").
type StaticTuning struct {
	Basis             *interval.Basis
	Neighbourhoods    []neighbourhood.Neighbourhood
	neighbourhoodMeta []NeighbourhoodConfig // Complete/PeriodIndex bookkeeping for ExtractConfig
	CurrIndex         int
	TuningReference   *interval.Reference
	Reference         *interval.Stack
	tuningUpToDate    [128]bool
}

// NewStaticTuning builds a StaticTuning from its config.
func NewStaticTuning(basis *interval.Basis, cfg Config) *StaticTuning {
	ns := make([]neighbourhood.Neighbourhood, len(cfg.Neighbourhoods))
	meta := make([]NeighbourhoodConfig, len(cfg.Neighbourhoods))
	for i, nc := range cfg.Neighbourhoods {
		ns[i] = buildNeighbourhood(basis, nc)
		meta[i] = NeighbourhoodConfig{Complete: nc.Complete, PeriodIndex: nc.PeriodIndex}
	}
	return &StaticTuning{
		Basis:             basis,
		Neighbourhoods:    ns,
		neighbourhoodMeta: meta,
		CurrIndex:         0,
		TuningReference:   cfg.TuningReference.Clone(),
		Reference:         interval.NewPureStack(basis, cfg.Reference),
	}
}

// c4Key is the MIDI key C4 sits on. Stacks are C4-relative: a stack with
// key number 0 sounds on MIDI key 60, so the MIDI key of any tuning
// stack is c4Key + KeyNumber().
const c4Key = 60

// forceTune writes tunings[note] from the current neighbourhood plus the
// reference stack, unconditionally, marks it up to date and emits Retune.
func (s *StaticTuning) forceTune(tunings *[128]*interval.Stack, note uint8, t time.Time, out *[]msg.FromStrategy) {
	if len(s.Neighbourhoods) == 0 {
		return
	}
	n := s.Neighbourhoods[s.CurrIndex]
	dst := tunings[note]
	n.TryWriteRelativeStack(dst, int(note)-c4Key-s.Reference.KeyNumber())
	dst.ScaledAdd(1, s.Reference)
	s.tuningUpToDate[note] = true
	*out = append(*out, msg.Retune{
		Note:        note,
		Tuning:      s.AbsoluteSemitones(dst),
		TuningStack: dst.Clone(),
		Time:        t,
	})
}

// tuneIfStale tunes note only if its dirty bit is not yet set.
func (s *StaticTuning) tuneIfStale(tunings *[128]*interval.Stack, note uint8, t time.Time, out *[]msg.FromStrategy) {
	if !s.tuningUpToDate[note] {
		s.forceTune(tunings, note, t, out)
	}
}

func (s *StaticTuning) retuneAll(keys *[128]keystate.KeyState, tunings *[128]*interval.Stack, t time.Time, out *[]msg.FromStrategy) {
	for i := range s.tuningUpToDate {
		s.tuningUpToDate[i] = false
	}
	for note := 0; note < 128; note++ {
		if keys[note].IsSounding() {
			s.tuneIfStale(tunings, uint8(note), t, out)
		}
	}
}

// AbsoluteSemitones anchors stack to this strategy's tuning reference.
func (s *StaticTuning) AbsoluteSemitones(stack *interval.Stack) interval.Semitones {
	return stack.AbsoluteSemitones(s.TuningReference.C4Semitones())
}

// updateFromHarmony is the solve rule: tune the harmony reference from
// the current neighbourhood, then write every
// sounding key's stack from the harmony's pattern-local neighbourhood
// (relative to the reference), falling back to the current neighbourhood
// when the pattern has no entry for that offset.
func (s *StaticTuning) updateFromHarmony(keys *[128]keystate.KeyState, tunings *[128]*interval.Stack, h *harmony.Harmony, t time.Time, out *[]msg.FromStrategy) (bool, *interval.Stack) {
	if h == nil {
		s.retuneAll(keys, tunings, t, out)
		return true, nil
	}
	if len(s.Neighbourhoods) == 0 {
		return false, nil
	}

	refNote := h.Reference
	if refNote >= 0 && refNote < 128 {
		s.forceTune(tunings, uint8(refNote), t, out)
	}
	referenceTuning := tunings[clampKey(refNote)].Clone()

	for note := 0; note < 128; note++ {
		if !keys[note].IsSounding() {
			continue
		}
		dst := tunings[note]
		if h.Neighbourhood.TryWriteRelativeStack(dst, note-refNote) {
			dst.ScaledAdd(1, referenceTuning)
			s.tuningUpToDate[note] = true
			*out = append(*out, msg.Retune{
				Note:        uint8(note),
				Tuning:      s.AbsoluteSemitones(dst),
				TuningStack: dst.Clone(),
				Time:        t,
			})
		} else {
			s.forceTune(tunings, uint8(note), t, out)
		}
	}
	return true, referenceTuning
}

func clampKey(k int) int {
	if k < 0 {
		return 0
	}
	if k > 127 {
		return 127
	}
	return k
}

// Solve implements Strategy.
func (s *StaticTuning) Solve(keys *[128]keystate.KeyState, tunings *[128]*interval.Stack, h *harmony.Harmony, t time.Time, out *[]msg.FromStrategy) (bool, *interval.Stack) {
	return s.updateFromHarmony(keys, tunings, h, t, out)
}

// Start emits the startup sequence: SetTuningReference, SetReference,
// CurrentNeighbourhoodIndex, one Consider per entry, then retunes every
// sounding key.
func (s *StaticTuning) Start(keys *[128]keystate.KeyState, tunings *[128]*interval.Stack, h *harmony.Harmony, t time.Time, out *[]msg.FromStrategy) *interval.Stack {
	*out = append(*out, msg.StrategySetTuningReference{Reference: s.TuningReference.Clone()})
	*out = append(*out, msg.StrategySetReference{Stack: s.Reference.Clone()})
	*out = append(*out, msg.CurrentNeighbourhoodIndex{Index: s.CurrIndex})
	if len(s.Neighbourhoods) > 0 {
		s.Neighbourhoods[s.CurrIndex].ForEachStack(func(_ int, stack *interval.Stack) {
			*out = append(*out, msg.StrategyConsider{Stack: stack.Clone()})
		})
	}
	_, ref := s.updateFromHarmony(keys, tunings, h, t, out)
	return ref
}

func (s *StaticTuning) setReferenceTo(newReference *interval.Stack, out *[]msg.FromStrategy) {
	s.Reference.CloneFrom(newReference)
	*out = append(*out, msg.StrategySetReference{Stack: newReference.Clone()})
}

// HandleMsg implements Strategy; handled actions retune from the
// (possibly updated) harmony fit afterwards, except temperament and
// make-pure edits to a neighbourhood that is not the current one.
func (s *StaticTuning) HandleMsg(keys *[128]keystate.KeyState, tunings *[128]*interval.Stack, h *harmony.Harmony, m msg.ToStrategy, out *[]msg.FromStrategy) (bool, *interval.Stack) {
	switch a := m.(type) {
	case msg.Consider:
		if len(s.Neighbourhoods) == 0 {
			return false, nil
		}
		inserted := s.Neighbourhoods[s.CurrIndex].Insert(a.Stack)
		*out = append(*out, msg.StrategyConsider{Stack: inserted.Clone()})
		return s.updateFromHarmony(keys, tunings, h, a.Time, out)

	case msg.ApplyTemperamentToNeighbourhood:
		if a.Neighbourhood < 0 || a.Neighbourhood >= len(s.Neighbourhoods) {
			return false, nil
		}
		n := s.Neighbourhoods[a.Neighbourhood]
		if err := n.ApplyTemperamentToAll(a.Temperament); err != nil {
			return false, nil
		}
		if a.Neighbourhood == s.CurrIndex {
			n.ForEachStack(func(_ int, stack *interval.Stack) {
				*out = append(*out, msg.StrategyConsider{Stack: stack.Clone()})
			})
			return s.updateFromHarmony(keys, tunings, h, a.Time, out)
		}
		return true, nil

	case msg.MakeNeighbourhoodPure:
		if a.Neighbourhood < 0 || a.Neighbourhood >= len(s.Neighbourhoods) {
			return false, nil
		}
		s.Neighbourhoods[a.Neighbourhood].MakeAllPure()
		if a.Neighbourhood == s.CurrIndex {
			s.Neighbourhoods[a.Neighbourhood].ForEachStack(func(_ int, stack *interval.Stack) {
				*out = append(*out, msg.StrategyConsider{Stack: stack.Clone()})
			})
			return s.updateFromHarmony(keys, tunings, h, a.Time, out)
		}
		return true, nil

	case msg.SetTuningReference:
		s.TuningReference.CloneFrom(a.Reference)
		*out = append(*out, msg.StrategySetTuningReference{Reference: s.TuningReference.Clone()})
		return s.updateFromHarmony(keys, tunings, h, a.Time, out)

	case msg.SetReference:
		s.setReferenceTo(a.Reference, out)
		return s.updateFromHarmony(keys, tunings, h, a.Time, out)

	case msg.Action:
		return s.handleAction(keys, tunings, h, a, out)

	case msg.NeighbourhoodListAction:
		clone := func(n neighbourhood.Neighbourhood) neighbourhood.Neighbourhood { return n.Clone() }
		selected := s.CurrIndex
		hasSelected := true
		listaction.ApplyTo(a.Action, clone, &s.Neighbourhoods, &selected, &hasSelected)
		s.CurrIndex = selected
		if s.CurrIndex >= len(s.Neighbourhoods) && len(s.Neighbourhoods) > 0 {
			s.CurrIndex = len(s.Neighbourhoods) - 1
		}
		return true, s.Start(keys, tunings, h, a.Time, out)

	default:
		return false, nil
	}
}

func (s *StaticTuning) handleAction(keys *[128]keystate.KeyState, tunings *[128]*interval.Stack, h *harmony.Harmony, a msg.Action, out *[]msg.FromStrategy) (bool, *interval.Stack) {
	switch a.Action {
	case msg.IncrementNeighbourhoodIndex:
		return s.incrementNeighbourhood(1, keys, tunings, h, a.Time, out)
	case msg.DecrementNeighbourhoodIndex:
		return s.incrementNeighbourhood(-1, keys, tunings, h, a.Time, out)
	case msg.SetReferenceToLowest:
		return s.setReferenceToExtreme(keys, tunings, h, a.Time, out, true)
	case msg.SetReferenceToHighest:
		return s.setReferenceToExtreme(keys, tunings, h, a.Time, out, false)
	default:
		return false, nil
	}
}

func (s *StaticTuning) incrementNeighbourhood(inc int, keys *[128]keystate.KeyState, tunings *[128]*interval.Stack, h *harmony.Harmony, t time.Time, out *[]msg.FromStrategy) (bool, *interval.Stack) {
	if len(s.Neighbourhoods) == 0 {
		return false, nil
	}
	n := len(s.Neighbourhoods)
	s.CurrIndex = ((s.CurrIndex+inc)%n + n) % n
	for i := range s.tuningUpToDate {
		s.tuningUpToDate[i] = false
	}
	return true, s.Start(keys, tunings, h, t, out)
}

func (s *StaticTuning) setReferenceToExtreme(keys *[128]keystate.KeyState, tunings *[128]*interval.Stack, h *harmony.Harmony, t time.Time, out *[]msg.FromStrategy, lowest bool) (bool, *interval.Stack) {
	found := -1
	for note := 0; note < 128; note++ {
		if keys[note].IsSounding() {
			found = note
			if lowest {
				break
			}
		}
	}
	if found < 0 {
		return false, nil
	}
	s.tuneIfStale(tunings, uint8(found), t, out)
	s.setReferenceTo(tunings[found], out)
	s.retuneAll(keys, tunings, t, out)
	return true, s.updateFromHarmonyRef(keys, tunings, h, t, out)
}

func (s *StaticTuning) updateFromHarmonyRef(keys *[128]keystate.KeyState, tunings *[128]*interval.Stack, h *harmony.Harmony, t time.Time, out *[]msg.FromStrategy) *interval.Stack {
	_, ref := s.updateFromHarmony(keys, tunings, h, t, out)
	return ref
}

// ExtractConfig implements Strategy.
func (s *StaticTuning) ExtractConfig() Config {
	ns := make([]NeighbourhoodConfig, len(s.Neighbourhoods))
	for i, n := range s.Neighbourhoods {
		ns[i] = extractNeighbourhood(n, s.neighbourhoodMeta[i].Complete, s.neighbourhoodMeta[i].PeriodIndex)
	}
	return Config{
		Neighbourhoods:  ns,
		TuningReference: s.TuningReference.Clone(),
		Reference:       append([]interval.StackCoeff(nil), s.Reference.Target...),
	}
}
