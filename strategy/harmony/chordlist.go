package harmony

import (
	"github.com/carlhammann/adaptuner-go/interval"
	"github.com/carlhammann/adaptuner-go/keystate"
	"github.com/carlhammann/adaptuner-go/util/listaction"
)

// ChordList is the shipped harmony selector: a flat ordered list of
// chord patterns, scanned in order with first-complete-wins.
type ChordList struct {
	Basis    *interval.Basis
	Patterns []*Pattern
	Enabled  bool
}

// NewChordList builds a ChordList from its pattern configs.
func NewChordList(basis *interval.Basis, enabled bool, configs []PatternConfig) *ChordList {
	patterns := make([]*Pattern, len(configs))
	for i, c := range configs {
		patterns[i] = NewPattern(basis, c)
	}
	return &ChordList{Basis: basis, Patterns: patterns, Enabled: enabled}
}

// Solve scans the patterns in order and returns the first complete fit,
// or (nil, nil) if the selector is disabled, empty, or nothing matched.
func (c *ChordList) Solve(keys *[128]keystate.KeyState) (*int, *Harmony) {
	if !c.Enabled || len(c.Patterns) == 0 {
		return nil, nil
	}

	best := c.Patterns[0].Fit(keys)
	bestIndex := 0
	for i := 1; i < len(c.Patterns); i++ {
		if best.IsComplete() {
			break
		}
		f := c.Patterns[i].Fit(keys)
		if f.IsBetterThan(best) {
			best = f
			bestIndex = i
		}
	}

	if !best.IsComplete() {
		return nil, nil
	}

	idx := bestIndex
	return &idx, &Harmony{
		Neighbourhood: c.Patterns[bestIndex].Neighbourhood,
		Reference:     best.Reference,
	}
}

// EnableChordList toggles whether the selector participates in solving.
func (c *ChordList) EnableChordList(enable bool) {
	c.Enabled = enable
}

// AllowExtraHighNotes flips the extra-notes tolerance of one pattern.
func (c *ChordList) AllowExtraHighNotes(patternIndex int, allow bool) {
	if patternIndex >= 0 && patternIndex < len(c.Patterns) {
		c.Patterns[patternIndex].AllowExtraHighNotes = allow
	}
}

// PushNewChord appends a newly configured pattern to the list.
func (c *ChordList) PushNewChord(cfg PatternConfig) bool {
	c.Patterns = append(c.Patterns, NewPattern(c.Basis, cfg))
	return true
}

// HandleChordListAction applies a delete/swap/select/clone/deselect
// action to the pattern list.
func (c *ChordList) HandleChordListAction(action listaction.Action) bool {
	selected := 0
	hasSelected := false
	clone := func(p *Pattern) *Pattern {
		cloned := *p
		return &cloned
	}
	listaction.ApplyTo(action, clone, &c.Patterns, &selected, &hasSelected)
	return true
}

// Config is ChordList's serializable configuration.
type Config struct {
	Enabled  bool
	Patterns []PatternConfig
}

// ExtractHarmonyConfig returns the serializable configuration of this
// selector as a single Config value.
func (c *ChordList) ExtractHarmonyConfig() Config {
	enabled, patterns := c.ExtractConfig()
	return Config{Enabled: enabled, Patterns: patterns}
}

// ExtractConfig returns the serializable configuration of this selector.
func (c *ChordList) ExtractConfig() (bool, []PatternConfig) {
	configs := make([]PatternConfig, len(c.Patterns))
	for i, p := range c.Patterns {
		entries := make([]NeighbourhoodEntry, 0)
		p.Neighbourhood.ForEachStack(func(offset int, s *interval.Stack) {
			entries = append(entries, NeighbourhoodEntry{Offset: offset, Target: append([]interval.StackCoeff(nil), s.Target...)})
		})
		configs[i] = PatternConfig{
			Name:                p.Name,
			Classes:             append([]int(nil), p.Classes...),
			AbsoluteClasses:     p.AbsoluteClasses,
			AllowExtraHighNotes: p.AllowExtraHighNotes,
			Neighbourhood:       entries,
		}
	}
	return c.Enabled, configs
}
