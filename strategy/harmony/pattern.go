// Package harmony implements the chord-detection half of the two-step
// tuning strategy: an ordered list of chord patterns scored against the
// currently sounding keys.
package harmony

import (
	"github.com/carlhammann/adaptuner-go/interval"
	"github.com/carlhammann/adaptuner-go/keystate"
	"github.com/carlhammann/adaptuner-go/neighbourhood"
	"github.com/carlhammann/adaptuner-go/util/mod12"
)

// Harmony is the fit that the chord-detection pass has settled on: the
// pattern-local tuning map and the MIDI key number it is anchored to.
type Harmony struct {
	Neighbourhood neighbourhood.Neighbourhood
	Reference     int
}

// NeighbourhoodEntry is a single (offset, stack) pair used to seed a
// pattern's local neighbourhood, serializable via config.
type NeighbourhoodEntry struct {
	Offset int
	Target []interval.StackCoeff
}

// PatternConfig is the serializable description of one chord pattern.
type PatternConfig struct {
	Name                string
	Classes             []int // offsets relative to the pattern root
	AbsoluteClasses     bool  // match literal note numbers, not pitch classes mod 12
	AllowExtraHighNotes bool
	Neighbourhood       []NeighbourhoodEntry
}

// Pattern is a chord pattern ready for fit-scoring against live key
// states.
type Pattern struct {
	Name                string
	Classes             []int
	AbsoluteClasses     bool
	AllowExtraHighNotes bool
	Neighbourhood       neighbourhood.Neighbourhood
}

// NewPattern builds a runtime Pattern from its config, populating a
// Partial neighbourhood from the configured entries.
func NewPattern(basis *interval.Basis, cfg PatternConfig) *Pattern {
	n := neighbourhood.NewPartial(basis)
	for _, e := range cfg.Neighbourhood {
		n.Insert(interval.NewPureStack(basis, e.Target))
	}
	return &Pattern{
		Name:                cfg.Name,
		Classes:             append([]int(nil), cfg.Classes...),
		AbsoluteClasses:     cfg.AbsoluteClasses,
		AllowExtraHighNotes: cfg.AllowExtraHighNotes,
		Neighbourhood:       n,
	}
}

// Fit is one pattern's match quality against the current key states.
type Fit struct {
	Complete   bool
	ExtraNotes int
	Reference  int
}

// IsComplete reports whether this fit fully matched its pattern.
func (f Fit) IsComplete() bool { return f.Complete }

// IsBetterThan orders first by completeness, then by fewer extra notes,
// then by lower reference pitch.
func (f Fit) IsBetterThan(other Fit) bool {
	if f.Complete != other.Complete {
		return f.Complete
	}
	if f.ExtraNotes != other.ExtraNotes {
		return f.ExtraNotes < other.ExtraNotes
	}
	return f.Reference < other.Reference
}

func classOf(absolute bool, note int) int {
	if absolute {
		return note
	}
	return int(mod12.FromInt(note))
}

// Fit scores this pattern against the currently sounding keys, returning
// the best fit found across all candidate reference notes.
func (p *Pattern) Fit(keys *[128]keystate.KeyState) Fit {
	var sounding []int
	for n := 0; n < 128; n++ {
		if keys[n].IsSounding() {
			sounding = append(sounding, n)
		}
	}
	if len(sounding) == 0 {
		return Fit{}
	}

	var best Fit
	haveBest := false
	for _, r := range sounding {
		f := p.fitFor(r, sounding)
		if !haveBest || f.IsBetterThan(best) {
			best = f
			haveBest = true
		}
		if f.Complete {
			break // sounding is ascending: first complete is the lowest reference
		}
	}
	return best
}

func (p *Pattern) fitFor(r int, sounding []int) Fit {
	required := make(map[int]bool, len(p.Classes))
	for _, off := range p.Classes {
		required[classOf(p.AbsoluteClasses, r+off)] = true
	}

	matched := make(map[int]bool, len(required))
	extra := 0
	highestMatched := r
	for _, n := range sounding {
		if c := classOf(p.AbsoluteClasses, n); required[c] {
			matched[c] = true
			if n > highestMatched {
				highestMatched = n
			}
		} else {
			extra++
		}
	}

	complete := len(matched) == len(required)
	if complete && extra > 0 {
		if !p.AllowExtraHighNotes {
			complete = false
		} else {
			for _, n := range sounding {
				if !required[classOf(p.AbsoluteClasses, n)] && n <= highestMatched {
					complete = false
					break
				}
			}
		}
	}

	return Fit{Complete: complete, ExtraNotes: extra, Reference: r}
}
