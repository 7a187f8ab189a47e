// Package interval implements the stack-of-generators algebra that the
// tuning engine reasons about: a fixed basis of generator intervals,
// integer-exponent stacks over that basis, temperaments that identify
// stacks via exact-rational change of basis, and named intervals used for
// note spelling.
package interval

import "fmt"

// Semitones is a logarithmic interval size: cents/100.
type Semitones = float64

// Generator is one basis interval fixed at construction time (the octave,
// the fifth, a prime-limit ratio, ...).
type Generator struct {
	Name        string
	Semitones   Semitones
	KeyDistance int // number of 12-TET semitones this generator spans
}

// Basis is an ordered list of generator intervals. At most one of them is
// the "period" (the octave, in practice).
type Basis struct {
	Generators []Generator
	// PeriodIndex is the index into Generators of the period generator, or
	// -1 if the basis has none.
	PeriodIndex int
}

// NewBasis builds a Basis, validating that periodIndex is in range or -1.
func NewBasis(generators []Generator, periodIndex int) (*Basis, error) {
	if periodIndex < -1 || periodIndex >= len(generators) {
		return nil, fmt.Errorf("interval: period index %d out of range for %d generators", periodIndex, len(generators))
	}
	return &Basis{Generators: generators, PeriodIndex: periodIndex}, nil
}

// Len is the dimension n of the basis.
func (b *Basis) Len() int { return len(b.Generators) }

// HasPeriod reports whether a period generator was designated.
func (b *Basis) HasPeriod() bool { return b.PeriodIndex >= 0 }

// Period returns the period generator. Panics if the basis has none; callers
// should check HasPeriod first.
func (b *Basis) Period() Generator {
	if !b.HasPeriod() {
		panic("interval: basis has no period generator")
	}
	return b.Generators[b.PeriodIndex]
}

// PeriodKeyDistance is the number of MIDI keys spanned by one period, e.g.
// 12 for an octave-periodic basis.
func (b *Basis) PeriodKeyDistance() int {
	return b.Period().KeyDistance
}
