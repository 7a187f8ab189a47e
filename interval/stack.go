package interval

import (
	"fmt"
	"math"
)

// StackCoeff is the integer coefficient type used throughout stack
// arithmetic, mirroring the original's i64 exponents.
type StackCoeff = int64

// Stack is a pair of integer exponent vectors over a Basis: Target is the
// user-intended exponents, Actual is the exponents after temperament
// adjustments have been folded in. Invariant: Actual = Target + sum of
// applied temperaments (see Temperament.Realize / Apply).
type Stack struct {
	Basis  *Basis
	Target []StackCoeff
	Actual []StackCoeff
}

// NewZeroStack returns the unity stack (all-zero exponents) over basis.
func NewZeroStack(basis *Basis) *Stack {
	n := basis.Len()
	return &Stack{
		Basis:  basis,
		Target: make([]StackCoeff, n),
		Actual: make([]StackCoeff, n),
	}
}

// NewPureStack builds a stack with the given target exponents and Actual
// equal to Target (no temperament applied).
func NewPureStack(basis *Basis, target []StackCoeff) *Stack {
	s := &Stack{
		Basis:  basis,
		Target: append([]StackCoeff(nil), target...),
		Actual: append([]StackCoeff(nil), target...),
	}
	return s
}

// Clone returns an independent deep copy.
func (s *Stack) Clone() *Stack {
	return &Stack{
		Basis:  s.Basis,
		Target: append([]StackCoeff(nil), s.Target...),
		Actual: append([]StackCoeff(nil), s.Actual...),
	}
}

// CloneFrom overwrites s in place with a copy of other's contents (other
// must share the same basis).
func (s *Stack) CloneFrom(other *Stack) {
	s.Basis = other.Basis
	copy(s.Target, other.Target)
	copy(s.Actual, other.Actual)
}

// Add returns a new stack whose Target and Actual are the componentwise sum
// of a and b.
func Add(a, b *Stack) *Stack {
	n := a.Basis.Len()
	out := &Stack{Basis: a.Basis, Target: make([]StackCoeff, n), Actual: make([]StackCoeff, n)}
	for i := 0; i < n; i++ {
		out.Target[i] = a.Target[i] + b.Target[i]
		out.Actual[i] = a.Actual[i] + b.Actual[i]
	}
	return out
}

// ScaledAdd adds k*src componentwise into dst, in both Target and Actual.
func (dst *Stack) ScaledAdd(k StackCoeff, src *Stack) {
	for i := range dst.Target {
		dst.Target[i] += k * src.Target[i]
		dst.Actual[i] += k * src.Actual[i]
	}
}

// MakePure sets Actual = Target, discarding any applied temperament.
func (s *Stack) MakePure() {
	copy(s.Actual, s.Target)
}

// Semitones is the logarithmic size of the stack's Actual interval.
func (s *Stack) Semitones() Semitones {
	var total Semitones
	for i, g := range s.Basis.Generators {
		total += Semitones(s.Actual[i]) * g.Semitones
	}
	return total
}

// KeyNumber is the MIDI key distance spanned by the stack's Actual interval.
func (s *Stack) KeyNumber() int {
	total := 0
	for i, g := range s.Basis.Generators {
		total += int(s.Actual[i]) * g.KeyDistance
	}
	return total
}

// AbsoluteSemitones anchors the stack to an absolute MIDI semitone reading
// relative to C4 (the reference's key-number-of-C4):
// freq(stack) = 440 * 2^((c4Midi + stack.Semitones() - 69)/12).
// This returns the exponent's linear term (c4Midi + stack.Semitones()),
// i.e. the absolute pitch in semitones above/below MIDI 0, not the
// frequency itself.
func (s *Stack) AbsoluteSemitones(c4Midi Semitones) Semitones {
	return c4Midi + s.Semitones()
}

// FrequencyHz converts an absolute-semitones reading (as returned by
// AbsoluteSemitones) into a frequency in Hz, using A4=440Hz, MIDI key 69.
func FrequencyHz(absoluteSemitones Semitones) float64 {
	return 440.0 * math.Pow(2, (absoluteSemitones-69)/12)
}

// Equal reports whether a and b have identical Target and Actual vectors
// over the same basis.
func Equal(a, b *Stack) bool {
	if a.Basis != b.Basis || len(a.Target) != len(b.Target) {
		return false
	}
	for i := range a.Target {
		if a.Target[i] != b.Target[i] || a.Actual[i] != b.Actual[i] {
			return false
		}
	}
	return true
}

func (s *Stack) String() string {
	return fmt.Sprintf("Stack{target=%v actual=%v}", s.Target, s.Actual)
}
