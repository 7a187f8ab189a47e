// Package neighbourhood implements the partial mapping from integer
// key-offsets to interval stacks: the currently-realized slice of the
// tuning lattice.
package neighbourhood

import (
	"sort"

	"github.com/carlhammann/adaptuner-go/interval"
)

// Neighbourhood is a partial mapping from key-offset to Stack.
type Neighbourhood interface {
	// TryGet returns the stack stored at offset, if any.
	TryGet(offset int) (*interval.Stack, bool)
	// Insert stores stack, keyed by stack.KeyNumber(), and returns the
	// canonical stored stack (which may already have existed, modulo
	// period alignment for CompleteAligned neighbourhoods).
	Insert(stack *interval.Stack) *interval.Stack
	// TryWriteRelativeStack copies the stack at offset into dst, returning
	// whether an entry was found.
	TryWriteRelativeStack(dst *interval.Stack, offset int) bool
	// ForEachStack iterates entries in a deterministic order.
	ForEachStack(f func(offset int, s *interval.Stack))
	// ApplyTemperamentToAll mutates every stored stack by applying t.
	ApplyTemperamentToAll(t *interval.Temperament) error
	// MakeAllPure sets Actual = Target for every stored stack.
	MakeAllPure()
	// Clone returns an independent deep copy.
	Clone() Neighbourhood
}

// Partial is an explicit-keys-only neighbourhood: offsets not inserted are
// simply absent.
type Partial struct {
	Basis  *interval.Basis
	stacks map[int]*interval.Stack
}

// NewPartial builds an empty Partial neighbourhood over basis.
func NewPartial(basis *interval.Basis) *Partial {
	return &Partial{Basis: basis, stacks: make(map[int]*interval.Stack)}
}

func (p *Partial) TryGet(offset int) (*interval.Stack, bool) {
	s, ok := p.stacks[offset]
	return s, ok
}

func (p *Partial) Insert(stack *interval.Stack) *interval.Stack {
	offset := stack.KeyNumber()
	p.stacks[offset] = stack
	return stack
}

func (p *Partial) TryWriteRelativeStack(dst *interval.Stack, offset int) bool {
	s, ok := p.stacks[offset]
	if !ok {
		return false
	}
	dst.CloneFrom(s)
	return true
}

func (p *Partial) sortedOffsets() []int {
	offsets := make([]int, 0, len(p.stacks))
	for o := range p.stacks {
		offsets = append(offsets, o)
	}
	sort.Ints(offsets)
	return offsets
}

func (p *Partial) ForEachStack(f func(offset int, s *interval.Stack)) {
	for _, o := range p.sortedOffsets() {
		f(o, p.stacks[o])
	}
}

func (p *Partial) ApplyTemperamentToAll(t *interval.Temperament) error {
	for _, o := range p.sortedOffsets() {
		if err := t.Apply(p.stacks[o]); err != nil {
			return err
		}
	}
	return nil
}

func (p *Partial) MakeAllPure() {
	for _, s := range p.stacks {
		s.MakePure()
	}
}

func (p *Partial) Clone() Neighbourhood {
	out := NewPartial(p.Basis)
	for k, v := range p.stacks {
		out.stacks[k] = v.Clone()
	}
	return out
}

// CompleteAligned is a total mapping over a periodic window: every key
// class in one period has an entry, and TryGet is defined for every
// offset by shifting into the base window by whole periods, so that
// TryGet(o) and TryGet(o+p) agree up to a period shift of the returned
// stack.
type CompleteAligned struct {
	Basis        *interval.Basis
	PeriodKeys   int // the period's key-distance, e.g. 12 for octave
	period       *interval.Stack
	window       []*interval.Stack // length PeriodKeys, window[i] for offset i in [0,PeriodKeys)
}

// NewCompleteAligned builds a complete-aligned neighbourhood. The window
// starts out all-unity; callers insert their own stacks immediately after
// construction, keyed by each stack's own key number.
func NewCompleteAligned(basis *interval.Basis, periodIndex int) *CompleteAligned {
	periodKeys := basis.Generators[periodIndex].KeyDistance
	window := make([]*interval.Stack, periodKeys)
	for i := range window {
		window[i] = interval.NewZeroStack(basis)
	}
	periodTarget := make([]interval.StackCoeff, basis.Len())
	periodTarget[periodIndex] = 1
	return &CompleteAligned{
		Basis:      basis,
		PeriodKeys: periodKeys,
		period:     interval.NewPureStack(basis, periodTarget),
		window:     window,
	}
}

func (c *CompleteAligned) windowIndex(offset int) (idx int, periodShift int) {
	idx = offset % c.PeriodKeys
	periodShift = (offset - idx) / c.PeriodKeys
	if idx < 0 {
		idx += c.PeriodKeys
		periodShift--
	}
	return
}

func (c *CompleteAligned) TryGet(offset int) (*interval.Stack, bool) {
	idx, shift := c.windowIndex(offset)
	base := c.window[idx]
	if shift == 0 {
		return base, true
	}
	shifted := base.Clone()
	shifted.ScaledAdd(interval.StackCoeff(shift), c.period)
	return shifted, true
}

func (c *CompleteAligned) Insert(stack *interval.Stack) *interval.Stack {
	idx, shift := c.windowIndex(stack.KeyNumber())
	canonical := stack.Clone()
	if shift != 0 {
		canonical.ScaledAdd(interval.StackCoeff(-shift), c.period)
	}
	c.window[idx] = canonical
	return canonical
}

func (c *CompleteAligned) TryWriteRelativeStack(dst *interval.Stack, offset int) bool {
	s, _ := c.TryGet(offset)
	dst.CloneFrom(s)
	return true
}

func (c *CompleteAligned) ForEachStack(f func(offset int, s *interval.Stack)) {
	for i, s := range c.window {
		f(i, s)
	}
}

func (c *CompleteAligned) ApplyTemperamentToAll(t *interval.Temperament) error {
	for _, s := range c.window {
		if err := t.Apply(s); err != nil {
			return err
		}
	}
	return nil
}

func (c *CompleteAligned) MakeAllPure() {
	for _, s := range c.window {
		s.MakePure()
	}
}

func (c *CompleteAligned) Clone() Neighbourhood {
	out := &CompleteAligned{Basis: c.Basis, PeriodKeys: c.PeriodKeys, period: c.period.Clone(), window: make([]*interval.Stack, len(c.window))}
	for i, s := range c.window {
		out.window[i] = s.Clone()
	}
	return out
}
