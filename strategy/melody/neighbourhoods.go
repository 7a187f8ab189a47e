package melody

import (
	"time"

	"github.com/carlhammann/adaptuner-go/interval"
	"github.com/carlhammann/adaptuner-go/keystate"
	"github.com/carlhammann/adaptuner-go/msg"
	"github.com/carlhammann/adaptuner-go/strategy/harmony"
)

// NeighbourhoodsConfig is the Neighbourhoods overlay's serializable state.
type NeighbourhoodsConfig struct {
	Fixed   bool
	GroupMs int64 // reanchor debounce window, milliseconds
	Inner   Config
}

// Neighbourhoods wraps StaticTuning so the harmony-selected reference
// note can reanchor the tuning lattice itself. When Fixed is false, a
// harmony-driven reference that differs from the current one is debounced
// for GroupMs before being committed, coalescing further candidates that
// arrive inside the window.
type Neighbourhoods struct {
	Fixed   bool
	GroupMs time.Duration
	Inner   *StaticTuning

	// Reenter lets a fired debounce timer push the committed SetReference
	// back through the owning Process actor's normal message path,
	// instead of mutating melody state from the timer's own goroutine.
	Reenter chan<- msg.ToProcess

	pending *time.Timer
}

// NewNeighbourhoods builds a Neighbourhoods overlay. reenter is the
// Process actor's own inbound channel, used only to deliver the debounced
// reanchor as an ordinary SetReference message.
func NewNeighbourhoods(basis *interval.Basis, cfg NeighbourhoodsConfig, reenter chan<- msg.ToProcess) *Neighbourhoods {
	return &Neighbourhoods{
		Fixed:   cfg.Fixed,
		GroupMs: time.Duration(cfg.GroupMs) * time.Millisecond,
		Inner:   NewStaticTuning(basis, cfg.Inner),
		Reenter: reenter,
	}
}

func (n *Neighbourhoods) maybeReanchor(newReference *interval.Stack) {
	if n.Fixed || newReference == nil || interval.Equal(newReference, n.Inner.Reference) {
		return
	}
	candidate := newReference.Clone()
	if n.pending != nil {
		n.pending.Stop()
	}
	if n.GroupMs <= 0 {
		n.sendReanchor(candidate)
		return
	}
	n.pending = time.AfterFunc(n.GroupMs, func() { n.sendReanchor(candidate) })
}

func (n *Neighbourhoods) sendReanchor(stack *interval.Stack) {
	if n.Reenter == nil {
		return
	}
	n.Reenter <- msg.ToProcessStrategy{Inner: msg.SetReference{Reference: stack, Time: time.Now()}}
}

// Solve implements Strategy.
func (n *Neighbourhoods) Solve(keys *[128]keystate.KeyState, tunings *[128]*interval.Stack, h *harmony.Harmony, t time.Time, out *[]msg.FromStrategy) (bool, *interval.Stack) {
	success, newReference := n.Inner.Solve(keys, tunings, h, t, out)
	n.maybeReanchor(newReference)
	return success, newReference
}

// HandleMsg implements Strategy.
func (n *Neighbourhoods) HandleMsg(keys *[128]keystate.KeyState, tunings *[128]*interval.Stack, h *harmony.Harmony, m msg.ToStrategy, out *[]msg.FromStrategy) (bool, *interval.Stack) {
	success, newReference := n.Inner.HandleMsg(keys, tunings, h, m, out)
	n.maybeReanchor(newReference)
	return success, newReference
}

// Start implements Strategy.
func (n *Neighbourhoods) Start(keys *[128]keystate.KeyState, tunings *[128]*interval.Stack, h *harmony.Harmony, t time.Time, out *[]msg.FromStrategy) *interval.Stack {
	ref := n.Inner.Start(keys, tunings, h, t, out)
	n.maybeReanchor(ref)
	return ref
}

// AbsoluteSemitones implements Strategy.
func (n *Neighbourhoods) AbsoluteSemitones(s *interval.Stack) interval.Semitones {
	return n.Inner.AbsoluteSemitones(s)
}

// ExtractConfig implements Strategy.
func (n *Neighbourhoods) ExtractConfig() Config {
	return n.Inner.ExtractConfig()
}

// ExtractOverlayConfig returns the full overlay configuration including
// Fixed/GroupMs, for callers that need the outer tagged-union variant.
func (n *Neighbourhoods) ExtractOverlayConfig() NeighbourhoodsConfig {
	return NeighbourhoodsConfig{
		Fixed:   n.Fixed,
		GroupMs: n.GroupMs.Milliseconds(),
		Inner:   n.ExtractConfig(),
	}
}
