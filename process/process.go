// Package process implements the Process actor: it parses incoming MIDI,
// maintains the 128-entry key-state table and per-key tuning stacks, runs
// the current Strategy, and produces retune/note events for the Backend
// and UI.
package process

import (
	"time"

	"github.com/carlhammann/adaptuner-go/bindings"
	"github.com/carlhammann/adaptuner-go/interval"
	"github.com/carlhammann/adaptuner-go/keystate"
	"github.com/carlhammann/adaptuner-go/midiio"
	"github.com/carlhammann/adaptuner-go/msg"
	"github.com/carlhammann/adaptuner-go/strategy"
)

// Process is the actor's exclusively-owned state.
type Process struct {
	Basis     *interval.Basis
	KeyStates [128]keystate.KeyState
	Tunings   [128]*interval.Stack
	PedalHold [16]bool
	Strategy  strategy.Strategy
	Bindings  *bindings.Bindings

	// BendRange duplicates the Backend's configured bend range so Process
	// can raise its own DetunedNote diagnostic, independent of the
	// Backend's clamped-bend check.
	BendRange interval.Semitones
}

// New builds a Process actor. now seeds every KeyState's LastChange.
func New(basis *interval.Basis, strat strategy.Strategy, binds *bindings.Bindings, bendRange interval.Semitones, now time.Time) *Process {
	if binds == nil {
		binds = bindings.New()
	}
	p := &Process{Basis: basis, Strategy: strat, Bindings: binds, BendRange: bendRange}
	for i := range p.KeyStates {
		p.KeyStates[i] = *keystate.New(now)
		p.Tunings[i] = interval.NewZeroStack(basis)
	}
	return p
}

// checkBendRange appends a StrategyDetunedNote for every Retune event in
// out[fromIndex:] whose tuning exceeds BendRange from its key number.
func (p *Process) checkBendRange(out *[]msg.FromStrategy, fromIndex int) {
	for i := fromIndex; i < len(*out); i++ {
		r, ok := (*out)[i].(msg.Retune)
		if !ok {
			continue
		}
		deviation := r.Tuning - interval.Semitones(r.Note)
		if deviation > p.BendRange || deviation < -p.BendRange {
			*out = append(*out, msg.StrategyDetunedNote{
				Note:        r.Note,
				ShouldBe:    r.Tuning,
				Actual:      interval.Semitones(r.Note),
				Explanation: "exceeded bend range",
			})
		}
	}
}

// forwardRetunes copies every Retune in out[fromIndex:] to the Backend,
// skipping exceptNote (which the caller folds into a TunedNoteOn).
// Retunes reach the Backend before any subsequent NoteOn of the same
// solve, so no note starts on a stale bend.
func forwardRetunes(out []msg.FromStrategy, fromIndex int, exceptNote int, toBackend *[]msg.ToBackend) {
	for i := fromIndex; i < len(out); i++ {
		r, ok := out[i].(msg.Retune)
		if !ok || int(r.Note) == exceptNote {
			continue
		}
		*toBackend = append(*toBackend, msg.BackendRetune{
			Note:        r.Note,
			Tuning:      r.Tuning,
			TuningStack: r.TuningStack,
			Time:        r.Time,
		})
	}
}

// HandleIncomingMidi parses one incoming MIDI message and dispatches by
// message kind. toBackend receives the note/pedal/retune
// events it must forward, with every Retune ahead of the NoteOn that
// depends on it; out accumulates the Strategy's FromStrategy emissions
// (including any new DetunedNote diagnostics).
func (p *Process) HandleIncomingMidi(bytes []byte, t time.Time, toBackend *[]msg.ToBackend, out *[]msg.FromStrategy) {
	ev, err := midiio.Parse(bytes)
	if err != nil {
		*out = append(*out, msg.MidiParseErr{Reason: err.Error()})
		return
	}

	switch e := ev.(type) {
	case midiio.NoteOnEvent:
		if !p.KeyStates[e.Note].NoteOn(e.Channel, t) {
			// already sounding on another channel; no new solve needed
			*toBackend = append(*toBackend, msg.NoteOn{Channel: e.Channel, Note: e.Note, Velocity: e.Velocity, Time: t})
			return
		}
		before := len(*out)
		tuning, stack, ok := p.Strategy.NoteOn(&p.KeyStates, &p.Tunings, e.Note, t, out)
		p.checkBendRange(out, before)
		if !ok {
			*toBackend = append(*toBackend, msg.NoteOn{Channel: e.Channel, Note: e.Note, Velocity: e.Velocity, Time: t})
			return
		}
		forwardRetunes(*out, before, int(e.Note), toBackend)
		*toBackend = append(*toBackend, msg.TunedNoteOn{
			Channel:     e.Channel,
			Note:        e.Note,
			Velocity:    e.Velocity,
			Tuning:      tuning,
			TuningStack: stack.Clone(),
			Time:        t,
		})

	case midiio.NoteOffEvent:
		held := p.PedalHold[e.Channel]
		if p.KeyStates[e.Note].NoteOff(e.Channel, held, t) {
			*toBackend = append(*toBackend, msg.NoteOff{Channel: e.Channel, Note: e.Note, Time: t})
			before := len(*out)
			p.Strategy.NoteOff(&p.KeyStates, &p.Tunings, []uint8{e.Note}, t, out)
			p.checkBendRange(out, before)
			forwardRetunes(*out, before, -1, toBackend)
		} else if !held {
			// still sounding on another channel; the Backend tracks that
			*toBackend = append(*toBackend, msg.NoteOff{Channel: e.Channel, Note: e.Note, Time: t})
		}
		// pedal-held keys keep sounding: their NoteOff is withheld and
		// synthesized when the pedal is released

	case midiio.HoldEvent:
		*toBackend = append(*toBackend, msg.PedalHold{Channel: e.Channel, Value: e.Value, Time: t})
		p.PedalHold[e.Channel] = e.Value > 0
		if e.Value == 0 {
			var released []uint8
			for note := 0; note < 128; note++ {
				if p.KeyStates[note].PedalOff(e.Channel, t) {
					released = append(released, uint8(note))
				}
			}
			for _, note := range released {
				*toBackend = append(*toBackend, msg.NoteOff{Channel: e.Channel, Note: note, Time: t})
			}
			if len(released) > 0 {
				before := len(*out)
				p.Strategy.NoteOff(&p.KeyStates, &p.Tunings, released, t, out)
				p.checkBendRange(out, before)
				forwardRetunes(*out, before, -1, toBackend)
			}
		}

	case midiio.SostenutoEvent:
		*toBackend = append(*toBackend, msg.ForwardMidi{Bytes: bytes, Time: t})
		p.triggerBinding(pedalEdge(bindings.SostenutoDown, bindings.SostenutoUp, e.Value), t, toBackend, out)

	case midiio.SoftEvent:
		*toBackend = append(*toBackend, msg.ForwardMidi{Bytes: bytes, Time: t})
		p.triggerBinding(pedalEdge(bindings.SoftDown, bindings.SoftUp, e.Value), t, toBackend, out)

	case midiio.OtherEvent:
		*toBackend = append(*toBackend, msg.ForwardMidi{Bytes: e.Bytes, Time: t})
	}
}

func pedalEdge(down, up bindings.MidiTrigger, value uint8) bindings.Trigger {
	if value > 0 {
		return bindings.MidiTriggerOf(down)
	}
	return bindings.MidiTriggerOf(up)
}

// triggerBinding dispatches the strategy action bound to trigger, if any,
// forwarding its retunes like any other strategy message.
func (p *Process) triggerBinding(trigger bindings.Trigger, t time.Time, toBackend *[]msg.ToBackend, out *[]msg.FromStrategy) {
	action, ok := p.Bindings.Get(trigger)
	if !ok {
		return
	}
	p.HandleToStrategy(msg.Action{Action: action, Time: t}, toBackend, out)
}

// HandleToStrategy routes a strategy-control message to the Strategy.
// Retunes produced by the strategy are forwarded to the Backend in order.
func (p *Process) HandleToStrategy(m msg.ToStrategy, toBackend *[]msg.ToBackend, out *[]msg.FromStrategy) {
	before := len(*out)
	p.Strategy.HandleMsg(&p.KeyStates, &p.Tunings, m, out)
	p.checkBendRange(out, before)
	forwardRetunes(*out, before, -1, toBackend)
}

// Start runs the Strategy's startup sequence.
func (p *Process) Start(t time.Time, toBackend *[]msg.ToBackend, out *[]msg.FromStrategy) {
	before := len(*out)
	p.Strategy.Start(&p.KeyStates, &p.Tunings, t, out)
	p.checkBendRange(out, before)
	forwardRetunes(*out, before, -1, toBackend)
}
