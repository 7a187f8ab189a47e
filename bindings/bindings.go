// Package bindings maps bindable triggers (sostenuto/soft pedal edges,
// named keyboard keys) to strategy actions.
package bindings

import (
	"fmt"
	"sort"

	"github.com/carlhammann/adaptuner-go/msg"
)

// MidiTrigger enumerates the MIDI-side bindable edges.
type MidiTrigger int

const (
	SostenutoDown MidiTrigger = iota
	SostenutoUp
	SoftDown
	SoftUp
)

func (t MidiTrigger) String() string {
	switch t {
	case SostenutoDown:
		return "sostenuto pedal down"
	case SostenutoUp:
		return "sostenuto pedal up"
	case SoftDown:
		return "soft pedal down"
	case SoftUp:
		return "soft pedal up"
	default:
		return "unknown trigger"
	}
}

// Trigger is either a MIDI pedal edge or a named keyboard key (the key
// names come from the terminal UI's key events).
type Trigger struct {
	Midi MidiTrigger
	// Key is the keyboard key name for key-press triggers; empty for MIDI
	// pedal triggers.
	Key string
}

// MidiTriggerOf builds a pedal-edge trigger.
func MidiTriggerOf(t MidiTrigger) Trigger { return Trigger{Midi: t} }

// KeyTriggerOf builds a key-press trigger for the named key.
func KeyTriggerOf(name string) Trigger { return Trigger{Key: name} }

func (t Trigger) String() string {
	if t.Key != "" {
		return fmt.Sprintf("key press on %s", t.Key)
	}
	return t.Midi.String()
}

// Bindings is an ordered map from trigger to strategy action.
type Bindings struct {
	m map[Trigger]msg.StrategyAction
}

// New builds an empty binding set.
func New() *Bindings {
	return &Bindings{m: make(map[Trigger]msg.StrategyAction)}
}

// Get looks up the action bound to trigger, if any.
func (b *Bindings) Get(trigger Trigger) (msg.StrategyAction, bool) {
	a, ok := b.m[trigger]
	return a, ok
}

// Insert binds trigger to action, returning the previously bound action
// if one existed.
func (b *Bindings) Insert(trigger Trigger, action msg.StrategyAction) (msg.StrategyAction, bool) {
	prev, had := b.m[trigger]
	b.m[trigger] = action
	return prev, had
}

// Remove unbinds trigger, returning the removed action if one existed.
func (b *Bindings) Remove(trigger Trigger) (msg.StrategyAction, bool) {
	prev, had := b.m[trigger]
	delete(b.m, trigger)
	return prev, had
}

// ForEach iterates bindings in a deterministic order: MIDI triggers
// first (by edge), then key triggers by key name.
func (b *Bindings) ForEach(f func(Trigger, msg.StrategyAction)) {
	triggers := make([]Trigger, 0, len(b.m))
	for t := range b.m {
		triggers = append(triggers, t)
	}
	sort.Slice(triggers, func(i, j int) bool {
		a, b := triggers[i], triggers[j]
		if (a.Key == "") != (b.Key == "") {
			return a.Key == ""
		}
		if a.Key == "" {
			return a.Midi < b.Midi
		}
		return a.Key < b.Key
	})
	for _, t := range triggers {
		f(t, b.m[t])
	}
}

// Len is the number of bindings.
func (b *Bindings) Len() int { return len(b.m) }
