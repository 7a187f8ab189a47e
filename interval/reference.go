package interval

// Reference anchors the stack lattice to an absolute pitch: a stack (the
// lattice's "0") plus the MIDI-semitones value its C4 sits at.
type Reference struct {
	Stack           *Stack
	C4MidiSemitones Semitones
}

// C4Semitones returns the MIDI semitones of C4 this reference anchors to.
func (r *Reference) C4Semitones() Semitones { return r.C4MidiSemitones }

// Clone returns an independent deep copy.
func (r *Reference) Clone() *Reference {
	return &Reference{Stack: r.Stack.Clone(), C4MidiSemitones: r.C4MidiSemitones}
}

// CloneFrom overwrites r in place with a copy of other's contents.
func (r *Reference) CloneFrom(other *Reference) {
	r.Stack.CloneFrom(other.Stack)
	r.C4MidiSemitones = other.C4MidiSemitones
}
