// Package engine wires the four long-lived actors — MidiIn, Process,
// Backend, MidiOut — into goroutines connected by typed channels. Message
// fan-out is folded into each producing actor's loop as inline code
// (see DESIGN.md), preserving per-source FIFO ordering without one
// extra scheduled stage per message.
package engine

import (
	"time"

	"github.com/carlhammann/adaptuner-go/backend"
	"github.com/carlhammann/adaptuner-go/midiio"
	"github.com/carlhammann/adaptuner-go/msg"
	"github.com/carlhammann/adaptuner-go/process"
)

// chanBuffer sizes every actor channel. Sends stay effectively
// non-blocking at musical event rates while bounding memory.
const chanBuffer = 256

// UIEvent is anything addressed to the UI: msg.FromStrategy,
// msg.FromBackend, msg.FromMidiIn or msg.FromMidiOut variants.
type UIEvent any

// Engine owns the channels between the actors. Actor state itself is
// owned exclusively by each running goroutine.
type Engine struct {
	ToProcess chan msg.ToProcess
	ToBackend chan msg.ToBackend
	ToMidiIn  chan msg.ToMidiIn
	ToMidiOut chan msg.ToMidiOut
	ToUI      chan UIEvent

	done chan struct{} // one token per exited actor loop
}

// New allocates the channel plumbing.
func New() *Engine {
	return &Engine{
		ToProcess: make(chan msg.ToProcess, chanBuffer),
		ToBackend: make(chan msg.ToBackend, chanBuffer),
		ToMidiIn:  make(chan msg.ToMidiIn, chanBuffer),
		ToMidiOut: make(chan msg.ToMidiOut, chanBuffer),
		ToUI:      make(chan UIEvent, chanBuffer),
		done:      make(chan struct{}, 4),
	}
}

// sendUI forwards to the UI channel without ever blocking the event
// path: if the UI has fallen behind by a full buffer, the update being
// sent is dropped.
func (e *Engine) sendUI(ev UIEvent) {
	select {
	case e.ToUI <- ev:
	default:
	}
}

// Start spawns the four actor loops and runs the strategy's startup
// sequence through the Process actor.
func (e *Engine) Start(p *process.Process, b *backend.Pitchbend12, in *midiio.In, out *midiio.Out) {
	go e.runProcess(p)
	go e.runBackend(b)
	go e.runMidiIn(in)
	go e.runMidiOut(out)

	now := time.Now()
	e.ToBackend <- msg.BackendStart{Time: now}
	e.ToProcess <- msg.StartStrategy{Time: now}
}

// Stop asks every actor to exit and waits for all four loops to drain.
func (e *Engine) Stop() {
	now := time.Now()
	e.ToProcess <- msg.ProcessStop{Time: now}
	e.ToBackend <- msg.BackendStop{Time: now}
	e.ToMidiIn <- msg.MidiInStop{Time: now}
	e.ToMidiOut <- msg.MidiOutStop{Time: now}
	for i := 0; i < 4; i++ {
		<-e.done
	}
}

func (e *Engine) runProcess(p *process.Process) {
	defer func() { e.done <- struct{}{} }()

	var toBackend []msg.ToBackend
	var out []msg.FromStrategy
	for m := range e.ToProcess {
		toBackend = toBackend[:0]
		out = out[:0]

		switch im := m.(type) {
		case msg.IncomingMidi:
			p.HandleIncomingMidi(im.Bytes, im.Time, &toBackend, &out)
		case msg.ToProcessStrategy:
			p.HandleToStrategy(im.Inner, &toBackend, &out)
		case msg.StartStrategy:
			p.Start(im.Time, &toBackend, &out)
		case msg.ProcessStop:
			return
		}

		// Backend-bound events first (Retunes already precede the note-ons
		// that depend on them within toBackend), then the UI copies. The
		// Process loop is the linearization point for tuning decisions.
		for _, b := range toBackend {
			e.ToBackend <- b
		}
		for _, ev := range out {
			e.sendUI(ev)
		}
	}
}

func (e *Engine) runBackend(b *backend.Pitchbend12) {
	defer func() { e.done <- struct{}{} }()

	var out []msg.FromBackend
	for m := range e.ToBackend {
		if _, stop := m.(msg.BackendStop); stop {
			return
		}
		out = out[:0]
		b.Handle(m, &out)
		for _, ev := range out {
			if o, ok := ev.(msg.OutgoingMidi); ok {
				e.ToMidiOut <- msg.SendMidi{Bytes: o.Bytes, Time: o.Time}
				continue
			}
			e.sendUI(ev)
		}
	}
}

func (e *Engine) runMidiIn(in *midiio.In) {
	defer func() { e.done <- struct{}{} }()

	for m := range e.ToMidiIn {
		switch cm := m.(type) {
		case msg.ConnectIn:
			err := in.Connect(cm.PortName, func(bytes []byte, t time.Time) {
				e.ToProcess <- msg.IncomingMidi{Bytes: bytes, Time: t}
			})
			if err != nil {
				e.sendUI(msg.MidiInConnectionError{Reason: err.Error()})
				continue
			}
			e.sendUI(msg.MidiInConnected{PortName: cm.PortName})
		case msg.DisconnectIn:
			in.Disconnect()
			e.sendUI(msg.MidiInDisconnected{AvailablePorts: midiio.AvailablePorts()})
		case msg.MidiInStop:
			in.Disconnect()
			return
		}
	}
}

func (e *Engine) runMidiOut(out *midiio.Out) {
	defer func() { e.done <- struct{}{} }()

	for m := range e.ToMidiOut {
		switch cm := m.(type) {
		case msg.SendMidi:
			if err := out.Send(cm.Bytes); err != nil {
				e.sendUI(msg.MidiOutConnectionError{Reason: err.Error()})
				continue
			}
			// the latency report samples now exactly once, at the write
			e.sendUI(msg.LatencyReport{Latency: time.Since(cm.Time)})
		case msg.ConnectOut:
			if err := out.Connect(cm.PortName); err != nil {
				e.sendUI(msg.MidiOutConnectionError{Reason: err.Error()})
				continue
			}
			e.sendUI(msg.MidiOutConnected{PortName: cm.PortName})
		case msg.DisconnectOut:
			out.Disconnect()
			e.sendUI(msg.MidiOutDisconnected{AvailablePorts: midiio.AvailableOutPorts()})
		case msg.MidiOutStop:
			out.Disconnect()
			return
		}
	}
}
