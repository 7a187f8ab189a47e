package midiio

import (
	"fmt"
	"strings"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// selfPortMarker is excluded from available-ports listings so the
// engine's own virtual ports never show up as reconnection candidates.
const selfPortMarker = "adaptuner"

// In is the MidiIn actor's port handle: a two-state
// Unconnected/Connected(portName) machine.
type In struct {
	port     drivers.In
	portName string
	stop     func()
}

// Connected reports whether a port is currently open.
func (in *In) Connected() bool { return in.port != nil }

// PortName returns the currently connected port's name, or "" if none.
func (in *In) PortName() string { return in.portName }

// AvailablePorts lists input ports, excluding self-named virtual ports.
func AvailablePorts() []string {
	var names []string
	for _, p := range midi.GetInPorts() {
		name := p.String()
		if !strings.Contains(strings.ToLower(name), selfPortMarker) {
			names = append(names, name)
		}
	}
	return names
}

// Connect disconnects any existing port, then opens portName and starts
// listening, delivering each incoming message to onMessage with an
// Instant captured as close to the OS callback as possible.
func (in *In) Connect(portName string, onMessage func(bytes []byte, t time.Time)) error {
	in.Disconnect()

	port, err := midi.FindInPort(portName)
	if err != nil {
		return fmt.Errorf("midiio: input port %q not found: %w", portName, err)
	}
	stop, err := port.Listen(func(bytes []byte, _ int32) {
		onMessage(append([]byte(nil), bytes...), time.Now())
	}, drivers.ListenConfig{})
	if err != nil {
		return fmt.Errorf("midiio: failed to connect input %q: %w", portName, err)
	}
	in.port = port
	in.portName = portName
	in.stop = stop
	return nil
}

// Disconnect closes the current port, if any, returning to Unconnected.
func (in *In) Disconnect() {
	if in.stop != nil {
		in.stop()
		in.stop = nil
	}
	if in.port != nil {
		_ = in.port.Close()
	}
	in.port = nil
	in.portName = ""
}

// Out is the MidiOut actor's port handle, mirroring In.
type Out struct {
	port     drivers.Out
	portName string
	send     func(midi.Message) error
}

func (out *Out) Connected() bool { return out.port != nil }

func (out *Out) PortName() string { return out.portName }

// AvailableOutPorts lists output ports, excluding self-named virtual ports.
func AvailableOutPorts() []string {
	var names []string
	for _, p := range midi.GetOutPorts() {
		name := p.String()
		if !strings.Contains(strings.ToLower(name), selfPortMarker) {
			names = append(names, name)
		}
	}
	return names
}

// Connect disconnects any existing port, then opens portName for sending.
func (out *Out) Connect(portName string) error {
	out.Disconnect()

	port, err := midi.FindOutPort(portName)
	if err != nil {
		return fmt.Errorf("midiio: output port %q not found: %w", portName, err)
	}
	send, err := midi.SendTo(port)
	if err != nil {
		return fmt.Errorf("midiio: failed to connect output %q: %w", portName, err)
	}
	out.port = port
	out.portName = portName
	out.send = send
	return nil
}

// Disconnect closes the current port, if any.
func (out *Out) Disconnect() {
	if out.port != nil {
		_ = out.port.Close()
	}
	out.port = nil
	out.portName = ""
	out.send = nil
}

// Send writes raw MIDI bytes to the connected port. An unconnected port
// is a silent no-op: that is a configuration problem surfaced at Connect
// time, not a per-event error.
func (out *Out) Send(bytes []byte) error {
	if out.send == nil {
		return nil
	}
	return out.send(midi.Message(bytes))
}
