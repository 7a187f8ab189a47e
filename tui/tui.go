// Package tui renders the live engine state in the terminal: sounding
// keys with their cents deviation, the detected harmony, the current
// neighbourhood, connection state and the rolling MIDI latency.
package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/carlhammann/adaptuner-go/bindings"
	"github.com/carlhammann/adaptuner-go/engine"
	"github.com/carlhammann/adaptuner-go/interval"
	"github.com/carlhammann/adaptuner-go/msg"
)

// Styles for the TUI
var (
	primaryColor = lipgloss.Color("#00FFFF") // Cyan
	dimColor     = lipgloss.Color("#666666") // Gray
	warnColor    = lipgloss.Color("#FF6666") // Red

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF"))

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))

	harmonyStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	noteStyle = lipgloss.NewStyle().
			Width(12).
			Align(lipgloss.Center)

	warnStyle = lipgloss.NewStyle().
			Foreground(warnColor)

	latencyStyle = lipgloss.NewStyle().
			Foreground(dimColor)
)

// deviation gradient endpoints: a full comma flat is blue, sharp is red
var (
	flatColor, _  = colorful.Hex("#4477DD")
	plainColor, _ = colorful.Hex("#DDDDDD")
	sharpColor, _ = colorful.Hex("#DD4444")
)

// centsColor interpolates the deviation gradient over +-25 cents.
func centsColor(cents float64) lipgloss.Color {
	t := cents / 25
	if t < -1 {
		t = -1
	}
	if t > 1 {
		t = 1
	}
	var c colorful.Color
	if t < 0 {
		c = plainColor.BlendLab(flatColor, -t)
	} else {
		c = plainColor.BlendLab(sharpColor, t)
	}
	return lipgloss.Color(c.Hex())
}

var noteNames = []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

func noteName(note uint8) string {
	return fmt.Sprintf("%s%d", noteNames[note%12], int(note)/12-1)
}

// TickMsg is sent on each tick for display refresh.
type TickMsg time.Time

// uiMsg wraps one engine event delivered to the model.
type uiMsg struct{ ev engine.UIEvent }

type soundingNote struct {
	tuning interval.Semitones
	name   string
}

// Model is the Bubbletea model for the live display.
type Model struct {
	eng      *engine.Engine
	bindings *bindings.Bindings

	refreshEvery time.Duration
	nsamples     int
	showLatency  bool

	sounding map[uint8]soundingNote
	// pending collects the retunes of the solve in flight; each solve
	// ends with a CurrentHarmony, which swaps pending in as the new
	// sounding set (keys that stopped sounding get no retune and drop out)
	pending map[uint8]soundingNote

	harmonyPattern     *int
	neighbourhoodIndex int

	inPort  string
	outPort string

	// ring buffer of the most recent per-event latencies
	latencies  []time.Duration
	nextSample int
	haveSample bool

	warnings []string

	quitting bool
}

// Options configures the model.
type Options struct {
	RefreshMs      int
	LatencySamples int
	ShowLatency    bool
}

// NewModel builds the TUI model on top of a running engine. binds maps
// keyboard keys to strategy actions, alongside the built-in navigation
// keys.
func NewModel(eng *engine.Engine, binds *bindings.Bindings, opts Options) *Model {
	if opts.RefreshMs <= 0 {
		opts.RefreshMs = 50
	}
	if opts.LatencySamples <= 0 {
		opts.LatencySamples = 32
	}
	return &Model{
		eng:          eng,
		bindings:     binds,
		refreshEvery: time.Duration(opts.RefreshMs) * time.Millisecond,
		nsamples:     opts.LatencySamples,
		showLatency:  opts.ShowLatency,
		sounding:     make(map[uint8]soundingNote),
		pending:      make(map[uint8]soundingNote),
		latencies:    make([]time.Duration, 0, opts.LatencySamples),
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.tickCmd(), m.waitForEvent())
}

func (m *Model) tickCmd() tea.Cmd {
	return tea.Tick(m.refreshEvery, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// waitForEvent blocks on the engine's UI channel; delivery re-arms the
// subscription in Update.
func (m *Model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.eng.ToUI
		if !ok {
			return nil
		}
		return uiMsg{ev: ev}
	}
}

func (m *Model) sendAction(action msg.StrategyAction) {
	m.eng.ToProcess <- msg.ToProcessStrategy{Inner: msg.Action{Action: action, Time: time.Now()}}
}

// Update implements tea.Model.
func (m *Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch ev := message.(type) {
	case tea.KeyMsg:
		switch ev.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "right":
			m.sendAction(msg.IncrementNeighbourhoodIndex)
		case "left":
			m.sendAction(msg.DecrementNeighbourhoodIndex)
		case "r":
			m.sendAction(msg.SetReferenceToLowest)
		default:
			if action, ok := m.bindings.Get(bindings.KeyTriggerOf(ev.String())); ok {
				m.sendAction(action)
			}
		}

	case TickMsg:
		return m, m.tickCmd()

	case uiMsg:
		m.handleEngineEvent(ev.ev)
		return m, m.waitForEvent()
	}

	return m, nil
}

func (m *Model) pushWarning(w string) {
	m.warnings = append(m.warnings, w)
	if len(m.warnings) > 5 {
		m.warnings = m.warnings[len(m.warnings)-5:]
	}
}

func (m *Model) recordLatency(d time.Duration) {
	if len(m.latencies) < m.nsamples {
		m.latencies = append(m.latencies, d)
	} else {
		m.latencies[m.nextSample] = d
		m.nextSample = (m.nextSample + 1) % m.nsamples
	}
	m.haveSample = true
}

func (m *Model) meanLatency() time.Duration {
	if len(m.latencies) == 0 {
		return 0
	}
	var total time.Duration
	for _, d := range m.latencies {
		total += d
	}
	return total / time.Duration(len(m.latencies))
}

func (m *Model) handleEngineEvent(ev engine.UIEvent) {
	switch e := ev.(type) {
	case msg.Retune:
		n := soundingNote{tuning: e.Tuning, name: noteName(e.Note)}
		m.sounding[e.Note] = n
		m.pending[e.Note] = n

	case msg.CurrentHarmony:
		m.harmonyPattern = e.PatternIndex
		m.sounding = m.pending
		m.pending = make(map[uint8]soundingNote)

	case msg.CurrentNeighbourhoodIndex:
		m.neighbourhoodIndex = e.Index

	case msg.StrategyDetunedNote:
		m.pushWarning(fmt.Sprintf("%s wants %+.1fc, outside the bend range",
			noteName(e.Note), (e.ShouldBe-interval.Semitones(e.Note))*100))

	case msg.BackendDetunedNote:
		m.pushWarning(fmt.Sprintf("%s clamped to %+.1fc (wanted %+.1fc)",
			noteName(e.Note),
			(e.Actual-interval.Semitones(e.Note))*100,
			(e.ShouldBe-interval.Semitones(e.Note))*100))

	case msg.MidiParseErr:
		m.pushWarning("unparseable MIDI: " + e.Reason)

	case msg.MidiInConnected:
		m.inPort = e.PortName
	case msg.MidiInDisconnected:
		m.inPort = ""
	case msg.MidiInConnectionError:
		m.pushWarning("input: " + e.Reason)

	case msg.MidiOutConnected:
		m.outPort = e.PortName
	case msg.MidiOutDisconnected:
		m.outPort = ""
	case msg.MidiOutConnectionError:
		m.pushWarning("output: " + e.Reason)

	case msg.LatencyReport:
		m.recordLatency(e.Latency)
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("adaptuner"))
	b.WriteString("  ")
	in, out := m.inPort, m.outPort
	if in == "" {
		in = "(no input)"
	}
	if out == "" {
		out = "(no output)"
	}
	b.WriteString(headerStyle.Render(fmt.Sprintf("%s → %s", in, out)))
	b.WriteString("\n\n")

	if m.harmonyPattern != nil {
		b.WriteString(harmonyStyle.Render(fmt.Sprintf("chord pattern #%d", *m.harmonyPattern)))
	} else {
		b.WriteString(headerStyle.Render("no chord detected"))
	}
	b.WriteString(headerStyle.Render(fmt.Sprintf("   neighbourhood %d", m.neighbourhoodIndex)))
	b.WriteString("\n\n")

	notes := make([]uint8, 0, len(m.sounding))
	for n := range m.sounding {
		notes = append(notes, n)
	}
	sort.Slice(notes, func(i, j int) bool { return notes[i] < notes[j] })

	for _, n := range notes {
		s := m.sounding[n]
		cents := (s.tuning - interval.Semitones(n)) * 100
		cell := fmt.Sprintf("%s %+.1fc", s.name, cents)
		b.WriteString(noteStyle.Foreground(centsColor(cents)).Render(cell))
	}
	if len(notes) == 0 {
		b.WriteString(headerStyle.Render("(silence)"))
	}
	b.WriteString("\n\n")

	for _, w := range m.warnings {
		b.WriteString(warnStyle.Render("! " + w))
		b.WriteString("\n")
	}

	if m.showLatency && m.haveSample {
		b.WriteString(latencyStyle.Render(fmt.Sprintf(
			"mean MIDI latency (last %d events): %s", len(m.latencies), m.meanLatency())))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(headerStyle.Render("←/→ neighbourhood · r reference to lowest · q quit"))
	b.WriteString("\n")

	return b.String()
}

// Run starts the TUI program and blocks until the user quits.
func Run(m *Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
