// Package config loads and saves the engine's single YAML configuration
// document: the strategy tree, the backend, the GUI settings, bindings,
// temperament definitions and named intervals. Kebab-case keys, unknown
// fields rejected.
package config

import (
	"bytes"
	"fmt"
	"math/big"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/carlhammann/adaptuner-go/backend"
	"github.com/carlhammann/adaptuner-go/bindings"
	"github.com/carlhammann/adaptuner-go/interval"
	"github.com/carlhammann/adaptuner-go/msg"
	"github.com/carlhammann/adaptuner-go/strategy"
	"github.com/carlhammann/adaptuner-go/strategy/harmony"
	"github.com/carlhammann/adaptuner-go/strategy/melody"
)

// Complete is the whole configuration document.
type Complete struct {
	Process                ProcessConfig       `yaml:"process"`
	Backend                BackendConfig       `yaml:"backend"`
	Gui                    GuiConfig           `yaml:"gui"`
	Bindings               []BindingConfig     `yaml:"bindings,omitempty"`
	TemperamentDefinitions []TemperamentConfig `yaml:"temperament-definitions,omitempty"`
	NamedIntervals         []NamedInterval     `yaml:"named-intervals,omitempty"`
}

// ProcessConfig is the strategy tree, a tagged union with exactly one
// variant set.
type ProcessConfig struct {
	TwoStep      *TwoStepConfig      `yaml:"two-step,omitempty"`
	StaticTuning *StaticTuningConfig `yaml:"static-tuning,omitempty"`
}

// TwoStepConfig composes the harmony selector and the melody solver.
type TwoStepConfig struct {
	Harmony HarmonyConfig `yaml:"harmony"`
	Melody  MelodyConfig  `yaml:"melody"`
}

// HarmonyConfig currently has a single variant, the chord list.
type HarmonyConfig struct {
	ChordList ChordListConfig `yaml:"chord-list"`
}

// ChordListConfig is the harmony selector's ordered pattern list.
type ChordListConfig struct {
	Enabled  bool            `yaml:"enabled"`
	Patterns []PatternConfig `yaml:"patterns,omitempty"`
}

// Keyshape selects how a pattern's classes match against sounding keys:
// relative to a root (the default) or as literal note numbers.
type Keyshape string

const (
	ClassesRelative Keyshape = "classes-relative"
	AbsoluteClasses Keyshape = "absolute-classes"
)

// UnmarshalYAML accepts the two keyshape spellings and rejects anything
// else at load time rather than at first solve.
func (k *Keyshape) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	switch Keyshape(s) {
	case ClassesRelative, AbsoluteClasses, "":
		*k = Keyshape(s)
		return nil
	}
	return fmt.Errorf("config: unknown keyshape %q (want %q or %q)", s, ClassesRelative, AbsoluteClasses)
}

// PatternConfig describes one chord pattern. Neighbourhood entries are
// target exponent vectors over the generator basis; the key offset of
// each is derived from the stack itself.
type PatternConfig struct {
	Name                string    `yaml:"name"`
	Keyshape            Keyshape  `yaml:"keyshape,omitempty"`
	Classes             []int     `yaml:"classes"`
	AllowExtraHighNotes bool      `yaml:"allow-extra-high-notes,omitempty"`
	Neighbourhood       [][]int64 `yaml:"neighbourhood,omitempty"`
}

// MelodyConfig is a tagged union: a plain static tuning or the
// neighbourhoods overlay that can reanchor its reference.
type MelodyConfig struct {
	StaticTuning   *StaticTuningConfig   `yaml:"static-tuning,omitempty"`
	Neighbourhoods *NeighbourhoodsConfig `yaml:"neighbourhoods,omitempty"`
}

// StaticTuningConfig mirrors melody.Config.
type StaticTuningConfig struct {
	Neighbourhoods  []NeighbourhoodConfig `yaml:"neighbourhoods"`
	TuningReference ReferenceConfig       `yaml:"tuning-reference"`
	Reference       []int64               `yaml:"reference"`
}

// NeighbourhoodsConfig wraps a static tuning with the reanchoring flag
// and its debounce window.
type NeighbourhoodsConfig struct {
	Fixed        bool               `yaml:"fixed"`
	GroupMs      int64              `yaml:"group-ms,omitempty"`
	StaticTuning StaticTuningConfig `yaml:"static-tuning"`
}

// NeighbourhoodConfig describes one switchable neighbourhood.
type NeighbourhoodConfig struct {
	Complete    bool      `yaml:"complete,omitempty"`
	PeriodIndex int       `yaml:"period-index,omitempty"`
	Entries     [][]int64 `yaml:"entries"`
}

// ReferenceConfig anchors the lattice to an absolute pitch.
type ReferenceConfig struct {
	Stack           []int64 `yaml:"stack"`
	C4MidiSemitones float64 `yaml:"c4-midi-semitones"`
}

// BackendConfig currently has a single variant, pitchbend12.
type BackendConfig struct {
	Pitchbend12 Pitchbend12Config `yaml:"pitchbend12"`
}

// Pitchbend12Config uses the human 1..16 channel numbering; Build
// converts to the 0-based wire numbering.
type Pitchbend12Config struct {
	BendRange float64 `yaml:"bend-range"`
	Channels  []int   `yaml:"channels"`
}

// GuiConfig configures the terminal UI.
type GuiConfig struct {
	RefreshMs      int  `yaml:"refresh-ms,omitempty"`
	LatencySamples int  `yaml:"latency-samples,omitempty"`
	ShowLatency    bool `yaml:"show-latency,omitempty"`
}

// BindingConfig binds one trigger to one strategy action.
type BindingConfig struct {
	Trigger string `yaml:"trigger"`
	Action  string `yaml:"action"`
}

// TemperamentConfig is a temperament's raw pair of integer matrices.
type TemperamentConfig struct {
	Name     string    `yaml:"name"`
	Tempered [][]int64 `yaml:"tempered"`
	Pure     [][]int64 `yaml:"pure"`
}

// NamedInterval carries rational coefficients as strings ("-2", "1/2")
// so exactness survives the YAML round trip.
type NamedInterval struct {
	Name      string   `yaml:"name"`
	ShortName string   `yaml:"short-name"`
	Coeffs    []string `yaml:"coeffs"`
}

// Load reads and parses a configuration file. Unknown fields are
// rejected.
func Load(path string) (*Complete, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes a configuration document from YAML bytes.
func Parse(data []byte) (*Complete, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var c Complete
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Marshal serializes c back to YAML.
func Marshal(c *Complete) ([]byte, error) {
	return yaml.Marshal(c)
}

// Save writes c to path. An I/O failure leaves no engine state changed;
// the caller surfaces it to the UI.
func Save(path string, c *Complete) error {
	data, err := Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Complete) validate() error {
	if (c.Process.TwoStep == nil) == (c.Process.StaticTuning == nil) {
		return fmt.Errorf("config: process must set exactly one of two-step, static-tuning")
	}
	if c.Process.TwoStep != nil {
		m := c.Process.TwoStep.Melody
		if (m.StaticTuning == nil) == (m.Neighbourhoods == nil) {
			return fmt.Errorf("config: melody must set exactly one of static-tuning, neighbourhoods")
		}
	}
	if len(c.Backend.Pitchbend12.Channels) != 12 {
		return fmt.Errorf("config: pitchbend12 needs exactly 12 channels, got %d", len(c.Backend.Pitchbend12.Channels))
	}
	for _, ch := range c.Backend.Pitchbend12.Channels {
		if ch < 1 || ch > 16 {
			return fmt.Errorf("config: channel %d out of range 1..16", ch)
		}
	}
	return nil
}

// BuildBackendConfig converts to the backend's 0-based channel numbering.
func (c *Complete) BuildBackendConfig() backend.Config {
	out := backend.Config{BendRange: c.Backend.Pitchbend12.BendRange}
	for i, ch := range c.Backend.Pitchbend12.Channels {
		out.Channels[i] = uint8(ch - 1)
	}
	return out
}

// ExtractBackendConfig converts a backend.Config back into the 1..16
// numbering of the document.
func ExtractBackendConfig(bc backend.Config) BackendConfig {
	channels := make([]int, 12)
	for i, ch := range bc.Channels {
		channels[i] = int(ch) + 1
	}
	return BackendConfig{Pitchbend12: Pitchbend12Config{BendRange: bc.BendRange, Channels: channels}}
}

func buildStacks(entries [][]int64) []harmony.NeighbourhoodEntry {
	out := make([]harmony.NeighbourhoodEntry, len(entries))
	for i, target := range entries {
		out[i] = harmony.NeighbourhoodEntry{Target: append([]interval.StackCoeff(nil), target...)}
	}
	return out
}

func buildMelodyConfig(basis *interval.Basis, cfg StaticTuningConfig) melody.Config {
	ns := make([]melody.NeighbourhoodConfig, len(cfg.Neighbourhoods))
	for i, nc := range cfg.Neighbourhoods {
		ns[i] = melody.NeighbourhoodConfig{
			Complete:    nc.Complete,
			PeriodIndex: nc.PeriodIndex,
			Entries:     buildStacks(nc.Entries),
		}
	}
	return melody.Config{
		Neighbourhoods: ns,
		TuningReference: &interval.Reference{
			Stack:           interval.NewPureStack(basis, cfg.TuningReference.Stack),
			C4MidiSemitones: cfg.TuningReference.C4MidiSemitones,
		},
		Reference: append([]interval.StackCoeff(nil), cfg.Reference...),
	}
}

func buildPatterns(cfgs []PatternConfig) []harmony.PatternConfig {
	out := make([]harmony.PatternConfig, len(cfgs))
	for i, p := range cfgs {
		out[i] = harmony.PatternConfig{
			Name:                p.Name,
			Classes:             append([]int(nil), p.Classes...),
			AbsoluteClasses:     p.Keyshape == AbsoluteClasses,
			AllowExtraHighNotes: p.AllowExtraHighNotes,
			Neighbourhood:       buildStacks(p.Neighbourhood),
		}
	}
	return out
}

// BuildStrategy constructs the configured strategy tree over basis.
// reenter is the Process actor's inbound channel, used by the
// neighbourhoods overlay to deliver debounced reanchors.
func (c *Complete) BuildStrategy(basis *interval.Basis, reenter chan<- msg.ToProcess) (strategy.Strategy, error) {
	var harmonyCfg ChordListConfig
	var melodyCfg MelodyConfig
	switch {
	case c.Process.TwoStep != nil:
		harmonyCfg = c.Process.TwoStep.Harmony.ChordList
		melodyCfg = c.Process.TwoStep.Melody
	case c.Process.StaticTuning != nil:
		// a bare static tuning is a two-step with the chord list disabled
		melodyCfg = MelodyConfig{StaticTuning: c.Process.StaticTuning}
	}

	var m melody.Strategy
	switch {
	case melodyCfg.StaticTuning != nil:
		m = melody.NewStaticTuning(basis, buildMelodyConfig(basis, *melodyCfg.StaticTuning))
	case melodyCfg.Neighbourhoods != nil:
		m = melody.NewNeighbourhoods(basis, melody.NeighbourhoodsConfig{
			Fixed:   melodyCfg.Neighbourhoods.Fixed,
			GroupMs: melodyCfg.Neighbourhoods.GroupMs,
			Inner:   buildMelodyConfig(basis, melodyCfg.Neighbourhoods.StaticTuning),
		}, reenter)
	default:
		return nil, fmt.Errorf("config: no melody solver configured")
	}

	h := harmony.NewChordList(basis, harmonyCfg.Enabled, buildPatterns(harmonyCfg.Patterns))
	return strategy.NewTwoStep(h, m), nil
}

var triggerNames = map[string]bindings.Trigger{
	"sostenuto-down": bindings.MidiTriggerOf(bindings.SostenutoDown),
	"sostenuto-up":   bindings.MidiTriggerOf(bindings.SostenutoUp),
	"soft-down":      bindings.MidiTriggerOf(bindings.SoftDown),
	"soft-up":        bindings.MidiTriggerOf(bindings.SoftUp),
}

var actionNames = map[string]msg.StrategyAction{
	"next-neighbourhood":       msg.IncrementNeighbourhoodIndex,
	"previous-neighbourhood":   msg.DecrementNeighbourhoodIndex,
	"set-reference-to-lowest":  msg.SetReferenceToLowest,
	"set-reference-to-highest": msg.SetReferenceToHighest,
}

// BuildBindings resolves the trigger/action names of the document.
// Triggers that are not one of the pedal edges are keyboard key names.
func (c *Complete) BuildBindings() (*bindings.Bindings, error) {
	b := bindings.New()
	for _, bc := range c.Bindings {
		action, ok := actionNames[bc.Action]
		if !ok {
			return nil, fmt.Errorf("config: unknown binding action %q", bc.Action)
		}
		trigger, ok := triggerNames[bc.Trigger]
		if !ok {
			trigger = bindings.KeyTriggerOf(bc.Trigger)
		}
		b.Insert(trigger, action)
	}
	return b, nil
}

// BuildTemperaments realizes every temperament definition against basis.
// A realization failure (indeterminate system, key-span mismatch) rejects
// the whole document; realization never fails at event time.
func (c *Complete) BuildTemperaments(basis *interval.Basis) ([]*interval.Temperament, error) {
	out := make([]*interval.Temperament, len(c.TemperamentDefinitions))
	for i, tc := range c.TemperamentDefinitions {
		t := &interval.Temperament{Name: tc.Name, Tempered: tc.Tempered, Pure: tc.Pure}
		if err := t.Realize(basis); err != nil {
			return nil, fmt.Errorf("config: temperament %q: %w", tc.Name, err)
		}
		out[i] = t
	}
	return out, nil
}

// BuildNamedIntervals parses the rational coefficient strings.
func (c *Complete) BuildNamedIntervals(n int) ([]interval.NamedInterval, error) {
	out := make([]interval.NamedInterval, len(c.NamedIntervals))
	for i, nc := range c.NamedIntervals {
		if len(nc.Coeffs) != n {
			return nil, fmt.Errorf("config: named interval %q has %d coeffs, want %d", nc.Name, len(nc.Coeffs), n)
		}
		coeffs := make([]*big.Rat, n)
		for j, s := range nc.Coeffs {
			r, ok := new(big.Rat).SetString(s)
			if !ok {
				return nil, fmt.Errorf("config: named interval %q: bad rational %q", nc.Name, s)
			}
			coeffs[j] = r
		}
		short := ' '
		for _, r := range nc.ShortName {
			short = r
			break
		}
		out[i] = interval.NamedInterval{Name: nc.Name, ShortName: short, Coeffs: coeffs}
	}
	return out, nil
}

func extractEntries(entries []harmony.NeighbourhoodEntry) [][]int64 {
	out := make([][]int64, len(entries))
	for i, e := range entries {
		out[i] = append([]int64(nil), e.Target...)
	}
	return out
}

func extractStaticTuning(mc melody.Config) StaticTuningConfig {
	ns := make([]NeighbourhoodConfig, len(mc.Neighbourhoods))
	for i, nc := range mc.Neighbourhoods {
		ns[i] = NeighbourhoodConfig{
			Complete:    nc.Complete,
			PeriodIndex: nc.PeriodIndex,
			Entries:     extractEntries(nc.Entries),
		}
	}
	return StaticTuningConfig{
		Neighbourhoods: ns,
		TuningReference: ReferenceConfig{
			Stack:           append([]int64(nil), mc.TuningReference.Stack.Target...),
			C4MidiSemitones: mc.TuningReference.C4MidiSemitones,
		},
		Reference: append([]int64(nil), mc.Reference...),
	}
}

// ExtractProcessConfig converts a live strategy's configuration back into
// the document's process section, for GetCurrentConfig and saving.
func ExtractProcessConfig(sc strategy.Config) ProcessConfig {
	patterns := make([]PatternConfig, len(sc.Harmony.Patterns))
	for i, p := range sc.Harmony.Patterns {
		keyshape := ClassesRelative
		if p.AbsoluteClasses {
			keyshape = AbsoluteClasses
		}
		patterns[i] = PatternConfig{
			Name:                p.Name,
			Keyshape:            keyshape,
			Classes:             append([]int(nil), p.Classes...),
			AllowExtraHighNotes: p.AllowExtraHighNotes,
			Neighbourhood:       extractEntries(p.Neighbourhood),
		}
	}

	var melodyCfg MelodyConfig
	if sc.MelodyIsOverlay {
		melodyCfg.Neighbourhoods = &NeighbourhoodsConfig{
			Fixed:        sc.Overlay.Fixed,
			GroupMs:      sc.Overlay.GroupMs,
			StaticTuning: extractStaticTuning(sc.Overlay.Inner),
		}
	} else {
		st := extractStaticTuning(sc.Melody)
		melodyCfg.StaticTuning = &st
	}

	return ProcessConfig{TwoStep: &TwoStepConfig{
		Harmony: HarmonyConfig{ChordList: ChordListConfig{Enabled: sc.Harmony.Enabled, Patterns: patterns}},
		Melody:  melodyCfg,
	}}
}

// Default returns a playable out-of-the-box configuration: 5-limit just
// major- and minor-triad patterns over a 5-limit just chromatic base
// neighbourhood, channels 1-9 and 11-13 (channel 10 left to GM
// percussion), bend range 2.
func Default() *Complete {
	return &Complete{
		Process: ProcessConfig{TwoStep: &TwoStepConfig{
			Harmony: HarmonyConfig{ChordList: ChordListConfig{
				Enabled: true,
				Patterns: []PatternConfig{
					{
						Name:                "major triad",
						Classes:             []int{0, 4, 7},
						AllowExtraHighNotes: true,
						Neighbourhood:       [][]int64{{0, 0, 0}, {0, 0, 1}, {0, 1, 0}},
					},
					{
						Name:                "minor triad",
						Classes:             []int{0, 3, 7},
						AllowExtraHighNotes: true,
						Neighbourhood:       [][]int64{{0, 0, 0}, {0, 1, -1}, {0, 1, 0}},
					},
				},
			}},
			Melody: MelodyConfig{Neighbourhoods: &NeighbourhoodsConfig{
				Fixed:   false,
				GroupMs: 30,
				StaticTuning: StaticTuningConfig{
					Neighbourhoods: []NeighbourhoodConfig{{
						Complete:    true,
						PeriodIndex: 0,
						// the 5-limit just chromatic scale on C
						Entries: [][]int64{
							{0, 0, 0},   // 1/1
							{1, -1, -1}, // 16/15
							{-1, 2, 0},  // 9/8
							{0, 1, -1},  // 6/5
							{0, 0, 1},   // 5/4
							{1, -1, 0},  // 4/3
							{-1, 2, 1},  // 45/32
							{0, 1, 0},   // 3/2
							{1, 0, -1},  // 8/5
							{1, -1, 1},  // 5/3
							{0, 2, -1},  // 9/5
							{0, 1, 1},   // 15/8
						},
					}},
					TuningReference: ReferenceConfig{Stack: []int64{0, 0, 0}, C4MidiSemitones: 60},
					Reference:       []int64{0, 0, 0}, // the lattice's 0 sits at C4
				},
			}},
		}},
		Backend: BackendConfig{Pitchbend12: Pitchbend12Config{
			BendRange: 2,
			Channels:  []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 11, 12, 13},
		}},
		Gui: GuiConfig{RefreshMs: 50, LatencySamples: 32, ShowLatency: true},
		Bindings: []BindingConfig{
			{Trigger: "sostenuto-down", Action: "next-neighbourhood"},
			{Trigger: "soft-down", Action: "set-reference-to-lowest"},
		},
		TemperamentDefinitions: []TemperamentConfig{{
			Name: "quarter-comma meantone",
			// four fifths tempered to a major third plus two octaves
			Tempered: [][]int64{{1, 0, 0}, {0, 4, 0}, {0, 0, 1}},
			Pure:     [][]int64{{1, 0, 0}, {2, 0, 1}, {0, 0, 1}},
		}},
		NamedIntervals: []NamedInterval{{
			Name:      "syntonic comma",
			ShortName: "s",
			Coeffs:    []string{"-2", "4", "-1"},
		}},
	}
}
