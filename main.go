package main

import (
	"fmt"
	"os"
	"os/signal"
	"time"

	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // autoregisters the OS MIDI driver

	"github.com/carlhammann/adaptuner-go/backend"
	"github.com/carlhammann/adaptuner-go/config"
	"github.com/carlhammann/adaptuner-go/engine"
	"github.com/carlhammann/adaptuner-go/interval"
	"github.com/carlhammann/adaptuner-go/midiio"
	"github.com/carlhammann/adaptuner-go/msg"
	"github.com/carlhammann/adaptuner-go/process"
	"github.com/carlhammann/adaptuner-go/tui"
)

// Flags (can also come from the environment, see parseArgs)
var (
	inPortName  string
	outPortName string
	headless    bool
)

func main() {
	args := parseArgs(os.Args[1:])

	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	command := args[0]

	switch command {
	case "run":
		configPath := ""
		if len(args) >= 2 {
			configPath = args[1]
		}
		runEngine(configPath)
	case "check":
		if len(args) < 2 {
			fmt.Println("Error: check requires a config file")
			printUsage()
			os.Exit(1)
		}
		checkConfig(args[1])
	case "init":
		outputPath := "adaptuner.yaml"
		if len(args) >= 2 {
			outputPath = args[1]
		}
		writeDefaultConfig(outputPath)
	case "ports":
		listPorts()
	default:
		printUsage()
		os.Exit(1)
	}
}

// parseArgs extracts flags and returns remaining args
func parseArgs(args []string) []string {
	var remaining []string

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch arg {
		case "--in", "-i":
			if i+1 < len(args) {
				inPortName = args[i+1]
				i++
			} else {
				fmt.Println("Error: --in requires a port name")
				os.Exit(1)
			}
		case "--out", "-o":
			if i+1 < len(args) {
				outPortName = args[i+1]
				i++
			} else {
				fmt.Println("Error: --out requires a port name")
				os.Exit(1)
			}
		case "--headless":
			headless = true
		case "--help", "-h":
			printUsage()
			os.Exit(0)
		default:
			remaining = append(remaining, arg)
		}
	}

	// Also check environment variables
	if inPortName == "" {
		inPortName = os.Getenv("ADAPTUNER_IN")
	}
	if outPortName == "" {
		outPortName = os.Getenv("ADAPTUNER_OUT")
	}

	return remaining
}

func loadConfig(configPath string) *config.Complete {
	if configPath == "" {
		return config.Default()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func runEngine(configPath string) {
	cfg := loadConfig(configPath)
	basis := interval.FiveLimitBasis()
	now := time.Now()

	if _, err := cfg.BuildTemperaments(basis); err != nil {
		fmt.Fprintf(os.Stderr, "Error in config: %v\n", err)
		os.Exit(1)
	}

	binds, err := cfg.BuildBindings()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error in config: %v\n", err)
		os.Exit(1)
	}

	b, err := backend.New(cfg.BuildBackendConfig(), now)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error in config: %v\n", err)
		os.Exit(1)
	}

	eng := engine.New()
	strat, err := cfg.BuildStrategy(basis, eng.ToProcess)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error in config: %v\n", err)
		os.Exit(1)
	}

	p := process.New(basis, strat, binds, cfg.Backend.Pitchbend12.BendRange, now)

	var in midiio.In
	var out midiio.Out
	eng.Start(p, b, &in, &out)
	defer eng.Stop()

	if inPortName != "" {
		eng.ToMidiIn <- msg.ConnectIn{PortName: inPortName, Time: time.Now()}
	}
	if outPortName != "" {
		eng.ToMidiOut <- msg.ConnectOut{PortName: outPortName, Time: time.Now()}
	}

	if headless {
		runHeadless(eng)
		return
	}

	model := tui.NewModel(eng, binds, tui.Options{
		RefreshMs:      cfg.Gui.RefreshMs,
		LatencySamples: cfg.Gui.LatencySamples,
		ShowLatency:    cfg.Gui.ShowLatency,
	})
	if err := tui.Run(model); err != nil {
		fmt.Fprintf(os.Stderr, "Error running display: %v\n", err)
		os.Exit(1)
	}
}

// runHeadless logs diagnostics to the terminal until interrupted.
func runHeadless(eng *engine.Engine) {
	fmt.Println("Running... (Press Ctrl+C to stop)")

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	for {
		select {
		case <-interrupt:
			fmt.Println("\nStopping.")
			return
		case ev := <-eng.ToUI:
			switch e := ev.(type) {
			case msg.MidiParseErr:
				fmt.Fprintf(os.Stderr, "unparseable MIDI: %s\n", e.Reason)
			case msg.BackendDetunedNote:
				fmt.Fprintf(os.Stderr, "detuned note %d: wanted %.3f, playing %.3f (%s)\n",
					e.Note, e.ShouldBe, e.Actual, e.Explanation)
			case msg.MidiInConnectionError:
				fmt.Fprintf(os.Stderr, "input connection: %s\n", e.Reason)
			case msg.MidiOutConnectionError:
				fmt.Fprintf(os.Stderr, "output connection: %s\n", e.Reason)
			}
		}
	}
}

func checkConfig(configPath string) {
	cfg := loadConfig(configPath)
	basis := interval.FiveLimitBasis()

	if _, err := cfg.BuildTemperaments(basis); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if _, err := cfg.BuildNamedIntervals(basis.Len()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if _, err := cfg.BuildBindings(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if _, err := backend.New(cfg.BuildBackendConfig(), time.Now()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	eng := engine.New()
	if _, err := cfg.BuildStrategy(basis, eng.ToProcess); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✓ %s is a valid configuration\n", configPath)
}

func writeDefaultConfig(outputPath string) {
	if _, err := os.Stat(outputPath); err == nil {
		fmt.Fprintf(os.Stderr, "Error: %s already exists\n", outputPath)
		os.Exit(1)
	}
	if err := config.Save(outputPath, config.Default()); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing config: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✓ Wrote default configuration to %s\n", outputPath)
}

func listPorts() {
	fmt.Println("Available MIDI input ports:")
	ins := midiio.AvailablePorts()
	if len(ins) == 0 {
		fmt.Println("  (none)")
	}
	for _, name := range ins {
		fmt.Printf("  %s\n", name)
	}

	fmt.Println()
	fmt.Println("Available MIDI output ports:")
	outs := midiio.AvailableOutPorts()
	if len(outs) == 0 {
		fmt.Println("  (none)")
	}
	for _, name := range outs {
		fmt.Printf("  %s\n", name)
	}
}

func printUsage() {
	fmt.Println("adaptuner — adaptive microtuning engine")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  adaptuner run [config.yaml]       Run the engine (default config if omitted)")
	fmt.Println("  adaptuner check <config.yaml>     Validate a configuration file")
	fmt.Println("  adaptuner init [out.yaml]         Write the default configuration")
	fmt.Println("  adaptuner ports                   List available MIDI ports")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --in, -i <port>    Connect this MIDI input port at startup")
	fmt.Println("  --out, -o <port>   Connect this MIDI output port at startup")
	fmt.Println("  --headless         Log to the terminal instead of the live display")
	fmt.Println("  --help, -h         Show this help")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  ADAPTUNER_IN       Default input port name")
	fmt.Println("  ADAPTUNER_OUT      Default output port name")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  adaptuner ports")
	fmt.Println("  adaptuner init my-tuning.yaml")
	fmt.Println("  adaptuner run --in 'USB Keyboard' --out 'FluidSynth' my-tuning.yaml")
}
