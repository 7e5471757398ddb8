// lemeterd measures the energy consumption of a low-power device by
// cycling a capacitor between charge and discharge relays and logging
// the capacitor voltage while the device drains it.
package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"github.com/lemeter/lemeter/config"
	"github.com/lemeter/lemeter/internal/hal"
	"github.com/lemeter/lemeter/internal/loader"
	"github.com/lemeter/lemeter/internal/logging"
	"github.com/lemeter/lemeter/internal/meter"
	"github.com/lemeter/lemeter/internal/rt"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	// CLI flags
	cfgPath := flag.String("config", "", "config file path")
	freq := flag.Float64("freq", 0, "sampling frequency in Hz (required)")
	lower := flag.Int("lower", 0, "lower threshold ADC code (required)")
	upper := flag.Int("upper", 0, "upper threshold ADC code (required)")
	out := flag.String("out", "", "record log path, - for stdout (required)")
	priority := flag.Int("priority", config.DefaultTaskPriority,
		"SCHED_FIFO priority of the sampling loop, 0 disables real-time scheduling")
	mock := flag.Bool("mock", false, "run against the simulated circuit instead of SPI/GPIO")
	logLevel := flag.String("log-level", config.DefaultLogLevel, "diagnostic level: debug, info, warn, error")
	logJSON := flag.Bool("log-json", false, "JSON diagnostics")
	flag.Parse()

	setFlags := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = true })

	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds | log.Lshortfile)
	log.Printf("lemeterd %s starting...", Version)

	// Load config
	cfg := loader.DefaultConfig()
	if *cfgPath != "" {
		var err error
		cfg, err = loader.Load(*cfgPath)
		if err != nil {
			log.Fatalf("Load config: %v", err)
		}
	}

	// CLI overrides
	if setFlags["freq"] {
		cfg.Meter.FrequencyHz = *freq
	}
	if setFlags["lower"] {
		cfg.Meter.LowerThreshold = *lower
	}
	if setFlags["upper"] {
		cfg.Meter.UpperThreshold = *upper
	}
	if setFlags["out"] {
		cfg.Meter.Output = *out
	}
	if setFlags["priority"] {
		cfg.Meter.TaskPriority = *priority
	}
	if setFlags["log-level"] {
		cfg.Logging.Level = *logLevel
	}
	if setFlags["log-json"] {
		cfg.Logging.JSON = *logJSON
	}

	// The simulator needs no privileges; real-time scheduling stays off
	// unless asked for explicitly.
	if *mock && !setFlags["priority"] {
		cfg.Meter.TaskPriority = 0
	}

	// Validate before touching hardware or the sink
	if err := loader.Validate(cfg); err != nil {
		log.Printf("Invalid configuration: %v", err)
		flag.Usage()
		os.Exit(1)
	}

	level, _ := logging.ParseLevel(cfg.Logging.Level)
	logging.Init(level, cfg.Logging.JSON)

	// =========================================================================
	// Hardware or simulator
	// =========================================================================

	var (
		reader   hal.AnalogReader
		actuator hal.RelayActuator
	)

	if *mock {
		log.Printf("Using simulated circuit")
		sim := hal.NewSimDevice(0, 0, 1)
		reader, actuator = sim, sim
	} else {
		if _, err := host.Init(); err != nil {
			log.Fatalf("Init host: %v", err)
		}

		port, err := spireg.Open(cfg.Hardware.SPIDevice)
		if err != nil {
			log.Fatalf("Open SPI port %q: %v", cfg.Hardware.SPIDevice, err)
		}
		defer port.Close()

		adc, err := hal.NewMCP320x(port, physic.Frequency(cfg.Hardware.SPIClockHz)*physic.Hertz)
		if err != nil {
			log.Fatalf("Connect ADC: %v", err)
		}
		reader = adc

		chargePin := gpioreg.ByName(cfg.Hardware.ChargePin)
		if chargePin == nil {
			log.Fatalf("No GPIO pin %q", cfg.Hardware.ChargePin)
		}
		dischargePin := gpioreg.ByName(cfg.Hardware.DischargePin)
		if dischargePin == nil {
			log.Fatalf("No GPIO pin %q", cfg.Hardware.DischargePin)
		}

		relays, err := hal.NewRelayPair(chargePin, dischargePin)
		if err != nil {
			log.Fatalf("Init relays: %v", err)
		}
		actuator = relays
	}

	// =========================================================================
	// Record sink
	// =========================================================================

	var sink io.Writer
	if cfg.Meter.Output == "-" {
		sink = os.Stdout
		log.Printf("Recording to stdout")
	} else {
		f, err := os.Create(cfg.Meter.Output)
		if err != nil {
			log.Fatalf("Create log %q: %v", cfg.Meter.Output, err)
		}
		defer f.Close()
		sink = f
		log.Printf("Recording to %s", cfg.Meter.Output)
	}

	// =========================================================================
	// Real-time setup
	// =========================================================================

	if p := cfg.Meter.TaskPriority; p > 0 {
		if err := rt.LockMemory(); err != nil {
			log.Fatalf("Lock memory: %v (needs CAP_IPC_LOCK or a higher RLIMIT_MEMLOCK)", err)
		}
		rt.PrefaultStack(64 << 10)
		log.Printf("Memory locked, task priority %d", p)
	}

	// =========================================================================
	// Run
	// =========================================================================

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		log.Println("Shutting down...")
	}()

	m := meter.New(&meter.Config{
		Frequency:      cfg.Meter.FrequencyHz,
		LowerThreshold: uint16(cfg.Meter.LowerThreshold),
		UpperThreshold: uint16(cfg.Meter.UpperThreshold),
		Channel: hal.Channel{
			Input:        cfg.Hardware.ADCChannel,
			Differential: cfg.Hardware.ADCDifferential,
		},
		SettleDelay:     cfg.Hardware.SettleDelay.Duration(),
		RingCapacity:    cfg.Meter.RingCapacity,
		TaskPriority:    cfg.Meter.TaskPriority,
		WriteBufferSize: cfg.Output.WriteBufferSize,
	}, reader, actuator, sink)

	if err := m.Run(ctx); err != nil {
		log.Fatalf("Meter error: %v", err)
	}
}
