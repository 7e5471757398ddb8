// Package meter implements the measurement core: a sampling controller
// that cycles a capacitor between charge and discharge through a relay
// pair, an absolute-time pacer that keeps the sampling cadence free of
// drift, and a recorder that writes the timestamped samples to the log.
//
// Controller and recorder run on dedicated goroutines connected by a
// bounded blocking ring. When the ring fills, backpressure blocks the
// controller rather than dropping records; the tolerable recorder stall
// is ring capacity times the sampling period.
package meter

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"time"

	"github.com/lemeter/lemeter/config"
	"github.com/lemeter/lemeter/internal/hal"
	"github.com/lemeter/lemeter/internal/logging"
	"github.com/lemeter/lemeter/internal/ring"
	"github.com/lemeter/lemeter/internal/rt"
	"golang.org/x/sync/errgroup"
)

var log = logging.Component("meter")

// =============================================================================
// Configuration
// =============================================================================

// Config holds meter configuration.
type Config struct {
	// Frequency is the sampling frequency in Hz.
	Frequency float64

	// LowerThreshold is the code at or below which the capacitor counts
	// as discharged.
	LowerThreshold uint16

	// UpperThreshold is the code at or above which the capacitor counts
	// as charged.
	UpperThreshold uint16

	// Channel is the converter input the capacitor is wired to.
	Channel hal.Channel

	// SettleDelay is the wait between opening one relay and closing the
	// other.
	SettleDelay time.Duration

	// RingCapacity is the record buffer size between controller and
	// recorder.
	RingCapacity int

	// TaskPriority is the SCHED_FIFO priority of the controller; the
	// recorder runs one level below. 0 runs both without real-time
	// scheduling.
	TaskPriority int

	// WriteBufferSize is the recorder's output buffer in bytes.
	WriteBufferSize int
}

// DefaultConfig returns default meter configuration. Frequency and
// thresholds have no defaults and must be set by the caller.
func DefaultConfig() *Config {
	return &Config{
		Channel:         hal.Channel{Input: config.DefaultADCChannel},
		SettleDelay:     config.DefaultSettleDelay,
		RingCapacity:    config.DefaultRingCapacity,
		TaskPriority:    config.DefaultTaskPriority,
		WriteBufferSize: config.DefaultWriteBufferSize,
	}
}

// =============================================================================
// Meter
// =============================================================================

// Meter owns the sampling controller, the recorder, and the ring between
// them.
type Meter struct {
	cfg        *Config
	ring       *ring.Ring
	controller *Controller
	recorder   *Recorder
}

// New creates a Meter measuring through reader and actuator and logging
// to sink.
func New(cfg *Config, reader hal.AnalogReader, actuator hal.RelayActuator, sink io.Writer) *Meter {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	buf := ring.New(cfg.RingCapacity)

	return &Meter{
		cfg:        cfg,
		ring:       buf,
		controller: NewController(cfg, reader, actuator, buf),
		recorder:   NewRecorder(buf, sink, cfg.WriteBufferSize),
	}
}

// Run starts the controller and the recorder and blocks until both have
// stopped. Cancelling ctx begins an orderly shutdown: the controller
// stops sampling and closes the ring, the recorder drains it and flushes
// the sink. A clean cancellation returns nil.
func (m *Meter) Run(ctx context.Context) error {
	period := m.controller.pacer.Period()
	log.Info("meter starting",
		"frequency_hz", m.cfg.Frequency,
		"period", period,
		"lower", m.cfg.LowerThreshold,
		"upper", m.cfg.UpperThreshold,
		"channel", m.cfg.Channel.String(),
		"ring_capacity", m.cfg.RingCapacity,
		"stall_budget", time.Duration(m.cfg.RingCapacity)*period,
		"task_priority", m.cfg.TaskPriority)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		runtime.LockOSThread()
		if p := m.cfg.TaskPriority; p > 0 {
			if err := rt.SetThreadPriority(p); err != nil {
				// The recorder only stops once the ring closes.
				m.ring.Close()
				return fmt.Errorf("controller priority %d: %w", p, err)
			}
		}
		return m.controller.Run(ctx)
	})

	g.Go(func() error {
		runtime.LockOSThread()
		if p := m.cfg.TaskPriority; p > 0 {
			if err := rt.SetThreadPriority(p - 1); err != nil {
				return fmt.Errorf("recorder priority %d: %w", p-1, err)
			}
		}
		return m.recorder.Run()
	})

	err := g.Wait()

	samples, readErrors, transitions, epoch := m.controller.Stats()
	records, bytes, flushes := m.recorder.Stats()
	rs := m.ring.Stats()
	log.Info("meter stopped",
		"samples", samples,
		"records", records,
		"epochs", epoch,
		"transitions", transitions,
		"read_errors", readErrors,
		"bytes", bytes,
		"flushes", flushes,
		"ring_high_water", rs.HighWater)

	if p50, p95, p99, max, ok := m.controller.JitterSummary(); ok {
		log.Info("wakeup lateness",
			"p50_us", p50,
			"p95_us", p95,
			"p99_us", p99,
			"max_us", max)
	}
	for _, s := range []State{StateCharging, StateDischarging} {
		if p50, p95, max, ok := m.controller.PhaseSummary(s); ok {
			log.Info(s.String()+" durations",
				"p50_ms", p50,
				"p95_ms", p95,
				"max_ms", max)
		}
	}

	return err
}
