package meter

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/DataDog/sketches-go/ddsketch"
	"github.com/lemeter/lemeter/internal/hal"
	"github.com/lemeter/lemeter/internal/record"
	"github.com/lemeter/lemeter/internal/ring"
)

// =============================================================================
// State Machine Types
// =============================================================================

// State identifies the phase of the measurement cycle.
type State int

const (
	// StateCharging means the charge relay is closed and the capacitor is
	// filling through the current-limiting resistor. Samples taken in
	// this state only feed threshold detection and are never logged.
	StateCharging State = iota

	// StateDischarging means the discharge relay is closed and the
	// capacitor is draining through the measured device. Every sample
	// taken in this state is logged.
	StateDischarging
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateCharging:
		return "charging"
	case StateDischarging:
		return "discharging"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// =============================================================================
// Controller
// =============================================================================

// Controller runs the charge/discharge cycle: it samples the capacitor
// voltage on the pacer's absolute schedule, switches the relays at the
// configured thresholds, and emits one record per discharging-phase
// sample into the ring.
//
// The controller owns the converter and both relays exclusively. Run is
// the only method that touches them; the atomic counters may be read from
// other goroutines at any time.
type Controller struct {
	reader   hal.AnalogReader
	actuator hal.RelayActuator
	ring     *ring.Ring

	channel hal.Channel
	lower   uint16
	upper   uint16
	settle  time.Duration
	pacer   *Pacer

	// origin is the instant timestamps count from, fixed at bringup.
	origin time.Time
	state  State

	// Statistics
	epoch       atomic.Uint64
	samples     atomic.Int64
	readErrors  atomic.Int64
	transitions atomic.Int64

	// Sketches below are written only by Run; read them after Run has
	// returned. jitter holds wakeup lateness, the other two the time
	// spent in each completed phase.
	jitter        *ddsketch.DDSketch
	chargeTime    *ddsketch.DDSketch
	dischargeTime *ddsketch.DDSketch
	phaseStart    time.Time
}

// NewController creates a Controller reading from reader, switching
// relays through actuator, and producing into buf.
func NewController(cfg *Config, reader hal.AnalogReader, actuator hal.RelayActuator, buf *ring.Ring) *Controller {
	c := &Controller{
		reader:   reader,
		actuator: actuator,
		ring:     buf,
		channel:  cfg.Channel,
		lower:    cfg.LowerThreshold,
		upper:    cfg.UpperThreshold,
		settle:   cfg.SettleDelay,
		pacer:    NewPacer(FrequencyToPeriod(cfg.Frequency)),
	}

	c.jitter = newSketch()
	c.chargeTime = newSketch()
	c.dischargeTime = newSketch()

	return c
}

// =============================================================================
// Sampling Loop
// =============================================================================

// Run drives the measurement until ctx is cancelled or the hardware
// fails. Cancellation is not an error; Run then returns nil with the
// relays in a valid configuration. On every return path the ring is
// closed, so the recorder drains whatever was produced and terminates.
//
// Relay transitions are deliberately not cancellation points: once a
// relay has been commanded open, the sequence always runs through the
// settle wait to its closing command. Cancellation is observed at the
// absolute-time sleep and at the ring put.
func (c *Controller) Run(ctx context.Context) error {
	defer c.ring.Close()

	// Bringup: open the discharge relay first and give it the full
	// settle delay before closing the charge relay. Closing both at
	// once would bypass the current-limiting resistor.
	if err := c.transition(hal.RelayDischarge, hal.RelayCharge); err != nil {
		return err
	}
	c.state = StateCharging
	c.origin = time.Now()
	c.phaseStart = c.origin
	c.pacer.Reset(c.origin)

	for {
		deadline, err := c.pacer.Wait(ctx)
		if err != nil {
			return nil
		}
		if c.jitter != nil {
			c.jitter.Add(time.Since(deadline).Seconds() * 1e6)
		}

		code, err := c.reader.ReadChannel(c.channel)
		now := time.Now()
		if err != nil {
			// Transient: keep state and cadence, drop the sample.
			c.readErrors.Add(1)
			log.Warn("sample read failed", "channel", c.channel.String(), "error", err)
			continue
		}
		c.samples.Add(1)

		switch c.state {
		case StateCharging:
			if code >= c.upper {
				// Charged. Switch to discharging.
				if c.chargeTime != nil {
					c.chargeTime.Add(now.Sub(c.phaseStart).Seconds() * 1e3)
				}
				if err := c.transition(hal.RelayCharge, hal.RelayDischarge); err != nil {
					return err
				}
				c.state = StateDischarging
				epoch := c.epoch.Add(1)
				start := time.Now()
				c.phaseStart = start
				c.pacer.Reset(start)
				log.Debug("discharging", "epoch", epoch, "code", code)
			}

		case StateDischarging:
			// Every discharging sample is recorded, including the
			// one at or below the lower threshold.
			rec := record.Record{
				TimestampNS: uint64(now.Sub(c.origin)),
				Epoch:       c.epoch.Load(),
				Value:       int16(code),
			}
			if err := c.ring.Put(ctx, rec); err != nil {
				return nil
			}

			if code <= c.lower {
				// Discharged. Switch back to charging.
				if c.dischargeTime != nil {
					c.dischargeTime.Add(now.Sub(c.phaseStart).Seconds() * 1e3)
				}
				if err := c.transition(hal.RelayDischarge, hal.RelayCharge); err != nil {
					return err
				}
				c.state = StateCharging
				start := time.Now()
				c.phaseStart = start
				c.pacer.Reset(start)
				log.Debug("charging", "epoch", c.epoch.Load(), "code", code)
			}
		}
	}
}

// transition opens one relay, waits out the settle delay so its contacts
// have released, then closes the other. At most one relay is ever
// commanded closed.
func (c *Controller) transition(toOpen, toClose hal.Relay) error {
	if err := c.actuator.Set(toOpen, false); err != nil {
		return fmt.Errorf("open %s relay: %w", toOpen, err)
	}

	time.Sleep(c.settle)

	if err := c.actuator.Set(toClose, true); err != nil {
		return fmt.Errorf("close %s relay: %w", toClose, err)
	}

	c.transitions.Add(1)
	return nil
}

// =============================================================================
// Statistics
// =============================================================================

// Stats returns controller counters.
func (c *Controller) Stats() (samples, readErrors, transitions int64, epoch uint64) {
	return c.samples.Load(), c.readErrors.Load(), c.transitions.Load(), c.epoch.Load()
}

// JitterSummary returns wakeup lateness percentiles in microseconds.
// Call it only after Run has returned.
func (c *Controller) JitterSummary() (p50, p95, p99, max float64, ok bool) {
	if c.jitter == nil || c.jitter.GetCount() == 0 {
		return 0, 0, 0, 0, false
	}
	p50, _ = c.jitter.GetValueAtQuantile(0.50)
	p95, _ = c.jitter.GetValueAtQuantile(0.95)
	p99, _ = c.jitter.GetValueAtQuantile(0.99)
	max, _ = c.jitter.GetMaxValue()
	return p50, p95, p99, max, true
}

// PhaseSummary returns duration percentiles in milliseconds for the
// completed phases of the given kind. Call it only after Run has
// returned.
func (c *Controller) PhaseSummary(state State) (p50, p95, max float64, ok bool) {
	var sketch *ddsketch.DDSketch
	switch state {
	case StateCharging:
		sketch = c.chargeTime
	case StateDischarging:
		sketch = c.dischargeTime
	}
	if sketch == nil || sketch.GetCount() == 0 {
		return 0, 0, 0, false
	}
	p50, _ = sketch.GetValueAtQuantile(0.50)
	p95, _ = sketch.GetValueAtQuantile(0.95)
	max, _ = sketch.GetMaxValue()
	return p50, p95, max, true
}

// newSketch returns a DDSketch with 1% relative accuracy, or nil if the
// sketch cannot be built. Every write site nil-checks first.
func newSketch() *ddsketch.DDSketch {
	sketch, err := ddsketch.NewDefaultDDSketch(0.01)
	if err != nil {
		return nil
	}
	return sketch
}
