// Package hal abstracts the meter's hardware: the analog-to-digital
// converter measuring the capacitor voltage and the relay pair steering
// charge and discharge current.
//
// The sampling logic depends only on the two small interfaces here, so it
// runs unchanged against the real Raspberry Pi peripherals (MCP320x,
// RelayPair), the scripted fakes used by tests (ScriptReader,
// RecordingActuator), or the software circuit simulator (SimDevice).
package hal

import (
	"fmt"

	"github.com/lemeter/lemeter/internal/errors"
)

// AnalogReader reads the capacitor voltage as a raw converter code.
type AnalogReader interface {
	// ReadChannel performs exactly one bus transaction that selects the
	// channel and receives the sample in the same exchange, returning
	// the 12-bit code.
	ReadChannel(ch Channel) (uint16, error)
}

// Relay identifies one of the two relays in the measurement circuit.
type Relay int

const (
	// RelayCharge connects the supply to the capacitor through the
	// current-limiting resistor.
	RelayCharge Relay = iota

	// RelayDischarge connects the capacitor across the measured device.
	RelayDischarge
)

// String returns the relay name.
func (r Relay) String() string {
	switch r {
	case RelayCharge:
		return "charge"
	case RelayDischarge:
		return "discharge"
	default:
		return fmt.Sprintf("Relay(%d)", int(r))
	}
}

// RelayActuator drives the relay outputs. Implementations only set
// levels; the break-before-make ordering and the settle delay between
// opening one relay and closing the other are enforced by the caller.
type RelayActuator interface {
	// Set commands one relay: closed=true energizes it.
	Set(r Relay, closed bool) error
}

// Channel identifies an input multiplexer configuration of the
// MCP3204/3208 family.
type Channel struct {
	// Input is the channel select, 0-7 (0-3 on the 4-channel MCP3204).
	// In differential mode it selects the IN+/IN- pairing as defined by
	// the datasheet: 0 is CH0+/CH1-, 1 is CH1+/CH0-, 2 is CH2+/CH3-,
	// and so on.
	Input int

	// Differential selects paired-input mode instead of single-ended.
	Differential bool
}

// config returns the start/mode/channel bit pattern sent as the first
// byte of the exchange.
func (c Channel) config() (byte, error) {
	if c.Input < 0 || c.Input > 7 {
		return 0, fmt.Errorf("%w: input %d", errors.ErrInvalidChannel, c.Input)
	}
	cfg := startBit | byte(c.Input)<<3
	if !c.Differential {
		cfg |= singleEndedBit
	}
	return cfg, nil
}

// String returns a short channel description, e.g. "CH0" or "CH2-CH3".
func (c Channel) String() string {
	if !c.Differential {
		return fmt.Sprintf("CH%d", c.Input)
	}
	pair := c.Input ^ 1
	return fmt.Sprintf("CH%d-CH%d", c.Input, pair)
}
