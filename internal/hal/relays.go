package hal

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
)

// RelayPair drives the charge and discharge relays through two GPIO
// outputs. A high level energizes (closes) a relay.
type RelayPair struct {
	charge    gpio.PinOut
	discharge gpio.PinOut
}

var _ RelayActuator = (*RelayPair)(nil)

// NewRelayPair configures both pins as outputs with both relays open.
func NewRelayPair(charge, discharge gpio.PinOut) (*RelayPair, error) {
	if err := charge.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("init charge pin %s: %w", charge, err)
	}
	if err := discharge.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("init discharge pin %s: %w", discharge, err)
	}
	return &RelayPair{charge: charge, discharge: discharge}, nil
}

// Set commands one relay.
func (p *RelayPair) Set(r Relay, closed bool) error {
	var pin gpio.PinOut
	switch r {
	case RelayCharge:
		pin = p.charge
	case RelayDischarge:
		pin = p.discharge
	default:
		return fmt.Errorf("unknown relay %d", int(r))
	}
	if err := pin.Out(gpio.Level(closed)); err != nil {
		return fmt.Errorf("set %s relay on %s: %w", r, pin, err)
	}
	return nil
}
