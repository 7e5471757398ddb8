package hal

import (
	"math"
	"math/rand/v2"
	"sync"
	"time"
)

// fullScale is the top of the 12-bit code range.
const fullScale = 1<<12 - 1

// SimDevice emulates the measurement circuit in software: a capacitor
// charged through a resistor from a fixed supply and discharged through
// the measured device. It implements both AnalogReader and RelayActuator,
// so the daemon can run against it on machines without the real circuit.
//
// The voltage follows a first-order exponential toward full scale while
// the charge relay is closed and toward zero while the discharge relay is
// closed; with both relays open the capacitor holds its charge. Readings
// carry a couple of codes of noise.
type SimDevice struct {
	mu sync.Mutex

	chargeClosed    bool
	dischargeClosed bool

	code float64
	last time.Time

	chargeTau    time.Duration
	dischargeTau time.Duration
	rng          *rand.Rand
}

var (
	_ AnalogReader  = (*SimDevice)(nil)
	_ RelayActuator = (*SimDevice)(nil)
)

// NewSimDevice creates a simulator with the given charge and discharge
// time constants. Non-positive constants fall back to 2s and 5s. The
// seed fixes the noise sequence.
func NewSimDevice(chargeTau, dischargeTau time.Duration, seed uint64) *SimDevice {
	if chargeTau <= 0 {
		chargeTau = 2 * time.Second
	}
	if dischargeTau <= 0 {
		dischargeTau = 5 * time.Second
	}
	return &SimDevice{
		last:         time.Now(),
		chargeTau:    chargeTau,
		dischargeTau: dischargeTau,
		rng:          rand.New(rand.NewPCG(seed, seed)),
	}
}

// step integrates the capacitor voltage up to now. Callers hold the lock.
func (s *SimDevice) step(now time.Time) {
	dt := now.Sub(s.last)
	if dt <= 0 {
		return
	}
	s.last = now

	var target float64
	var tau time.Duration
	switch {
	case s.chargeClosed:
		target, tau = fullScale, s.chargeTau
	case s.dischargeClosed:
		target, tau = 0, s.dischargeTau
	default:
		return
	}

	factor := 1 - math.Exp(-dt.Seconds()/tau.Seconds())
	s.code += (target - s.code) * factor
}

// ReadChannel returns the current capacitor code with a little noise.
func (s *SimDevice) ReadChannel(ch Channel) (uint16, error) {
	if _, err := ch.config(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.step(time.Now())
	code := s.code + float64(s.rng.IntN(5)-2)
	if code < 0 {
		code = 0
	}
	if code > fullScale {
		code = fullScale
	}
	return uint16(code), nil
}

// Set switches one simulated relay.
func (s *SimDevice) Set(r Relay, closed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.step(time.Now())
	switch r {
	case RelayCharge:
		s.chargeClosed = closed
	case RelayDischarge:
		s.dischargeClosed = closed
	}
	return nil
}
