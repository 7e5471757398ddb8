package hal

import (
	"errors"
	"sync"
	"time"
)

// Reading is one scripted converter response.
type Reading struct {
	Code uint16
	Err  error
}

// ScriptReader replays a fixed sequence of readings to the sampling loop.
// When the script is exhausted it keeps returning the final reading, so a
// test can script the interesting prefix and let the loop idle on the
// tail value until cancelled.
type ScriptReader struct {
	mu       sync.Mutex
	readings []Reading
	pos      int
	reads    int
}

var _ AnalogReader = (*ScriptReader)(nil)

// NewScriptReader creates a reader that serves the given readings in order.
func NewScriptReader(readings ...Reading) *ScriptReader {
	return &ScriptReader{readings: readings}
}

// ReadChannel serves the next scripted reading regardless of channel.
func (s *ScriptReader) ReadChannel(Channel) (uint16, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.readings) == 0 {
		return 0, errors.New("empty script")
	}
	r := s.readings[s.pos]
	if s.pos < len(s.readings)-1 {
		s.pos++
	}
	s.reads++
	return r.Code, r.Err
}

// Reads returns how many readings have been served.
func (s *ScriptReader) Reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

// SwitchEvent is one recorded relay actuation.
type SwitchEvent struct {
	Relay  Relay
	Closed bool
	At     time.Time
}

// RecordingActuator captures relay commands for tests and tracks the
// safety invariant that at most one relay is commanded closed at a time.
type RecordingActuator struct {
	mu       sync.Mutex
	events   []SwitchEvent
	closed   [2]bool
	overlaps int
	err      error
}

var _ RelayActuator = (*RecordingActuator)(nil)

// NewRecordingActuator creates an actuator with both relays open.
func NewRecordingActuator() *RecordingActuator {
	return &RecordingActuator{}
}

// Set records the command and updates the commanded relay states.
func (a *RecordingActuator) Set(r Relay, closed bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.err != nil {
		return a.err
	}
	if r != RelayCharge && r != RelayDischarge {
		return errors.New("unknown relay")
	}

	other := RelayCharge
	if r == RelayCharge {
		other = RelayDischarge
	}
	if closed && a.closed[other] {
		a.overlaps++
	}

	a.closed[r] = closed
	a.events = append(a.events, SwitchEvent{Relay: r, Closed: closed, At: time.Now()})
	return nil
}

// FailWith makes every subsequent Set return err.
func (a *RecordingActuator) FailWith(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.err = err
}

// Events returns a copy of all recorded actuations in order.
func (a *RecordingActuator) Events() []SwitchEvent {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]SwitchEvent, len(a.events))
	copy(out, a.events)
	return out
}

// Overlaps returns how many times a relay was commanded closed while the
// other was still closed. Any value above zero is a safety violation.
func (a *RecordingActuator) Overlaps() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.overlaps
}

// IsClosed reports the commanded state of one relay.
func (a *RecordingActuator) IsClosed(r Relay) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if r != RelayCharge && r != RelayDischarge {
		return false
	}
	return a.closed[r]
}
