package hal

import (
	"errors"
	"testing"
)

func TestScriptReader_ReplaysAndRepeatsLast(t *testing.T) {
	busErr := errors.New("bus glitch")
	s := NewScriptReader(
		Reading{Code: 100},
		Reading{Err: busErr},
		Reading{Code: 300},
	)
	ch := Channel{Input: 0}

	if code, err := s.ReadChannel(ch); err != nil || code != 100 {
		t.Errorf("read 1 = (%d, %v), want (100, nil)", code, err)
	}
	if _, err := s.ReadChannel(ch); !errors.Is(err, busErr) {
		t.Errorf("read 2 error = %v, want scripted error", err)
	}

	// The final reading repeats forever
	for i := 0; i < 3; i++ {
		if code, err := s.ReadChannel(ch); err != nil || code != 300 {
			t.Errorf("read %d = (%d, %v), want (300, nil)", i+3, code, err)
		}
	}

	if got := s.Reads(); got != 5 {
		t.Errorf("Reads() = %d, want 5", got)
	}
}

func TestScriptReader_Empty(t *testing.T) {
	s := NewScriptReader()
	if _, err := s.ReadChannel(Channel{Input: 0}); err == nil {
		t.Error("empty script should return an error")
	}
}

func TestRecordingActuator_TracksOverlap(t *testing.T) {
	a := NewRecordingActuator()

	if err := a.Set(RelayCharge, true); err != nil {
		t.Fatalf("set: %v", err)
	}
	if a.Overlaps() != 0 {
		t.Error("closing one relay is not an overlap")
	}

	// Closing the other while the first is still closed is the hazard
	if err := a.Set(RelayDischarge, true); err != nil {
		t.Fatalf("set: %v", err)
	}
	if a.Overlaps() != 1 {
		t.Errorf("expected 1 overlap, got %d", a.Overlaps())
	}

	a.Set(RelayDischarge, false)
	a.Set(RelayCharge, false)
	a.Set(RelayDischarge, true)
	if a.Overlaps() != 1 {
		t.Errorf("break-before-make sequence should not add overlaps, got %d", a.Overlaps())
	}

	events := a.Events()
	if len(events) != 5 {
		t.Fatalf("expected 5 events, got %d", len(events))
	}
	if !a.IsClosed(RelayDischarge) || a.IsClosed(RelayCharge) {
		t.Error("commanded state mismatch after sequence")
	}
}
