package hal

import (
	"testing"
	"time"

	"github.com/lemeter/lemeter/internal/errors"
)

func TestSimDevice_Charges(t *testing.T) {
	sim := NewSimDevice(20*time.Millisecond, 20*time.Millisecond, 1)
	ch := Channel{Input: 0}

	before, err := sim.ReadChannel(ch)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	if err := sim.Set(RelayCharge, true); err != nil {
		t.Fatalf("close charge relay: %v", err)
	}
	time.Sleep(80 * time.Millisecond)

	after, err := sim.ReadChannel(ch)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	// Four time constants in: well past 3/4 of full scale
	if after <= before+1000 {
		t.Errorf("capacitor did not charge: before=%d after=%d", before, after)
	}
	if after < 3000 {
		t.Errorf("expected charge above 3000 after 4 tau, got %d", after)
	}
}

func TestSimDevice_Discharges(t *testing.T) {
	sim := NewSimDevice(10*time.Millisecond, 10*time.Millisecond, 2)
	ch := Channel{Input: 0}

	sim.Set(RelayCharge, true)
	time.Sleep(80 * time.Millisecond)
	sim.Set(RelayCharge, false)
	sim.Set(RelayDischarge, true)

	charged, err := sim.ReadChannel(ch)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	time.Sleep(80 * time.Millisecond)

	drained, err := sim.ReadChannel(ch)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	if drained+1000 >= charged {
		t.Errorf("capacitor did not discharge: charged=%d drained=%d", charged, drained)
	}
	if drained > 1000 {
		t.Errorf("expected drain below 1000 after 8 tau, got %d", drained)
	}
}

func TestSimDevice_HoldsWhenOpen(t *testing.T) {
	sim := NewSimDevice(10*time.Millisecond, 10*time.Millisecond, 3)
	ch := Channel{Input: 0}

	sim.Set(RelayCharge, true)
	time.Sleep(50 * time.Millisecond)
	sim.Set(RelayCharge, false)

	before, _ := sim.ReadChannel(ch)
	time.Sleep(50 * time.Millisecond)
	after, _ := sim.ReadChannel(ch)

	diff := int(after) - int(before)
	if diff < -10 || diff > 10 {
		t.Errorf("open circuit should hold charge, drifted %d codes", diff)
	}
}

func TestSimDevice_InvalidChannel(t *testing.T) {
	sim := NewSimDevice(0, 0, 4)
	if _, err := sim.ReadChannel(Channel{Input: 12}); !errors.Is(err, errors.ErrInvalidChannel) {
		t.Errorf("expected ErrInvalidChannel, got %v", err)
	}
}
