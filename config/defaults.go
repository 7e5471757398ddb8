// Package config provides configuration defaults and utilities
// for the lemeter application.
//
// This package defines all configurable constants with documented defaults.
// Users can override these values via config.yaml or command-line flags.
package config

import "time"

// =============================================================================
// Sampling Defaults
// =============================================================================

const (
	// DefaultTaskPriority is the SCHED_FIFO priority of the sampling loop.
	// The recorder runs one level below it so it can never delay sampling
	// on a single core. Set to 0 to run without real-time scheduling.
	// Override via flag: -priority, or config: meter.task_priority
	DefaultTaskPriority = 49

	// DefaultADCChannel is the ADC input the capacitor voltage is wired to.
	// Override via config: hardware.adc_channel
	DefaultADCChannel = 0

	// DefaultSettleDelay is the wait after opening a relay before closing
	// the opposing one. Relays release within about 10 ms per datasheet,
	// so 100 ms leaves a wide safety margin against a shoot-through path.
	// Override via config: hardware.settle_delay
	DefaultSettleDelay = 100 * time.Millisecond
)

// =============================================================================
// Buffer Defaults
// =============================================================================

const (
	// DefaultRingCapacity is the number of records the sampling loop can
	// produce before a slow recorder blocks it. The worst tolerable
	// recorder stall is capacity x sampling period (at 10 Hz and 8192
	// entries, about 13.6 minutes).
	// Override via config: meter.ring_capacity
	DefaultRingCapacity = 8192

	// DefaultWriteBufferSize is the recorder's in-memory buffer in front
	// of the log file. Flushed whenever the ring drains and at shutdown.
	// Override via config: output.write_buffer_size
	DefaultWriteBufferSize = 64 * 1024
)

// =============================================================================
// SPI Defaults
// =============================================================================

const (
	// DefaultSPIDevice selects the SPI port. Empty means the first
	// registered port (CE0 on a Raspberry Pi).
	// Override via config: hardware.spi_device
	DefaultSPIDevice = ""

	// DefaultSPIClockHz is the SPI clock for the MCP3204/3208 converter.
	// At 3.3 V supply the datasheet caps the clock at 1 MHz; 500 kHz is a
	// safe setting.
	// Override via config: hardware.spi_clock_hz
	DefaultSPIClockHz = 500_000
)

// =============================================================================
// GPIO Defaults
// =============================================================================

const (
	// DefaultChargePin drives the charge relay (header pin P1-18).
	// Override via config: hardware.charge_pin
	DefaultChargePin = "GPIO24"

	// DefaultDischargePin drives the discharge relay (header pin P1-16).
	// Override via config: hardware.discharge_pin
	DefaultDischargePin = "GPIO23"
)

// =============================================================================
// Logging Defaults
// =============================================================================

const (
	// DefaultLogLevel is the minimum diagnostic level written to stderr.
	// Override via flag: -log-level, or config: logging.level
	DefaultLogLevel = "info"
)
