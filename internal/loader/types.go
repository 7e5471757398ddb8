// Package loader - Configuration Types
//
// LOCATION: internal/loader/types.go
//
// Defines the YAML configuration structure for lemeterd.
//
// LAYOUT:
//
//	meter:      sampling frequency, thresholds, output, scheduling
//	hardware:   SPI port, ADC channel, relay pins, settle delay
//	output:     log file write buffering
//	logging:    level and format of stderr diagnostics

package loader

import (
	"time"

	"github.com/lemeter/lemeter/config"
)

// =============================================================================
// Root Configuration
// =============================================================================

// Config is the root configuration structure for lemeterd.
type Config struct {
	// Meter configures the measurement loop.
	Meter MeterConfig `yaml:"meter"`

	// Hardware configures the SPI converter and relay pins.
	Hardware HardwareConfig `yaml:"hardware"`

	// Output configures the record sink.
	Output OutputConfig `yaml:"output"`

	// Logging configures stderr diagnostics.
	Logging LoggingConfig `yaml:"logging"`
}

// =============================================================================
// Meter Configuration
// =============================================================================

// MeterConfig configures the sampling loop and the charge/discharge cycle.
type MeterConfig struct {
	// FrequencyHz is the sampling frequency in Hz.
	// Required (no default); may also be given via the -freq flag.
	FrequencyHz float64 `yaml:"frequency_hz"`

	// LowerThreshold is the ADC code at or below which a discharging
	// capacitor is considered empty. 12-bit code, 0..4095.
	// Required; may also be given via the -lower flag.
	LowerThreshold int `yaml:"lower_threshold"`

	// UpperThreshold is the ADC code at or above which a charging
	// capacitor is considered full. Must be greater than LowerThreshold.
	// Required; may also be given via the -upper flag.
	UpperThreshold int `yaml:"upper_threshold"`

	// Output is the path of the record log. "-" means stdout.
	// Required; may also be given via the -out flag.
	Output string `yaml:"output"`

	// TaskPriority is the SCHED_FIFO priority of the sampling loop.
	// The recorder runs at TaskPriority-1. 0 disables real-time
	// scheduling and memory locking.
	// Default: 49
	TaskPriority int `yaml:"task_priority"`

	// RingCapacity is the size of the record buffer between the sampling
	// loop and the recorder. A full ring blocks sampling.
	// Default: 8192
	RingCapacity int `yaml:"ring_capacity"`
}

// =============================================================================
// Hardware Configuration
// =============================================================================

// HardwareConfig configures the analog converter and the relay pins.
type HardwareConfig struct {
	// SPIDevice is the SPI port name, e.g. "/dev/spidev0.0" or "SPI0.0".
	// Empty selects the first registered port.
	// Default: ""
	SPIDevice string `yaml:"spi_device"`

	// SPIClockHz is the SPI clock in Hz. The MCP3204/3208 caps the clock
	// at 1 MHz when supplied with 3.3 V.
	// Default: 500000
	SPIClockHz int64 `yaml:"spi_clock_hz"`

	// ADCChannel is the converter input the capacitor is wired to, 0..7.
	// Default: 0
	ADCChannel int `yaml:"adc_channel"`

	// ADCDifferential selects pseudo-differential input pairing instead
	// of single-ended reads.
	// Default: false
	ADCDifferential bool `yaml:"adc_differential"`

	// ChargePin is the GPIO driving the charge relay.
	// Default: "GPIO24"
	ChargePin string `yaml:"charge_pin"`

	// DischargePin is the GPIO driving the discharge relay.
	// Default: "GPIO23"
	DischargePin string `yaml:"discharge_pin"`

	// SettleDelay is the wait between opening one relay and closing the
	// other. Must cover the relay release time.
	// Default: 100ms
	SettleDelay Duration `yaml:"settle_delay"`
}

// =============================================================================
// Output Configuration
// =============================================================================

// OutputConfig configures buffering in front of the record log.
type OutputConfig struct {
	// WriteBufferSize is the recorder's in-memory buffer in bytes.
	// Default: 65536
	WriteBufferSize int `yaml:"write_buffer_size"`
}

// =============================================================================
// Logging Configuration
// =============================================================================

// LoggingConfig configures stderr diagnostics.
type LoggingConfig struct {
	// Level is the minimum level: debug, info, warn, error.
	// Default: "info"
	Level string `yaml:"level"`

	// JSON switches diagnostics from text to JSON lines.
	// Default: false
	JSON bool `yaml:"json"`
}

// =============================================================================
// Defaults
// =============================================================================

// DefaultConfig returns a Config with documented defaults. Frequency,
// thresholds, and output have no defaults and must come from the file or
// from flags.
func DefaultConfig() *Config {
	return &Config{
		Meter: MeterConfig{
			TaskPriority: config.DefaultTaskPriority,
			RingCapacity: config.DefaultRingCapacity,
		},

		Hardware: HardwareConfig{
			SPIDevice:    config.DefaultSPIDevice,
			SPIClockHz:   config.DefaultSPIClockHz,
			ADCChannel:   config.DefaultADCChannel,
			ChargePin:    config.DefaultChargePin,
			DischargePin: config.DefaultDischargePin,
			SettleDelay:  Duration(config.DefaultSettleDelay),
		},

		Output: OutputConfig{
			WriteBufferSize: config.DefaultWriteBufferSize,
		},

		Logging: LoggingConfig{
			Level: config.DefaultLogLevel,
		},
	}
}

// =============================================================================
// Custom Types
// =============================================================================

// Duration is a time.Duration that can be unmarshaled from YAML.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		// Try as int (seconds)
		var i int
		if err := unmarshal(&i); err != nil {
			return err
		}
		*d = Duration(time.Duration(i) * time.Second)
		return nil
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// Duration returns the time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
