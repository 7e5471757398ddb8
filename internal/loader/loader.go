// Package loader handles configuration file loading and validation.
//
// LOCATION: internal/loader/loader.go
//
// This package is responsible for:
//   - Loading YAML configuration files
//   - Expanding environment variables
//   - Validating the merged configuration before hardware bringup
package loader

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/lemeter/lemeter/internal/errors"
	"github.com/lemeter/lemeter/internal/logging"
	"github.com/lemeter/lemeter/internal/record"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// Load
// =============================================================================

// Load loads configuration from a YAML file on top of DefaultConfig.
// Unknown keys are rejected so a typo cannot silently fall back to a
// default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	// Start with defaults
	cfg := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return cfg, nil
}

// =============================================================================
// Validate
// =============================================================================

// Validate validates the configuration. All faults are collected so the
// operator sees every problem in one run.
func Validate(cfg *Config) error {
	errs := errors.NewValidationErrors()

	// Meter validation
	if cfg.Meter.FrequencyHz == 0 {
		errs.AddMissing("meter.frequency_hz")
	} else if cfg.Meter.FrequencyHz < 0 {
		errs.AddField("meter.frequency_hz", "must be positive")
	}

	if cfg.Meter.LowerThreshold < 0 || cfg.Meter.LowerThreshold > record.MaxValue {
		errs.AddField("meter.lower_threshold", fmt.Sprintf("must be in 0..%d", record.MaxValue))
	}
	if cfg.Meter.UpperThreshold < 0 || cfg.Meter.UpperThreshold > record.MaxValue {
		errs.AddField("meter.upper_threshold", fmt.Sprintf("must be in 0..%d", record.MaxValue))
	}
	if cfg.Meter.LowerThreshold >= cfg.Meter.UpperThreshold {
		errs.AddField("meter.lower_threshold", "must be below meter.upper_threshold")
	}

	if cfg.Meter.Output == "" {
		errs.AddMissing("meter.output")
	}

	if cfg.Meter.TaskPriority < 0 || cfg.Meter.TaskPriority > 99 {
		errs.AddField("meter.task_priority", "must be in 0..99 (0 disables real-time scheduling)")
	}
	// Priority 1 leaves no lower slot for the recorder.
	if cfg.Meter.TaskPriority == 1 {
		errs.AddField("meter.task_priority", "must be at least 2 so the recorder fits below it")
	}

	if cfg.Meter.RingCapacity <= 0 {
		errs.AddField("meter.ring_capacity", "must be positive")
	}

	// Hardware validation
	if cfg.Hardware.SPIClockHz <= 0 {
		errs.AddField("hardware.spi_clock_hz", "must be positive")
	}
	if cfg.Hardware.ADCChannel < 0 || cfg.Hardware.ADCChannel > 7 {
		errs.AddField("hardware.adc_channel", "must be in 0..7")
	}
	if cfg.Hardware.ChargePin == "" {
		errs.AddMissing("hardware.charge_pin")
	}
	if cfg.Hardware.DischargePin == "" {
		errs.AddMissing("hardware.discharge_pin")
	}
	if cfg.Hardware.ChargePin != "" && cfg.Hardware.ChargePin == cfg.Hardware.DischargePin {
		errs.AddField("hardware.discharge_pin", "must differ from hardware.charge_pin")
	}
	if cfg.Hardware.SettleDelay.Duration() < 0 {
		errs.AddField("hardware.settle_delay", "cannot be negative")
	}

	// Output validation
	if cfg.Output.WriteBufferSize <= 0 {
		errs.AddField("output.write_buffer_size", "must be positive")
	}

	// Logging validation
	if _, err := logging.ParseLevel(cfg.Logging.Level); err != nil {
		errs.AddField("logging.level", err.Error())
	}

	return errs.Err()
}
