// Package record defines the timestamped sample record produced by the
// sampling loop and its on-disk text form.
//
// A record is one line in the log file:
//
//	<timestamp_ns>,<epoch>,<value>
//
// Three decimal integers, comma-separated, newline-terminated, no header
// row. timestamp_ns counts nanoseconds from the meter's start instant
// (monotonic, not wall clock). epoch numbers charge/discharge cycles: the
// counter starts at 0 and increments when charging completes, so samples
// of the first discharge carry 1. value is the raw 12-bit ADC code.
package record

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lemeter/lemeter/internal/errors"
)

const (
	// MaxValue is the largest code a 12-bit converter can return.
	MaxValue = 4095

	// ErrorValue marks a failed read. It never appears in the log because
	// failed reads are reported and discarded, not recorded.
	ErrorValue = -1
)

// Record is one capacitor voltage sample taken during a discharging phase.
type Record struct {
	// TimestampNS is nanoseconds since the meter's monotonic origin.
	TimestampNS uint64

	// Epoch is the charge/discharge cycle the sample belongs to.
	Epoch uint64

	// Value is the raw ADC code in [0, MaxValue].
	Value int16
}

// AppendLine appends the record's log line, including the trailing
// newline, to dst and returns the extended slice.
func (r Record) AppendLine(dst []byte) []byte {
	dst = strconv.AppendUint(dst, r.TimestampNS, 10)
	dst = append(dst, ',')
	dst = strconv.AppendUint(dst, r.Epoch, 10)
	dst = append(dst, ',')
	dst = strconv.AppendInt(dst, int64(r.Value), 10)
	return append(dst, '\n')
}

// String returns the log line without the trailing newline.
func (r Record) String() string {
	return fmt.Sprintf("%d,%d,%d", r.TimestampNS, r.Epoch, r.Value)
}

// ParseLine parses one log line (without the trailing newline). The
// grammar is strict: exactly three decimal fields, value within
// [ErrorValue, MaxValue]. Errors wrap errors.ErrBadRecord.
func ParseLine(line string) (Record, error) {
	tsField, rest, ok := strings.Cut(line, ",")
	if !ok {
		return Record{}, fmt.Errorf("%w: want 3 fields, got 1", errors.ErrBadRecord)
	}
	epochField, valueField, ok := strings.Cut(rest, ",")
	if !ok {
		return Record{}, fmt.Errorf("%w: want 3 fields, got 2", errors.ErrBadRecord)
	}

	ts, err := strconv.ParseUint(tsField, 10, 64)
	if err != nil {
		return Record{}, fmt.Errorf("%w: timestamp %q", errors.ErrBadRecord, tsField)
	}
	epoch, err := strconv.ParseUint(epochField, 10, 64)
	if err != nil {
		return Record{}, fmt.Errorf("%w: epoch %q", errors.ErrBadRecord, epochField)
	}
	value, err := strconv.ParseInt(valueField, 10, 16)
	if err != nil {
		return Record{}, fmt.Errorf("%w: value %q", errors.ErrBadRecord, valueField)
	}
	if value < ErrorValue || value > MaxValue {
		return Record{}, fmt.Errorf("%w: value %d out of range", errors.ErrBadRecord, value)
	}

	return Record{TimestampNS: ts, Epoch: epoch, Value: int16(value)}, nil
}
