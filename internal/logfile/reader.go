// Package logfile reads, summarizes, and converts meter sample logs.
//
// The on-disk format is the recorder's output: one record per line,
// timestamp_ns,epoch,value, no header. The reader is strict; any line
// that does not parse as a record fails with its line number.
package logfile

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/lemeter/lemeter/internal/record"
)

// Reader streams records from a meter log.
type Reader struct {
	sc   *bufio.Scanner
	line int
}

// NewReader returns a Reader that scans r line by line.
func NewReader(r io.Reader) *Reader {
	return &Reader{sc: bufio.NewScanner(r)}
}

// Next returns the next record in the log. It returns io.EOF after the
// last record. Parse failures wrap errors.ErrBadRecord and carry the
// 1-based line number.
func (r *Reader) Next() (record.Record, error) {
	if !r.sc.Scan() {
		if err := r.sc.Err(); err != nil {
			return record.Record{}, fmt.Errorf("line %d: %w", r.line+1, err)
		}
		return record.Record{}, io.EOF
	}
	r.line++

	rec, err := record.ParseLine(r.sc.Text())
	if err != nil {
		return record.Record{}, fmt.Errorf("line %d: %w", r.line, err)
	}
	return rec, nil
}

// ReadAll consumes the remaining records.
func (r *Reader) ReadAll() ([]record.Record, error) {
	var recs []record.Record
	for {
		rec, err := r.Next()
		if err == io.EOF {
			return recs, nil
		}
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
}

// Line returns the number of the last line read.
func (r *Reader) Line() int {
	return r.line
}

// File is a Reader over an opened log file.
type File struct {
	*Reader
	f *os.File
}

// Open opens a log file for reading.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}
	return &File{Reader: NewReader(f), f: f}, nil
}

// Close closes the underlying file.
func (f *File) Close() error {
	return f.f.Close()
}
