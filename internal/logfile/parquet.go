package logfile

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress"

	"github.com/lemeter/lemeter/internal/record"
)

// Options configures the Parquet writer.
type Options struct {
	// Compression algorithm
	Compression Compression
}

// Compression represents a Parquet compression algorithm.
type Compression int

const (
	CompressionZstd Compression = iota
	CompressionSnappy
	CompressionNone
)

// DefaultOptions returns default Parquet options.
func DefaultOptions() Options {
	return Options{Compression: CompressionZstd}
}

// ParseCompression parses a compression name.
func ParseCompression(s string) Compression {
	switch s {
	case "snappy":
		return CompressionSnappy
	case "none", "":
		return CompressionNone
	default:
		return CompressionZstd
	}
}

// codec returns the parquet-go compression codec.
func codec(c Compression) compress.Codec {
	switch c {
	case CompressionSnappy:
		return &parquet.Snappy
	case CompressionZstd:
		return &parquet.Zstd
	default:
		return &parquet.Uncompressed
	}
}

// Row represents a record in Parquet form.
type Row struct {
	TimestampNS int64 `parquet:"timestamp_ns"`
	Epoch       int64 `parquet:"epoch"`
	Value       int32 `parquet:"value"`
}

// RecordToRow converts a Record to a Row.
func RecordToRow(rec record.Record) Row {
	return Row{
		TimestampNS: int64(rec.TimestampNS),
		Epoch:       int64(rec.Epoch),
		Value:       int32(rec.Value),
	}
}

// RowToRecord converts a Row to a Record.
func RowToRecord(row Row) record.Record {
	return record.Record{
		TimestampNS: uint64(row.TimestampNS),
		Epoch:       uint64(row.Epoch),
		Value:       int16(row.Value),
	}
}

// ErrWriterClosed is returned when writing to a closed writer.
var ErrWriterClosed = fmt.Errorf("parquet writer is closed")

// Writer writes records to a Parquet file. It is not safe for
// concurrent use.
type Writer struct {
	path   string
	file   *os.File
	writer *parquet.GenericWriter[Row]
	rows   int64
	closed bool
}

// NewWriter creates a Parquet writer at path, creating parent
// directories as needed.
func NewWriter(path string, opts Options) (*Writer, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}

	writer := parquet.NewGenericWriter[Row](f,
		parquet.Compression(codec(opts.Compression)))

	return &Writer{
		path:   path,
		file:   f,
		writer: writer,
	}, nil
}

// Write appends records to the Parquet file.
func (w *Writer) Write(recs []record.Record) error {
	if len(recs) == 0 {
		return nil
	}
	if w.closed {
		return ErrWriterClosed
	}

	rows := make([]Row, len(recs))
	for i := range recs {
		rows[i] = RecordToRow(recs[i])
	}

	n, err := w.writer.Write(rows)
	if err != nil {
		return fmt.Errorf("write rows: %w", err)
	}

	w.rows += int64(n)
	return nil
}

// Close flushes buffered row groups and closes the file.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	if err := w.writer.Close(); err != nil {
		w.file.Close()
		return fmt.Errorf("close writer: %w", err)
	}

	return w.file.Close()
}

// RowCount returns the number of rows written.
func (w *Writer) RowCount() int64 {
	return w.rows
}

// Path returns the file path.
func (w *Writer) Path() string {
	return w.path
}

// convertBatch is how many records Convert buffers per Parquet write.
const convertBatch = 4096

// Convert streams records from r into a Parquet file at path and
// returns the number of rows written. A partial output file is left
// in place on error.
func Convert(r *Reader, path string, opts Options) (int64, error) {
	w, err := NewWriter(path, opts)
	if err != nil {
		return 0, err
	}

	batch := make([]record.Record, 0, convertBatch)
	for {
		rec, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			w.Close()
			return w.RowCount(), err
		}

		batch = append(batch, rec)
		if len(batch) == convertBatch {
			if err := w.Write(batch); err != nil {
				w.Close()
				return w.RowCount(), err
			}
			batch = batch[:0]
		}
	}

	if err := w.Write(batch); err != nil {
		w.Close()
		return w.RowCount(), err
	}
	if err := w.Close(); err != nil {
		return w.RowCount(), err
	}
	return w.RowCount(), nil
}

// ReadAllParquet reads every row of a Parquet file written by Writer.
func ReadAllParquet(path string) ([]record.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	reader := parquet.NewGenericReader[Row](f)
	defer reader.Close()

	rows := make([]Row, reader.NumRows())
	n, err := reader.Read(rows)
	if err != nil && err != io.EOF {
		return nil, err
	}

	recs := make([]record.Record, n)
	for i := 0; i < n; i++ {
		recs[i] = RowToRecord(rows[i])
	}
	return recs, nil
}
