package meter

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/lemeter/lemeter/config"
	"github.com/lemeter/lemeter/internal/errors"
	"github.com/lemeter/lemeter/internal/record"
	"github.com/lemeter/lemeter/internal/ring"
)

// Recorder drains the ring into the log sink, one line per record.
//
// The recorder owns the sink exclusively. Output is buffered in memory
// and flushed whenever the ring runs dry, so at high sampling rates the
// sink sees large writes while a live tail of the file still stays
// current at low rates.
type Recorder struct {
	ring *ring.Ring
	w    *bufio.Writer
	line []byte

	// Statistics
	records  atomic.Int64
	bytesOut atomic.Int64
	flushes  atomic.Int64
}

// NewRecorder creates a Recorder writing ring records to sink through a
// buffer of bufferSize bytes.
func NewRecorder(buf *ring.Ring, sink io.Writer, bufferSize int) *Recorder {
	if bufferSize <= 0 {
		bufferSize = config.DefaultWriteBufferSize
	}
	return &Recorder{
		ring: buf,
		w:    bufio.NewWriterSize(sink, bufferSize),
	}
}

// Run consumes records until the ring is closed and drained, then flushes
// the sink and returns. Shutdown is driven entirely by the producer
// closing the ring, which keeps every record accepted before shutdown in
// the log.
func (r *Recorder) Run() error {
	for {
		// Flush buffered output before blocking on an empty ring.
		if r.ring.Len() == 0 && r.w.Buffered() > 0 {
			if err := r.flush(); err != nil {
				return err
			}
		}

		rec, err := r.ring.Get(context.Background())
		if err != nil {
			if errors.Is(err, ring.ErrClosed) {
				return r.flush()
			}
			return err
		}

		if err := r.write(rec); err != nil {
			return err
		}
	}
}

func (r *Recorder) write(rec record.Record) error {
	r.line = rec.AppendLine(r.line[:0])

	n, err := r.w.Write(r.line)
	if err != nil {
		return fmt.Errorf("write record: %w", err)
	}

	r.records.Add(1)
	r.bytesOut.Add(int64(n))
	return nil
}

func (r *Recorder) flush() error {
	if r.w.Buffered() == 0 {
		return nil
	}
	if err := r.w.Flush(); err != nil {
		return fmt.Errorf("flush log: %w", err)
	}
	r.flushes.Add(1)
	return nil
}

// Stats returns recorder counters.
func (r *Recorder) Stats() (records, bytes, flushes int64) {
	return r.records.Load(), r.bytesOut.Load(), r.flushes.Load()
}
