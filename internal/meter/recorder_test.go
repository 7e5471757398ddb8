package meter

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lemeter/lemeter/internal/record"
	"github.com/lemeter/lemeter/internal/ring"
)

// syncBuffer is a goroutine-safe buffer used as a test sink.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// failWriter fails every write with err.
type failWriter struct{ err error }

func (w *failWriter) Write([]byte) (int, error) { return 0, w.err }

// splitLines splits sink contents into log lines.
func splitLines(t *testing.T, s string) []string {
	t.Helper()
	if s == "" {
		return nil
	}
	if !strings.HasSuffix(s, "\n") {
		t.Fatalf("output does not end in a newline: %q", s)
	}
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}

func TestRecorder_WritesAllRecordsInOrder(t *testing.T) {
	buf := ring.New(128)
	for i := 0; i < 100; i++ {
		rec := record.Record{
			TimestampNS: uint64(i) * 1000,
			Epoch:       uint64(i/10) + 1,
			Value:       int16(i),
		}
		if err := buf.Put(context.Background(), rec); err != nil {
			t.Fatalf("Put %d: %v", i, err)
		}
	}
	buf.Close()

	var sink syncBuffer
	r := NewRecorder(buf, &sink, 4096)
	if err := r.Run(); err != nil {
		t.Fatalf("Run returned %v", err)
	}

	lines := splitLines(t, sink.String())
	if len(lines) != 100 {
		t.Fatalf("expected 100 lines, got %d", len(lines))
	}
	for i, line := range lines {
		rec, err := record.ParseLine(line)
		if err != nil {
			t.Fatalf("line %d %q: %v", i, line, err)
		}
		if rec.TimestampNS != uint64(i)*1000 || rec.Value != int16(i) {
			t.Errorf("line %d = %+v, want timestamp %d value %d", i, rec, i*1000, i)
		}
	}

	records, bytesOut, flushes := r.Stats()
	if records != 100 {
		t.Errorf("expected 100 records, got %d", records)
	}
	if bytesOut != int64(len(sink.String())) {
		t.Errorf("expected %d bytes, got %d", len(sink.String()), bytesOut)
	}
	if flushes == 0 {
		t.Error("expected at least one flush")
	}
}

func TestRecorder_FlushWhenIdle(t *testing.T) {
	buf := ring.New(8)
	var sink syncBuffer
	r := NewRecorder(buf, &sink, 64*1024)

	done := make(chan error, 1)
	go func() { done <- r.Run() }()

	rec := record.Record{TimestampNS: 42, Epoch: 1, Value: 2000}
	if err := buf.Put(context.Background(), rec); err != nil {
		t.Fatalf("Put: %v", err)
	}

	// The record must reach the sink while the ring stays open: the
	// recorder flushes before blocking on an empty ring.
	deadline := time.Now().Add(2 * time.Second)
	want := rec.String() + "\n"
	for sink.String() != want {
		if time.Now().After(deadline) {
			t.Fatalf("sink = %q, want %q", sink.String(), want)
		}
		time.Sleep(time.Millisecond)
	}

	buf.Close()
	if err := <-done; err != nil {
		t.Fatalf("Run returned %v", err)
	}
}

func TestRecorder_DrainsClosedRing(t *testing.T) {
	buf := ring.New(64)
	for i := 0; i < 50; i++ {
		rec := record.Record{TimestampNS: uint64(i), Epoch: 1, Value: int16(i)}
		if err := buf.Put(context.Background(), rec); err != nil {
			t.Fatalf("Put %d: %v", i, err)
		}
	}
	buf.Close()

	var sink syncBuffer
	r := NewRecorder(buf, &sink, 4096)
	if err := r.Run(); err != nil {
		t.Fatalf("Run returned %v", err)
	}

	if lines := splitLines(t, sink.String()); len(lines) != 50 {
		t.Errorf("expected all 50 buffered records drained, got %d", len(lines))
	}
}

func TestRecorder_SinkWriteError(t *testing.T) {
	buf := ring.New(8)
	if err := buf.Put(context.Background(), record.Record{TimestampNS: 1000, Epoch: 1, Value: 42}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	sinkErr := errors.New("disk full")
	// A buffer smaller than one line forces the write straight through.
	r := NewRecorder(buf, &failWriter{err: sinkErr}, 8)

	err := r.Run()
	if err == nil {
		t.Fatal("expected an error from a failing sink")
	}
	if !errors.Is(err, sinkErr) {
		t.Errorf("expected wrapped sink error, got %v", err)
	}
}

func TestRecorder_FlushErrorPropagates(t *testing.T) {
	buf := ring.New(8)
	if err := buf.Put(context.Background(), record.Record{TimestampNS: 1000, Epoch: 1, Value: 42}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	buf.Close()

	sinkErr := errors.New("disk full")
	r := NewRecorder(buf, &failWriter{err: sinkErr}, 4096)

	err := r.Run()
	if err == nil {
		t.Fatal("expected the buffered record's flush to fail")
	}
	if !errors.Is(err, sinkErr) {
		t.Errorf("expected wrapped sink error, got %v", err)
	}
}
