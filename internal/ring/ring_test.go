package ring

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lemeter/lemeter/internal/record"
)

func TestRing_Basic(t *testing.T) {
	r := New(10)

	if r.Cap() != 10 {
		t.Errorf("expected capacity=10, got %d", r.Cap())
	}
	if r.Len() != 0 {
		t.Errorf("new ring should be empty, got len=%d", r.Len())
	}
}

func TestRing_CapacityGuard(t *testing.T) {
	r := New(0)
	if r.Cap() != 1 {
		t.Errorf("expected capacity coerced to 1, got %d", r.Cap())
	}
}

func TestRing_FIFO(t *testing.T) {
	r := New(100)
	ctx := context.Background()

	// Produce 100 sequenced records
	for i := 0; i < 100; i++ {
		rec := record.Record{TimestampNS: uint64(i), Epoch: uint64(i / 10), Value: int16(i)}
		if err := r.Put(ctx, rec); err != nil {
			t.Fatalf("put %d: %v", i, err)
		}
	}

	// Consume - must be delivered in production order, exactly once
	for i := 0; i < 100; i++ {
		rec, err := r.Get(ctx)
		if err != nil {
			t.Fatalf("get %d: %v", i, err)
		}
		if rec.TimestampNS != uint64(i) || rec.Value != int16(i) {
			t.Errorf("get %d: got %+v, want timestamp=%d value=%d", i, rec, i, i)
		}
	}

	if r.Len() != 0 {
		t.Errorf("expected empty ring after draining, got len=%d", r.Len())
	}
}

func TestRing_PutBlocksWhenFull(t *testing.T) {
	r := New(4)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		if err := r.Put(ctx, record.Record{TimestampNS: uint64(i)}); err != nil {
			t.Fatalf("put %d: %v", i, err)
		}
	}

	// Fifth put must block until the consumer takes one record
	done := make(chan error, 1)
	go func() {
		done <- r.Put(ctx, record.Record{TimestampNS: 4})
	}()

	select {
	case err := <-done:
		t.Fatalf("put into full ring returned early: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	if _, err := r.Get(ctx); err != nil {
		t.Fatalf("get: %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("pending put failed: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("pending put did not complete after a get freed space")
	}
}

func TestRing_GetBlocksWhenEmpty(t *testing.T) {
	r := New(4)
	ctx := context.Background()

	type result struct {
		rec record.Record
		err error
	}
	done := make(chan result, 1)
	go func() {
		rec, err := r.Get(ctx)
		done <- result{rec, err}
	}()

	select {
	case res := <-done:
		t.Fatalf("get on empty ring returned early: %+v", res)
	case <-time.After(50 * time.Millisecond):
	}

	want := record.Record{TimestampNS: 7, Epoch: 1, Value: 99}
	if err := r.Put(ctx, want); err != nil {
		t.Fatalf("put: %v", err)
	}

	select {
	case res := <-done:
		if res.err != nil {
			t.Fatalf("pending get failed: %v", res.err)
		}
		if res.rec != want {
			t.Errorf("pending get = %+v, want %+v", res.rec, want)
		}
	case <-time.After(time.Second):
		t.Fatal("pending get did not complete after a put")
	}
}

func TestRing_PutCancellation(t *testing.T) {
	r := New(1)
	if err := r.Put(context.Background(), record.Record{}); err != nil {
		t.Fatalf("put: %v", err)
	}

	// Cancel while blocked on a full ring
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- r.Put(ctx, record.Record{TimestampNS: 1})
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("cancelled put did not return")
	}

	// The blocked record must not have been enqueued
	if r.Len() != 1 {
		t.Errorf("expected len=1 after cancelled put, got %d", r.Len())
	}
}

func TestRing_GetCancellation(t *testing.T) {
	r := New(1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := r.Get(ctx)
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("cancelled get did not return")
	}
}

func TestRing_CloseDrains(t *testing.T) {
	r := New(8)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := r.Put(ctx, record.Record{TimestampNS: uint64(i)}); err != nil {
			t.Fatalf("put %d: %v", i, err)
		}
	}
	r.Close()

	// Buffered records remain readable after close, in order
	for i := 0; i < 3; i++ {
		rec, err := r.Get(ctx)
		if err != nil {
			t.Fatalf("get %d after close: %v", i, err)
		}
		if rec.TimestampNS != uint64(i) {
			t.Errorf("get %d: got timestamp=%d, want %d", i, rec.TimestampNS, i)
		}
	}

	if _, err := r.Get(ctx); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed after drain, got %v", err)
	}
	if _, ok := r.TryGet(); ok {
		t.Error("TryGet after drain should report false")
	}
}

func TestRing_TryGet(t *testing.T) {
	r := New(4)

	if _, ok := r.TryGet(); ok {
		t.Error("TryGet on empty ring should report false")
	}

	want := record.Record{TimestampNS: 3, Value: 42}
	if err := r.Put(context.Background(), want); err != nil {
		t.Fatalf("put: %v", err)
	}

	rec, ok := r.TryGet()
	if !ok {
		t.Fatal("TryGet should succeed after a put")
	}
	if rec != want {
		t.Errorf("TryGet = %+v, want %+v", rec, want)
	}
}

func TestRing_Stats(t *testing.T) {
	r := New(8)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := r.Put(ctx, record.Record{TimestampNS: uint64(i)}); err != nil {
			t.Fatalf("put %d: %v", i, err)
		}
	}
	for i := 0; i < 2; i++ {
		if _, err := r.Get(ctx); err != nil {
			t.Fatalf("get %d: %v", i, err)
		}
	}

	stats := r.Stats()
	if stats.Capacity != 8 {
		t.Errorf("expected capacity=8, got %d", stats.Capacity)
	}
	if stats.Depth != 3 {
		t.Errorf("expected depth=3, got %d", stats.Depth)
	}
	if stats.PutCount != 5 {
		t.Errorf("expected put_count=5, got %d", stats.PutCount)
	}
	if stats.GetCount != 2 {
		t.Errorf("expected get_count=2, got %d", stats.GetCount)
	}
	if stats.HighWater != 5 {
		t.Errorf("expected high_water=5, got %d", stats.HighWater)
	}
}

func TestRing_ProducerConsumer(t *testing.T) {
	const n = 10000
	r := New(64)
	ctx := context.Background()

	// Single producer, single consumer, small capacity: exercises the
	// blocking paths in both directions.
	errc := make(chan error, 1)
	go func() {
		for i := 0; i < n; i++ {
			if err := r.Put(ctx, record.Record{TimestampNS: uint64(i)}); err != nil {
				errc <- err
				return
			}
		}
		r.Close()
		errc <- nil
	}()

	var got int
	for {
		rec, err := r.Get(ctx)
		if errors.Is(err, ErrClosed) {
			break
		}
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if rec.TimestampNS != uint64(got) {
			t.Fatalf("record %d out of order: got timestamp=%d", got, rec.TimestampNS)
		}
		got++
	}

	if err := <-errc; err != nil {
		t.Fatalf("producer: %v", err)
	}
	if got != n {
		t.Errorf("expected %d records, got %d", n, got)
	}
}

func BenchmarkRing_PutGet(b *testing.B) {
	r := New(1024)
	ctx := context.Background()
	rec := record.Record{TimestampNS: 1, Epoch: 1, Value: 2047}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := r.Put(ctx, rec); err != nil {
			b.Fatal(err)
		}
		if _, err := r.Get(ctx); err != nil {
			b.Fatal(err)
		}
	}
}
