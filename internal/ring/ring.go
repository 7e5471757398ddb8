// Package ring provides the bounded FIFO connecting the sampling loop to
// the recorder.
//
// Exactly one producer (the sampling controller) and one consumer (the
// recorder) share a Ring. Both ends block: Put waits while the buffer is
// full, Get waits while it is empty, so backpressure reaches the producer
// instead of dropping records. Waiting calls are interruptible through
// their context. At shutdown the producer calls Close; Get then drains
// whatever is still buffered before reporting ErrClosed, so no record
// produced before shutdown is lost.
package ring

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/lemeter/lemeter/internal/record"
)

// ErrClosed is returned by Get once the ring is closed and fully drained.
var ErrClosed = errors.New("ring closed")

// Ring is a fixed-capacity FIFO of sample records.
type Ring struct {
	ch chan record.Record

	// Statistics
	putCount  atomic.Int64
	getCount  atomic.Int64
	highWater atomic.Int64
}

// New creates a Ring with the given capacity.
func New(capacity int) *Ring {
	if capacity <= 0 {
		capacity = 1
	}
	return &Ring{
		ch: make(chan record.Record, capacity),
	}
}

// Put appends one record, blocking while the ring is full. It returns
// ctx.Err() if the context is cancelled first. Put must not be called
// after Close; the single producer owns both calls.
func (r *Ring) Put(ctx context.Context, rec record.Record) error {
	select {
	case r.ch <- rec:
		r.putCount.Add(1)
		r.noteDepth(int64(len(r.ch)))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Get removes and returns the oldest record, blocking while the ring is
// empty. It returns ctx.Err() if the context is cancelled first, and
// ErrClosed once the ring is closed and drained.
func (r *Ring) Get(ctx context.Context) (record.Record, error) {
	select {
	case rec, ok := <-r.ch:
		if !ok {
			return record.Record{}, ErrClosed
		}
		r.getCount.Add(1)
		return rec, nil
	case <-ctx.Done():
		return record.Record{}, ctx.Err()
	}
}

// TryGet removes and returns the oldest record without blocking.
// It returns false if the ring is empty or closed and drained.
func (r *Ring) TryGet() (record.Record, bool) {
	select {
	case rec, ok := <-r.ch:
		if !ok {
			return record.Record{}, false
		}
		r.getCount.Add(1)
		return rec, true
	default:
		return record.Record{}, false
	}
}

// Close marks the producer side finished. Buffered records remain
// readable; Get reports ErrClosed after the last one. Close must be
// called exactly once, by the producer.
func (r *Ring) Close() {
	close(r.ch)
}

// Len returns the current number of buffered records.
func (r *Ring) Len() int {
	return len(r.ch)
}

// Cap returns the ring's capacity.
func (r *Ring) Cap() int {
	return cap(r.ch)
}

// noteDepth raises the high-water mark to depth if it exceeds the
// current mark.
func (r *Ring) noteDepth(depth int64) {
	for {
		hw := r.highWater.Load()
		if depth <= hw || r.highWater.CompareAndSwap(hw, depth) {
			return
		}
	}
}

// Stats holds ring statistics.
type Stats struct {
	Capacity  int
	Depth     int
	HighWater int64
	PutCount  int64
	GetCount  int64
}

// Stats returns a snapshot of the ring's counters.
func (r *Ring) Stats() Stats {
	return Stats{
		Capacity:  cap(r.ch),
		Depth:     len(r.ch),
		HighWater: r.highWater.Load(),
		PutCount:  r.putCount.Load(),
		GetCount:  r.getCount.Load(),
	}
}
