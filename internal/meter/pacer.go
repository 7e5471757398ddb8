package meter

import (
	"context"
	"time"
)

// FrequencyToPeriod converts a sampling frequency in Hz to the sampling
// period, rounded to the nearest nanosecond.
func FrequencyToPeriod(hz float64) time.Duration {
	return time.Duration(float64(time.Second)/hz + 0.5)
}

// Pacer computes the absolute wake-up schedule of the sampling loop.
// Each deadline is the previous deadline plus one period, never "now plus
// one period", so the variable time spent reading the converter and
// switching relays does not accumulate into drift. Reset restarts the
// schedule; the next Wait then returns immediately.
//
// A Pacer is owned by a single goroutine.
type Pacer struct {
	period time.Duration
	next   time.Time
}

// NewPacer creates a Pacer with the given sampling period. The schedule
// starts at the first Reset.
func NewPacer(period time.Duration) *Pacer {
	return &Pacer{period: period}
}

// Reset restarts the schedule at now: the next Wait fires immediately and
// later deadlines follow one period apart.
func (p *Pacer) Reset(now time.Time) {
	p.next = now
}

// Wait sleeps until the next deadline and returns it, or returns early
// with ctx.Err(). Deadlines already in the past return immediately, one
// per call, so a stalled loop catches up by sampling back to back rather
// than by skipping schedule slots.
func (p *Pacer) Wait(ctx context.Context) (time.Time, error) {
	deadline := p.next
	p.next = deadline.Add(p.period)

	d := time.Until(deadline)
	if d <= 0 {
		// The timer path below is never reached during a catch-up
		// burst, so cancellation has to be checked here.
		if err := ctx.Err(); err != nil {
			return deadline, err
		}
		return deadline, nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return deadline, nil
	case <-ctx.Done():
		return deadline, ctx.Err()
	}
}

// Period returns the sampling period.
func (p *Pacer) Period() time.Duration {
	return p.period
}

// Next returns the upcoming deadline.
func (p *Pacer) Next() time.Time {
	return p.next
}
