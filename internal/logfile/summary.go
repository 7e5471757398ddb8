package logfile

import (
	"io"
	"math"
	"sort"
	"time"

	"github.com/DataDog/sketches-go/ddsketch"

	"github.com/lemeter/lemeter/internal/record"
)

// Summary maintains running statistics over a stream of records.
// It tracks value extremes, the covered time span, and inter-sample
// gap percentiles using DDSketch.
type Summary struct {
	count    int64
	minValue int16
	maxValue int16
	firstNS  uint64
	lastNS   uint64

	// Inter-sample gaps in nanoseconds.
	gaps   *ddsketch.DDSketch
	gapMax uint64
	prevNS uint64
}

// NewSummary returns an empty Summary.
func NewSummary() *Summary {
	s := &Summary{
		minValue: math.MaxInt16,
		maxValue: math.MinInt16,
	}

	// DDSketch with default relative accuracy of 1%
	sketch, err := ddsketch.NewDefaultDDSketch(0.01)
	if err == nil {
		s.gaps = sketch
	}

	return s
}

// Add folds one record into the summary. Records are expected in log
// order; a gap is measured between each record and its predecessor.
func (s *Summary) Add(rec record.Record) {
	if s.count == 0 {
		s.firstNS = rec.TimestampNS
		s.lastNS = rec.TimestampNS
	} else if rec.TimestampNS >= s.prevNS {
		gap := rec.TimestampNS - s.prevNS
		if gap > s.gapMax {
			s.gapMax = gap
		}
		if s.gaps != nil {
			s.gaps.Add(float64(gap))
		}
	}

	s.count++

	if rec.Value < s.minValue {
		s.minValue = rec.Value
	}
	if rec.Value > s.maxValue {
		s.maxValue = rec.Value
	}
	if rec.TimestampNS < s.firstNS {
		s.firstNS = rec.TimestampNS
	}
	if rec.TimestampNS > s.lastNS {
		s.lastNS = rec.TimestampNS
	}

	s.prevNS = rec.TimestampNS
}

// Count returns the number of records added.
func (s *Summary) Count() int64 {
	return s.count
}

// IsEmpty returns true if no records have been added.
func (s *Summary) IsEmpty() bool {
	return s.count == 0
}

// Stats is a completed summary. Offsets and gaps are nanoseconds from
// the meter's monotonic origin, expressed as durations.
type Stats struct {
	Records  int64
	MinValue int16
	MaxValue int16
	First    time.Duration
	Last     time.Duration
	Duration time.Duration

	// Inter-sample gap percentiles. Zero when fewer than two records.
	GapP50 time.Duration
	GapP95 time.Duration
	GapP99 time.Duration
	GapMax time.Duration
}

// Result returns the summary statistics.
func (s *Summary) Result() Stats {
	st := Stats{Records: s.count}
	if s.count == 0 {
		return st
	}

	st.MinValue = s.minValue
	st.MaxValue = s.maxValue
	st.First = time.Duration(s.firstNS)
	st.Last = time.Duration(s.lastNS)
	st.Duration = time.Duration(s.lastNS - s.firstNS)
	st.GapMax = time.Duration(s.gapMax)

	if s.gaps != nil && s.gaps.GetCount() > 0 {
		p50, _ := s.gaps.GetValueAtQuantile(0.50)
		p95, _ := s.gaps.GetValueAtQuantile(0.95)
		p99, _ := s.gaps.GetValueAtQuantile(0.99)
		st.GapP50 = time.Duration(p50)
		st.GapP95 = time.Duration(p95)
		st.GapP99 = time.Duration(p99)
	}

	return st
}

// EpochStats pairs an epoch number with its summary.
type EpochStats struct {
	Epoch uint64
	Stats
}

// Analysis is the result of summarizing a whole log.
type Analysis struct {
	Overall Stats
	Epochs  []EpochStats
}

// Analyze drains r and returns overall plus per-epoch statistics.
// Epochs are returned in ascending order.
func Analyze(r *Reader) (*Analysis, error) {
	overall := NewSummary()
	perEpoch := make(map[uint64]*Summary)

	for {
		rec, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		overall.Add(rec)

		es, ok := perEpoch[rec.Epoch]
		if !ok {
			es = NewSummary()
			perEpoch[rec.Epoch] = es
		}
		es.Add(rec)
	}

	a := &Analysis{Overall: overall.Result()}

	epochs := make([]uint64, 0, len(perEpoch))
	for e := range perEpoch {
		epochs = append(epochs, e)
	}
	sort.Slice(epochs, func(i, j int) bool { return epochs[i] < epochs[j] })

	for _, e := range epochs {
		a.Epochs = append(a.Epochs, EpochStats{Epoch: e, Stats: perEpoch[e].Result()})
	}

	return a, nil
}
