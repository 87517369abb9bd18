package correlation

import (
	"math"
	"time"

	"SectorPulse/internal/domain/models"
)

// bucketDur is the fixed period width of the common time axis. The engine
// works in daily buckets; sub-daily market updates collapse to the most
// recent observation per day.
const bucketDur = 24 * time.Hour

// axis is the discrete time grid both series are aligned on.
type axis struct {
	start time.Time // start of bucket 0, truncated to bucketDur
	n     int
}

// newAxis anchors a window of n buckets so the last bucket contains end.
func newAxis(end time.Time, n int) axis {
	last := end.UTC().Truncate(bucketDur)
	return axis{start: last.Add(-time.Duration(n-1) * bucketDur), n: n}
}

// index returns the bucket index for ts, which may be out of range.
func (a axis) index(ts time.Time) int {
	d := ts.UTC().Sub(a.start)
	if d < 0 {
		return -1
	}
	return int(d / bucketDur)
}

// bucketEnd returns the exclusive end instant of bucket i.
func (a axis) bucketEnd(i int) time.Time {
	return a.start.Add(time.Duration(i+1) * bucketDur)
}

// bucketEvents folds scored events onto the axis. Buckets with no events get
// value 0. Aggregation is either the sum of scores or the single score with
// the largest magnitude.
func bucketEvents(events []models.ScoredEvent, a axis, agg models.EventAggregation) []float64 {
	vals := make([]float64, a.n)
	for _, e := range events {
		i := a.index(e.Timestamp)
		if i < 0 || i >= a.n {
			continue
		}
		switch agg {
		case models.AggregateMaxMagnitude:
			if math.Abs(e.Score) > math.Abs(vals[i]) {
				vals[i] = e.Score
			}
		default:
			vals[i] += e.Score
		}
	}
	return vals
}

// bucketMarket fills each bucket with the percent change of the most recent
// point at or before the bucket's end (carry-forward). Buckets before the
// first observation stay invalid and are excluded from pairing.
// Points must be ascending by timestamp; on equal timestamps the later entry
// wins, matching the store's latest-write-wins contract.
func bucketMarket(series []models.MarketPoint, a axis) (vals []float64, valid []bool) {
	vals = make([]float64, a.n)
	valid = make([]bool, a.n)

	j := 0
	var last float64
	seen := false
	for i := 0; i < a.n; i++ {
		end := a.bucketEnd(i)
		for j < len(series) && series[j].Timestamp.UTC().Before(end) {
			last = series[j].PercentChange
			seen = true
			j++
		}
		if seen {
			vals[i] = last
			valid[i] = true
		}
	}
	return vals, valid
}

// pearson computes the correlation coefficient of two equal-length samples.
// ok is false when either side has zero variance (undefined correlation).
func pearson(x, y []float64) (r float64, ok bool) {
	n := float64(len(x))
	if n < 2 {
		return 0, false
	}

	var mx, my float64
	for i := range x {
		mx += x[i]
		my += y[i]
	}
	mx /= n
	my /= n

	var sxy, sxx, syy float64
	for i := range x {
		dx := x[i] - mx
		dy := y[i] - my
		sxy += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}
	if sxx == 0 || syy == 0 {
		return 0, false
	}
	return sxy / math.Sqrt(sxx*syy), true
}

// variance returns the population variance of xs; 0 for fewer than 2 values.
func variance(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	var m float64
	for _, v := range xs {
		m += v
	}
	m /= float64(len(xs))
	var s float64
	for _, v := range xs {
		d := v - m
		s += d * d
	}
	return s / float64(len(xs))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
