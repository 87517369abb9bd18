package correlation

import (
	"context"
	"errors"
	"math"
	"time"

	"SectorPulse/internal/domain/models"
	domsvc "SectorPulse/internal/domain/service"
)

var (
	// ErrInsufficientData is returned when either input series is shorter
	// than the configured minimum. Expected "no signal yet" outcome.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrInsufficientOverlap is returned when no candidate lag has enough
	// paired buckets. Expected "no signal yet" outcome.
	ErrInsufficientOverlap = errors.New("insufficient overlap")
)

const defaultMinDataPoints = 3

// Engine computes lagged Pearson cross-correlation between a scored event
// series and a market series on a shared daily bucket axis.
type Engine struct {
	now func() time.Time
}

// NewEngine creates a correlation engine.
func NewEngine() *Engine {
	return &Engine{now: time.Now}
}

// WithClock overrides the timestamp source. Intended for tests.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// lagStats holds the correlation measured at one candidate lag.
type lagStats struct {
	lag    int
	r      float64
	paired int
	// defined is false when the overlap had zero variance on either side.
	defined bool
}

// Correlate aligns both series on a daily axis, scans lags in
// [-MaxLagPeriods, +MaxLagPeriods] (positive lag = events lead the market)
// and returns the best-supported result.
func (e *Engine) Correlate(ctx context.Context, symbol string, events []models.ScoredEvent, series []models.MarketPoint, params models.CorrelationParams) (models.CorrelationResult, error) {
	minPts := params.MinDataPoints
	if minPts <= 0 {
		minPts = defaultMinDataPoints
	}
	if len(events) < minPts || len(series) < minPts {
		return models.CorrelationResult{}, ErrInsufficientData
	}
	if err := ctx.Err(); err != nil {
		return models.CorrelationResult{}, err
	}

	windowDays := params.WindowDays
	if windowDays <= 0 {
		windowDays = 30
	}
	ax := newAxis(latestTimestamp(events, series), windowDays)

	ev := bucketEvents(events, ax, params.Aggregation)
	mv, mok := bucketMarket(series, ax)

	// Scan lags from the most parsimonious outward so ties on |r| resolve
	// to the smaller |lag| without a second pass.
	var (
		best      *lagStats
		degen     *lagStats
		rs        []float64
		anyPaired bool
	)
	for _, lag := range lagScanOrder(params.MaxLagPeriods) {
		st := correlateAtLag(ev, mv, mok, lag)
		if st.paired < minPts {
			continue
		}
		anyPaired = true
		if !st.defined {
			if degen == nil {
				degen = &st
			}
			continue
		}
		rs = append(rs, st.r)
		if best == nil || math.Abs(st.r) > math.Abs(best.r) {
			s := st
			best = &s
		}
	}

	if !anyPaired {
		return models.CorrelationResult{}, ErrInsufficientOverlap
	}
	if best == nil {
		// Every candidate lag was degenerate (constant market series or an
		// all-zero event window): correlation is undefined, reported as a
		// zero-strength, zero-confidence result rather than NaN.
		return models.CorrelationResult{
			Symbol:     symbol,
			Strength:   0,
			Confidence: 0,
			Lag:        degen.lag,
			DataPoints: degen.paired,
			ComputedAt: e.now().UTC(),
		}, nil
	}

	return models.CorrelationResult{
		Symbol:     symbol,
		Strength:   clamp(best.r, -1, 1),
		Confidence: confidence(best.paired, minPts, rs),
		Lag:        best.lag,
		DataPoints: best.paired,
		ComputedAt: e.now().UTC(),
	}, nil
}

// correlateAtLag pairs event bucket t with market bucket t+lag over the
// valid overlap and measures Pearson correlation.
func correlateAtLag(ev, mv []float64, mok []bool, lag int) lagStats {
	n := len(ev)
	xs := make([]float64, 0, n)
	ys := make([]float64, 0, n)
	for t := 0; t < n; t++ {
		mt := t + lag
		if mt < 0 || mt >= n || !mok[mt] {
			continue
		}
		xs = append(xs, ev[t])
		ys = append(ys, mv[mt])
	}

	st := lagStats{lag: lag, paired: len(xs)}
	if r, ok := pearson(xs, ys); ok {
		st.r = r
		st.defined = true
	}
	return st
}

// confidence grows with the paired-bucket count and shrinks with the
// dispersion of correlation values across candidate lags: a profile that
// swings wildly from lag to lag is weaker evidence than a stable one.
func confidence(paired, minPts int, rs []float64) float64 {
	dataPointFactor := clamp(float64(paired)/float64(4*minPts), 0, 1)
	stabilityFactor := clamp(1-clamp(variance(rs), 0, 1), 0, 1)
	return clamp(dataPointFactor*stabilityFactor, 0, 1)
}

// lagScanOrder yields 0, 1, -1, 2, -2, ... up to ±maxLag.
func lagScanOrder(maxLag int) []int {
	if maxLag < 0 {
		maxLag = 0
	}
	order := make([]int, 0, 2*maxLag+1)
	order = append(order, 0)
	for l := 1; l <= maxLag; l++ {
		order = append(order, l, -l)
	}
	return order
}

func latestTimestamp(events []models.ScoredEvent, series []models.MarketPoint) time.Time {
	var last time.Time
	for _, e := range events {
		if e.Timestamp.After(last) {
			last = e.Timestamp
		}
	}
	for _, p := range series {
		if p.Timestamp.After(last) {
			last = p.Timestamp
		}
	}
	return last
}

var _ domsvc.Correlator = (*Engine)(nil)
