package correlation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SectorPulse/internal/domain/models"
)

var testBase = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

// dailyEvents builds one scored event per day with the given scores.
func dailyEvents(scores []float64) []models.ScoredEvent {
	out := make([]models.ScoredEvent, 0, len(scores))
	for i, s := range scores {
		out = append(out, models.ScoredEvent{
			Timestamp: testBase.Add(time.Duration(i) * 24 * time.Hour),
			Score:     s,
			Category:  models.CategoryConflict,
		})
	}
	return out
}

// dailySeries builds one market point per day with the given percent changes.
func dailySeries(changes []float64) []models.MarketPoint {
	out := make([]models.MarketPoint, 0, len(changes))
	for i, c := range changes {
		out = append(out, models.MarketPoint{
			Symbol:        "LMT",
			Timestamp:     testBase.Add(time.Duration(i) * 24 * time.Hour),
			PercentChange: c,
			Price:         100 + c,
		})
	}
	return out
}

func params(maxLag, minPts, windowDays int) models.CorrelationParams {
	return models.CorrelationParams{
		MaxLagPeriods: maxLag,
		MinDataPoints: minPts,
		WindowDays:    windowDays,
		Aggregation:   models.AggregateSum,
	}
}

func TestCorrelateSpikeScenario(t *testing.T) {
	// Event spike at bucket 2, market move at bucket 3: events lead by one period.
	events := dailyEvents([]float64{0, 0, 5, 0, 0, 0, 0, 0, 0, 0})
	series := dailySeries([]float64{0, 0, 0, 4, 0, 0, 0, 0, 0, 0})

	res, err := NewEngine().Correlate(context.Background(), "LMT", events, series, params(5, 3, 10))
	require.NoError(t, err)

	assert.Equal(t, 1, res.Lag)
	assert.InDelta(t, 1.0, res.Strength, 1e-9)
	assert.Equal(t, 9, res.DataPoints)
	assert.Equal(t, "LMT", res.Symbol)
}

func TestCorrelateLagSignConvention(t *testing.T) {
	// Market at t+3 reproduces the event score at t exactly; the three
	// leading market buckets are noise so no other lag lines up.
	ev := []float64{2, -1, 3, 0, 1, -2, 4, 0, -3, 2, 1, 0, 2, -1, 3}
	mk := make([]float64, len(ev))
	mk[0], mk[1], mk[2] = 0.5, -0.5, 0.1
	for i := 3; i < len(mk); i++ {
		mk[i] = ev[i-3]
	}

	res, err := NewEngine().Correlate(context.Background(), "RTX", dailyEvents(ev), dailySeries(mk), params(5, 3, 15))
	require.NoError(t, err)

	assert.Equal(t, 3, res.Lag)
	assert.InDelta(t, 1.0, res.Strength, 1e-9)
}

func TestCorrelateDeterminism(t *testing.T) {
	events := dailyEvents([]float64{1, -4, 2, 0, 6, -1, 3, 0, -2, 5})
	series := dailySeries([]float64{0.4, -1.2, 0.8, 0.1, 2.4, -0.3, 1.1, 0.2, -0.9, 1.7})
	p := params(4, 3, 10)

	clock := func() time.Time { return testBase }
	eng := NewEngine().WithClock(clock)

	a, err := eng.Correlate(context.Background(), "NOC", events, series, p)
	require.NoError(t, err)
	b, err := eng.Correlate(context.Background(), "NOC", events, series, p)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestCorrelateRangeInvariants(t *testing.T) {
	cases := [][2][]float64{
		{{5, -3, 8, 1, -6, 2, 7, -1, 4, -2}, {1.2, -0.4, 2.1, 0.3, -1.8, 0.6, 1.9, -0.2, 1.1, -0.7}},
		{{1, 1, 1, 1, 2, 1, 1, 1, 1, 1}, {0.1, 0.2, 0.1, 0.3, 0.2, 0.1, 0.4, 0.1, 0.2, 0.3}},
		{{-9, 9, -9, 9, -9, 9, -9, 9}, {3, -3, 3, -3, 3, -3, 3, -3}},
	}
	for _, c := range cases {
		res, err := NewEngine().Correlate(context.Background(), "X", dailyEvents(c[0]), dailySeries(c[1]), params(5, 3, len(c[0])))
		require.NoError(t, err)
		assert.GreaterOrEqual(t, res.Strength, -1.0)
		assert.LessOrEqual(t, res.Strength, 1.0)
		assert.GreaterOrEqual(t, res.Confidence, 0.0)
		assert.LessOrEqual(t, res.Confidence, 1.0)
	}
}

func TestCorrelateConfidenceMonotonicInDataVolume(t *testing.T) {
	// Alternating series correlate exactly ±1 at every lag regardless of
	// length, so only the paired-bucket count varies between runs.
	alternating := func(n int, amp float64) []float64 {
		out := make([]float64, n)
		for i := range out {
			if i%2 == 0 {
				out[i] = amp
			} else {
				out[i] = -amp
			}
		}
		return out
	}

	confFor := func(n int) float64 {
		res, err := NewEngine().Correlate(context.Background(), "X",
			dailyEvents(alternating(n, 4)), dailySeries(alternating(n, 1.5)), params(2, 3, n))
		require.NoError(t, err)
		return res.Confidence
	}

	c6, c12, c24 := confFor(6), confFor(12), confFor(24)
	assert.LessOrEqual(t, c6, c12)
	assert.LessOrEqual(t, c12, c24)
}

func TestCorrelateTiePrefersSmallerLag(t *testing.T) {
	// Alternating series hit |r| = 1 at every candidate lag; the engine must
	// settle on lag 0.
	ev := []float64{4, -4, 4, -4, 4, -4, 4, -4, 4, -4}
	mk := []float64{1, -1, 1, -1, 1, -1, 1, -1, 1, -1}

	res, err := NewEngine().Correlate(context.Background(), "X", dailyEvents(ev), dailySeries(mk), params(3, 3, 10))
	require.NoError(t, err)
	assert.Equal(t, 0, res.Lag)
}

func TestCorrelateZeroVarianceMarket(t *testing.T) {
	events := dailyEvents([]float64{3, -2, 5, 1, -4, 2, 6, -1})
	series := dailySeries([]float64{1.5, 1.5, 1.5, 1.5, 1.5, 1.5, 1.5, 1.5})

	res, err := NewEngine().Correlate(context.Background(), "X", events, series, params(3, 3, 8))
	require.NoError(t, err)
	assert.Zero(t, res.Strength)
	assert.Zero(t, res.Confidence)
	assert.False(t, res.ComputedAt.IsZero())
}

func TestCorrelateAllZeroEvents(t *testing.T) {
	// Neutral-impact events score zero everywhere: no event signal in window.
	events := dailyEvents([]float64{0, 0, 0, 0, 0, 0, 0, 0})
	series := dailySeries([]float64{0.4, -1.2, 0.8, 0.1, 2.4, -0.3, 1.1, 0.2})

	res, err := NewEngine().Correlate(context.Background(), "X", events, series, params(3, 3, 8))
	require.NoError(t, err)
	assert.Zero(t, res.Strength)
	assert.Zero(t, res.Confidence)
}

func TestCorrelateInsufficientData(t *testing.T) {
	short := dailyEvents([]float64{5, -2})
	full := dailySeries([]float64{1, 2, 3, 4, 5, 6})

	_, err := NewEngine().Correlate(context.Background(), "X", short, full, params(3, 3, 6))
	assert.ErrorIs(t, err, ErrInsufficientData)

	_, err = NewEngine().Correlate(context.Background(), "X",
		dailyEvents([]float64{5, -2, 3, 1, 0, 2}), dailySeries([]float64{1, 2}), params(3, 3, 6))
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestCorrelateInsufficientOverlap(t *testing.T) {
	events := dailyEvents([]float64{3, -2, 5, 1, -4, 2, 6, -1, 2, 3})
	// Three market points all inside the final two buckets: at most two
	// paired buckets at any lag.
	last := testBase.Add(9 * 24 * time.Hour)
	series := []models.MarketPoint{
		{Symbol: "X", Timestamp: last.Add(-25 * time.Hour), PercentChange: 0.4},
		{Symbol: "X", Timestamp: last.Add(-2 * time.Hour), PercentChange: 0.9},
		{Symbol: "X", Timestamp: last, PercentChange: -0.3},
	}

	_, err := NewEngine().Correlate(context.Background(), "X", events, series, params(3, 3, 10))
	assert.ErrorIs(t, err, ErrInsufficientOverlap)
}

func TestCorrelateCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewEngine().Correlate(ctx, "X",
		dailyEvents([]float64{1, 2, 3, 4}), dailySeries([]float64{1, 2, 3, 4}), params(2, 3, 4))
	assert.True(t, errors.Is(err, context.Canceled))
}
