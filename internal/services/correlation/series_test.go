package correlation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SectorPulse/internal/domain/models"
)

func TestBucketEventsSumAndMax(t *testing.T) {
	ax := newAxis(testBase.Add(3*24*time.Hour), 4)
	events := []models.ScoredEvent{
		{Timestamp: testBase, Score: 3},
		{Timestamp: testBase.Add(2 * time.Hour), Score: -5},
		{Timestamp: testBase.Add(48 * time.Hour), Score: 2},
		// outside the axis, must be ignored
		{Timestamp: testBase.Add(-72 * time.Hour), Score: 99},
	}

	sum := bucketEvents(events, ax, models.AggregateSum)
	assert.Equal(t, []float64{-2, 0, 2, 0}, sum)

	maxMag := bucketEvents(events, ax, models.AggregateMaxMagnitude)
	assert.Equal(t, []float64{-5, 0, 2, 0}, maxMag)
}

func TestBucketMarketCarryForward(t *testing.T) {
	ax := newAxis(testBase.Add(4*24*time.Hour), 5)
	series := []models.MarketPoint{
		{Timestamp: testBase.Add(24 * time.Hour), PercentChange: 1.5},
		{Timestamp: testBase.Add(26 * time.Hour), PercentChange: 2.0}, // same bucket, later write wins
		{Timestamp: testBase.Add(3 * 24 * time.Hour), PercentChange: -0.5},
	}

	vals, valid := bucketMarket(series, ax)
	assert.Equal(t, []bool{false, true, true, true, true}, valid)
	assert.Equal(t, 2.0, vals[1])
	assert.Equal(t, 2.0, vals[2]) // carried forward
	assert.Equal(t, -0.5, vals[3])
	assert.Equal(t, -0.5, vals[4])
}

func TestPearsonPerfectAndUndefined(t *testing.T) {
	r, ok := pearson([]float64{1, 2, 3, 4}, []float64{2, 4, 6, 8})
	require.True(t, ok)
	assert.InDelta(t, 1.0, r, 1e-12)

	r, ok = pearson([]float64{1, 2, 3, 4}, []float64{8, 6, 4, 2})
	require.True(t, ok)
	assert.InDelta(t, -1.0, r, 1e-12)

	_, ok = pearson([]float64{1, 2, 3}, []float64{5, 5, 5})
	assert.False(t, ok)

	_, ok = pearson([]float64{1}, []float64{2})
	assert.False(t, ok)
}

func TestVariance(t *testing.T) {
	assert.Zero(t, variance(nil))
	assert.Zero(t, variance([]float64{7}))
	assert.InDelta(t, 0.25, variance([]float64{1, 2}), 1e-12)
	assert.InDelta(t, 1.0, variance([]float64{1, -1, 1, -1}), 1e-12)
}
