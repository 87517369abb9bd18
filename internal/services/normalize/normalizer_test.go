package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SectorPulse/internal/domain/models"
)

func mustNormalizer(t *testing.T) *EventNormalizer {
	t.Helper()
	n, err := New(DefaultScale())
	require.NoError(t, err)
	return n
}

func TestNormalizeScoring(t *testing.T) {
	n := mustNormalizer(t)
	ts := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	cases := []struct {
		severity models.Severity
		impact   models.Impact
		want     float64
	}{
		{models.SeverityLow, models.ImpactPositive, 1},
		{models.SeverityMedium, models.ImpactNegative, -3},
		{models.SeverityHigh, models.ImpactNegative, -6},
		{models.SeverityCritical, models.ImpactPositive, 9},
		{models.SeverityCritical, models.ImpactNeutral, 0},
	}
	for _, c := range cases {
		got, err := n.Normalize(models.RawEvent{
			Timestamp: ts,
			Severity:  c.severity,
			Impact:    c.impact,
			Category:  models.CategoryConflict,
			Region:    "EMEA",
		})
		require.NoError(t, err)
		assert.Equal(t, c.want, got.Score, "%s/%s", c.severity, c.impact)
		assert.Equal(t, ts, got.Timestamp)
		assert.Equal(t, "EMEA", got.Region)
	}
}

func TestNormalizeUnknownCategoryFallsBackToOther(t *testing.T) {
	n := mustNormalizer(t)
	got, err := n.Normalize(models.RawEvent{
		Timestamp: time.Now(),
		Severity:  models.SeverityLow,
		Impact:    models.ImpactPositive,
		Category:  models.Category("weather"),
	})
	require.NoError(t, err)
	assert.Equal(t, models.CategoryOther, got.Category)
}

func TestNormalizeInvalidSeverity(t *testing.T) {
	n := mustNormalizer(t)
	_, err := n.Normalize(models.RawEvent{
		Timestamp: time.Now(),
		Severity:  models.Severity("catastrophic"),
		Impact:    models.ImpactNegative,
	})
	assert.ErrorIs(t, err, ErrInvalidSeverity)
}

func TestNormalizeMissingTimestamp(t *testing.T) {
	n := mustNormalizer(t)
	_, err := n.Normalize(models.RawEvent{
		Severity: models.SeverityHigh,
		Impact:   models.ImpactNegative,
	})
	assert.ErrorIs(t, err, ErrMissingTimestamp)
}

func TestScaleValidation(t *testing.T) {
	_, err := New(Scale{Low: 1, Medium: 3, High: 3, Critical: 9})
	assert.Error(t, err)

	_, err = New(Scale{Low: 0, Medium: 3, High: 6, Critical: 9})
	assert.Error(t, err)

	_, err = New(Scale{Low: 1, Medium: 2, High: 4, Critical: 10})
	assert.NoError(t, err)
}
