package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SectorPulse/internal/domain/models"
)

const sampleYAML = `
environment: test
backend:
  type: clickhouse
feed:
  api_key: test-key
  websocket_url: wss://example.test/stream
correlations:
  schedule: "@every 6h"
  sectors:
    defense:
      tickers: [LMT, RTX, NOC]
      max_lag_periods: 5
      min_data_points: 3
      window_days: 30
      event_aggregation: sum
    energy:
      tickers: [XOM, LMT]
      event_aggregation: max
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadValid(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "test", cfg.Environment)
	require.Contains(t, cfg.Correlations.Sectors, "defense")

	params := cfg.Correlations.Sectors["defense"].Params()
	assert.Equal(t, 5, params.MaxLagPeriods)
	assert.Equal(t, 30, params.WindowDays)
	assert.Equal(t, models.AggregateSum, params.Aggregation)
}

func TestFeedSymbolsDerivedFromSectors(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	syms := cfg.FeedSymbols()
	assert.ElementsMatch(t, []string{"LMT", "RTX", "NOC", "XOM"}, syms)
}

func TestValidateRejectsBadAggregation(t *testing.T) {
	bad := sampleYAML + `
    health:
      tickers: [JNJ]
      event_aggregation: median
`
	_, err := Load(writeConfig(t, bad))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "event_aggregation")
}

func TestValidateRequiresSectors(t *testing.T) {
	_, err := Load(writeConfig(t, `
environment: test
backend:
  type: kafka
feed:
  api_key: k
correlations:
  schedule: "@hourly"
`))
	require.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("FEED_API_KEY", "env-key")
	t.Setenv("BACKEND", "kafka")

	cfg, err := LoadWithEnv(writeConfig(t, sampleYAML))
	require.NoError(t, err)
	assert.Equal(t, "env-key", cfg.Feed.APIKey)
	assert.Equal(t, "kafka", cfg.Backend.Type)
}
