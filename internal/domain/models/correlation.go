package models

import "time"

// EventAggregation selects how multiple event scores landing in the same
// bucket are combined.
type EventAggregation string

const (
	AggregateSum          EventAggregation = "sum"
	AggregateMaxMagnitude EventAggregation = "max"
)

// CorrelationParams are the per-sector knobs for the correlation engine.
// Supplied by sector configuration; the engine treats them as read-only.
type CorrelationParams struct {
	MaxLagPeriods int
	MinDataPoints int
	WindowDays    int
	Aggregation   EventAggregation
}

// CorrelationResult is one ticker's best-fit lagged correlation against the
// sector's event series. Produced fresh on every orchestration run and never
// mutated afterward.
type CorrelationResult struct {
	ID         string    `json:"-"`
	Sector     string    `json:"-"`
	Symbol     string    `json:"stockSymbol"`
	Strength   float64   `json:"correlation"` // signed Pearson r at Lag, in [-1, 1]
	Confidence float64   `json:"confidence"`  // in [0, 1]
	Lag        int       `json:"lag"`         // periods; positive = events lead market
	DataPoints int       `json:"dataPoints"`  // paired buckets used at Lag
	ComputedAt time.Time `json:"lastCalculated"`
}
