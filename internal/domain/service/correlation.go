package service

import (
	"context"

	"SectorPulse/internal/domain/models"
)

// Normalizer converts raw domain events into scored events.
type Normalizer interface {
	Normalize(e models.RawEvent) (models.ScoredEvent, error)
}

// Correlator estimates the best-supported lagged correlation between a
// sector's scored event series and one ticker's market series.
type Correlator interface {
	Correlate(ctx context.Context, symbol string, events []models.ScoredEvent, series []models.MarketPoint, params models.CorrelationParams) (models.CorrelationResult, error)
}
