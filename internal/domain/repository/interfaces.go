package repository

import (
	"context"
	"errors"
	"time"

	"SectorPulse/internal/domain/models"
)

// ErrDataSourceUnavailable indicates the backing store could not be reached.
// Callers treat it as recoverable: skip the ticker, log, continue the batch.
var ErrDataSourceUnavailable = errors.New("data source unavailable")

// EventRepository provides read/write access to raw domain events.
type EventRepository interface {
	// Events returns a sector's events within [from, to], ascending by timestamp.
	Events(ctx context.Context, sector string, from, to time.Time) ([]models.RawEvent, error)
	Store(ctx context.Context, sector string, e *models.RawEvent) error
	Health(ctx context.Context) error
}

// MarketRepository provides the trailing per-ticker market series.
type MarketRepository interface {
	// Series returns points within [from, to], ascending by timestamp, with
	// duplicate timestamps collapsed to the latest write. An empty slice is
	// not an error.
	Series(ctx context.Context, symbol string, from, to time.Time) ([]models.MarketPoint, error)
	// LastClose returns the most recent stored price for a symbol, or ok=false
	// when the symbol has no history yet.
	LastClose(ctx context.Context, symbol string) (float64, bool, error)
	Store(ctx context.Context, p *models.MarketPoint) error
	StoreBatch(ctx context.Context, pts []*models.MarketPoint) error
	Health(ctx context.Context) error
}

// ResultStore persists correlation results, keeping the latest per ticker
// authoritative for display while retaining history.
type ResultStore interface {
	Upsert(ctx context.Context, r *models.CorrelationResult) error
	Latest(ctx context.Context, sector string, limit int) ([]models.CorrelationResult, error)
	Health(ctx context.Context) error
}

// Publisher ships market points to the streaming backend.
type Publisher interface {
	Publish(ctx context.Context, p *models.MarketPoint) error
	PublishBatch(ctx context.Context, pts []*models.MarketPoint) error
	Close() error
}

// MarketStream is a live quote feed for the configured tickers.
type MarketStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.Quote, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// Metrics records operational counters for ingestion and correlation runs.
type Metrics interface {
	RecordMessageSent(backend, symbol string)
	RecordError(kind string)
	RecordCorrelation(sector, symbol string, strength, confidence float64)
	RecordLatency(op string, seconds float64)
}
