package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"SectorPulse/internal/domain/models"
	drepo "SectorPulse/internal/domain/repository"
)

// QuoteProcessor turns raw quotes into market points (percent change against
// the previous close) and routes them to the configured backend.
type QuoteProcessor struct {
	pub     drepo.Publisher
	store   drepo.MarketRepository
	metrics drepo.Metrics
	backend string

	mu        sync.Mutex
	lastClose map[string]float64
}

// NewQuoteProcessor creates a new QuoteProcessor instance.
func NewQuoteProcessor(pub drepo.Publisher, store drepo.MarketRepository, metrics drepo.Metrics, backend string) *QuoteProcessor {
	return &QuoteProcessor{
		pub:       pub,
		store:     store,
		metrics:   metrics,
		backend:   backend,
		lastClose: make(map[string]float64),
	}
}

// Process converts one quote and routes the resulting market point.
func (p *QuoteProcessor) Process(ctx context.Context, q *models.Quote) error {
	if q == nil {
		return fmt.Errorf("quote is nil")
	}

	start := time.Now()
	point := &models.MarketPoint{
		Symbol:        q.Symbol,
		Timestamp:     q.Timestamp,
		PercentChange: p.percentChange(ctx, q),
		Price:         q.Price,
		Volume:        q.Volume,
	}

	var err error
	switch p.backend {
	case "kafka":
		err = p.pub.Publish(ctx, point)
	case "clickhouse":
		err = p.store.Store(ctx, point)
	default:
		err = fmt.Errorf("unknown backend: %s", p.backend)
	}
	if err != nil {
		p.metrics.RecordError("process")
		return fmt.Errorf("process quote: %w", err)
	}

	p.setLastClose(q.Symbol, q.Price)
	p.metrics.RecordMessageSent(p.backend, q.Symbol)
	p.metrics.RecordLatency("process", time.Since(start).Seconds())
	return nil
}

// ProcessBatch routes pre-built market points in one call, used by backfill.
func (p *QuoteProcessor) ProcessBatch(ctx context.Context, pts []*models.MarketPoint) error {
	if len(pts) == 0 {
		return nil
	}

	start := time.Now()
	var err error
	switch p.backend {
	case "kafka":
		err = p.pub.PublishBatch(ctx, pts)
	case "clickhouse":
		err = p.store.StoreBatch(ctx, pts)
	default:
		err = fmt.Errorf("unknown backend: %s", p.backend)
	}
	if err != nil {
		p.metrics.RecordError("process_batch")
		return fmt.Errorf("process batch: %w", err)
	}

	for _, pt := range pts {
		p.setLastClose(pt.Symbol, pt.Price)
		p.metrics.RecordMessageSent(p.backend, pt.Symbol)
	}
	p.metrics.RecordLatency("process_batch", time.Since(start).Seconds())
	return nil
}

// percentChange compares against the previous close, falling back to the
// store for the first quote of a symbol after startup. A symbol with no
// history at all yields 0 for its first point.
func (p *QuoteProcessor) percentChange(ctx context.Context, q *models.Quote) float64 {
	p.mu.Lock()
	prev, ok := p.lastClose[q.Symbol]
	p.mu.Unlock()

	if !ok && p.store != nil {
		if close, found, err := p.store.LastClose(ctx, q.Symbol); err == nil && found {
			prev, ok = close, true
		}
	}
	if !ok || prev == 0 {
		return 0
	}
	return (q.Price - prev) / prev * 100
}

func (p *QuoteProcessor) setLastClose(symbol string, price float64) {
	if price <= 0 {
		return
	}
	p.mu.Lock()
	p.lastClose[symbol] = price
	p.mu.Unlock()
}

// Close closes underlying resources if available.
func (p *QuoteProcessor) Close() {
	if p.pub != nil {
		_ = p.pub.Close()
	}
}
