package usecase

import (
	"context"
	"fmt"

	drepo "SectorPulse/internal/domain/repository"
	"SectorPulse/internal/services/quotes"
	applogger "SectorPulse/pkg/logger"
)

// Backfiller seeds the market store with trailing daily history so the first
// correlation pass has a full window to work with.
type Backfiller struct {
	quotes *quotes.Client
	store  drepo.MarketRepository
	log    *applogger.Logger
}

func NewBackfiller(q *quotes.Client, store drepo.MarketRepository, log *applogger.Logger) *Backfiller {
	return &Backfiller{quotes: q, store: store, log: log}
}

// Seed fetches trailing history for every symbol that has no stored closes
// yet. Symbols that already have data are left alone. Fetch failures are
// logged and skipped so one bad symbol does not block startup.
func (b *Backfiller) Seed(ctx context.Context, symbols []string, days int) error {
	if days <= 0 {
		days = 30
	}
	var seeded int
	for _, sym := range symbols {
		if err := ctx.Err(); err != nil {
			return err
		}
		_, found, err := b.store.LastClose(ctx, sym)
		if err != nil {
			return fmt.Errorf("backfill probe %s: %w", sym, err)
		}
		if found {
			continue
		}
		pts, err := b.quotes.TrailingSeries(ctx, sym, days)
		if err != nil {
			b.log.Warn("backfill fetch failed",
				applogger.String("symbol", sym),
				applogger.Error(err))
			continue
		}
		if len(pts) == 0 {
			continue
		}
		if err := b.store.StoreBatch(ctx, pts); err != nil {
			return fmt.Errorf("backfill store %s: %w", sym, err)
		}
		seeded++
		b.log.Info("backfilled symbol",
			applogger.String("symbol", sym),
			applogger.Int("points", len(pts)))
	}
	if seeded > 0 {
		b.log.Info("backfill complete", applogger.Int("symbols", seeded))
	}
	return nil
}
