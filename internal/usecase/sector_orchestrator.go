package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"SectorPulse/internal/domain/models"
	domrepo "SectorPulse/internal/domain/repository"
	domsvc "SectorPulse/internal/domain/service"
	"SectorPulse/internal/services/correlation"
	applogger "SectorPulse/pkg/logger"
	xutil "SectorPulse/pkg/util"
)

const defaultTickerTimeout = 5 * time.Second

// SectorOrchestrator runs the correlation engine across a sector's ticker
// universe and assembles the reportable result set.
type SectorOrchestrator struct {
	events  domrepo.EventRepository
	market  domrepo.MarketRepository
	results domrepo.ResultStore
	norm    domsvc.Normalizer
	corr    domsvc.Correlator
	metrics domrepo.Metrics
	log     *applogger.Logger

	tickerTimeout time.Duration
	now           func() time.Time
}

// NewSectorOrchestrator wires the orchestrator from its collaborators.
func NewSectorOrchestrator(
	events domrepo.EventRepository,
	market domrepo.MarketRepository,
	results domrepo.ResultStore,
	norm domsvc.Normalizer,
	corr domsvc.Correlator,
	metrics domrepo.Metrics,
	log *applogger.Logger,
) *SectorOrchestrator {
	return &SectorOrchestrator{
		events:        events,
		market:        market,
		results:       results,
		norm:          norm,
		corr:          corr,
		metrics:       metrics,
		log:           log,
		tickerTimeout: defaultTickerTimeout,
		now:           time.Now,
	}
}

// WithTickerTimeout overrides the per-ticker deadline.
func (o *SectorOrchestrator) WithTickerTimeout(d time.Duration) *SectorOrchestrator {
	if d > 0 {
		o.tickerTimeout = d
	}
	return o
}

// WithClock overrides the window anchor. Intended for tests.
func (o *SectorOrchestrator) WithClock(now func() time.Time) *SectorOrchestrator {
	o.now = now
	return o
}

// Run computes correlations for every ticker in the sector and returns the
// results sorted by descending |strength|. Per-ticker failures are isolated:
// expected no-signal outcomes are skipped silently, data-source failures are
// logged and skipped. Only a failure to load the sector's events aborts the
// run.
func (o *SectorOrchestrator) Run(ctx context.Context, sector string, tickers []string, params models.CorrelationParams) ([]models.CorrelationResult, error) {
	start := o.now()
	to := start
	from := xutil.DayStart(to.AddDate(0, 0, -params.WindowDays))

	raw, err := o.events.Events(ctx, sector, from, to)
	if err != nil {
		o.metrics.RecordError("events_load")
		return nil, fmt.Errorf("load %s events: %w", sector, err)
	}

	scored := make([]models.ScoredEvent, 0, len(raw))
	for i := range raw {
		se, nerr := o.norm.Normalize(raw[i])
		if nerr != nil {
			// Malformed single event: drop it, never abort the batch.
			o.metrics.RecordError("event_normalize")
			o.log.Warn("dropping malformed event",
				applogger.String("sector", sector),
				applogger.Error(nerr),
			)
			continue
		}
		scored = append(scored, se)
	}

	workers := len(tickers)
	if n := runtime.GOMAXPROCS(0); workers > n {
		workers = n
	}
	if workers < 1 {
		return nil, nil
	}

	var (
		mu      sync.Mutex
		results = make([]models.CorrelationResult, 0, len(tickers))
		wg      sync.WaitGroup
		jobs    = make(chan string)
	)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for symbol := range jobs {
				if res, ok := o.runTicker(ctx, sector, symbol, scored, params); ok {
					mu.Lock()
					results = append(results, res)
					mu.Unlock()
				}
			}
		}()
	}

	for _, symbol := range tickers {
		select {
		case jobs <- symbol:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		ai, aj := math.Abs(results[i].Strength), math.Abs(results[j].Strength)
		if ai != aj {
			return ai > aj
		}
		return results[i].Symbol < results[j].Symbol
	})

	o.metrics.RecordLatency("sector_run", time.Since(start).Seconds())
	o.log.Info("sector correlation run finished",
		applogger.String("sector", sector),
		applogger.Int("tickers", len(tickers)),
		applogger.Int("results", len(results)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return results, nil
}

// runTicker loads one ticker's series, runs the engine, and persists the
// result. ok is false when this ticker produced no result this cycle.
func (o *SectorOrchestrator) runTicker(ctx context.Context, sector, symbol string, scored []models.ScoredEvent, params models.CorrelationParams) (models.CorrelationResult, bool) {
	tctx, cancel := context.WithTimeout(ctx, o.tickerTimeout)
	defer cancel()

	to := o.now()
	from := to.AddDate(0, 0, -params.WindowDays)

	series, err := o.market.Series(tctx, symbol, from, to)
	if err != nil {
		// Transient infra failure: skip this ticker, retry next cycle.
		o.metrics.RecordError("market_load")
		o.log.Warn("market series unavailable",
			applogger.String("sector", sector),
			applogger.String("symbol", symbol),
			applogger.Error(err),
		)
		return models.CorrelationResult{}, false
	}

	res, err := o.corr.Correlate(tctx, symbol, scored, series, params)
	switch {
	case err == nil:
	case errors.Is(err, correlation.ErrInsufficientData), errors.Is(err, correlation.ErrInsufficientOverlap):
		// No signal yet for this ticker; not an error to surface.
		return models.CorrelationResult{}, false
	default:
		o.metrics.RecordError("correlate")
		o.log.Warn("correlation failed",
			applogger.String("sector", sector),
			applogger.String("symbol", symbol),
			applogger.Error(err),
		)
		return models.CorrelationResult{}, false
	}

	res.ID = uuid.NewString()
	res.Sector = sector
	o.metrics.RecordCorrelation(sector, symbol, res.Strength, res.Confidence)

	if o.results != nil {
		if err := o.results.Upsert(tctx, &res); err != nil {
			// The computed result is still returned; persistence catches up
			// on the next cycle.
			o.metrics.RecordError("result_upsert")
			o.log.Error("result upsert failed",
				applogger.String("sector", sector),
				applogger.String("symbol", symbol),
				applogger.Error(err),
			)
		}
	}
	return res, true
}
