package usecase

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SectorPulse/internal/domain/models"
	domrepo "SectorPulse/internal/domain/repository"
	"SectorPulse/internal/services/correlation"
	"SectorPulse/internal/services/normalize"
	applogger "SectorPulse/pkg/logger"
)

var orchBase = time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

type fakeEventRepo struct {
	events []models.RawEvent
	err    error
}

func (f *fakeEventRepo) Events(ctx context.Context, sector string, from, to time.Time) ([]models.RawEvent, error) {
	return f.events, f.err
}
func (f *fakeEventRepo) Store(ctx context.Context, sector string, e *models.RawEvent) error {
	return nil
}
func (f *fakeEventRepo) Health(ctx context.Context) error { return nil }

type fakeMarketRepo struct {
	series map[string][]models.MarketPoint
	errs   map[string]error
}

func (f *fakeMarketRepo) Series(ctx context.Context, symbol string, from, to time.Time) ([]models.MarketPoint, error) {
	if err, ok := f.errs[symbol]; ok {
		return nil, err
	}
	return f.series[symbol], nil
}
func (f *fakeMarketRepo) LastClose(ctx context.Context, symbol string) (float64, bool, error) {
	return 0, false, nil
}
func (f *fakeMarketRepo) Store(ctx context.Context, p *models.MarketPoint) error        { return nil }
func (f *fakeMarketRepo) StoreBatch(ctx context.Context, pts []*models.MarketPoint) error { return nil }
func (f *fakeMarketRepo) Health(ctx context.Context) error                               { return nil }

type fakeResultStore struct {
	mu      sync.Mutex
	upserts map[string]models.CorrelationResult
}

func (f *fakeResultStore) Upsert(ctx context.Context, r *models.CorrelationResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upserts == nil {
		f.upserts = make(map[string]models.CorrelationResult)
	}
	f.upserts[r.Symbol] = *r
	return nil
}
func (f *fakeResultStore) Latest(ctx context.Context, sector string, limit int) ([]models.CorrelationResult, error) {
	return nil, nil
}
func (f *fakeResultStore) Health(ctx context.Context) error { return nil }

type fakeMetrics struct {
	mu     sync.Mutex
	errors map[string]int
}

func (f *fakeMetrics) RecordMessageSent(backend, symbol string) {}
func (f *fakeMetrics) RecordError(kind string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.errors == nil {
		f.errors = make(map[string]int)
	}
	f.errors[kind]++
}
func (f *fakeMetrics) errorCount(kind string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.errors[kind]
}

func (f *fakeMetrics) RecordCorrelation(sector, symbol string, strength, confidence float64) {}
func (f *fakeMetrics) RecordLatency(op string, seconds float64)                              {}

func testLogger(t *testing.T) *applogger.Logger {
	t.Helper()
	l, err := applogger.New(&applogger.Config{Level: "error", Format: "json", Output: "stderr"})
	require.NoError(t, err)
	return l
}

// sectorEvents produces one event per day whose normalized scores form a
// fixed pattern: [6, -3, 9, 1, -6, 3, 6, -9, 1, 3].
func sectorEvents() []models.RawEvent {
	sev := []models.Severity{
		models.SeverityHigh, models.SeverityMedium, models.SeverityCritical,
		models.SeverityLow, models.SeverityHigh, models.SeverityMedium,
		models.SeverityHigh, models.SeverityCritical, models.SeverityLow,
		models.SeverityMedium,
	}
	imp := []models.Impact{
		models.ImpactPositive, models.ImpactNegative, models.ImpactPositive,
		models.ImpactPositive, models.ImpactNegative, models.ImpactPositive,
		models.ImpactPositive, models.ImpactNegative, models.ImpactPositive,
		models.ImpactPositive,
	}
	out := make([]models.RawEvent, 0, len(sev))
	for i := range sev {
		out = append(out, models.RawEvent{
			ID:        "evt-" + string(rune('a'+i)),
			Timestamp: orchBase.Add(time.Duration(i) * 24 * time.Hour),
			Severity:  sev[i],
			Impact:    imp[i],
			Category:  models.CategoryConflict,
		})
	}
	return out
}

func eventScores() []float64 {
	return []float64{6, -3, 9, 1, -6, 3, 6, -9, 1, 3}
}

func dailyPoints(symbol string, changes []float64) []models.MarketPoint {
	out := make([]models.MarketPoint, 0, len(changes))
	for i, c := range changes {
		out = append(out, models.MarketPoint{
			Symbol:        symbol,
			Timestamp:     orchBase.Add(time.Duration(i) * 24 * time.Hour),
			PercentChange: c,
		})
	}
	return out
}

func newTestOrchestrator(t *testing.T, ev domrepo.EventRepository, mk domrepo.MarketRepository, rs domrepo.ResultStore) *SectorOrchestrator {
	t.Helper()
	norm, err := normalize.New(normalize.DefaultScale())
	require.NoError(t, err)
	return NewSectorOrchestrator(ev, mk, rs, norm, correlation.NewEngine(), &fakeMetrics{}, testLogger(t)).
		WithClock(func() time.Time { return orchBase.Add(10 * 24 * time.Hour) }).
		WithTickerTimeout(2 * time.Second)
}

func TestOrchestratorPartialUniverse(t *testing.T) {
	scores := eventScores()

	// AAA tracks the event series at lag 1, BBB is weakly related, CCC is a
	// flat series, DDD has too little data, EEE's store is unreachable.
	aaa := make([]float64, len(scores))
	aaa[0] = 0.1
	for i := 1; i < len(aaa); i++ {
		aaa[i] = scores[i-1] / 3
	}
	bbb := []float64{0.5, -0.2, 0.7, 0.3, -0.4, 0.1, 0.6, -0.8, 0.2, 0.0}
	ccc := []float64{1.5, 1.5, 1.5, 1.5, 1.5, 1.5, 1.5, 1.5, 1.5, 1.5}

	market := &fakeMarketRepo{
		series: map[string][]models.MarketPoint{
			"AAA": dailyPoints("AAA", aaa),
			"BBB": dailyPoints("BBB", bbb),
			"CCC": dailyPoints("CCC", ccc),
			"DDD": dailyPoints("DDD", []float64{0.4, 0.2}),
		},
		errs: map[string]error{"EEE": domrepo.ErrDataSourceUnavailable},
	}
	store := &fakeResultStore{}
	orch := newTestOrchestrator(t, &fakeEventRepo{events: sectorEvents()}, market, store)

	params := models.CorrelationParams{MaxLagPeriods: 3, MinDataPoints: 3, WindowDays: 10, Aggregation: models.AggregateSum}
	results, err := orch.Run(context.Background(), "defense", []string{"AAA", "BBB", "CCC", "DDD", "EEE"}, params)
	require.NoError(t, err)

	require.Len(t, results, 3)
	assert.Equal(t, "AAA", results[0].Symbol)
	assert.Equal(t, 1, results[0].Lag)
	assert.InDelta(t, 1.0, results[0].Strength, 1e-9)

	// Sorted by descending |strength|; the flat series resolves to zero.
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, math.Abs(results[i-1].Strength), math.Abs(results[i].Strength))
	}
	last := results[len(results)-1]
	assert.Equal(t, "CCC", last.Symbol)
	assert.Zero(t, last.Strength)
	assert.Zero(t, last.Confidence)

	// Each produced result was upserted with identity fields set.
	require.Len(t, store.upserts, 3)
	for _, sym := range []string{"AAA", "BBB", "CCC"} {
		got, ok := store.upserts[sym]
		require.True(t, ok, sym)
		assert.Equal(t, "defense", got.Sector)
		assert.NotEmpty(t, got.ID)
	}
}

func TestOrchestratorDropsMalformedEvents(t *testing.T) {
	events := sectorEvents()
	events = append(events,
		models.RawEvent{ID: "bad-sev", Timestamp: orchBase, Severity: "apocalyptic", Impact: models.ImpactNegative},
		models.RawEvent{ID: "no-ts", Severity: models.SeverityLow, Impact: models.ImpactPositive},
	)

	scores := eventScores()
	aaa := make([]float64, len(scores))
	for i := 1; i < len(aaa); i++ {
		aaa[i] = scores[i-1]
	}
	market := &fakeMarketRepo{series: map[string][]models.MarketPoint{"AAA": dailyPoints("AAA", aaa)}}
	orch := newTestOrchestrator(t, &fakeEventRepo{events: events}, market, &fakeResultStore{})

	params := models.CorrelationParams{MaxLagPeriods: 3, MinDataPoints: 3, WindowDays: 10}
	results, err := orch.Run(context.Background(), "health", []string{"AAA"}, params)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 1, results[0].Lag)
}

func TestOrchestratorEventLoadFailureAbortsRun(t *testing.T) {
	orch := newTestOrchestrator(t,
		&fakeEventRepo{err: domrepo.ErrDataSourceUnavailable},
		&fakeMarketRepo{}, &fakeResultStore{})

	params := models.CorrelationParams{MaxLagPeriods: 3, MinDataPoints: 3, WindowDays: 10}
	_, err := orch.Run(context.Background(), "energy", []string{"AAA"}, params)
	assert.ErrorIs(t, err, domrepo.ErrDataSourceUnavailable)
}

func TestOrchestratorNoTickers(t *testing.T) {
	orch := newTestOrchestrator(t, &fakeEventRepo{events: sectorEvents()}, &fakeMarketRepo{}, &fakeResultStore{})

	params := models.CorrelationParams{MaxLagPeriods: 3, MinDataPoints: 3, WindowDays: 10}
	results, err := orch.Run(context.Background(), "energy", nil, params)
	require.NoError(t, err)
	assert.Empty(t, results)
}
