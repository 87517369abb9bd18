package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SectorPulse/internal/domain/models"
)

type recordingMarketRepo struct {
	fakeMarketRepo
	lastClose map[string]float64
	stored    []*models.MarketPoint
	batches   [][]*models.MarketPoint
}

func (r *recordingMarketRepo) LastClose(ctx context.Context, symbol string) (float64, bool, error) {
	c, ok := r.lastClose[symbol]
	return c, ok, nil
}

func (r *recordingMarketRepo) Store(ctx context.Context, p *models.MarketPoint) error {
	r.stored = append(r.stored, p)
	return nil
}

func (r *recordingMarketRepo) StoreBatch(ctx context.Context, pts []*models.MarketPoint) error {
	r.batches = append(r.batches, pts)
	return nil
}

type recordingPublisher struct {
	published []*models.MarketPoint
	err       error
	closed    bool
}

func (p *recordingPublisher) Publish(ctx context.Context, pt *models.MarketPoint) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, pt)
	return nil
}

func (p *recordingPublisher) PublishBatch(ctx context.Context, pts []*models.MarketPoint) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, pts...)
	return nil
}

func (p *recordingPublisher) Close() error {
	p.closed = true
	return nil
}

func quoteAt(symbol string, price float64, ts time.Time) *models.Quote {
	return &models.Quote{Symbol: symbol, Timestamp: ts, Price: price, Volume: 100}
}

func TestQuoteProcessorPercentChange(t *testing.T) {
	store := &recordingMarketRepo{lastClose: map[string]float64{}}
	proc := NewQuoteProcessor(nil, store, &fakeMetrics{}, "clickhouse")

	ts := time.Date(2026, 2, 1, 15, 0, 0, 0, time.UTC)
	require.NoError(t, proc.Process(context.Background(), quoteAt("AAA", 100, ts)))
	require.NoError(t, proc.Process(context.Background(), quoteAt("AAA", 103, ts.Add(time.Minute))))

	require.Len(t, store.stored, 2)
	assert.Zero(t, store.stored[0].PercentChange, "first point of an unseen symbol carries no change")
	assert.InDelta(t, 3.0, store.stored[1].PercentChange, 1e-9)
}

func TestQuoteProcessorSeedsFromStore(t *testing.T) {
	store := &recordingMarketRepo{lastClose: map[string]float64{"BBB": 200}}
	proc := NewQuoteProcessor(nil, store, &fakeMetrics{}, "clickhouse")

	ts := time.Date(2026, 2, 1, 15, 0, 0, 0, time.UTC)
	require.NoError(t, proc.Process(context.Background(), quoteAt("BBB", 190, ts)))

	require.Len(t, store.stored, 1)
	assert.InDelta(t, -5.0, store.stored[0].PercentChange, 1e-9)
}

func TestQuoteProcessorKafkaBackend(t *testing.T) {
	pub := &recordingPublisher{}
	proc := NewQuoteProcessor(pub, &recordingMarketRepo{lastClose: map[string]float64{}}, &fakeMetrics{}, "kafka")

	ts := time.Date(2026, 2, 1, 15, 0, 0, 0, time.UTC)
	require.NoError(t, proc.Process(context.Background(), quoteAt("CCC", 50, ts)))
	require.Len(t, pub.published, 1)
	assert.Equal(t, "CCC", pub.published[0].Symbol)

	proc.Close()
	assert.True(t, pub.closed)
}

func TestQuoteProcessorUnknownBackend(t *testing.T) {
	proc := NewQuoteProcessor(nil, &recordingMarketRepo{}, &fakeMetrics{}, "postgres")
	ts := time.Date(2026, 2, 1, 15, 0, 0, 0, time.UTC)
	err := proc.Process(context.Background(), quoteAt("DDD", 10, ts))
	require.Error(t, err)
}

func TestQuoteProcessorBatchUpdatesCloses(t *testing.T) {
	store := &recordingMarketRepo{lastClose: map[string]float64{}}
	proc := NewQuoteProcessor(nil, store, &fakeMetrics{}, "clickhouse")

	ts := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	pts := []*models.MarketPoint{
		{Symbol: "EEE", Timestamp: ts, Price: 10, PercentChange: 0},
		{Symbol: "EEE", Timestamp: ts.AddDate(0, 0, 1), Price: 11, PercentChange: 10},
	}
	require.NoError(t, proc.ProcessBatch(context.Background(), pts))
	require.Len(t, store.batches, 1)

	// the live quote that follows compares against the batch's last price
	require.NoError(t, proc.Process(context.Background(), quoteAt("EEE", 22, ts.AddDate(0, 0, 2))))
	require.Len(t, store.stored, 1)
	assert.InDelta(t, 100.0, store.stored[0].PercentChange, 1e-9)
}

func TestQuoteProcessorPublishFailure(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	metrics := &fakeMetrics{}
	proc := NewQuoteProcessor(pub, &recordingMarketRepo{lastClose: map[string]float64{}}, metrics, "kafka")

	ts := time.Date(2026, 2, 1, 15, 0, 0, 0, time.UTC)
	err := proc.Process(context.Background(), quoteAt("FFF", 10, ts))
	require.Error(t, err)
	assert.Equal(t, 1, metrics.errors["process"])
}
