package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SectorPulse/internal/domain/models"
)

// scriptedStream fails its first read session the way the live feed
// does: one error on errCh, then both channels close. Later sessions
// deliver quotes normally.
type scriptedStream struct {
	mu           sync.Mutex
	reads        int
	reconnects   int
	reconnectErr error
}

func (s *scriptedStream) Connect(ctx context.Context) error   { return nil }
func (s *scriptedStream) Subscribe(ctx context.Context) error { return nil }
func (s *scriptedStream) Close() error                        { return nil }
func (s *scriptedStream) IsConnected() bool                   { return true }

func (s *scriptedStream) Reconnect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reconnects++
	return s.reconnectErr
}

func (s *scriptedStream) Read(ctx context.Context) (<-chan *models.Quote, <-chan error) {
	s.mu.Lock()
	s.reads++
	session := s.reads
	s.mu.Unlock()

	quotes := make(chan *models.Quote, 8)
	errs := make(chan error, 1)
	if session == 1 {
		errs <- errors.New("marketfeed read: connection reset")
		close(errs)
		close(quotes)
	} else {
		quotes <- &models.Quote{Symbol: "AAPL", Price: 101, Timestamp: time.Now().UTC()}
	}
	return quotes, errs
}

func (s *scriptedStream) counts() (reads, reconnects int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads, s.reconnects
}

type syncMarketRepo struct {
	fakeMarketRepo
	mu     sync.Mutex
	stored []*models.MarketPoint
}

func (r *syncMarketRepo) LastClose(ctx context.Context, symbol string) (float64, bool, error) {
	return 0, false, nil
}

func (r *syncMarketRepo) Store(ctx context.Context, p *models.MarketPoint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stored = append(r.stored, p)
	return nil
}

func (r *syncMarketRepo) storedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stored)
}

func TestCollectorResubscribesAfterReadError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream := &scriptedStream{}
	store := &syncMarketRepo{}
	metrics := &fakeMetrics{}
	proc := NewQuoteProcessor(nil, store, metrics, "clickhouse")
	c := NewQuoteCollector(stream, proc, metrics, nil)

	require.NoError(t, c.Start(ctx))

	require.Eventually(t, func() bool {
		return store.storedCount() >= 1
	}, 2*time.Second, 10*time.Millisecond, "quotes should flow again after a read error")

	reads, reconnects := stream.counts()
	assert.Equal(t, 2, reads)
	assert.Equal(t, 1, reconnects)
	assert.Equal(t, 1, metrics.errorCount("stream"))
}

func TestCollectorStopsWhenReconnectFails(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream := &scriptedStream{reconnectErr: errors.New("dial: refused")}
	store := &syncMarketRepo{}
	metrics := &fakeMetrics{}
	proc := NewQuoteProcessor(nil, store, metrics, "clickhouse")
	c := NewQuoteCollector(stream, proc, metrics, nil)

	require.NoError(t, c.Start(ctx))

	require.Eventually(t, func() bool {
		return metrics.errorCount("reconnect") == 1
	}, 2*time.Second, 10*time.Millisecond)

	reads, reconnects := stream.counts()
	assert.Equal(t, 1, reads)
	assert.Equal(t, 1, reconnects)
	assert.Zero(t, store.storedCount())
}
