package middleware

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

type stubProc struct {
	mu   sync.Mutex
	seen []*models.Quote
	err  error
}

func (s *stubProc) Process(ctx context.Context, q *models.Quote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.seen = append(s.seen, q)
	return nil
}

func (s *stubProc) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}

type stubMetrics struct {
	mu     sync.Mutex
	errors map[string]int
}

func (s *stubMetrics) RecordMessageSent(backend, symbol string) {}
func (s *stubMetrics) RecordError(kind string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.errors == nil {
		s.errors = make(map[string]int)
	}
	s.errors[kind]++
}
func (s *stubMetrics) RecordCorrelation(sector, symbol string, strength, confidence float64) {}
func (s *stubMetrics) RecordLatency(op string, seconds float64)                              {}

func (s *stubMetrics) errCount(kind string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errors[kind]
}

func validBid(symbol string) *models.Quote {
	return &models.Quote{
		Symbol:    symbol,
		Timestamp: time.Date(2026, 2, 1, 15, 0, 0, 0, time.UTC),
		Price:     42.5,
		Volume:    10,
	}
}

func TestPipelineRejectsInvalidQuotes(t *testing.T) {
	proc := &stubProc{}
	metrics := &stubMetrics{}
	p := NewIngestPipeline(proc, metrics)

	cases := []*models.Quote{
		nil,
		{Symbol: "", Timestamp: time.Now(), Price: 1},
		{Symbol: "AAA", Price: 1},
		{Symbol: "AAA", Timestamp: time.Now(), Price: 0},
		{Symbol: "AAA", Timestamp: time.Now(), Price: -3},
		{Symbol: "AAA", Timestamp: time.Now(), Price: 1, Volume: -1},
	}
	for _, q := range cases {
		require.Error(t, p.Process(context.Background(), q))
	}
	assert.Zero(t, proc.count())
	assert.Equal(t, len(cases), metrics.errCount("pipeline_validate"))
}

func TestPipelineThrottlesPerSymbol(t *testing.T) {
	proc := &stubProc{}
	metrics := &stubMetrics{}
	p := NewIngestPipeline(proc, metrics, WithMaxRPS(1))

	// first accepted, immediate second throttled, other symbol unaffected
	require.NoError(t, p.Process(context.Background(), validBid("AAA")))
	require.NoError(t, p.Process(context.Background(), validBid("AAA")))
	require.NoError(t, p.Process(context.Background(), validBid("BBB")))

	assert.Equal(t, 2, proc.count())
	assert.Equal(t, 1, metrics.errCount("pipeline_throttle"))
}

func TestPipelineBuffersOnDownstreamFailure(t *testing.T) {
	proc := &stubProc{err: errors.New("store down")}
	metrics := &stubMetrics{}
	p := NewIngestPipeline(proc, metrics, WithBufferSize(4))

	err := p.Process(context.Background(), validBid("AAA"))
	require.Error(t, err)
	assert.Equal(t, 1, metrics.errCount("pipeline_process"))

	// buffered quote flushes once downstream recovers
	proc.mu.Lock()
	proc.err = nil
	proc.mu.Unlock()

	p.Start(context.Background())
	defer p.Stop()

	require.Eventually(t, func() bool { return proc.count() == 1 },
		2*time.Second, 10*time.Millisecond)
}
