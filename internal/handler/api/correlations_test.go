package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SectorPulse/internal/domain/models"
	applogger "SectorPulse/pkg/logger"
)

type fakeResultStore struct {
	rows []models.CorrelationResult
	err  error
}

func (f *fakeResultStore) Upsert(ctx context.Context, r *models.CorrelationResult) error {
	return nil
}

func (f *fakeResultStore) Latest(ctx context.Context, sector string, limit int) ([]models.CorrelationResult, error) {
	return f.rows, f.err
}

func (f *fakeResultStore) Health(ctx context.Context) error { return nil }

type recordingBytesCache struct {
	data map[string][]byte
	ttls map[string]time.Duration
}

func newRecordingBytesCache() *recordingBytesCache {
	return &recordingBytesCache{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (r *recordingBytesCache) GetBytes(key string) ([]byte, bool, error) {
	b, ok := r.data[key]
	return b, ok, nil
}

func (r *recordingBytesCache) SetBytes(key string, value []byte, ttl time.Duration) error {
	r.data[key] = value
	r.ttls[key] = ttl
	return nil
}

func testLogger(t *testing.T) *applogger.Logger {
	t.Helper()
	l, err := applogger.New(&applogger.Config{Level: "error", Format: "json", Output: "stderr"})
	require.NoError(t, err)
	return l
}

func latestContext(sector string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/"+sector+"/correlations", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/api/:sector/correlations")
	c.SetParamNames("sector")
	c.SetParamValues(sector)
	return c, rec
}

func TestLatestUsesConfiguredCacheTTL(t *testing.T) {
	store := &fakeResultStore{rows: []models.CorrelationResult{
		{Sector: "defense", Symbol: "LMT", Strength: 0.82, Confidence: 0.7, Lag: 1, DataPoints: 20},
	}}
	h := NewCorrelationsHandler(testLogger(t), store, nil, nil, nil)
	rc := newRecordingBytesCache()
	h.SetCache(rc, 45*time.Second)

	c, rec := latestContext("defense")
	require.NoError(t, h.Latest(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "private, max-age=45", rec.Header().Get(echo.HeaderCacheControl))
	assert.Equal(t, 45*time.Second, rc.ttls["api:correlations:defense:50"])
}

func TestLatestCacheTTLDefaultsWhenUnset(t *testing.T) {
	store := &fakeResultStore{rows: []models.CorrelationResult{}}
	h := NewCorrelationsHandler(testLogger(t), store, nil, nil, nil)
	rc := newRecordingBytesCache()
	h.SetCache(rc, 0)

	c, rec := latestContext("energy")
	require.NoError(t, h.Latest(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "private, max-age=15", rec.Header().Get(echo.HeaderCacheControl))
	assert.Equal(t, 15*time.Second, rc.ttls["api:correlations:energy:50"])
}

func TestLatestRejectsUnknownSector(t *testing.T) {
	store := &fakeResultStore{}
	h := NewCorrelationsHandler(testLogger(t), store, nil, nil, nil)

	c, rec := latestContext("crypto")
	require.NoError(t, h.Latest(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
