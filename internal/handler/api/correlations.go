package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	models "SectorPulse/internal/domain/models"
	domrepo "SectorPulse/internal/domain/repository"
	icache "SectorPulse/internal/service/cache"
	"SectorPulse/internal/service/metrics"
	"SectorPulse/internal/service/ratelimit"
	"SectorPulse/internal/usecase"
	xhttp "SectorPulse/pkg/http"
	applogger "SectorPulse/pkg/logger"
	"SectorPulse/pkg/queue"
)

const defaultResponseCacheTTL = 15 * time.Second

// CorrelationsHandler serves per-sector correlation results over Echo.
type CorrelationsHandler struct {
	logger   *applogger.Logger
	results  domrepo.ResultStore
	events   domrepo.EventRepository
	market   domrepo.MarketRepository
	queue    queue.QueueService
	cache    icache.BytesCache
	cacheTTL time.Duration
	rl       *ratelimit.Limiter
}

func NewCorrelationsHandler(logger *applogger.Logger, results domrepo.ResultStore, events domrepo.EventRepository, market domrepo.MarketRepository, q queue.QueueService) *CorrelationsHandler {
	metrics.Register()
	return &CorrelationsHandler{
		logger:   logger,
		results:  results,
		events:   events,
		market:   market,
		queue:    q,
		cacheTTL: defaultResponseCacheTTL,
		rl:       ratelimit.New(),
	}
}

// SetCache enables response caching for list reads. A non-positive ttl keeps
// the default.
func (h *CorrelationsHandler) SetCache(c icache.BytesCache, ttl time.Duration) {
	h.cache = c
	if ttl > 0 {
		h.cacheTTL = ttl
	}
}

func (h *CorrelationsHandler) cacheControl() string {
	return "private, max-age=" + strconv.Itoa(int(h.cacheTTL/time.Second))
}

func (h *CorrelationsHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/:sector/correlations", h.Latest)
	g.POST("/:sector/correlations/recompute", h.Recompute)
	e.GET("/healthz", h.Health)
}

// Latest returns the most recent correlation results for one sector,
// strongest relationships first.
func (h *CorrelationsHandler) Latest(c echo.Context) error {
	start := time.Now()
	endpoint := "correlations"
	defer func() { metrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	req := &models.CorrelationsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	sector, ok := domrepo.NormalizeSector(req.Sector)
	if !ok {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("unknown sector %q", req.Sector))
	}
	if !h.rl.Allow(c.RealIP()+":correlations", 10, 5) {
		h.logger.Warn("correlations rate_limited", applogger.String("remote", c.RealIP()))
		return xhttp.DataResponse(c, http.StatusTooManyRequests, "rate limited")
	}

	cacheKey := "api:correlations:" + string(sector) + ":" + strconv.Itoa(req.Limit)
	if h.cache != nil {
		if b, found, err := h.cache.GetBytes(cacheKey); err != nil {
			h.logger.Warn("correlations cache_get_error", applogger.Error(err))
		} else if found {
			var cached []*models.CorrelationResult
			if err := json.Unmarshal(b, &cached); err == nil {
				c.Response().Header().Set(echo.HeaderCacheControl, h.cacheControl())
				return xhttp.ListResponse(c, cached, int64(len(cached)))
			}
		}
	}

	rows, err := h.results.Latest(c.Request().Context(), string(sector), req.Limit)
	if err != nil {
		metrics.APIErrors.WithLabelValues(endpoint).Inc()
		h.logger.Error("correlations lookup error",
			applogger.String("sector", string(sector)),
			applogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}

	if h.cache != nil {
		if b, err := json.Marshal(rows); err == nil {
			if err := h.cache.SetBytes(cacheKey, b, h.cacheTTL); err != nil {
				h.logger.Warn("correlations cache_set_error", applogger.Error(err))
			}
		}
	}
	c.Response().Header().Set(echo.HeaderCacheControl, h.cacheControl())
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

// Recompute enqueues an asynchronous correlation pass for the sector.
func (h *CorrelationsHandler) Recompute(c echo.Context) error {
	endpoint := "recompute"
	start := time.Now()
	defer func() { metrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	req := &models.RecomputeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	sector, ok := domrepo.NormalizeSector(req.Sector)
	if !ok {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("unknown sector %q", req.Sector))
	}
	if !h.rl.Allow(c.RealIP()+":recompute", 2, 1) {
		h.logger.Warn("recompute rate_limited", applogger.String("remote", c.RealIP()))
		return xhttp.DataResponse(c, http.StatusTooManyRequests, "rate limited")
	}
	if h.queue == nil {
		return xhttp.DataResponse(c, http.StatusServiceUnavailable, "recompute queue not configured")
	}

	payload := usecase.RecomputePayload{Sector: string(sector)}
	if err := h.queue.PublishMessage(c.Request().Context(), usecase.RecomputeMessageType, payload); err != nil {
		metrics.APIErrors.WithLabelValues(endpoint).Inc()
		h.logger.Error("recompute enqueue error",
			applogger.String("sector", string(sector)),
			applogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.DataResponse(c, http.StatusAccepted, map[string]string{
		"sector": string(sector),
		"state":  "queued",
	})
}

// Health reports readiness of the backing stores.
func (h *CorrelationsHandler) Health(c echo.Context) error {
	ctx := c.Request().Context()
	checks := map[string]string{
		"events":  "ok",
		"market":  "ok",
		"results": "ok",
	}
	healthy := true
	if err := h.events.Health(ctx); err != nil {
		checks["events"] = describeHealthErr(err)
		healthy = false
	}
	if err := h.market.Health(ctx); err != nil {
		checks["market"] = describeHealthErr(err)
		healthy = false
	}
	if err := h.results.Health(ctx); err != nil {
		checks["results"] = describeHealthErr(err)
		healthy = false
	}
	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	return c.JSON(status, checks)
}

func describeHealthErr(err error) string {
	if errors.Is(err, domrepo.ErrDataSourceUnavailable) {
		return "unavailable"
	}
	return err.Error()
}

var _ xhttp.Handler = (*CorrelationsHandler)(nil)
