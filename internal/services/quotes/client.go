package quotes

import (
	"context"
	"fmt"
	"time"

	"SectorPulse/internal/domain/models"
	"SectorPulse/internal/service/ratelimit"
	"SectorPulse/pkg/config"
	xhttp "SectorPulse/pkg/http"
)

// Client fetches trailing daily series from the external quote API. Used to
// seed an empty market store at startup so the first correlation run has a
// window to work with.
type Client struct {
	baseURL string
	apiKey  string
	http    *xhttp.Client
	limiter *ratelimit.Limiter

	// token bucket knobs for the provider's free-tier ceiling
	rateCapacity float64
	ratePerSec   float64
}

// NewClient builds a quote API client with timeout and base URL from config.
func NewClient(cfg *config.Config) *Client {
	timeout := cfg.QuoteAPI.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL:      cfg.QuoteAPI.BaseURL,
		apiKey:       cfg.QuoteAPI.APIKey,
		http:         xhttp.NewClient(xhttp.WithTimeout(timeout)),
		limiter:      ratelimit.New(),
		rateCapacity: 5,
		ratePerSec:   1,
	}
}

type dailyBar struct {
	T     int64   `json:"t"` // unix seconds
	Close float64 `json:"c"`
	Pct   float64 `json:"dp"`
	Vol   float64 `json:"v"`
}

type dailyResp struct {
	Symbol string     `json:"symbol"`
	Bars   []dailyBar `json:"bars"`
}

// TrailingSeries fetches up to windowDays of daily bars for one symbol,
// oldest first.
func (c *Client) TrailingSeries(ctx context.Context, symbol string, windowDays int) ([]*models.MarketPoint, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("quote api not configured")
	}
	if !c.limiter.Allow("quote_api", c.rateCapacity, c.ratePerSec) {
		return nil, fmt.Errorf("quote api rate limited")
	}

	var resp dailyResp
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    fmt.Sprintf("%s/daily/%s", c.baseURL, symbol),
		Headers: map[string]string{
			"X-Api-Key": c.apiKey,
		},
		QueryParams: map[string][]string{
			"days": {fmt.Sprintf("%d", windowDays)},
		},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("get daily %s: %w", symbol, err)
	}

	pts := make([]*models.MarketPoint, 0, len(resp.Bars))
	for _, b := range resp.Bars {
		pts = append(pts, &models.MarketPoint{
			Symbol:        symbol,
			Timestamp:     time.Unix(b.T, 0).UTC(),
			PercentChange: b.Pct,
			Price:         b.Close,
			Volume:        b.Vol,
		})
	}
	return pts, nil
}
