package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"SectorPulse/internal/domain/models"
	domrepo "SectorPulse/internal/domain/repository"
	applogger "SectorPulse/pkg/logger"
)

// ClickHouseMarketStore implements MarketRepository on ClickHouse.
// Rows carry an ingested_at column so duplicate timestamps resolve to the
// latest write at read time (argMax).
type ClickHouseMarketStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

// NewClickHouseMarketStore creates ClickHouse market storage.
func NewClickHouseMarketStore(db *sql.DB, table string) *ClickHouseMarketStore {
	return &ClickHouseMarketStore{db: db, table: table}
}

// SetLogger injects a structured logger.
func (s *ClickHouseMarketStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *ClickHouseMarketStore) Series(ctx context.Context, symbol string, from, to time.Time) ([]models.MarketPoint, error) {
	start := time.Now()
	const qtpl = `
        SELECT ts,
               argMax(pct, ingested_at)    AS pct,
               argMax(price, ingested_at)  AS price,
               argMax(volume, ingested_at) AS volume
        FROM %s
        WHERE symbol = ? AND ts >= ? AND ts <= ?
        GROUP BY ts
        ORDER BY ts ASC
    `
	q := fmt.Sprintf(qtpl, s.table)
	rows, err := s.db.QueryContext(ctx, q, symbol, from, to)
	if err != nil {
		s.logErr("market series query error", symbol, err)
		return nil, fmt.Errorf("%w: market series: %v", domrepo.ErrDataSourceUnavailable, err)
	}
	defer rows.Close()

	out := make([]models.MarketPoint, 0, 256)
	for rows.Next() {
		p := models.MarketPoint{Symbol: symbol}
		if err := rows.Scan(&p.Timestamp, &p.PercentChange, &p.Price, &p.Volume); err != nil {
			s.logErr("market series scan error", symbol, err)
			return nil, fmt.Errorf("scan market point: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		s.logErr("market series rows error", symbol, err)
		return nil, fmt.Errorf("%w: market series rows: %v", domrepo.ErrDataSourceUnavailable, err)
	}
	if s.l != nil {
		s.l.Debug("market series loaded",
			applogger.String("symbol", symbol),
			applogger.Int("rows", len(out)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return out, nil
}

func (s *ClickHouseMarketStore) LastClose(ctx context.Context, symbol string) (float64, bool, error) {
	q := fmt.Sprintf("SELECT price FROM %s WHERE symbol = ? ORDER BY ts DESC, ingested_at DESC LIMIT 1", s.table)
	var price float64
	err := s.db.QueryRowContext(ctx, q, symbol).Scan(&price)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("%w: last close: %v", domrepo.ErrDataSourceUnavailable, err)
	}
	return price, true, nil
}

func (s *ClickHouseMarketStore) Store(ctx context.Context, p *models.MarketPoint) error {
	q := fmt.Sprintf("INSERT INTO %s (ts, symbol, pct, price, volume, ingested_at) VALUES (?, ?, ?, ?, ?, ?)", s.table)
	_, err := s.db.ExecContext(ctx, q, p.Timestamp, p.Symbol, p.PercentChange, p.Price, p.Volume, time.Now().UTC())
	return err
}

func (s *ClickHouseMarketStore) StoreBatch(ctx context.Context, pts []*models.MarketPoint) error {
	if len(pts) == 0 {
		return nil
	}
	// Multi-row VALUES inserts, chunked to bound statement size.
	const chunkSize = 2000
	now := time.Now().UTC()
	for start := 0; start < len(pts); start += chunkSize {
		end := start + chunkSize
		if end > len(pts) {
			end = len(pts)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*6)
		for _, p := range pts[start:end] {
			if p == nil || p.Symbol == "" || p.Timestamp.IsZero() {
				continue
			}
			values = append(values, "(?, ?, ?, ?, ?, ?)")
			args = append(args, p.Timestamp, p.Symbol, p.PercentChange, p.Price, p.Volume, now)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s (ts, symbol, pct, price, volume, ingested_at) VALUES %s", s.table, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return err
		}
	}
	return nil
}

func (s *ClickHouseMarketStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseMarketStore) logErr(msg, symbol string, err error) {
	if s.l == nil {
		return
	}
	s.l.Error(msg,
		applogger.String("table", s.table),
		applogger.String("symbol", symbol),
		applogger.Error(err),
	)
}

var _ domrepo.MarketRepository = (*ClickHouseMarketStore)(nil)
