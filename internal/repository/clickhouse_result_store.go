package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"SectorPulse/internal/domain/models"
	domrepo "SectorPulse/internal/domain/repository"
	"SectorPulse/pkg/cache"
	applogger "SectorPulse/pkg/logger"
)

const defaultResultCacheTTL = 30 * time.Second

// ClickHouseResultStore persists correlation results. History is append-only
// in ClickHouse; the latest row per ticker is what Latest serves. A cache in
// front keeps dashboard reads off ClickHouse between refresh cycles.
type ClickHouseResultStore struct {
	db       *sql.DB
	table    string
	cache    cache.Service
	cacheTTL time.Duration
	l        *applogger.Logger
}

// NewClickHouseResultStore creates result storage. cache may be nil.
func NewClickHouseResultStore(db *sql.DB, table string, c cache.Service) *ClickHouseResultStore {
	return &ClickHouseResultStore{db: db, table: table, cache: c, cacheTTL: defaultResultCacheTTL}
}

// SetLogger injects a structured logger.
func (s *ClickHouseResultStore) SetLogger(l *applogger.Logger) { s.l = l }

// SetCacheTTL overrides how long Latest results stay cached. Non-positive
// values keep the default.
func (s *ClickHouseResultStore) SetCacheTTL(d time.Duration) {
	if d > 0 {
		s.cacheTTL = d
	}
}

func (s *ClickHouseResultStore) Upsert(ctx context.Context, r *models.CorrelationResult) error {
	q := fmt.Sprintf("INSERT INTO %s (id, sector, symbol, strength, confidence, lag, data_points, computed_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)", s.table)
	_, err := s.db.ExecContext(ctx, q,
		r.ID, r.Sector, r.Symbol, r.Strength, r.Confidence, int32(r.Lag), int32(r.DataPoints), r.ComputedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: upsert result: %v", domrepo.ErrDataSourceUnavailable, err)
	}
	if s.cache != nil {
		// Invalidate; the next read repopulates with the fresh run.
		_ = s.cache.Delete(ctx, s.listKey(r.Sector))
	}
	return nil
}

func (s *ClickHouseResultStore) Latest(ctx context.Context, sector string, limit int) ([]models.CorrelationResult, error) {
	if limit <= 0 {
		limit = 100
	}
	if s.cache != nil {
		var cached []models.CorrelationResult
		if err := s.cache.Get(ctx, s.listKey(sector), &cached); err == nil {
			if len(cached) > limit {
				cached = cached[:limit]
			}
			return cached, nil
		}
	}

	const qtpl = `
        SELECT symbol,
               argMax(id, computed_at)          AS id,
               argMax(strength, computed_at)    AS strength,
               argMax(confidence, computed_at)  AS confidence,
               argMax(lag, computed_at)         AS lag,
               argMax(data_points, computed_at) AS data_points,
               max(computed_at)                 AS computed_at
        FROM %s
        WHERE sector = ?
        GROUP BY symbol
        ORDER BY abs(strength) DESC, symbol ASC
        LIMIT ?
    `
	q := fmt.Sprintf(qtpl, s.table)
	rows, err := s.db.QueryContext(ctx, q, sector, limit)
	if err != nil {
		s.logErr("result latest query error", sector, err)
		return nil, fmt.Errorf("%w: latest results: %v", domrepo.ErrDataSourceUnavailable, err)
	}
	defer rows.Close()

	out := make([]models.CorrelationResult, 0, limit)
	for rows.Next() {
		var (
			r    models.CorrelationResult
			lag  int32
			dpts int32
		)
		if err := rows.Scan(&r.Symbol, &r.ID, &r.Strength, &r.Confidence, &lag, &dpts, &r.ComputedAt); err != nil {
			s.logErr("result latest scan error", sector, err)
			return nil, fmt.Errorf("scan result: %w", err)
		}
		r.Sector = sector
		r.Lag = int(lag)
		r.DataPoints = int(dpts)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		s.logErr("result latest rows error", sector, err)
		return nil, fmt.Errorf("%w: latest result rows: %v", domrepo.ErrDataSourceUnavailable, err)
	}

	if s.cache != nil {
		_ = s.cache.Set(ctx, s.listKey(sector), out, s.cacheTTL)
	}
	return out, nil
}

func (s *ClickHouseResultStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseResultStore) listKey(sector string) string {
	return cache.GenerateKey("correlations", sector)
}

func (s *ClickHouseResultStore) logErr(msg, sector string, err error) {
	if s.l == nil {
		return
	}
	s.l.Error(msg,
		applogger.String("table", s.table),
		applogger.String("sector", sector),
		applogger.Error(err),
	)
}

var _ domrepo.ResultStore = (*ClickHouseResultStore)(nil)
