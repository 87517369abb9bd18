package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"SectorPulse/internal/domain/models"
	domrepo "SectorPulse/internal/domain/repository"
	applogger "SectorPulse/pkg/logger"
)

// ClickHouseEventStore implements EventRepository on ClickHouse.
type ClickHouseEventStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

// NewClickHouseEventStore creates ClickHouse event storage.
func NewClickHouseEventStore(db *sql.DB, table string) *ClickHouseEventStore {
	return &ClickHouseEventStore{db: db, table: table}
}

// SetLogger injects a structured logger.
func (s *ClickHouseEventStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *ClickHouseEventStore) Events(ctx context.Context, sector string, from, to time.Time) ([]models.RawEvent, error) {
	start := time.Now()
	const qtpl = `
        SELECT id, ts, severity, impact, category, region, metadata
        FROM %s
        WHERE sector = ? AND ts >= ? AND ts <= ?
        ORDER BY ts ASC
    `
	q := fmt.Sprintf(qtpl, s.table)
	rows, err := s.db.QueryContext(ctx, q, sector, from, to)
	if err != nil {
		s.logErr("event query error", sector, err)
		return nil, fmt.Errorf("%w: events: %v", domrepo.ErrDataSourceUnavailable, err)
	}
	defer rows.Close()

	out := make([]models.RawEvent, 0, 256)
	for rows.Next() {
		var (
			e        models.RawEvent
			sev      string
			impact   string
			category string
			meta     string
		)
		if err := rows.Scan(&e.ID, &e.Timestamp, &sev, &impact, &category, &e.Region, &meta); err != nil {
			s.logErr("event scan error", sector, err)
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Severity = models.Severity(sev)
		e.Impact = models.Impact(impact)
		e.Category = models.Category(category)
		if meta != "" {
			// metadata is stored as a JSON blob; keep events usable even if
			// one blob is corrupt
			_ = json.Unmarshal([]byte(meta), &e.Metadata)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		s.logErr("event rows error", sector, err)
		return nil, fmt.Errorf("%w: event rows: %v", domrepo.ErrDataSourceUnavailable, err)
	}
	if s.l != nil {
		s.l.Debug("events loaded",
			applogger.String("sector", sector),
			applogger.Int("rows", len(out)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return out, nil
}

func (s *ClickHouseEventStore) Store(ctx context.Context, sector string, e *models.RawEvent) error {
	meta := ""
	if len(e.Metadata) > 0 {
		if b, err := json.Marshal(e.Metadata); err == nil {
			meta = string(b)
		}
	}
	q := fmt.Sprintf("INSERT INTO %s (id, sector, ts, severity, impact, category, region, metadata) VALUES (?, ?, ?, ?, ?, ?, ?, ?)", s.table)
	_, err := s.db.ExecContext(ctx, q,
		e.ID,
		sector,
		e.Timestamp,
		string(e.Severity),
		string(e.Impact),
		string(e.Category),
		e.Region,
		meta,
	)
	return err
}

func (s *ClickHouseEventStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseEventStore) logErr(msg, sector string, err error) {
	if s.l == nil {
		return
	}
	s.l.Error(msg,
		applogger.String("table", s.table),
		applogger.String("sector", sector),
		applogger.Error(err),
	)
}

var _ domrepo.EventRepository = (*ClickHouseEventStore)(nil)
