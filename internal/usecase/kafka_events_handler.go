package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"SectorPulse/internal/domain/models"
	domrepo "SectorPulse/internal/domain/repository"
	pkgkafka "SectorPulse/pkg/kafka"
	xutil "SectorPulse/pkg/util"
)

// KafkaEventsHandler consumes raw domain events published by the sector
// feeds (conflict, regulation, health) and writes them to the event store.
type KafkaEventsHandler struct {
	topic   string
	storage domrepo.EventRepository
	metrics domrepo.Metrics
}

func NewKafkaEventsHandler(topic string, storage domrepo.EventRepository, metrics domrepo.Metrics) *KafkaEventsHandler {
	return &KafkaEventsHandler{topic: topic, storage: storage, metrics: metrics}
}

func (h *KafkaEventsHandler) Topic() string { return h.topic }

// incoming message schema:
// {id, sector, t, severity, impact, category, region, metadata}
// t is either unix seconds/millis or an RFC3339 string.
func (h *KafkaEventsHandler) Handle(ctx context.Context, b []byte) error {
	var m struct {
		ID       string          `json:"id"`
		Sector   string          `json:"sector"`
		T        json.RawMessage `json:"t"`
		Severity string          `json:"severity"`
		Impact   string          `json:"impact"`
		Category string          `json:"category"`
		Region   string          `json:"region"`
		Metadata map[string]any  `json:"metadata"`
	}
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	if _, ok := domrepo.NormalizeSector(m.Sector); !ok {
		h.metrics.RecordError("consumer_unknown_sector")
		return fmt.Errorf("unknown sector %q", m.Sector)
	}
	ts, err := parseEventTime(m.T)
	if err != nil {
		h.metrics.RecordError("consumer_bad_timestamp")
		return err
	}

	start := time.Now()
	err = h.storage.Store(ctx, m.Sector, &models.RawEvent{
		ID:        m.ID,
		Timestamp: ts,
		Severity:  models.Severity(m.Severity),
		Impact:    models.Impact(m.Impact),
		Category:  models.Category(m.Category),
		Region:    m.Region,
		Metadata:  m.Metadata,
	})
	h.metrics.RecordLatency("event_insert_seconds", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("consumer_store")
		return err
	}
	h.metrics.RecordMessageSent("clickhouse", m.Sector)
	return nil
}

func parseEventTime(raw json.RawMessage) (time.Time, error) {
	if len(raw) == 0 {
		return time.Time{}, fmt.Errorf("event timestamp missing")
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err == nil {
		if n > 1e11 { // ms
			n = n / 1000
		}
		return time.Unix(n, 0).UTC(), nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if t, ok := xutil.ParseTime(s); ok {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparsable event timestamp %s", string(raw))
}

var _ pkgkafka.MessageHandler = (*KafkaEventsHandler)(nil)
