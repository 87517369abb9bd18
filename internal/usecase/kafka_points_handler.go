package usecase

import (
	"context"
	"encoding/json"
	"time"

	"SectorPulse/internal/domain/models"
	domrepo "SectorPulse/internal/domain/repository"
	pkgkafka "SectorPulse/pkg/kafka"
)

// KafkaPointsHandler consumes market points from Kafka and writes to storage.
type KafkaPointsHandler struct {
	topic   string
	storage domrepo.MarketRepository
	metrics domrepo.Metrics
}

func NewKafkaPointsHandler(topic string, storage domrepo.MarketRepository, metrics domrepo.Metrics) *KafkaPointsHandler {
	return &KafkaPointsHandler{topic: topic, storage: storage, metrics: metrics}
}

func (h *KafkaPointsHandler) Topic() string { return h.topic }

// incoming message schema: {symbol, t, pct, price, vol}
func (h *KafkaPointsHandler) Handle(ctx context.Context, b []byte) error {
	var m struct {
		Symbol string  `json:"symbol"`
		T      int64   `json:"t"`
		Pct    float64 `json:"pct"`
		Price  float64 `json:"price"`
		Vol    float64 `json:"vol"`
	}
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	if m.T > 1e11 { // ms
		m.T = m.T / 1000
	}
	// E2E latency from event time to now (approx)
	h.metrics.RecordLatency("ingest_e2e_seconds", time.Since(time.Unix(m.T, 0)).Seconds())

	start := time.Now()
	err := h.storage.Store(ctx, &models.MarketPoint{
		Symbol:        m.Symbol,
		Timestamp:     time.Unix(m.T, 0).UTC(),
		PercentChange: m.Pct,
		Price:         m.Price,
		Volume:        m.Vol,
	})
	h.metrics.RecordLatency("ch_insert_seconds", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("consumer_store")
		return err
	}
	h.metrics.RecordMessageSent("clickhouse", m.Symbol)
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaPointsHandler)(nil)
