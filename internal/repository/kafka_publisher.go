package repository

import (
	"context"

	"SectorPulse/internal/domain/models"
	domrepo "SectorPulse/internal/domain/repository"
	pkgkafka "SectorPulse/pkg/kafka"
)

// KafkaPointPublisher implements Publisher for market points over Kafka.
type KafkaPointPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaPointPublisher creates a Kafka market point publisher.
func NewKafkaPointPublisher(producer *pkgkafka.Producer, topic string) domrepo.Publisher {
	return &KafkaPointPublisher{producer: producer, topic: topic}
}

func (p *KafkaPointPublisher) Publish(ctx context.Context, pt *models.MarketPoint) error {
	return p.producer.Publish(ctx, p.topic, []byte(pt.Symbol), pointPayload(pt))
}

func (p *KafkaPointPublisher) PublishBatch(ctx context.Context, pts []*models.MarketPoint) error {
	if len(pts) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(pts))
	for i, pt := range pts {
		msgs[i] = pkgkafka.Message{
			Key:   []byte(pt.Symbol),
			Value: pointPayload(pt),
		}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func pointPayload(pt *models.MarketPoint) map[string]interface{} {
	return map[string]interface{}{
		"symbol": pt.Symbol,
		"t":      pt.Timestamp.Unix(),
		"pct":    pt.PercentChange,
		"price":  pt.Price,
		"vol":    pt.Volume,
	}
}

func (p *KafkaPointPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
