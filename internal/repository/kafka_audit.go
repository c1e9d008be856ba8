package repository

import (
	"context"

	"BorrowDesk/internal/domain/models"
	"BorrowDesk/pkg/kafka"
)

// KafkaAuditEvents publishes audit records for downstream consumers
// (surveillance, billing). Keyed by ticker so per-ticker ordering holds.
type KafkaAuditEvents struct {
	producer *kafka.Producer
	topic    string
}

// NewKafkaAuditEvents creates the publisher.
func NewKafkaAuditEvents(producer *kafka.Producer, topic string) *KafkaAuditEvents {
	return &KafkaAuditEvents{producer: producer, topic: topic}
}

// Publish sends one audit record. Best-effort; the caller logs failures.
func (p *KafkaAuditEvents) Publish(ctx context.Context, rec models.AuditRecord) error {
	return p.producer.Publish(ctx, p.topic, []byte(rec.Ticker), rec)
}
