// Package publisher fans recorded usage events out to Kafka for reporting
// and billing consumers. Delivery is best-effort; the ledger write is the
// source of truth.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"

	"cortex/internal/platform/kafka/producer"
	"cortex/internal/usage/models"
)

// Kafka publishes usage events to a single topic, keyed by tenant so one
// tenant's events stay ordered within a partition.
type Kafka struct {
	producer *producer.Producer
	topic    string
}

func NewKafka(p *producer.Producer, topic string) *Kafka {
	return &Kafka{producer: p, topic: topic}
}

// Publish sends one event.
func (k *Kafka) Publish(ctx context.Context, event models.Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal usage event: %w", err)
	}
	return k.producer.Produce(ctx, &producer.Message{
		Topic: k.topic,
		Key:   []byte(event.TenantID.String()),
		Value: value,
		Headers: map[string]string{
			"action": event.Action.String(),
		},
	})
}
