package outbox

import (
	"context"

	"github.com/segmentio/kafka-go"
)

// KafkaWriter is the production Producer. RequireAll keeps event publication
// durable; hash balancing pins each tenant key to one partition so a tenant's
// events stay ordered.
type KafkaWriter struct {
	*kafka.Writer
}

func NewKafkaWriter(brokers []string) *KafkaWriter {
	return &KafkaWriter{
		Writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
		},
	}
}

func (w *KafkaWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	return w.Writer.WriteMessages(ctx, msgs...)
}
