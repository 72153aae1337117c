package outbox

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureProducer struct {
	msgs []kafka.Message
	err  error
}

func (p *captureProducer) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, msgs...)
	return nil
}

func TestDispatchKeysByTenant(t *testing.T) {
	producer := &captureProducer{}
	d := NewDispatcher(slog.New(slog.NewTextHandler(io.Discard, nil)), producer, "order.events")

	err := d.Dispatch(context.Background(), Event{
		ID:          7,
		TenantID:    "tenant-1",
		Type:        "NEW_ORDER",
		Payload:     []byte(`{"type":"NEW_ORDER"}`),
		Traceparent: "00-abc-def-01",
	})
	require.NoError(t, err)
	require.Len(t, producer.msgs, 1)

	msg := producer.msgs[0]
	assert.Equal(t, "order.events", msg.Topic)
	assert.Equal(t, []byte("tenant-1"), msg.Key)
	assert.Equal(t, []byte(`{"type":"NEW_ORDER"}`), msg.Value)

	headers := map[string]string{}
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "NEW_ORDER", headers["event_type"])
	assert.Equal(t, "tenant-1", headers["tenant_id"])
	assert.Equal(t, "00-abc-def-01", headers["traceparent"])
}

func TestDispatchPropagatesProducerError(t *testing.T) {
	producer := &captureProducer{err: errors.New("broker down")}
	d := NewDispatcher(slog.New(slog.NewTextHandler(io.Discard, nil)), producer, "order.events")

	err := d.Dispatch(context.Background(), Event{ID: 1, TenantID: "t"})
	assert.Error(t, err)
}
