// Package outbox implements the transactional outbox that carries order
// events to the tenant-keyed broadcast topic. Repositories insert rows in the
// same transaction as the state change; the relay locks pending batches and
// hands them to the Kafka dispatcher.
package outbox

import "time"

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusSent       Status = "sent"
	StatusFailed     Status = "failed"
)

type Event struct {
	ID            int64
	TenantID      string
	AggregateType string
	AggregateID   string
	Type          string
	Payload       []byte
	Traceparent   string
	CreatedAt     time.Time
	Status        Status
	RetryCount    int
	LastError     *string
}
