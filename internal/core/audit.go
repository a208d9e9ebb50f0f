package core

import "time"

const (
	AuditCreated = "created"
	AuditDeleted = "deleted"
)

// AuditEvent is the durable record the worker keeps for every committed
// transaction lifecycle event consumed from the broker.
type AuditEvent struct {
	ID            string
	TransactionID string
	Action        string
	UserID        string
	OccurredAt    time.Time
	RecordedAt    time.Time
}
