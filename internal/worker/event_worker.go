package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/sheets"
	"fintrack/internal/store"
)

// EventWorker consumes ledger events from the broker and turns them into
// durable audit records. When a sheet mirror is configured, created
// transactions are also appended to the spreadsheet. Mirroring is best
// effort: a sheets failure is logged but never nacks the message, the
// audit record is the part that must not be lost.
type EventWorker struct {
	store  store.Store
	mirror sheets.TransactionWriter
}

func NewEventWorker(st store.Store, mirror sheets.TransactionWriter) *EventWorker {
	return &EventWorker{
		store:  st,
		mirror: mirror,
	}
}

// HandleEvent processes a single transaction event from AMQP
func (w *EventWorker) HandleEvent(ctx context.Context, msg *amqp.TransactionEventMessage) error {
	slog.InfoContext(ctx, "Processing transaction event",
		"transaction_id", msg.ID,
		"action", msg.Action)

	event := core.AuditEvent{
		ID:            uuid.NewString(),
		TransactionID: msg.ID,
		Action:        msg.Action,
		UserID:        msg.UserID,
		OccurredAt:    msg.Timestamp,
		RecordedAt:    time.Now(),
	}

	if err := w.store.RecordAuditEvent(ctx, event); err != nil {
		return fmt.Errorf("record audit event: %w", err)
	}

	if msg.Action == core.AuditCreated && w.mirror != nil {
		w.mirrorTransaction(ctx, msg.ID)
	}

	return nil
}

// mirrorTransaction appends the transaction to the spreadsheet. The record
// can be gone already if it was deleted before the event was consumed;
// that is not an error.
func (w *EventWorker) mirrorTransaction(ctx context.Context, id string) {
	tx, err := w.store.GetTransaction(ctx, id)
	if err != nil {
		if core.IsNotFound(err) {
			slog.InfoContext(ctx, "Transaction gone before mirroring, skipping",
				"transaction_id", id)
			return
		}
		slog.ErrorContext(ctx, "Failed to load transaction for mirroring",
			"transaction_id", id, "error", err)
		return
	}

	ref, err := w.mirror.Append(ctx, *tx)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to mirror transaction to sheet",
			"transaction_id", id, "error", err)
		return
	}

	slog.InfoContext(ctx, "Mirrored transaction to sheet",
		"transaction_id", id,
		"sheet_ref", ref)
}
