package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"pfms/internal/amqp"
	applog "pfms/internal/log"
	"pfms/internal/sheets"
	"pfms/internal/storage"
)

// ExportWorker mirrors stored transactions to an external ledger sheet.
// Events arrive over AMQP; a periodic catch-up sweep covers lost
// messages.
type ExportWorker struct {
	storage   *storage.SQLiteRepository
	appender  sheets.LedgerAppender
	batchSize int
}

func NewExportWorker(storage *storage.SQLiteRepository, appender sheets.LedgerAppender, batchSize int) *ExportWorker {
	return &ExportWorker{
		storage:   storage,
		appender:  appender,
		batchSize: batchSize,
	}
}

// HandleEvent processes a single ledger event from AMQP.
func (w *ExportWorker) HandleEvent(ctx context.Context, event *amqp.LedgerEvent) error {
	switch event.Kind {
	case amqp.EventTransactionCreated:
		return w.exportTransaction(ctx, event.TransactionID)
	case amqp.EventTransactionDeleted:
		// The ledger is append-only. Deletions only matter locally, so
		// the event is acknowledged without touching the sheet.
		slog.InfoContext(ctx, "Ignoring deletion on append-only ledger",
			"transaction_id", event.TransactionID)
		return nil
	default:
		slog.WarnContext(ctx, "Unknown ledger event kind", "kind", event.Kind)
		return nil
	}
}

func (w *ExportWorker) exportTransaction(ctx context.Context, id int64) error {
	t, err := w.storage.GetTransaction(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		// Deleted before the event was processed. Nothing to export.
		slog.WarnContext(ctx, "Transaction gone before export", "id", id)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get transaction: %w", err)
	}

	ref, err := w.appender.AppendRow(ctx, t)
	if err != nil {
		if markErr := w.storage.MarkSyncError(ctx, id); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "id", id, "error", markErr)
		}
		return fmt.Errorf("append to ledger: %w", err)
	}

	if err := w.storage.MarkSynced(ctx, id); err != nil {
		return fmt.Errorf("mark synced: %w", err)
	}

	slog.InfoContext(ctx, "Transaction exported to ledger",
		applog.FieldTransactionID, id, applog.FieldSheetsRef, ref)
	return nil
}

// ProcessPending exports transactions that never got a successful event
// delivery. Runs at startup and on a timer as a backup for lost
// messages.
func (w *ExportWorker) ProcessPending(ctx context.Context) error {
	pending, err := w.storage.ListPendingSync(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("list pending transactions: %w", err)
	}

	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending transactions", "count", len(pending))

	for _, t := range pending {
		if err := w.exportTransaction(ctx, t.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to export pending transaction",
				"id", t.ID, "error", err)
			continue
		}
	}
	return nil
}

// RunPeriodicCatchUp sweeps for pending transactions until the context
// is cancelled.
func (w *ExportWorker) RunPeriodicCatchUp(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// One sweep at startup to drain anything left over from downtime.
	if err := w.ProcessPending(ctx); err != nil {
		slog.ErrorContext(ctx, "Startup catch-up failed", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.ProcessPending(ctx); err != nil {
				slog.ErrorContext(ctx, "Periodic catch-up failed", "error", err)
			}
		}
	}
}
