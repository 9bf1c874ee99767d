package services

import (
	"context"
	"fmt"
	"log/slog"

	"pfms/internal/amqp"
	"pfms/internal/core"
	applog "pfms/internal/log"
	"pfms/internal/storage"
)

// Publisher emits transaction change notifications. Nil publishers are
// tolerated so the service works without a broker.
type Publisher interface {
	PublishLedgerEvent(ctx context.Context, kind string, transactionID int64) error
}

// TransactionService orchestrates transaction writes across SQLite and
// the ledger event queue.
type TransactionService struct {
	storage   *storage.SQLiteRepository
	publisher Publisher
}

func NewTransactionService(storage *storage.SQLiteRepository, publisher Publisher) *TransactionService {
	return &TransactionService{
		storage:   storage,
		publisher: publisher,
	}
}

// Create saves a transaction locally, then publishes a created event.
// Publish failures are logged but never fail the request, the row is
// already durable and the periodic catch-up will pick it up.
func (s *TransactionService) Create(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	stored, err := s.storage.InsertTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}

	if err := s.publish(ctx, amqp.EventTransactionCreated, stored.ID); err != nil {
		fields := applog.NewFields().
			WithOperation(applog.OpCreate).
			WithTransaction(stored.ID, string(stored.Type), stored.Category, stored.Amount.Cents).
			WithError(err)
		slog.ErrorContext(ctx, "Failed to publish created event", fields.ToSlice()...)
	}

	return stored, nil
}

// Delete removes a transaction and publishes a deleted event. Returns
// storage.ErrNotFound when the id does not exist.
func (s *TransactionService) Delete(ctx context.Context, id int64) error {
	n, err := s.storage.DeleteTransaction(ctx, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}

	if err := s.publish(ctx, amqp.EventTransactionDeleted, id); err != nil {
		fields := applog.NewFields().
			WithOperation(applog.OpDelete).
			WithError(err)
		fields[applog.FieldTransactionID] = id
		slog.ErrorContext(ctx, "Failed to publish deleted event", fields.ToSlice()...)
	}

	return nil
}

func (s *TransactionService) publish(ctx context.Context, kind string, id int64) error {
	if s.publisher == nil {
		slog.WarnContext(ctx, "Publisher not available, skipping ledger event", "kind", kind)
		return nil
	}
	return s.publisher.PublishLedgerEvent(ctx, kind, id)
}
