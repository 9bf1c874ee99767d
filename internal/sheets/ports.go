package sheets

import (
	"context"

	"pfms/internal/core"
)

// LedgerAppender mirrors a stored transaction as one row of an external
// ledger. The returned rowRef identifies the written row for logging.
type LedgerAppender interface {
	AppendRow(ctx context.Context, t core.Transaction) (rowRef string, err error)
}
