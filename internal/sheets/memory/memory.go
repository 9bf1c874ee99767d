// Package memory provides an in-memory ledger appender for tests and
// local runs without Google credentials.
package memory

import (
	"context"
	"fmt"
	"sync"

	"pfms/internal/core"
	ports "pfms/internal/sheets"
)

type Appender struct {
	mu   sync.Mutex
	rows []core.Transaction
}

var _ ports.LedgerAppender = (*Appender)(nil)

func New() *Appender {
	return &Appender{}
}

func (a *Appender) AppendRow(_ context.Context, t core.Transaction) (string, error) {
	if err := t.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rows = append(a.rows, t)
	return fmt.Sprintf("memory!A%d", len(a.rows)), nil
}

// Rows returns a copy of everything appended so far.
func (a *Appender) Rows() []core.Transaction {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]core.Transaction, len(a.rows))
	copy(out, a.rows)
	return out
}
