package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"pfms/internal/auth"
	"pfms/internal/core"
	"pfms/internal/storage"
)

// Wire error strings. Clients match on them, so they are part of the
// API contract.
const (
	errMissingFields      = "Missing fields"
	errInvalidCredentials = "Invalid credentials"
	errInvalidSession     = "Invalid session"
	errConflict           = "Conflict"
	errDB                 = "DB error"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeOK merges extra fields into an {ok:true} envelope.
func writeOK(w http.ResponseWriter, fields map[string]any) {
	payload := map[string]any{"ok": true}
	for k, v := range fields {
		payload[k] = v
	}
	writeJSON(w, http.StatusOK, payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"ok": false, "error": message})
}

// writeServiceError maps known sentinels to their wire status; anything
// else becomes a generic 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, errInvalidCredentials)
	case errors.Is(err, auth.ErrInvalidSession):
		writeError(w, http.StatusUnauthorized, errInvalidSession)
	case errors.Is(err, storage.ErrConflict):
		writeError(w, http.StatusConflict, errConflict)
	default:
		slog.ErrorContext(r.Context(), "Request failed",
			"method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, errDB)
	}
}

// transactionJSON is the wire shape of a stored transaction.
type transactionJSON struct {
	ID          int64   `json:"id"`
	Date        string  `json:"date"`
	Type        string  `json:"type"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	CreatedAt   string  `json:"created_at"`
}

func toTransactionJSON(t core.Transaction) transactionJSON {
	return transactionJSON{
		ID:          t.ID,
		Date:        t.Date.String(),
		Type:        string(t.Type),
		Category:    t.Category,
		Description: t.Description,
		Amount:      t.Amount.Units(),
		CreatedAt:   t.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}

func toTransactionsJSON(ts []core.Transaction) []transactionJSON {
	out := make([]transactionJSON, 0, len(ts))
	for _, t := range ts {
		out = append(out, toTransactionJSON(t))
	}
	return out
}

type budgetJSON struct {
	Month  int     `json:"month"`
	Year   int     `json:"year"`
	Amount float64 `json:"amount"`
}

func toBudgetsJSON(bs []core.Budget) []budgetJSON {
	out := make([]budgetJSON, 0, len(bs))
	for _, b := range bs {
		out = append(out, budgetJSON{Month: b.Month, Year: b.Year, Amount: b.Amount.Units()})
	}
	return out
}
