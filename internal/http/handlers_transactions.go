package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"pfms/internal/core"
	"pfms/internal/storage"
)

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	var (
		transactions []core.Transaction
		err          error
	)

	if month, year, ok := monthYearQuery(r); ok {
		transactions, err = s.repo.ListTransactionsByMonth(r.Context(), month, year)
	} else {
		transactions, err = s.repo.ListTransactions(r.Context())
	}
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeOK(w, map[string]any{"transactions": toTransactionsJSON(transactions)})
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Date        string      `json:"date"`
		Type        string      `json:"type"`
		Category    string      `json:"category"`
		Description string      `json:"description"`
		Amount      json.Number `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errMissingFields)
		return
	}
	if req.Date == "" || req.Type == "" || req.Amount == "" {
		writeError(w, http.StatusBadRequest, errMissingFields)
		return
	}

	date, err := core.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, errMissingFields)
		return
	}
	cents, err := core.ParseDecimalToCents(req.Amount.String())
	if err != nil {
		writeError(w, http.StatusBadRequest, errMissingFields)
		return
	}

	t := core.Transaction{
		Date:        date,
		Type:        core.TransactionType(req.Type),
		Category:    strings.TrimSpace(req.Category),
		Description: strings.TrimSpace(req.Description),
		Amount:      core.Money{Cents: cents},
	}
	if err := t.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, errMissingFields)
		return
	}

	stored, err := s.txService.Create(r.Context(), t)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	s.invalidateSummaries()
	writeOK(w, map[string]any{"transaction": toTransactionJSON(stored)})
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, errMissingFields)
		return
	}

	deleted := int64(1)
	if err := s.txService.Delete(r.Context(), id); err != nil {
		// A missing row is a zero count, not a failure.
		if errors.Is(err, storage.ErrNotFound) {
			deleted = 0
		} else {
			writeServiceError(w, r, err)
			return
		}
	}

	s.invalidateSummaries()
	writeOK(w, map[string]any{"deleted": deleted})
}

// monthYearQuery reads the optional ?month=0-11&year=YYYY pair. The
// filter applies only when both are present and parse.
func monthYearQuery(r *http.Request) (month, year int, ok bool) {
	monthStr := strings.TrimSpace(r.URL.Query().Get("month"))
	yearStr := strings.TrimSpace(r.URL.Query().Get("year"))
	if monthStr == "" || yearStr == "" {
		return 0, 0, false
	}

	month, err := strconv.Atoi(monthStr)
	if err != nil || month < 0 || month > 11 {
		return 0, 0, false
	}
	year, err = strconv.Atoi(yearStr)
	if err != nil {
		return 0, 0, false
	}
	return month, year, true
}

// monthYearOrNow is monthYearQuery defaulting to the current calendar
// month.
func monthYearOrNow(r *http.Request) (month, year int) {
	if m, y, ok := monthYearQuery(r); ok {
		return m, y
	}
	now := time.Now()
	return int(now.Month()) - 1, now.Year()
}
