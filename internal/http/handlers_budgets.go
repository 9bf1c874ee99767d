package http

import (
	"encoding/json"
	"net/http"

	"pfms/internal/core"
)

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	budgets, err := s.repo.ListBudgets(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeOK(w, map[string]any{"budgets": toBudgetsJSON(budgets)})
}

func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	// Pointers distinguish absent fields from zero values; month 0 is
	// January.
	var req struct {
		Month  *int        `json:"month"`
		Year   *int        `json:"year"`
		Amount json.Number `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errMissingFields)
		return
	}
	if req.Month == nil || req.Year == nil || req.Amount == "" {
		writeError(w, http.StatusBadRequest, errMissingFields)
		return
	}

	cents, err := core.ParseDecimalToCents(req.Amount.String())
	if err != nil {
		writeError(w, http.StatusBadRequest, errMissingFields)
		return
	}

	b := core.Budget{Month: *req.Month, Year: *req.Year, Amount: core.Money{Cents: cents}}
	if err := b.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, errMissingFields)
		return
	}

	if err := s.repo.UpsertBudget(r.Context(), b); err != nil {
		writeServiceError(w, r, err)
		return
	}

	s.invalidateSummaries()
	writeOK(w, map[string]any{"upserted": true})
}
