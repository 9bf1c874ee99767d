package http

import (
	"errors"
	"fmt"
	"net/http"

	"pfms/internal/core"
	"pfms/internal/storage"
)

const monthlyCacheKey = "monthly"

func (s *Server) handleSummaryMonthly(w http.ResponseWriter, r *http.Request) {
	totals, ok := s.monthlyCache.Get(monthlyCacheKey)
	if !ok {
		transactions, err := s.repo.ListTransactions(r.Context())
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		totals = core.ComputeMonthlyTotals(transactions)
		s.monthlyCache.Set(monthlyCacheKey, totals)
	}

	writeOK(w, map[string]any{
		"income":  moneySeries(totals.Income),
		"expense": moneySeries(totals.Expense),
		"savings": moneySeries(totals.Savings),
	})
}

func (s *Server) handleSummaryCategories(w http.ResponseWriter, r *http.Request) {
	month, year := monthYearOrNow(r)
	key := summaryCacheKey(month, year)

	breakdown, ok := s.categoriesCache.Get(key)
	if !ok {
		transactions, err := s.repo.ListTransactionsByMonth(r.Context(), month, year)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		breakdown = core.ComputeCategoryBreakdown(transactions)
		s.categoriesCache.Set(key, breakdown)
	}

	categories := make([]map[string]any, 0, len(breakdown))
	for _, c := range breakdown {
		categories = append(categories, map[string]any{
			"category": c.Category,
			"amount":   c.Amount.Units(),
		})
	}
	writeOK(w, map[string]any{"categories": categories})
}

func (s *Server) handleSummaryBudget(w http.ResponseWriter, r *http.Request) {
	month, year := monthYearOrNow(r)
	key := summaryCacheKey(month, year)

	progress, ok := s.budgetCache.Get(key)
	if !ok {
		budget, err := s.repo.GetBudget(r.Context(), month, year)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			writeServiceError(w, r, err)
			return
		}

		spent, err := s.repo.MonthExpenseTotal(r.Context(), month, year)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		progress = core.ComputeBudgetProgress(budget.Amount, spent)
		s.budgetCache.Set(key, progress)
	}

	writeOK(w, map[string]any{
		"budget":  progress.Budget.Units(),
		"spent":   progress.Spent.Units(),
		"percent": progress.Percent,
		"status":  string(progress.Status),
	})
}

func summaryCacheKey(month, year int) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}

func moneySeries(series [12]core.Money) []float64 {
	out := make([]float64, 12)
	for i, m := range series {
		out[i] = m.Units()
	}
	return out
}
