package core

// MonthlyTotals holds per-month income/expense/savings sums. Index 0 is
// January. Transactions from different years land in the same bucket: the
// twelve-point savings series deliberately ignores the year.
type MonthlyTotals struct {
	Income  [12]Money
	Expense [12]Money
	Savings [12]Money
}

// CategoryAmount is an expense sum aggregated by category name.
type CategoryAmount struct {
	Category string
	Amount   Money
}

// BudgetStatus classifies spend against a monthly budget.
type BudgetStatus string

const (
	BudgetNone     BudgetStatus = "none"     // no budget set (or zero amount)
	BudgetOK       BudgetStatus = "ok"       // spend at or below 80%
	BudgetWarning  BudgetStatus = "warning"  // above 80%, at or below 100%
	BudgetExceeded BudgetStatus = "exceeded" // spend strictly above the budget
)

// BudgetProgress is the budget-vs-actual view for one month.
type BudgetProgress struct {
	Budget  Money
	Spent   Money
	Percent float64 // capped at 100
	Status  BudgetStatus
}

// UncategorizedLabel buckets expense rows with an empty category.
const UncategorizedLabel = "Uncategorized"

// ComputeMonthlyTotals partitions transactions by the calendar month of
// their date and sums income and expense separately; savings is the
// difference. Recomputed from scratch on every call.
func ComputeMonthlyTotals(transactions []Transaction) MonthlyTotals {
	var t MonthlyTotals
	for _, tx := range transactions {
		m := tx.Date.MonthIndex()
		if m < 0 || m > 11 {
			continue
		}
		switch tx.Type {
		case Income:
			t.Income[m].Cents += tx.Amount.Cents
		case Expense:
			t.Expense[m].Cents += tx.Amount.Cents
		}
	}
	for m := range t.Savings {
		t.Savings[m].Cents = t.Income[m].Cents - t.Expense[m].Cents
	}
	return t
}

// ComputeCategoryBreakdown groups expense-type transactions by category and
// sums amounts per category, preserving first-seen order. Income rows are
// ignored; empty categories fall into UncategorizedLabel.
func ComputeCategoryBreakdown(transactions []Transaction) []CategoryAmount {
	sums := map[string]int64{}
	order := make([]string, 0)
	for _, tx := range transactions {
		if tx.Type != Expense {
			continue
		}
		name := tx.Category
		if name == "" {
			name = UncategorizedLabel
		}
		if _, seen := sums[name]; !seen {
			order = append(order, name)
		}
		sums[name] += tx.Amount.Cents
	}
	out := make([]CategoryAmount, 0, len(order))
	for _, name := range order {
		out = append(out, CategoryAmount{Category: name, Amount: Money{Cents: sums[name]}})
	}
	return out
}

// ComputeBudgetProgress compares month spend against a budget. A zero
// budget is indistinguishable from "unset" and reports BudgetNone with a
// zero-filled indicator. Percent is capped at 100, but the exceeded check
// compares raw spend to the budget, so status can be BudgetExceeded while
// percent displays as 100.
func ComputeBudgetProgress(budget, spent Money) BudgetProgress {
	p := BudgetProgress{Budget: budget, Spent: spent}
	if budget.Cents <= 0 {
		p.Status = BudgetNone
		return p
	}
	percent := float64(spent.Cents) / float64(budget.Cents) * 100
	if percent > 100 {
		percent = 100
	}
	p.Percent = percent
	switch {
	case spent.Cents > budget.Cents:
		p.Status = BudgetExceeded
	case percent > 80:
		p.Status = BudgetWarning
	default:
		p.Status = BudgetOK
	}
	return p
}
