package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

type (
	TransactionType string

	Money struct {
		Cents int64
	}

	// Transaction is a single income or expense entry. Date is a calendar
	// date ("YYYY-MM-DD"); CreatedAt is assigned by the server on insert.
	Transaction struct {
		ID          int64
		Date        Date
		Type        TransactionType
		Category    string
		Description string
		Amount      Money
		CreatedAt   time.Time
	}

	// Budget is a monthly spending cap. Month is 0-11, matching the wire
	// format and the budgets table; at most one row exists per (month, year).
	Budget struct {
		ID     int64
		Month  int
		Year   int
		Amount Money
	}

	Date struct {
		time.Time
	}
)

var (
	ErrInvalidDate   = errors.New("invalid date")
	ErrInvalidType   = errors.New("invalid transaction type")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidMonth  = errors.New("invalid month")
	ErrInvalidYear   = errors.New("invalid year")
)

// NewDate creates a Date from year, month (1-12), day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a "YYYY-MM-DD" calendar date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// String renders the date back to "YYYY-MM-DD".
func (d Date) String() string {
	return d.Format("2006-01-02")
}

// MonthIndex returns the 0-11 month of the date.
func (d Date) MonthIndex() int {
	return int(d.Time.Month()) - 1
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (t TransactionType) Validate() error {
	switch t {
	case Income, Expense:
		return nil
	default:
		return ErrInvalidType
	}
}

func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (t Transaction) Validate() error {
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if err := t.Type.Validate(); err != nil {
		return err
	}
	if len(t.Description) > 500 {
		return errors.New("description too long (max 500 characters)")
	}
	if len(t.Category) > 100 {
		return errors.New("category too long (max 100 characters)")
	}
	return t.Amount.Validate()
}

func (b Budget) Validate() error {
	if b.Month < 0 || b.Month > 11 {
		return ErrInvalidMonth
	}
	if b.Year < 1900 || b.Year > 3000 {
		return ErrInvalidYear
	}
	return b.Amount.Validate()
}
