// Package report turns ledger records into totals, category shares and
// monthly buckets, and maps those into chart and export shapes.
//
// Everything here is pure: no I/O, no clocks, no shared state. Callers fetch
// records for one user and hand them over.
package report

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"budgetplanner/internal/core"
)

var (
	ErrMalformedDate = errors.New("malformed transaction date")
	ErrUnknownType   = errors.New("unknown transaction type")
)

var hundred = decimal.NewFromInt(100)

type (
	Totals struct {
		Income       decimal.Decimal `json:"income"`
		Expense      decimal.Decimal `json:"expense"`
		Balance      decimal.Decimal `json:"balance"`
		IncomeCount  int             `json:"income_count"`
		ExpenseCount int             `json:"expense_count"`
	}

	// CategoryTotal is the expense sum of one category. Percentage is the
	// share of total expense rounded to one decimal.
	CategoryTotal struct {
		Category   string          `json:"category"`
		Amount     decimal.Decimal `json:"amount"`
		Count      int             `json:"count"`
		Percentage decimal.Decimal `json:"percentage"`
	}

	// Month identifies a calendar year-month bucket.
	Month struct {
		Year  int
		Month time.Month
	}

	MonthTotal struct {
		Month   Month           `json:"-"`
		Income  decimal.Decimal `json:"income"`
		Expense decimal.Decimal `json:"expense"`
		Balance decimal.Decimal `json:"balance"`
	}

	// Report is the aggregation of one user's records. ByCategory keeps the
	// order in which categories first appear; ByMonth is chronological.
	Report struct {
		Totals     Totals          `json:"totals"`
		ByCategory []CategoryTotal `json:"by_category"`
		ByMonth    []MonthTotal    `json:"by_month"`
	}
)

// Start is the first day of the month.
func (m Month) Start() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

// Key renders the month as YYYY-MM.
func (m Month) Key() string {
	return m.Start().Format("2006-01")
}

// Label renders the month as "Jan 2024".
func (m Month) Label() string {
	return m.Start().Format("Jan 2006")
}

// Aggregate reduces txs to a Report. Any record with an unparseable date or
// an unknown type fails the whole run.
func Aggregate(txs []core.Transaction) (Report, error) {
	r := Report{
		Totals: Totals{
			Income:  decimal.Zero,
			Expense: decimal.Zero,
			Balance: decimal.Zero,
		},
		ByCategory: []CategoryTotal{},
		ByMonth:    []MonthTotal{},
	}

	catIndex := make(map[string]int)
	monthIndex := make(map[Month]int)

	for _, tx := range txs {
		day, err := tx.Day()
		if err != nil {
			return Report{}, fmt.Errorf("%w: transaction %s has date %q", ErrMalformedDate, tx.ID, tx.Date)
		}
		if !tx.Type.Valid() {
			return Report{}, fmt.Errorf("%w: transaction %s has type %q", ErrUnknownType, tx.ID, tx.Type)
		}

		key := Month{Year: day.Year(), Month: day.Month()}
		mi, ok := monthIndex[key]
		if !ok {
			mi = len(r.ByMonth)
			monthIndex[key] = mi
			r.ByMonth = append(r.ByMonth, MonthTotal{
				Month:   key,
				Income:  decimal.Zero,
				Expense: decimal.Zero,
			})
		}
		bucket := &r.ByMonth[mi]

		switch tx.Type {
		case core.Income:
			r.Totals.Income = r.Totals.Income.Add(tx.Amount)
			r.Totals.IncomeCount++
			bucket.Income = bucket.Income.Add(tx.Amount)
		case core.Expense:
			r.Totals.Expense = r.Totals.Expense.Add(tx.Amount)
			r.Totals.ExpenseCount++
			bucket.Expense = bucket.Expense.Add(tx.Amount)

			ci, ok := catIndex[tx.Category]
			if !ok {
				ci = len(r.ByCategory)
				catIndex[tx.Category] = ci
				r.ByCategory = append(r.ByCategory, CategoryTotal{Category: tx.Category, Amount: decimal.Zero})
			}
			r.ByCategory[ci].Amount = r.ByCategory[ci].Amount.Add(tx.Amount)
			r.ByCategory[ci].Count++
		}
	}

	r.Totals.Balance = r.Totals.Income.Sub(r.Totals.Expense)

	for i := range r.ByCategory {
		r.ByCategory[i].Percentage = Percent(r.ByCategory[i].Amount, r.Totals.Expense)
	}

	for i := range r.ByMonth {
		r.ByMonth[i].Balance = r.ByMonth[i].Income.Sub(r.ByMonth[i].Expense)
	}
	sort.Slice(r.ByMonth, func(i, j int) bool {
		return r.ByMonth[i].Month.Start().Before(r.ByMonth[j].Month.Start())
	})

	return r, nil
}

// Percent returns part/whole*100 rounded to one decimal, or zero when whole
// is not positive.
func Percent(part, whole decimal.Decimal) decimal.Decimal {
	if !whole.IsPositive() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(hundred).Round(1)
}

// SavingsRate is the balance as a share of income.
func (t Totals) SavingsRate() decimal.Decimal {
	return Percent(t.Balance, t.Income)
}
