package report

import (
	"errors"
	"reflect"
	"testing"

	"github.com/shopspring/decimal"

	"budgetplanner/internal/core"
)

func tx(id string, typ core.TransactionType, amount int64, category, date string) core.Transaction {
	return core.Transaction{
		ID:       id,
		UserID:   "user-1",
		Type:     typ,
		Amount:   decimal.NewFromInt(amount),
		Category: category,
		Date:     date,
	}
}

func sample() []core.Transaction {
	return []core.Transaction{
		tx("1", core.Income, 75000, "Salary", "2024-01-01"),
		tx("2", core.Expense, 25000, "Housing", "2024-01-02"),
		tx("3", core.Expense, 8000, "Food", "2024-01-03"),
	}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestAggregateScenario(t *testing.T) {
	r, err := Aggregate(sample())
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}

	if !r.Totals.Income.Equal(dec("75000")) || !r.Totals.Expense.Equal(dec("33000")) || !r.Totals.Balance.Equal(dec("42000")) {
		t.Fatalf("unexpected totals %+v", r.Totals)
	}
	if r.Totals.IncomeCount != 1 || r.Totals.ExpenseCount != 2 {
		t.Fatalf("unexpected counts %+v", r.Totals)
	}

	want := []struct {
		category string
		amount   string
		pct      string
		count    int
	}{
		{"Housing", "25000", "75.8", 1},
		{"Food", "8000", "24.2", 1},
	}
	if len(r.ByCategory) != len(want) {
		t.Fatalf("expected %d categories, got %d", len(want), len(r.ByCategory))
	}
	for i, w := range want {
		got := r.ByCategory[i]
		if got.Category != w.category || !got.Amount.Equal(dec(w.amount)) || !got.Percentage.Equal(dec(w.pct)) || got.Count != w.count {
			t.Errorf("category %d = %+v, want %+v", i, got, w)
		}
	}

	if len(r.ByMonth) != 1 || r.ByMonth[0].Month.Key() != "2024-01" {
		t.Fatalf("unexpected months %+v", r.ByMonth)
	}
	if !r.ByMonth[0].Balance.Equal(dec("42000")) {
		t.Fatalf("unexpected month balance %s", r.ByMonth[0].Balance)
	}
}

func TestAggregateEmpty(t *testing.T) {
	for _, in := range [][]core.Transaction{nil, {}} {
		r, err := Aggregate(in)
		if err != nil {
			t.Fatalf("Aggregate: %v", err)
		}
		if !r.Totals.Income.IsZero() || !r.Totals.Expense.IsZero() || !r.Totals.Balance.IsZero() {
			t.Fatalf("expected zero totals, got %+v", r.Totals)
		}
		if r.ByCategory == nil || len(r.ByCategory) != 0 || r.ByMonth == nil || len(r.ByMonth) != 0 {
			t.Fatalf("expected empty non-nil lists, got %+v", r)
		}
	}
}

func TestAggregateIncomeOnlyHasZeroPercentages(t *testing.T) {
	r, err := Aggregate([]core.Transaction{tx("1", core.Income, 100, "Salary", "2024-05-01")})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if len(r.ByCategory) != 0 {
		t.Fatalf("income must not appear in category breakdown: %+v", r.ByCategory)
	}
	if got := Percent(dec("10"), decimal.Zero); !got.IsZero() {
		t.Fatalf("percent of zero total = %s", got)
	}
}

func TestAggregateMonthsChronological(t *testing.T) {
	in := []core.Transaction{
		tx("a", core.Expense, 10, "Food", "2024-02-10"),
		tx("b", core.Income, 500, "Salary", "2024-01-05"),
		tx("c", core.Expense, 40, "Travel", "2023-12-24"),
		tx("d", core.Income, 300, "Gift", "2023-12-25"),
		tx("e", core.Expense, 5, "Food", "2024-01-20"),
	}
	r, err := Aggregate(in)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	var keys []string
	for _, m := range r.ByMonth {
		keys = append(keys, m.Month.Key())
	}
	if want := []string{"2023-12", "2024-01", "2024-02"}; !reflect.DeepEqual(keys, want) {
		t.Fatalf("months = %v, want %v", keys, want)
	}
	if r.ByMonth[0].Month.Label() != "Dec 2023" || r.ByMonth[1].Month.Label() != "Jan 2024" {
		t.Fatalf("unexpected labels %s %s", r.ByMonth[0].Month.Label(), r.ByMonth[1].Month.Label())
	}
}

func TestAggregateSumsMatchTotals(t *testing.T) {
	in := []core.Transaction{
		tx("1", core.Expense, 12, "Food", "2024-03-01"),
		tx("2", core.Expense, 30, "food", "2024-03-02"),
		tx("3", core.Income, 1000, "Salary", "2024-04-01"),
		tx("4", core.Expense, 7, "Food", "2024-05-03"),
		tx("5", core.Expense, 51, "Utilities", "2024-04-09"),
		tx("6", core.Income, 90, "Gift", "2024-05-12"),
	}
	in[0].Amount = dec("12.35")
	r, err := Aggregate(in)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}

	catSum := decimal.Zero
	pctSum := decimal.Zero
	for _, c := range r.ByCategory {
		catSum = catSum.Add(c.Amount)
		pctSum = pctSum.Add(c.Percentage)
	}
	if !catSum.Equal(r.Totals.Expense) {
		t.Fatalf("category sum %s != expense %s", catSum, r.Totals.Expense)
	}
	if pctSum.Sub(dec("100")).Abs().GreaterThan(dec("0.2")) {
		t.Fatalf("percentages sum to %s", pctSum)
	}

	inc, exp := decimal.Zero, decimal.Zero
	for _, m := range r.ByMonth {
		inc = inc.Add(m.Income)
		exp = exp.Add(m.Expense)
	}
	if !inc.Equal(r.Totals.Income) || !exp.Equal(r.Totals.Expense) {
		t.Fatalf("month sums %s/%s != totals %s/%s", inc, exp, r.Totals.Income, r.Totals.Expense)
	}

	if len(r.ByCategory) != 3 || r.ByCategory[0].Category != "Food" || r.ByCategory[1].Category != "food" {
		t.Fatalf("grouping must be case-sensitive and first-seen ordered: %+v", r.ByCategory)
	}
	if r.ByCategory[0].Count != 2 {
		t.Fatalf("Food count = %d", r.ByCategory[0].Count)
	}
}

func TestAggregateIsIdempotent(t *testing.T) {
	in := sample()
	a, err := Aggregate(in)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	b, err := Aggregate(in)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("aggregations differ:\n%+v\n%+v", a, b)
	}
	if !reflect.DeepEqual(in, sample()) {
		t.Fatalf("input was modified")
	}
}

func TestAggregateErrors(t *testing.T) {
	tests := []struct {
		name string
		in   core.Transaction
		want error
	}{
		{"malformed date", tx("bad", core.Expense, 1, "Food", "31/01/2024"), ErrMalformedDate},
		{"empty date", tx("bad", core.Expense, 1, "Food", ""), ErrMalformedDate},
		{"unknown type", tx("bad", "transfer", 1, "Food", "2024-01-01"), ErrUnknownType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Aggregate(append(sample(), tt.in))
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestSavingsRate(t *testing.T) {
	r, _ := Aggregate(sample())
	if got := r.Totals.SavingsRate(); !got.Equal(dec("56")) {
		t.Fatalf("savings rate = %s", got)
	}
	if got := (Totals{}).SavingsRate(); !got.IsZero() {
		t.Fatalf("savings rate without income = %s", got)
	}
}
