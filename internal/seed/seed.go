// Package seed fills a ledger with plausible fake records for demos.
package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"

	"budgetplanner/internal/core"
)

// Ledger is the write side the seeder drives.
type Ledger interface {
	CreateTransaction(ctx context.Context, userID string, t core.Transaction) (core.Transaction, error)
	CreateGoal(ctx context.Context, userID string, g core.IncomeGoal) (core.IncomeGoal, error)
	CreateEvent(ctx context.Context, userID string, e core.Event) (core.Event, error)
	UpdateProfileName(ctx context.Context, userID, email, fullName string) (core.Profile, error)
}

type Options struct {
	Transactions int
	Goals        int
	Events       int
	// Months is how far back transactions are spread.
	Months int
	// Seed makes runs reproducible; zero picks a random seed.
	Seed int64
}

func DefaultOptions() Options {
	return Options{Transactions: 120, Goals: 3, Events: 4, Months: 12}
}

// Summary counts what a run created.
type Summary struct {
	Transactions int
	Goals        int
	Events       int
}

// incomeShare is the fraction of generated transactions that are income.
const incomeShare = 0.2

// Run creates the requested records for userID, dated relative to today.
func Run(ctx context.Context, ledger Ledger, userID, email string, opts Options, today core.Date) (Summary, error) {
	var sum Summary
	if opts.Months <= 0 {
		opts.Months = 1
	}
	f := gofakeit.New(opts.Seed)

	if _, err := ledger.UpdateProfileName(ctx, userID, email, f.Name()); err != nil {
		return sum, fmt.Errorf("seed profile: %w", err)
	}

	start := today.AddDate(0, -opts.Months, 0)
	for i := 0; i < opts.Transactions; i++ {
		if _, err := ledger.CreateTransaction(ctx, userID, fakeTransaction(f, start, today.Time)); err != nil {
			return sum, fmt.Errorf("seed transaction %d: %w", i, err)
		}
		sum.Transactions++
	}
	for i := 0; i < opts.Goals; i++ {
		if _, err := ledger.CreateGoal(ctx, userID, fakeGoal(f, today)); err != nil {
			return sum, fmt.Errorf("seed goal %d: %w", i, err)
		}
		sum.Goals++
	}
	for i := 0; i < opts.Events; i++ {
		if _, err := ledger.CreateEvent(ctx, userID, fakeEvent(f, today)); err != nil {
			return sum, fmt.Errorf("seed event %d: %w", i, err)
		}
		sum.Events++
	}
	return sum, nil
}

func fakeTransaction(f *gofakeit.Faker, from, to time.Time) core.Transaction {
	typ, lo, hi := core.Expense, 5.0, 400.0
	if f.Float64Range(0, 1) < incomeShare {
		typ, lo, hi = core.Income, 300.0, 4000.0
	}
	return core.Transaction{
		Type:        typ,
		Amount:      decimal.NewFromFloat(f.Price(lo, hi)).Round(2),
		Category:    f.RandomString(core.CategoriesFor(typ)),
		Description: f.Sentence(4),
		Date:        core.DateOf(f.DateRange(from, to)).String(),
	}
}

func fakeGoal(f *gofakeit.Faker, today core.Date) core.IncomeGoal {
	target := decimal.NewFromInt(int64(f.Number(10, 200)) * 100)
	current := target.Mul(decimal.NewFromFloat(f.Float64Range(0, 1.2))).Round(2)
	due := core.DateOf(today.AddDate(0, f.Number(1, 18), 0))
	return core.IncomeGoal{
		Title:         f.BuzzWord() + " fund",
		TargetAmount:  target,
		CurrentAmount: current,
		TargetDate:    &due,
		Status:        core.GoalActive,
	}
}

func fakeEvent(f *gofakeit.Faker, today core.Date) core.Event {
	e := core.Event{
		Title:       f.Sentence(3),
		Description: f.Sentence(8),
		EventDate:   core.DateOf(today.AddDate(0, 0, f.Number(-60, 240))),
		EventType:   f.RandomString(core.EventTypes),
		SpentAmount: decimal.NewFromFloat(f.Price(0, 800)).Round(2),
	}
	if f.Bool() {
		budget := decimal.NewFromInt(int64(f.Number(5, 50)) * 100)
		e.BudgetAmount = &budget
	}
	return e
}
