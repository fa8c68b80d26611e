package seed

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"budgetplanner/internal/core"
	applog "budgetplanner/internal/log"
	"budgetplanner/internal/services"
	"budgetplanner/internal/store"
	"budgetplanner/internal/store/memory"
)

func TestRunCreatesValidRecords(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC)
	ledger := services.NewLedgerService(memory.New(),
		services.WithLogger(applog.New(applog.Config{Output: io.Discard})),
		services.WithClock(func() time.Time { return now }))

	opts := Options{Transactions: 40, Goals: 2, Events: 3, Months: 6, Seed: 42}
	sum, err := Run(ctx, ledger, "demo", "demo@example.com", opts, core.DateOf(now))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if sum != (Summary{Transactions: 40, Goals: 2, Events: 3}) {
		t.Fatalf("summary = %+v", sum)
	}

	txs, err := ledger.ListTransactions(ctx, "demo", store.TransactionQuery{})
	if err != nil || len(txs) != 40 {
		t.Fatalf("transactions = %d, %v", len(txs), err)
	}
	for _, tx := range txs {
		if tx.Date < "2023-12-15" || tx.Date > "2024-06-15" {
			t.Fatalf("transaction dated %s outside the window", tx.Date)
		}
	}

	p, err := ledger.Profile(ctx, "demo", "demo@example.com")
	if err != nil || p.FullName == "" {
		t.Fatalf("profile = %+v, %v", p, err)
	}
}

type failingLedger struct {
	*services.LedgerService
}

func (failingLedger) CreateGoal(context.Context, string, core.IncomeGoal) (core.IncomeGoal, error) {
	return core.IncomeGoal{}, errors.New("store offline")
}

func TestRunStopsOnError(t *testing.T) {
	ledger := failingLedger{services.NewLedgerService(memory.New(),
		services.WithLogger(applog.New(applog.Config{Output: io.Discard})))}
	sum, err := Run(context.Background(), ledger, "demo", "", Options{Transactions: 2, Goals: 1, Events: 1, Seed: 1}, core.NewDate(2024, 6, 15))
	if err == nil {
		t.Fatal("expected error")
	}
	if sum.Transactions != 2 || sum.Goals != 0 || sum.Events != 0 {
		t.Fatalf("summary = %+v", sum)
	}
}
