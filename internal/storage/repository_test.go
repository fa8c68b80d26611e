package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"budgetplanner/internal/core"
	"budgetplanner/internal/store"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "nested", "budget.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "budget.db")
	repo, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	repo.Close()
	if err := RunMigrations(path); err != nil {
		t.Fatalf("second migration run: %v", err)
	}
}

func TestTransactionsRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	in := []core.Transaction{
		{Type: core.Income, Amount: decimal.RequireFromString("75000"), Category: "Salary", Date: "2024-01-01"},
		{Type: core.Expense, Amount: decimal.RequireFromString("25000.50"), Category: "Housing", Description: "Rent", Date: "2024-01-02"},
		{Type: core.Expense, Amount: decimal.RequireFromString("8000"), Category: "Food", Date: "2024-02-03"},
	}
	for _, tx := range in {
		if _, err := repo.CreateTransaction(ctx, "alice", tx); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	if _, err := repo.CreateTransaction(ctx, "bob", in[0]); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := repo.ListTransactions(ctx, "alice", store.TransactionQuery{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(got))
	}
	if !got[1].Amount.Equal(decimal.RequireFromString("25000.5")) || got[1].Description != "Rent" || got[1].Type != core.Expense {
		t.Fatalf("unexpected row %+v", got[1])
	}
	if got[0].CreatedAt.IsZero() || got[0].UserID != "alice" {
		t.Fatalf("missing metadata %+v", got[0])
	}

	jan, _ := repo.ListTransactions(ctx, "alice", store.TransactionQuery{
		Range: core.DateRange{From: core.NewDate(2024, 1, 1), To: core.NewDate(2024, 1, 31)},
	})
	if len(jan) != 2 {
		t.Fatalf("expected 2 January rows, got %d", len(jan))
	}

	recent, _ := repo.ListTransactions(ctx, "alice", store.TransactionQuery{Newest: true, Limit: 1})
	if len(recent) != 1 || recent[0].Date != "2024-02-03" {
		t.Fatalf("unexpected recent %+v", recent)
	}
}

func TestMirrorTracking(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	a, _ := repo.CreateTransaction(ctx, "alice", core.Transaction{Type: core.Expense, Amount: decimal.NewFromInt(1), Category: "Food", Date: "2024-01-01"})
	b, _ := repo.CreateTransaction(ctx, "alice", core.Transaction{Type: core.Expense, Amount: decimal.NewFromInt(2), Category: "Food", Date: "2024-01-02"})

	pending, err := repo.PendingMirror(ctx, 10)
	if err != nil || len(pending) != 2 {
		t.Fatalf("pending: %d %v", len(pending), err)
	}
	if err := repo.MarkMirrored(ctx, a.ID, "Sheet1!A2:G2"); err != nil {
		t.Fatalf("mark: %v", err)
	}
	if err := repo.MarkMirrorError(ctx, b.ID, errors.New("quota exceeded")); err != nil {
		t.Fatalf("mark error: %v", err)
	}
	pending, _ = repo.PendingMirror(ctx, 10)
	if len(pending) != 1 || pending[0].ID != b.ID {
		t.Fatalf("unexpected pending %+v", pending)
	}
	if err := repo.MarkMirrored(ctx, "missing", "x"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := repo.GetTransaction(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGoalsAndEvents(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	target := core.NewDate(2025, 12, 31)
	g, err := repo.CreateGoal(ctx, "alice", core.IncomeGoal{
		Title:         "Emergency fund",
		TargetAmount:  decimal.NewFromInt(10000),
		CurrentAmount: decimal.NewFromInt(2500),
		TargetDate:    &target,
		Status:        core.GoalActive,
	})
	if err != nil {
		t.Fatalf("create goal: %v", err)
	}
	if _, err := repo.CreateGoal(ctx, "alice", core.IncomeGoal{Title: "Car", TargetAmount: decimal.NewFromInt(5), Status: core.GoalPaused}); err != nil {
		t.Fatalf("create goal: %v", err)
	}
	active := core.GoalActive
	goals, err := repo.ListGoals(ctx, "alice", &active)
	if err != nil || len(goals) != 1 || goals[0].ID != g.ID {
		t.Fatalf("list goals: %+v %v", goals, err)
	}
	if goals[0].TargetDate == nil || goals[0].TargetDate.String() != "2025-12-31" || !goals[0].CurrentAmount.Equal(decimal.NewFromInt(2500)) {
		t.Fatalf("goal fields lost: %+v", goals[0])
	}

	budget := decimal.NewFromInt(800)
	e, err := repo.CreateEvent(ctx, "alice", core.Event{
		Title:        "Birthday",
		EventDate:    core.NewDate(2025, 5, 4),
		EventType:    "birthday",
		BudgetAmount: &budget,
	})
	if err != nil {
		t.Fatalf("create event: %v", err)
	}
	e.SpentAmount = decimal.NewFromInt(120)
	e.BudgetAmount = nil
	updated, err := repo.UpdateEvent(ctx, "alice", e)
	if err != nil {
		t.Fatalf("update event: %v", err)
	}
	if updated.BudgetAmount != nil || !updated.SpentAmount.Equal(decimal.NewFromInt(120)) {
		t.Fatalf("unexpected updated event %+v", updated)
	}
	if _, err := repo.UpdateEvent(ctx, "bob", e); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for other user, got %v", err)
	}

	from := core.NewDate(2025, 6, 1)
	later, _ := repo.ListEvents(ctx, "alice", &from)
	if len(later) != 0 {
		t.Fatalf("expected no events after June, got %+v", later)
	}
	if err := repo.DeleteEvent(ctx, "alice", e.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := repo.DeleteEvent(ctx, "alice", e.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("second delete: expected ErrNotFound, got %v", err)
	}
}

func TestProfiles(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	p, err := repo.EnsureProfile(ctx, "alice", "alice@example.com")
	if err != nil || p.Email != "alice@example.com" {
		t.Fatalf("ensure: %+v %v", p, err)
	}
	again, err := repo.EnsureProfile(ctx, "alice", "")
	if err != nil || again.ID != p.ID || again.Email != "alice@example.com" {
		t.Fatalf("ensure again: %+v %v", again, err)
	}
	named, err := repo.UpdateProfileName(ctx, "alice", " Alice ")
	if err != nil || named.FullName != "Alice" {
		t.Fatalf("update name: %+v %v", named, err)
	}
	if _, err := repo.UpdateProfileName(ctx, "nobody", "X"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
