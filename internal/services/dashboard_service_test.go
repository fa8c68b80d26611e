package services

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"budgetplanner/internal/core"
)

func TestLedger_Dashboard(t *testing.T) {
	svc, _ := newLedger()
	ctx := context.Background()

	for i := 1; i <= 12; i++ {
		day := core.NewDate(2024, 5, i).String()
		if _, err := svc.CreateTransaction(ctx, "alice", expense("10", "Food", day)); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := svc.CreateTransaction(ctx, "alice", income("100", "Salary", "2024-05-20")); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.CreateTransaction(ctx, "bob", income("999", "Salary", "2024-05-20")); err != nil {
		t.Fatal(err)
	}
	for _, status := range []core.GoalStatus{core.GoalActive, core.GoalActive, core.GoalCompleted} {
		if _, err := svc.CreateGoal(ctx, "alice", core.IncomeGoal{Title: "g", TargetAmount: decimal.NewFromInt(10), Status: status}); err != nil {
			t.Fatal(err)
		}
	}
	for _, d := range []core.Date{core.NewDate(2024, 6, 14), core.NewDate(2024, 6, 15), core.NewDate(2024, 8, 1)} {
		if _, err := svc.CreateEvent(ctx, "alice", core.Event{Title: "e", EventDate: d}); err != nil {
			t.Fatal(err)
		}
	}

	d, err := svc.Dashboard(ctx, "alice")
	if err != nil {
		t.Fatalf("Dashboard() error = %v", err)
	}
	if len(d.Recent) != RecentLimit || d.Recent[0].Date != "2024-05-20" {
		t.Fatalf("recent = %+v", d.Recent)
	}
	if d.Totals.Income.String() != "100" || d.Totals.Expense.String() != "90" || d.Totals.Balance.String() != "10" {
		t.Fatalf("totals = %+v", d.Totals)
	}
	if d.ActiveGoals != 2 || d.UpcomingEvents != 2 {
		t.Fatalf("goals %d events %d", d.ActiveGoals, d.UpcomingEvents)
	}
	if len(d.Pie) != 1 || d.Pie[0].Percentage != "100.0" {
		t.Fatalf("pie = %+v", d.Pie)
	}
}

func TestLedger_DashboardEmpty(t *testing.T) {
	svc, _ := newLedger()
	d, err := svc.Dashboard(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("Dashboard() error = %v", err)
	}
	if !d.Totals.Balance.IsZero() || len(d.Recent) != 0 || len(d.Pie) != 0 {
		t.Fatalf("expected empty dashboard, got %+v", d)
	}
}
