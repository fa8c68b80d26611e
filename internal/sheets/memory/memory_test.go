package memory

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"budgetplanner/internal/core"
)

func tx(id string) core.Transaction {
	return core.Transaction{
		ID:       id,
		Type:     core.Expense,
		Amount:   decimal.RequireFromString("12.50"),
		Category: "Food",
		Date:     "2024-05-02",
	}
}

func TestAppendTransaction(t *testing.T) {
	s := New()
	ref, err := s.AppendTransaction(context.Background(), tx("a"))
	if err != nil || ref != "mem:1" {
		t.Fatalf("unexpected append: ref=%q err=%v", ref, err)
	}
	ref, err = s.AppendTransaction(context.Background(), tx("b"))
	if err != nil || ref != "mem:2" {
		t.Fatalf("unexpected append: ref=%q err=%v", ref, err)
	}

	rows := s.Rows()
	if len(rows) != 2 || rows[0][0] != "2024-05-02" || rows[0][4] != "12.5" {
		t.Fatalf("unexpected rows: %v", rows)
	}
}

func TestAppendTransactionIsIdempotent(t *testing.T) {
	s := New()
	first, _ := s.AppendTransaction(context.Background(), tx("a"))
	again, err := s.AppendTransaction(context.Background(), tx("a"))
	if err != nil || again != first {
		t.Fatalf("second append: ref=%q err=%v, want %q", again, err, first)
	}
	if n := len(s.Rows()); n != 1 {
		t.Fatalf("rows = %d, want 1", n)
	}
}

func TestAppendTransactionRejectsInvalid(t *testing.T) {
	s := New()
	if _, err := s.AppendTransaction(context.Background(), core.Transaction{Type: core.Expense}); err == nil {
		t.Fatal("expected error for missing id")
	}
	bad := tx("c")
	bad.Amount = decimal.Zero
	if _, err := s.AppendTransaction(context.Background(), bad); err == nil {
		t.Fatal("expected validation error")
	}
}
