package services

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"budgetplanner/internal/core"
	"budgetplanner/internal/export"
	"budgetplanner/internal/report"
	"budgetplanner/internal/store"
)

func seedLedger(t *testing.T, svc *LedgerService) {
	t.Helper()
	ctx := context.Background()
	for _, tx := range []core.Transaction{
		income("3000", "Salary", "2024-04-01"),
		expense("1200", "Housing", "2024-04-03"),
		expense("300", "Food", "2024-05-10"),
		income("500", "Freelance", "2024-06-02"),
		expense("100", "Food", "2024-06-05"),
		expense("999", "Travel", "2023-01-05"),
	} {
		if _, err := svc.CreateTransaction(ctx, "alice", tx); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
}

func TestReportService_Build(t *testing.T) {
	ledger, _ := newLedger()
	seedLedger(t, ledger)
	svc := NewReportService(ledger, nil).WithClock(func() time.Time { return fixedNow })

	view, err := svc.Build(context.Background(), "alice", "bogus", 0)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if view.Range != report.RangeLast6Months || view.From.String() != "2023-12-15" {
		t.Fatalf("range = %s from %s", view.Range, view.From)
	}
	if view.Totals.Income.String() != "3500" || view.Totals.Expense.String() != "1600" {
		t.Fatalf("totals = %+v", view.Totals)
	}
	if view.SavingsRate != "54.3" {
		t.Fatalf("savings rate = %s", view.SavingsRate)
	}
	if len(view.Trend) != 3 || view.Trend[0].Month != "2024-04" {
		t.Fatalf("trend = %+v", view.Trend)
	}
	if len(view.TopCategories) != 2 || view.TopCategories[0].Category != "Housing" {
		t.Fatalf("top = %+v", view.TopCategories)
	}
	if len(view.Recent) != 5 || view.Recent[0].Date != "2024-04-01" {
		t.Fatalf("recent = %+v", view.Recent)
	}
}

func TestReportService_BuildRangeAndTop(t *testing.T) {
	ledger, _ := newLedger()
	seedLedger(t, ledger)
	svc := NewReportService(ledger, nil).WithClock(func() time.Time { return fixedNow })

	view, err := svc.Build(context.Background(), "alice", report.RangeLast3Months, 1)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if view.From.String() != "2024-03-15" || view.Totals.Expense.String() != "1600" {
		t.Fatalf("view = %+v", view)
	}
	if len(view.TopCategories) != 1 || view.TopCategories[0].Category != "Housing" {
		t.Fatalf("top = %+v", view.TopCategories)
	}
}

func TestReportService_CorruptDate(t *testing.T) {
	lister := listerFunc(func(context.Context, string, store.TransactionQuery) ([]core.Transaction, error) {
		return []core.Transaction{{ID: "x", Type: core.Expense, Amount: decimalOne, Category: "Food", Date: "2024-13-45"}}, nil
	})
	svc := NewReportService(lister, nil)
	if _, err := svc.Build(context.Background(), "alice", "", 0); !errors.Is(err, report.ErrMalformedDate) {
		t.Fatalf("expected ErrMalformedDate, got %v", err)
	}
}

type listerFunc func(context.Context, string, store.TransactionQuery) ([]core.Transaction, error)

func (f listerFunc) ListTransactions(ctx context.Context, userID string, q store.TransactionQuery) ([]core.Transaction, error) {
	return f(ctx, userID, q)
}

var decimalOne = income("1", "x", "2024-01-01").Amount

func TestReportService_ConcurrentFetchesShareOneCall(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	lister := listerFunc(func(context.Context, string, store.TransactionQuery) ([]core.Transaction, error) {
		calls.Add(1)
		<-release
		return nil, nil
	})
	svc := NewReportService(lister, nil).WithClock(func() time.Time { return fixedNow })

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Build(context.Background(), "alice", report.RangeLastYear, 0); err != nil {
				t.Errorf("Build() error = %v", err)
			}
		}()
	}
	for calls.Load() == 0 {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := calls.Load(); n != 1 {
		t.Fatalf("store calls = %d, want 1", n)
	}
}

func TestReportService_CancelledCallerStopsWaiting(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	lister := listerFunc(func(context.Context, string, store.TransactionQuery) ([]core.Transaction, error) {
		<-release
		return nil, nil
	})
	svc := NewReportService(lister, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := svc.Build(ctx, "alice", "", 0); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
}

func TestReportService_Export(t *testing.T) {
	ledger, _ := newLedger()
	seedLedger(t, ledger)
	svc := NewReportService(ledger, nil).WithClock(func() time.Time { return fixedNow })
	ctx := context.Background()

	doc, err := svc.Export(ctx, "alice", report.RangeLast6Months, export.CSV)
	if err != nil {
		t.Fatalf("Export(csv) error = %v", err)
	}
	if doc.Filename != "financial-report-2024-06-15.csv" || bytes.Count(doc.Body, []byte("\n")) != 6 {
		t.Fatalf("csv doc = %s\n%s", doc.Filename, doc.Body)
	}

	for _, f := range []export.Format{export.XLSX, export.PDF} {
		doc, err := svc.Export(ctx, "alice", report.RangeLast6Months, f)
		if err != nil || len(doc.Body) == 0 || doc.ContentType != f.ContentType() {
			t.Fatalf("Export(%s) = %d bytes, %v", f, len(doc.Body), err)
		}
	}
}

func TestReportService_MissingUser(t *testing.T) {
	svc := NewReportService(listerFunc(nil), nil)
	if _, err := svc.Build(context.Background(), "", "", 0); !errors.Is(err, core.ErrMissingUser) {
		t.Fatalf("expected ErrMissingUser, got %v", err)
	}
}
