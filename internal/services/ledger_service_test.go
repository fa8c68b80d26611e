package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"budgetplanner/internal/cache"
	"budgetplanner/internal/core"
	"budgetplanner/internal/store"
	"budgetplanner/internal/store/memory"
)

var fixedNow = time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC)

type fakePublisher struct {
	mu  sync.Mutex
	ids []string
	err error
}

func (p *fakePublisher) PublishTransactionSync(_ context.Context, _, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ids = append(p.ids, id)
	return p.err
}

// countingStore counts transaction reads.
type countingStore struct {
	*memory.Store
	lists atomic.Int32
}

func (c *countingStore) ListTransactions(ctx context.Context, userID string, q store.TransactionQuery) ([]core.Transaction, error) {
	c.lists.Add(1)
	return c.Store.ListTransactions(ctx, userID, q)
}

func newLedger(opts ...LedgerOption) (*LedgerService, *countingStore) {
	st := &countingStore{Store: memory.New()}
	opts = append([]LedgerOption{WithClock(func() time.Time { return fixedNow })}, opts...)
	return NewLedgerService(st, opts...), st
}

func expense(amount, category, date string) core.Transaction {
	return core.Transaction{Type: core.Expense, Amount: decimal.RequireFromString(amount), Category: category, Date: date}
}

func income(amount, category, date string) core.Transaction {
	return core.Transaction{Type: core.Income, Amount: decimal.RequireFromString(amount), Category: category, Date: date}
}

func TestLedger_CreateTransaction(t *testing.T) {
	pub := &fakePublisher{}
	svc, _ := newLedger(WithPublisher(pub))
	ctx := context.Background()

	created, err := svc.CreateTransaction(ctx, "alice", expense("42.10", "  Food ", "2024-06-01"))
	if err != nil {
		t.Fatalf("CreateTransaction() error = %v", err)
	}
	if created.ID == "" || created.Category != "Food" || created.UserID != "alice" {
		t.Fatalf("unexpected transaction %+v", created)
	}
	if len(pub.ids) != 1 || pub.ids[0] != created.ID {
		t.Fatalf("published %v", pub.ids)
	}
}

func TestLedger_CreateTransactionValidation(t *testing.T) {
	pub := &fakePublisher{}
	svc, st := newLedger(WithPublisher(pub))
	ctx := context.Background()

	tests := []struct {
		name string
		tx   core.Transaction
		want error
	}{
		{"zero amount", expense("0", "Food", "2024-06-01"), core.ErrInvalidAmount},
		{"no category", expense("5", " ", "2024-06-01"), core.ErrEmptyCategory},
		{"bad date", expense("5", "Food", "06/01/2024"), core.ErrInvalidDate},
		{"bad type", core.Transaction{Type: "transfer", Amount: decimal.NewFromInt(1), Category: "x", Date: "2024-06-01"}, core.ErrInvalidType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateTransaction(ctx, "alice", tt.tx)
			if !errors.Is(err, tt.want) || !core.IsValidation(err) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
		})
	}
	if _, err := svc.CreateTransaction(ctx, "", expense("5", "Food", "2024-06-01")); !errors.Is(err, core.ErrMissingUser) {
		t.Fatalf("missing user error = %v", err)
	}
	if got, _ := st.Store.ListTransactions(ctx, "alice", store.TransactionQuery{}); len(got) != 0 {
		t.Fatalf("rejected input must not be stored, got %d", len(got))
	}
	if len(pub.ids) != 0 {
		t.Fatalf("nothing should be published, got %v", pub.ids)
	}
}

func TestLedger_PublishFailureDoesNotFailCreate(t *testing.T) {
	svc, _ := newLedger(WithPublisher(&fakePublisher{err: errors.New("broker down")}))
	if _, err := svc.CreateTransaction(context.Background(), "alice", expense("5", "Food", "2024-06-01")); err != nil {
		t.Fatalf("CreateTransaction() error = %v", err)
	}
}

func TestLedger_CacheInvalidatedOnCreate(t *testing.T) {
	c := cache.NewLRUCache[[]core.Transaction](16, time.Minute)
	svc, st := newLedger(WithTransactionCache(c))
	ctx := context.Background()
	q := store.TransactionQuery{}

	if _, err := svc.CreateTransaction(ctx, "alice", expense("5", "Food", "2024-06-01")); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if _, err := svc.ListTransactions(ctx, "alice", q); err != nil {
			t.Fatal(err)
		}
	}
	if n := st.lists.Load(); n != 1 {
		t.Fatalf("store reads = %d, want 1", n)
	}

	if _, err := svc.CreateTransaction(ctx, "alice", expense("7", "Food", "2024-06-02")); err != nil {
		t.Fatal(err)
	}
	got, err := svc.ListTransactions(ctx, "alice", q)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || st.lists.Load() != 2 {
		t.Fatalf("got %d records after %d reads", len(got), st.lists.Load())
	}
}

// pausingStore holds the first transaction read after it has loaded rows.
type pausingStore struct {
	*memory.Store
	once    sync.Once
	loaded  chan struct{}
	release chan struct{}
}

func (p *pausingStore) ListTransactions(ctx context.Context, userID string, q store.TransactionQuery) ([]core.Transaction, error) {
	txs, err := p.Store.ListTransactions(ctx, userID, q)
	p.once.Do(func() {
		close(p.loaded)
		<-p.release
	})
	return txs, err
}

func TestLedger_CacheSkipsFillAfterConcurrentCreate(t *testing.T) {
	st := &pausingStore{Store: memory.New(), loaded: make(chan struct{}), release: make(chan struct{})}
	c := cache.NewLRUCache[[]core.Transaction](16, time.Minute)
	svc := NewLedgerService(st, WithClock(func() time.Time { return fixedNow }), WithTransactionCache(c))
	ctx := context.Background()
	q := store.TransactionQuery{}

	done := make(chan int)
	go func() {
		txs, err := svc.ListTransactions(ctx, "alice", q)
		if err != nil {
			t.Errorf("ListTransactions() error = %v", err)
		}
		done <- len(txs)
	}()

	<-st.loaded
	if _, err := svc.CreateTransaction(ctx, "alice", expense("5", "Food", "2024-06-01")); err != nil {
		t.Fatal(err)
	}
	close(st.release)
	if n := <-done; n != 0 {
		t.Fatalf("in-flight read = %d records, want 0", n)
	}

	got, err := svc.ListTransactions(ctx, "alice", q)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("ListTransactions() after create = %d records, want 1", len(got))
	}
}

func TestLedger_CacheReturnsCopies(t *testing.T) {
	c := cache.NewLRUCache[[]core.Transaction](16, time.Minute)
	svc, _ := newLedger(WithTransactionCache(c))
	ctx := context.Background()
	if _, err := svc.CreateTransaction(ctx, "alice", expense("5", "Food", "2024-06-01")); err != nil {
		t.Fatal(err)
	}
	first, _ := svc.ListTransactions(ctx, "alice", store.TransactionQuery{})
	first[0].Category = "mutated"
	second, _ := svc.ListTransactions(ctx, "alice", store.TransactionQuery{})
	if second[0].Category != "Food" {
		t.Fatalf("cache entry was mutated by caller: %q", second[0].Category)
	}
}

func TestLedger_Goals(t *testing.T) {
	svc, _ := newLedger()
	ctx := context.Background()

	g, err := svc.CreateGoal(ctx, "alice", core.IncomeGoal{
		Title:        " Emergency fund ",
		TargetAmount: decimal.NewFromInt(1000),
	})
	if err != nil {
		t.Fatalf("CreateGoal() error = %v", err)
	}
	if g.Status != core.GoalActive || g.Title != "Emergency fund" {
		t.Fatalf("unexpected goal %+v", g)
	}
	if _, err := svc.CreateGoal(ctx, "alice", core.IncomeGoal{Title: "x"}); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}

	paused := core.GoalPaused
	got, err := svc.ListGoals(ctx, "alice", &paused)
	if err != nil || len(got) != 0 {
		t.Fatalf("ListGoals(paused) = %v, %v", got, err)
	}
}

func TestLedger_Events(t *testing.T) {
	svc, _ := newLedger()
	ctx := context.Background()

	e, err := svc.CreateEvent(ctx, "alice", core.Event{Title: "Trip", EventDate: core.NewDate(2024, 7, 1)})
	if err != nil {
		t.Fatalf("CreateEvent() error = %v", err)
	}
	if e.EventType != core.DefaultEventType {
		t.Fatalf("event type = %q, want default", e.EventType)
	}

	e.SpentAmount = decimal.NewFromInt(50)
	e.EventType = "Vacation"
	updated, err := svc.UpdateEvent(ctx, "alice", e)
	if err != nil || updated.EventType != "vacation" || !updated.SpentAmount.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("UpdateEvent() = %+v, %v", updated, err)
	}

	if _, err := svc.UpdateEvent(ctx, "bob", e); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("other user update error = %v", err)
	}
	if err := svc.DeleteEvent(ctx, "bob", e.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("other user delete error = %v", err)
	}
	if err := svc.DeleteEvent(ctx, "alice", e.ID); err != nil {
		t.Fatalf("DeleteEvent() error = %v", err)
	}
	if got, _ := svc.ListEvents(ctx, "alice", nil); len(got) != 0 {
		t.Fatalf("events left: %v", got)
	}
}

func TestLedger_Profile(t *testing.T) {
	svc, _ := newLedger()
	ctx := context.Background()

	p, err := svc.Profile(ctx, "alice", "alice@example.com")
	if err != nil || p.Email != "alice@example.com" {
		t.Fatalf("Profile() = %+v, %v", p, err)
	}
	if _, err := svc.UpdateProfileName(ctx, "alice", "", "  "); !errors.Is(err, core.ErrEmptyName) {
		t.Fatalf("expected ErrEmptyName, got %v", err)
	}
	p, err = svc.UpdateProfileName(ctx, "bob", "bob@example.com", "Bob Builder")
	if err != nil || p.FullName != "Bob Builder" {
		t.Fatalf("UpdateProfileName() = %+v, %v", p, err)
	}
}
