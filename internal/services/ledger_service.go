// Package services holds the application operations the HTTP layer and the
// worker call: ledger writes, report building and the dashboard summary.
package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"budgetplanner/internal/cache"
	"budgetplanner/internal/core"
	applog "budgetplanner/internal/log"
	"budgetplanner/internal/store"
)

// Publisher announces a stored transaction to the mirror worker.
type Publisher interface {
	PublishTransactionSync(ctx context.Context, userID, id string) error
}

// LedgerService validates and persists user records. Transaction reads go
// through a per-user cache that every create by that user invalidates.
type LedgerService struct {
	store     store.Store
	publisher Publisher
	cache     cache.Cache[[]core.Transaction]
	logger    *applog.Logger
	events    *applog.StructuredLogger
	now       func() time.Time

	// genMu guards generations and orders cache fills against invalidation.
	genMu       sync.Mutex
	generations map[string]uint64
}

type LedgerOption func(*LedgerService)

func WithPublisher(p Publisher) LedgerOption {
	return func(s *LedgerService) { s.publisher = p }
}

func WithTransactionCache(c cache.Cache[[]core.Transaction]) LedgerOption {
	return func(s *LedgerService) { s.cache = c }
}

func WithLogger(l *applog.Logger) LedgerOption {
	return func(s *LedgerService) { s.logger = l }
}

func WithClock(now func() time.Time) LedgerOption {
	return func(s *LedgerService) { s.now = now }
}

func NewLedgerService(st store.Store, opts ...LedgerOption) *LedgerService {
	s := &LedgerService{store: st, now: time.Now, generations: map[string]uint64{}}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = applog.New(applog.DefaultConfig())
	}
	s.logger = s.logger.WithComponent(applog.ComponentLedger)
	s.events = applog.NewStructuredLogger(s.logger)
	return s
}

// Today is the current UTC calendar day.
func (s *LedgerService) Today() core.Date {
	return core.DateOf(s.now().UTC())
}

func (s *LedgerService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func cacheKey(userID string, q store.TransactionQuery) string {
	return fmt.Sprintf("%s|%s|%s|%d|%t", userID, q.Range.From.String(), q.Range.To.String(), q.Limit, q.Newest)
}

func (s *LedgerService) ListTransactions(ctx context.Context, userID string, q store.TransactionQuery) ([]core.Transaction, error) {
	if userID == "" {
		return nil, core.ErrMissingUser
	}
	key := cacheKey(userID, q)
	if s.cache != nil {
		if txs, ok := s.cache.Get(key); ok {
			return append([]core.Transaction(nil), txs...), nil
		}
	}
	gen := s.generation(userID)
	txs, err := s.store.ListTransactions(ctx, userID, q)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	s.fill(userID, gen, key, txs)
	return txs, nil
}

func (s *LedgerService) generation(userID string) uint64 {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.generations[userID]
}

// fill caches txs unless a create for userID ran since gen was read.
func (s *LedgerService) fill(userID string, gen uint64, key string, txs []core.Transaction) {
	if s.cache == nil {
		return
	}
	s.genMu.Lock()
	defer s.genMu.Unlock()
	if s.generations[userID] != gen {
		return
	}
	s.cache.Set(key, append([]core.Transaction(nil), txs...))
}

func (s *LedgerService) invalidate(userID string) {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	s.generations[userID]++
	if s.cache != nil {
		s.cache.DeletePrefix(userID + "|")
	}
}

// CreateTransaction stores t and then asks the mirror to copy it. A failed
// publish is logged; the sweep picks the record up later.
func (s *LedgerService) CreateTransaction(ctx context.Context, userID string, t core.Transaction) (core.Transaction, error) {
	if userID == "" {
		return core.Transaction{}, core.ErrMissingUser
	}
	t.Category = strings.TrimSpace(t.Category)
	t.Description = strings.TrimSpace(t.Description)
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}

	created, err := s.store.CreateTransaction(ctx, userID, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}
	s.invalidate(userID)
	s.events.LogTransactionCreated(ctx, userID, created.ID, string(created.Type), created.Category, created.Amount.String())

	if s.publisher != nil {
		if err := s.publisher.PublishTransactionSync(ctx, userID, created.ID); err != nil {
			s.events.LogError(ctx, "Failed to publish sync message", err,
				applog.ComponentAMQP, applog.OpSync, applog.ErrorTypeNetwork)
		}
	}
	return created, nil
}

func (s *LedgerService) ListGoals(ctx context.Context, userID string, status *core.GoalStatus) ([]core.IncomeGoal, error) {
	if userID == "" {
		return nil, core.ErrMissingUser
	}
	goals, err := s.store.ListGoals(ctx, userID, status)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	return goals, nil
}

// CreateGoal stores a goal; an empty status means active.
func (s *LedgerService) CreateGoal(ctx context.Context, userID string, g core.IncomeGoal) (core.IncomeGoal, error) {
	if userID == "" {
		return core.IncomeGoal{}, core.ErrMissingUser
	}
	g.Title = strings.TrimSpace(g.Title)
	if g.Status == "" {
		g.Status = core.GoalActive
	}
	if err := g.Validate(); err != nil {
		return core.IncomeGoal{}, err
	}
	created, err := s.store.CreateGoal(ctx, userID, g)
	if err != nil {
		return core.IncomeGoal{}, fmt.Errorf("save goal: %w", err)
	}
	s.logger.InfoContext(ctx, "Goal created",
		applog.FieldUserID, userID,
		applog.FieldRecordID, created.ID,
		applog.FieldOperation, applog.OpCreate)
	return created, nil
}

func (s *LedgerService) ListEvents(ctx context.Context, userID string, from *core.Date) ([]core.Event, error) {
	if userID == "" {
		return nil, core.ErrMissingUser
	}
	events, err := s.store.ListEvents(ctx, userID, from)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

func normalizeEvent(e core.Event) core.Event {
	e.Title = strings.TrimSpace(e.Title)
	e.Description = strings.TrimSpace(e.Description)
	e.EventType = strings.ToLower(strings.TrimSpace(e.EventType))
	if e.EventType == "" {
		e.EventType = core.DefaultEventType
	}
	return e
}

func (s *LedgerService) CreateEvent(ctx context.Context, userID string, e core.Event) (core.Event, error) {
	if userID == "" {
		return core.Event{}, core.ErrMissingUser
	}
	e = normalizeEvent(e)
	if err := e.Validate(); err != nil {
		return core.Event{}, err
	}
	created, err := s.store.CreateEvent(ctx, userID, e)
	if err != nil {
		return core.Event{}, fmt.Errorf("save event: %w", err)
	}
	s.logger.InfoContext(ctx, "Event created",
		applog.FieldUserID, userID,
		applog.FieldRecordID, created.ID,
		applog.FieldOperation, applog.OpCreate)
	return created, nil
}

func (s *LedgerService) UpdateEvent(ctx context.Context, userID string, e core.Event) (core.Event, error) {
	if userID == "" {
		return core.Event{}, core.ErrMissingUser
	}
	e = normalizeEvent(e)
	if err := e.Validate(); err != nil {
		return core.Event{}, err
	}
	updated, err := s.store.UpdateEvent(ctx, userID, e)
	if err != nil {
		return core.Event{}, fmt.Errorf("update event: %w", err)
	}
	return updated, nil
}

func (s *LedgerService) DeleteEvent(ctx context.Context, userID, id string) error {
	if userID == "" {
		return core.ErrMissingUser
	}
	if err := s.store.DeleteEvent(ctx, userID, id); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	s.logger.InfoContext(ctx, "Event deleted",
		applog.FieldUserID, userID,
		applog.FieldRecordID, id,
		applog.FieldOperation, applog.OpDelete)
	return nil
}

// Profile returns the user's profile, creating it on first sight.
func (s *LedgerService) Profile(ctx context.Context, userID, email string) (core.Profile, error) {
	if userID == "" {
		return core.Profile{}, core.ErrMissingUser
	}
	p, err := s.store.EnsureProfile(ctx, userID, email)
	if err != nil {
		return core.Profile{}, fmt.Errorf("ensure profile: %w", err)
	}
	return p, nil
}

func (s *LedgerService) UpdateProfileName(ctx context.Context, userID, email, fullName string) (core.Profile, error) {
	if userID == "" {
		return core.Profile{}, core.ErrMissingUser
	}
	if strings.TrimSpace(fullName) == "" {
		return core.Profile{}, core.ErrEmptyName
	}
	if _, err := s.Profile(ctx, userID, email); err != nil {
		return core.Profile{}, err
	}
	p, err := s.store.UpdateProfileName(ctx, userID, fullName)
	if err != nil {
		return core.Profile{}, fmt.Errorf("update profile: %w", err)
	}
	return p, nil
}
