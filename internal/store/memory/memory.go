// Package memory is an in-process store for development and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"budgetplanner/internal/core"
	"budgetplanner/internal/store"
)

type mirrorState struct {
	ref string
	err string
}

type Store struct {
	mu       sync.Mutex
	now      func() time.Time
	txs      []core.Transaction
	goals    []core.IncomeGoal
	events   []core.Event
	profiles map[string]core.Profile
	mirrored map[string]mirrorState
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		now:      time.Now,
		profiles: make(map[string]core.Profile),
		mirrored: make(map[string]mirrorState),
	}
}

// WithClock replaces the timestamp source.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) ListTransactions(ctx context.Context, userID string, q store.TransactionQuery) ([]core.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	from, to := "", ""
	if !q.Range.From.IsZero() {
		from = q.Range.From.String()
	}
	if !q.Range.To.IsZero() {
		to = q.Range.To.String()
	}

	out := make([]core.Transaction, 0)
	for _, t := range s.txs {
		if t.UserID != userID {
			continue
		}
		if from != "" && t.Date < from {
			continue
		}
		if to != "" && t.Date > to {
			continue
		}
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if q.Newest {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (s *Store) CreateTransaction(ctx context.Context, userID string, t core.Transaction) (core.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return core.Transaction{}, err
	}
	if userID == "" {
		return core.Transaction{}, core.ErrMissingUser
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	day, _ := t.Day()
	s.mu.Lock()
	defer s.mu.Unlock()
	t.ID = uuid.NewString()
	t.UserID = userID
	t.Date = day.String()
	t.CreatedAt = s.now().UTC()
	s.txs = append(s.txs, t)
	return t, nil
}

func (s *Store) ListGoals(ctx context.Context, userID string, status *core.GoalStatus) ([]core.IncomeGoal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.IncomeGoal, 0)
	for i := len(s.goals) - 1; i >= 0; i-- {
		g := s.goals[i]
		if g.UserID != userID || (status != nil && g.Status != *status) {
			continue
		}
		out = append(out, g)
	}
	return out, nil
}

func (s *Store) CreateGoal(ctx context.Context, userID string, g core.IncomeGoal) (core.IncomeGoal, error) {
	if err := ctx.Err(); err != nil {
		return core.IncomeGoal{}, err
	}
	if userID == "" {
		return core.IncomeGoal{}, core.ErrMissingUser
	}
	if err := g.Validate(); err != nil {
		return core.IncomeGoal{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UTC()
	g.ID = uuid.NewString()
	g.UserID = userID
	g.CreatedAt, g.UpdatedAt = now, now
	s.goals = append(s.goals, g)
	return g, nil
}

func (s *Store) ListEvents(ctx context.Context, userID string, from *core.Date) ([]core.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Event, 0)
	for _, e := range s.events {
		if e.UserID != userID || (from != nil && e.EventDate.Before(from.Time)) {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].EventDate.Before(out[j].EventDate.Time) })
	return out, nil
}

func (s *Store) CreateEvent(ctx context.Context, userID string, e core.Event) (core.Event, error) {
	if err := ctx.Err(); err != nil {
		return core.Event{}, err
	}
	if userID == "" {
		return core.Event{}, core.ErrMissingUser
	}
	if err := e.Validate(); err != nil {
		return core.Event{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UTC()
	e.ID = uuid.NewString()
	e.UserID = userID
	e.CreatedAt, e.UpdatedAt = now, now
	s.events = append(s.events, e)
	return e, nil
}

func (s *Store) UpdateEvent(ctx context.Context, userID string, e core.Event) (core.Event, error) {
	if err := ctx.Err(); err != nil {
		return core.Event{}, err
	}
	if err := e.Validate(); err != nil {
		return core.Event{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, cur := range s.events {
		if cur.ID != e.ID || cur.UserID != userID {
			continue
		}
		e.UserID = userID
		e.CreatedAt = cur.CreatedAt
		e.UpdatedAt = s.now().UTC()
		s.events[i] = e
		return e, nil
	}
	return core.Event{}, fmt.Errorf("event %s: %w", e.ID, core.ErrNotFound)
}

func (s *Store) DeleteEvent(ctx context.Context, userID, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, cur := range s.events {
		if cur.ID == id && cur.UserID == userID {
			s.events = append(s.events[:i], s.events[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("event %s: %w", id, core.ErrNotFound)
}

func (s *Store) GetProfile(ctx context.Context, userID string) (core.Profile, error) {
	if err := ctx.Err(); err != nil {
		return core.Profile{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return core.Profile{}, fmt.Errorf("profile %s: %w", userID, core.ErrNotFound)
	}
	return p, nil
}

func (s *Store) EnsureProfile(ctx context.Context, userID, email string) (core.Profile, error) {
	if err := ctx.Err(); err != nil {
		return core.Profile{}, err
	}
	if userID == "" {
		return core.Profile{}, core.ErrMissingUser
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UTC()
	p, ok := s.profiles[userID]
	if !ok {
		p = core.Profile{ID: uuid.NewString(), UserID: userID, CreatedAt: now, UpdatedAt: now}
	}
	if email != "" && p.Email != email {
		p.Email = email
		p.UpdatedAt = now
	}
	s.profiles[userID] = p
	return p, nil
}

func (s *Store) UpdateProfileName(ctx context.Context, userID, fullName string) (core.Profile, error) {
	if err := ctx.Err(); err != nil {
		return core.Profile{}, err
	}
	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		return core.Profile{}, core.ErrEmptyName
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return core.Profile{}, fmt.Errorf("profile %s: %w", userID, core.ErrNotFound)
	}
	p.FullName = fullName
	p.UpdatedAt = s.now().UTC()
	s.profiles[userID] = p
	return p, nil
}

func (s *Store) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.txs {
		if t.ID == id {
			return t, nil
		}
	}
	return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
}

func (s *Store) PendingMirror(ctx context.Context, limit int) ([]core.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Transaction
	for _, t := range s.txs {
		if st, ok := s.mirrored[t.ID]; ok && st.ref != "" {
			continue
		}
		out = append(out, t)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *Store) MarkMirrored(ctx context.Context, id, ref string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mirrored[id] = mirrorState{ref: ref}
	return nil
}

func (s *Store) MarkMirrorError(ctx context.Context, id string, cause error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	s.mirrored[id] = mirrorState{err: msg}
	return nil
}
