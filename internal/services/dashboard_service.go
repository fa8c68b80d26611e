package services

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"budgetplanner/internal/core"
	"budgetplanner/internal/report"
	"budgetplanner/internal/store"
)

// Dashboard summarizes the most recent transactions and what is planned.
// Totals cover the recent list only.
type Dashboard struct {
	Totals         report.Totals      `json:"totals"`
	ActiveGoals    int                `json:"active_goals"`
	UpcomingEvents int                `json:"upcoming_events"`
	Recent         []core.Transaction `json:"recent"`
	Pie            []report.PieSlice  `json:"pie"`
}

// Dashboard loads the three dashboard sources concurrently.
func (s *LedgerService) Dashboard(ctx context.Context, userID string) (Dashboard, error) {
	if userID == "" {
		return Dashboard{}, core.ErrMissingUser
	}

	var (
		recent []core.Transaction
		goals  []core.IncomeGoal
		events []core.Event
	)
	active := core.GoalActive
	today := s.Today()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		recent, err = s.ListTransactions(gctx, userID, store.TransactionQuery{Limit: RecentLimit, Newest: true})
		return err
	})
	g.Go(func() error {
		var err error
		goals, err = s.ListGoals(gctx, userID, &active)
		return err
	})
	g.Go(func() error {
		var err error
		events, err = s.ListEvents(gctx, userID, &today)
		return err
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}

	r, err := report.Aggregate(recent)
	if err != nil {
		return Dashboard{}, fmt.Errorf("aggregate recent: %w", err)
	}
	return Dashboard{
		Totals:         r.Totals,
		ActiveGoals:    len(goals),
		UpcomingEvents: len(events),
		Recent:         recent,
		Pie:            report.PieSeries(r, report.ByName),
	}, nil
}
