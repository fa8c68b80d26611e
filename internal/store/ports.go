// Package store declares the persistence ports the services depend on.
// Every call names the owning user explicitly and implementations scope all
// reads and writes by it.
package store

import (
	"context"

	"budgetplanner/internal/core"
)

// TransactionQuery selects a user's transactions. Results are ordered by
// date then creation time, oldest first unless Newest is set. Limit <= 0
// means no limit.
type TransactionQuery struct {
	Range  core.DateRange
	Limit  int
	Newest bool
}

type (
	TransactionStore interface {
		ListTransactions(ctx context.Context, userID string, q TransactionQuery) ([]core.Transaction, error)
		CreateTransaction(ctx context.Context, userID string, t core.Transaction) (core.Transaction, error)
	}

	GoalStore interface {
		// ListGoals returns goals newest first; a nil status returns all.
		ListGoals(ctx context.Context, userID string, status *core.GoalStatus) ([]core.IncomeGoal, error)
		CreateGoal(ctx context.Context, userID string, g core.IncomeGoal) (core.IncomeGoal, error)
	}

	EventStore interface {
		// ListEvents returns events by date ascending; a nil from returns all.
		ListEvents(ctx context.Context, userID string, from *core.Date) ([]core.Event, error)
		CreateEvent(ctx context.Context, userID string, e core.Event) (core.Event, error)
		UpdateEvent(ctx context.Context, userID string, e core.Event) (core.Event, error)
		DeleteEvent(ctx context.Context, userID, id string) error
	}

	ProfileStore interface {
		GetProfile(ctx context.Context, userID string) (core.Profile, error)
		// EnsureProfile creates the profile on first sight and keeps the
		// stored email in line with the identity provider.
		EnsureProfile(ctx context.Context, userID, email string) (core.Profile, error)
		UpdateProfileName(ctx context.Context, userID, fullName string) (core.Profile, error)
	}

	// MirrorQueue tracks which transactions still have to be copied to the
	// spreadsheet mirror. It is used by the worker only and is not user scoped.
	MirrorQueue interface {
		GetTransaction(ctx context.Context, id string) (core.Transaction, error)
		PendingMirror(ctx context.Context, limit int) ([]core.Transaction, error)
		MarkMirrored(ctx context.Context, id, ref string) error
		MarkMirrorError(ctx context.Context, id string, cause error) error
	}

	// Store is everything a backend provides.
	Store interface {
		TransactionStore
		GoalStore
		EventStore
		ProfileStore
		MirrorQueue
		Ping(ctx context.Context) error
	}
)
