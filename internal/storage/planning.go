package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"budgetplanner/internal/core"
)

const goalColumns = `id, user_id, title, target_amount, current_amount, target_date, status, created_at, updated_at`

func scanGoal(row interface{ Scan(...any) error }) (core.IncomeGoal, error) {
	var (
		g                core.IncomeGoal
		targetDate       sql.NullString
		status           string
		created, updated string
	)
	if err := row.Scan(&g.ID, &g.UserID, &g.Title, &g.TargetAmount, &g.CurrentAmount, &targetDate, &status, &created, &updated); err != nil {
		return core.IncomeGoal{}, err
	}
	if targetDate.Valid && targetDate.String != "" {
		d, err := core.ParseDate(targetDate.String)
		if err != nil {
			return core.IncomeGoal{}, fmt.Errorf("goal %s: %w", g.ID, err)
		}
		g.TargetDate = &d
	}
	g.Status = core.GoalStatus(status)
	g.CreatedAt, g.UpdatedAt = parseTime(created), parseTime(updated)
	return g, nil
}

func (r *SQLiteRepository) ListGoals(ctx context.Context, userID string, status *core.GoalStatus) ([]core.IncomeGoal, error) {
	query := `SELECT ` + goalColumns + ` FROM income_goals WHERE user_id = ?`
	args := []any{userID}
	if status != nil {
		query += ` AND status = ?`
		args = append(args, string(*status))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	out := make([]core.IncomeGoal, 0)
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CreateGoal(ctx context.Context, userID string, g core.IncomeGoal) (core.IncomeGoal, error) {
	if userID == "" {
		return core.IncomeGoal{}, core.ErrMissingUser
	}
	if err := g.Validate(); err != nil {
		return core.IncomeGoal{}, err
	}
	g.ID = uuid.NewString()
	g.UserID = userID
	stamp := r.stamp()
	g.CreatedAt = parseTime(stamp)
	g.UpdatedAt = g.CreatedAt

	var targetDate any
	if g.TargetDate != nil {
		targetDate = g.TargetDate.String()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO income_goals (`+goalColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.UserID, g.Title, g.TargetAmount.String(), g.CurrentAmount.String(), targetDate, string(g.Status), stamp, stamp)
	if err != nil {
		return core.IncomeGoal{}, fmt.Errorf("insert goal: %w", err)
	}
	return g, nil
}

const eventColumns = `id, user_id, title, description, event_date, event_type, budget_amount, spent_amount, created_at, updated_at`

func scanEvent(row interface{ Scan(...any) error }) (core.Event, error) {
	var (
		e                core.Event
		eventDate        string
		budget           decimal.NullDecimal
		created, updated string
	)
	if err := row.Scan(&e.ID, &e.UserID, &e.Title, &e.Description, &eventDate, &e.EventType, &budget, &e.SpentAmount, &created, &updated); err != nil {
		return core.Event{}, err
	}
	d, err := core.ParseDate(eventDate)
	if err != nil {
		return core.Event{}, fmt.Errorf("event %s: %w", e.ID, err)
	}
	e.EventDate = d
	if budget.Valid {
		b := budget.Decimal
		e.BudgetAmount = &b
	}
	e.CreatedAt, e.UpdatedAt = parseTime(created), parseTime(updated)
	return e, nil
}

func (r *SQLiteRepository) ListEvents(ctx context.Context, userID string, from *core.Date) ([]core.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE user_id = ?`
	args := []any{userID}
	if from != nil {
		query += ` AND event_date >= ?`
		args = append(args, from.String())
	}
	query += ` ORDER BY event_date ASC, created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	out := make([]core.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CreateEvent(ctx context.Context, userID string, e core.Event) (core.Event, error) {
	if userID == "" {
		return core.Event{}, core.ErrMissingUser
	}
	if err := e.Validate(); err != nil {
		return core.Event{}, err
	}
	e.ID = uuid.NewString()
	e.UserID = userID
	stamp := r.stamp()
	e.CreatedAt = parseTime(stamp)
	e.UpdatedAt = e.CreatedAt

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO events (`+eventColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, e.Title, e.Description, e.EventDate.String(), e.EventType,
		nullDecimal(e.BudgetAmount), e.SpentAmount.String(), stamp, stamp)
	if err != nil {
		return core.Event{}, fmt.Errorf("insert event: %w", err)
	}
	return e, nil
}

func (r *SQLiteRepository) UpdateEvent(ctx context.Context, userID string, e core.Event) (core.Event, error) {
	if err := e.Validate(); err != nil {
		return core.Event{}, err
	}
	stamp := r.stamp()
	res, err := r.db.ExecContext(ctx,
		`UPDATE events SET title = ?, description = ?, event_date = ?, event_type = ?, budget_amount = ?, spent_amount = ?, updated_at = ?
		 WHERE id = ? AND user_id = ?`,
		e.Title, e.Description, e.EventDate.String(), e.EventType, nullDecimal(e.BudgetAmount), e.SpentAmount.String(), stamp,
		e.ID, userID)
	if err != nil {
		return core.Event{}, fmt.Errorf("update event: %w", err)
	}
	if err := requireOne(res, "event", e.ID); err != nil {
		return core.Event{}, err
	}

	row := r.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ? AND user_id = ?`, e.ID, userID)
	updated, err := scanEvent(row)
	if err != nil {
		return core.Event{}, fmt.Errorf("reload event: %w", err)
	}
	return updated, nil
}

func (r *SQLiteRepository) DeleteEvent(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return requireOne(res, "event", id)
}

const profileColumns = `id, user_id, full_name, email, avatar_url, created_at, updated_at`

func scanProfile(row interface{ Scan(...any) error }) (core.Profile, error) {
	var (
		p                core.Profile
		created, updated string
	)
	if err := row.Scan(&p.ID, &p.UserID, &p.FullName, &p.Email, &p.AvatarURL, &created, &updated); err != nil {
		return core.Profile{}, err
	}
	p.CreatedAt, p.UpdatedAt = parseTime(created), parseTime(updated)
	return p, nil
}

func (r *SQLiteRepository) GetProfile(ctx context.Context, userID string) (core.Profile, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE user_id = ?`, userID)
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Profile{}, fmt.Errorf("profile %s: %w", userID, core.ErrNotFound)
	}
	if err != nil {
		return core.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

func (r *SQLiteRepository) EnsureProfile(ctx context.Context, userID, email string) (core.Profile, error) {
	if userID == "" {
		return core.Profile{}, core.ErrMissingUser
	}
	stamp := r.stamp()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO profiles (`+profileColumns+`) VALUES (?, ?, '', ?, '', ?, ?)
		 ON CONFLICT (user_id) DO UPDATE SET
		   email = CASE WHEN excluded.email <> '' THEN excluded.email ELSE profiles.email END,
		   updated_at = CASE WHEN excluded.email <> '' AND excluded.email <> profiles.email THEN excluded.updated_at ELSE profiles.updated_at END`,
		uuid.NewString(), userID, email, stamp, stamp)
	if err != nil {
		return core.Profile{}, fmt.Errorf("ensure profile: %w", err)
	}
	return r.GetProfile(ctx, userID)
}

func (r *SQLiteRepository) UpdateProfileName(ctx context.Context, userID, fullName string) (core.Profile, error) {
	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		return core.Profile{}, core.ErrEmptyName
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE profiles SET full_name = ?, updated_at = ? WHERE user_id = ?`, fullName, r.stamp(), userID)
	if err != nil {
		return core.Profile{}, fmt.Errorf("update profile: %w", err)
	}
	if err := requireOne(res, "profile", userID); err != nil {
		return core.Profile{}, err
	}
	return r.GetProfile(ctx, userID)
}
