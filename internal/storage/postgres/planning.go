package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"budgetplanner/internal/core"
)

const goalColumns = `id::text, user_id, title, target_amount::text, current_amount::text, target_date::text, status, created_at, updated_at`

func scanGoal(row pgx.Row) (core.IncomeGoal, error) {
	var (
		g               core.IncomeGoal
		target, current string
		targetDate      *string
		status          string
	)
	if err := row.Scan(&g.ID, &g.UserID, &g.Title, &target, &current, &targetDate, &status, &g.CreatedAt, &g.UpdatedAt); err != nil {
		return core.IncomeGoal{}, err
	}
	var err error
	if g.TargetAmount, err = decimal.NewFromString(target); err != nil {
		return core.IncomeGoal{}, fmt.Errorf("goal %s target: %w", g.ID, err)
	}
	if g.CurrentAmount, err = decimal.NewFromString(current); err != nil {
		return core.IncomeGoal{}, fmt.Errorf("goal %s current: %w", g.ID, err)
	}
	if targetDate != nil {
		d, err := core.ParseDate(*targetDate)
		if err != nil {
			return core.IncomeGoal{}, fmt.Errorf("goal %s: %w", g.ID, err)
		}
		g.TargetDate = &d
	}
	g.Status = core.GoalStatus(status)
	return g, nil
}

func (r *Repository) ListGoals(ctx context.Context, userID string, status *core.GoalStatus) ([]core.IncomeGoal, error) {
	sql := `SELECT ` + goalColumns + ` FROM income_goals WHERE user_id = $1`
	args := []any{userID}
	if status != nil {
		sql += ` AND status = $2`
		args = append(args, string(*status))
	}
	sql += ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	return collect(rows, scanGoal)
}

func (r *Repository) CreateGoal(ctx context.Context, userID string, g core.IncomeGoal) (core.IncomeGoal, error) {
	if userID == "" {
		return core.IncomeGoal{}, core.ErrMissingUser
	}
	if err := g.Validate(); err != nil {
		return core.IncomeGoal{}, err
	}
	var targetDate *string
	if g.TargetDate != nil {
		s := g.TargetDate.String()
		targetDate = &s
	}
	row := r.pool.QueryRow(ctx,
		`INSERT INTO income_goals (id, user_id, title, target_amount, current_amount, target_date, status)
		 VALUES ($1, $2, $3, $4::numeric, $5::numeric, $6::date, $7)
		 RETURNING `+goalColumns,
		uuid.NewString(), userID, g.Title, g.TargetAmount.String(), g.CurrentAmount.String(), targetDate, string(g.Status))
	created, err := scanGoal(row)
	if err != nil {
		return core.IncomeGoal{}, fmt.Errorf("insert goal: %w", err)
	}
	return created, nil
}

const eventColumns = `id::text, user_id, title, description, event_date::text, event_type, budget_amount::text, spent_amount::text, created_at, updated_at`

func scanEvent(row pgx.Row) (core.Event, error) {
	var (
		e         core.Event
		eventDate string
		budget    *string
		spent     string
	)
	if err := row.Scan(&e.ID, &e.UserID, &e.Title, &e.Description, &eventDate, &e.EventType, &budget, &spent, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return core.Event{}, err
	}
	d, err := core.ParseDate(eventDate)
	if err != nil {
		return core.Event{}, fmt.Errorf("event %s: %w", e.ID, err)
	}
	e.EventDate = d
	if e.BudgetAmount, err = parseOptionalDecimal(budget); err != nil {
		return core.Event{}, fmt.Errorf("event %s budget: %w", e.ID, err)
	}
	if e.SpentAmount, err = decimal.NewFromString(spent); err != nil {
		return core.Event{}, fmt.Errorf("event %s spent: %w", e.ID, err)
	}
	return e, nil
}

func (r *Repository) ListEvents(ctx context.Context, userID string, from *core.Date) ([]core.Event, error) {
	sql := `SELECT ` + eventColumns + ` FROM events WHERE user_id = $1`
	args := []any{userID}
	if from != nil {
		sql += ` AND event_date >= $2::date`
		args = append(args, from.String())
	}
	sql += ` ORDER BY event_date ASC, created_at ASC`

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return collect(rows, scanEvent)
}

func (r *Repository) CreateEvent(ctx context.Context, userID string, e core.Event) (core.Event, error) {
	if userID == "" {
		return core.Event{}, core.ErrMissingUser
	}
	if err := e.Validate(); err != nil {
		return core.Event{}, err
	}
	row := r.pool.QueryRow(ctx,
		`INSERT INTO events (id, user_id, title, description, event_date, event_type, budget_amount, spent_amount)
		 VALUES ($1, $2, $3, $4, $5::date, $6, $7::numeric, $8::numeric)
		 RETURNING `+eventColumns,
		uuid.NewString(), userID, e.Title, e.Description, e.EventDate.String(), e.EventType,
		optionalText(e.BudgetAmount), e.SpentAmount.String())
	created, err := scanEvent(row)
	if err != nil {
		return core.Event{}, fmt.Errorf("insert event: %w", err)
	}
	return created, nil
}

func (r *Repository) UpdateEvent(ctx context.Context, userID string, e core.Event) (core.Event, error) {
	if err := e.Validate(); err != nil {
		return core.Event{}, err
	}
	if _, err := uuid.Parse(e.ID); err != nil {
		return core.Event{}, fmt.Errorf("event %s: %w", e.ID, core.ErrNotFound)
	}
	row := r.pool.QueryRow(ctx,
		`UPDATE events SET title = $3, description = $4, event_date = $5::date, event_type = $6,
		        budget_amount = $7::numeric, spent_amount = $8::numeric, updated_at = now()
		 WHERE id = $1::uuid AND user_id = $2
		 RETURNING `+eventColumns,
		e.ID, userID, e.Title, e.Description, e.EventDate.String(), e.EventType,
		optionalText(e.BudgetAmount), e.SpentAmount.String())
	updated, err := scanEvent(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Event{}, fmt.Errorf("event %s: %w", e.ID, core.ErrNotFound)
	}
	if err != nil {
		return core.Event{}, fmt.Errorf("update event: %w", err)
	}
	return updated, nil
}

func (r *Repository) DeleteEvent(ctx context.Context, userID, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("event %s: %w", id, core.ErrNotFound)
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM events WHERE id = $1::uuid AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return requireOne(tag, "event", id)
}

const profileColumns = `id::text, user_id, full_name, email, avatar_url, created_at, updated_at`

func scanProfile(row pgx.Row) (core.Profile, error) {
	var p core.Profile
	err := row.Scan(&p.ID, &p.UserID, &p.FullName, &p.Email, &p.AvatarURL, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *Repository) GetProfile(ctx context.Context, userID string) (core.Profile, error) {
	p, err := scanProfile(r.pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE user_id = $1`, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Profile{}, fmt.Errorf("profile %s: %w", userID, core.ErrNotFound)
	}
	if err != nil {
		return core.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

func (r *Repository) EnsureProfile(ctx context.Context, userID, email string) (core.Profile, error) {
	if userID == "" {
		return core.Profile{}, core.ErrMissingUser
	}
	row := r.pool.QueryRow(ctx,
		`INSERT INTO profiles (id, user_id, email) VALUES ($1, $2, $3)
		 ON CONFLICT (user_id) DO UPDATE SET
		   email = CASE WHEN excluded.email <> '' THEN excluded.email ELSE profiles.email END,
		   updated_at = CASE WHEN excluded.email <> '' AND excluded.email <> profiles.email THEN now() ELSE profiles.updated_at END
		 RETURNING `+profileColumns,
		uuid.NewString(), userID, email)
	p, err := scanProfile(row)
	if err != nil {
		return core.Profile{}, fmt.Errorf("ensure profile: %w", err)
	}
	return p, nil
}

func (r *Repository) UpdateProfileName(ctx context.Context, userID, fullName string) (core.Profile, error) {
	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		return core.Profile{}, core.ErrEmptyName
	}
	row := r.pool.QueryRow(ctx,
		`UPDATE profiles SET full_name = $2, updated_at = now() WHERE user_id = $1 RETURNING `+profileColumns,
		userID, fullName)
	p, err := scanProfile(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Profile{}, fmt.Errorf("profile %s: %w", userID, core.ErrNotFound)
	}
	if err != nil {
		return core.Profile{}, fmt.Errorf("update profile: %w", err)
	}
	return p, nil
}
