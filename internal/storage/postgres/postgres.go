// Package postgres is the hosted-database backend built on pgxpool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"budgetplanner/internal/core"
	"budgetplanner/internal/store"
)

type Repository struct {
	pool *pgxpool.Pool
}

var _ store.Store = (*Repository)(nil)

// New migrates the schema and opens a pool on dsn.
func New(ctx context.Context, dsn string) (*Repository, error) {
	if err := RunMigrations(dsn); err != nil {
		return nil, err
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Repository{pool: pool}, nil
}

func (r *Repository) Close() error {
	r.pool.Close()
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Numeric and date columns are read back as text so decimals keep their
// exact value and dates keep the stored day.
const txColumns = `id::text, user_id, type, amount::text, category, description, date::text, created_at`

func scanTransaction(row pgx.Row) (core.Transaction, error) {
	var (
		t      core.Transaction
		typ    string
		amount string
	)
	if err := row.Scan(&t.ID, &t.UserID, &typ, &amount, &t.Category, &t.Description, &t.Date, &t.CreatedAt); err != nil {
		return core.Transaction{}, err
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %s amount %q: %w", t.ID, amount, err)
	}
	t.Amount = d
	t.Type = core.TransactionType(typ)
	return t, nil
}

func collect[T any](rows pgx.Rows, scan func(pgx.Row) (T, error)) ([]T, error) {
	defer rows.Close()
	out := make([]T, 0)
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// BuildTransactionQuery renders the list query with numbered placeholders.
func BuildTransactionQuery(userID string, q store.TransactionQuery) (string, []any) {
	where := []string{"user_id = $1"}
	args := []any{userID}
	if !q.Range.From.IsZero() {
		args = append(args, q.Range.From.String())
		where = append(where, fmt.Sprintf("date >= $%d::date", len(args)))
	}
	if !q.Range.To.IsZero() {
		args = append(args, q.Range.To.String())
		where = append(where, fmt.Sprintf("date <= $%d::date", len(args)))
	}
	order := "ASC"
	if q.Newest {
		order = "DESC"
	}
	sql := fmt.Sprintf("SELECT %s FROM transactions WHERE %s ORDER BY date %s, created_at %s",
		txColumns, strings.Join(where, " AND "), order, order)
	if q.Limit > 0 {
		args = append(args, q.Limit)
		sql += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	return sql, args
}

func (r *Repository) ListTransactions(ctx context.Context, userID string, q store.TransactionQuery) ([]core.Transaction, error) {
	sql, args := BuildTransactionQuery(userID, q)
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	out, err := collect(rows, scanTransaction)
	if err != nil {
		return nil, fmt.Errorf("scan transactions: %w", err)
	}
	return out, nil
}

func (r *Repository) CreateTransaction(ctx context.Context, userID string, t core.Transaction) (core.Transaction, error) {
	if userID == "" {
		return core.Transaction{}, core.ErrMissingUser
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	day, _ := t.Day()
	row := r.pool.QueryRow(ctx,
		`INSERT INTO transactions (id, user_id, type, amount, category, description, date)
		 VALUES ($1, $2, $3, $4::numeric, $5, $6, $7::date)
		 RETURNING `+txColumns,
		uuid.NewString(), userID, string(t.Type), t.Amount.String(), t.Category, t.Description, day.String())
	created, err := scanTransaction(row)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	slog.InfoContext(ctx, "Transaction saved to Postgres",
		"id", created.ID,
		"user_id", userID,
		"type", created.Type,
		"amount", created.Amount.String())
	return created, nil
}

func (r *Repository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	if _, err := uuid.Parse(id); err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	row := r.pool.QueryRow(ctx, `SELECT `+txColumns+` FROM transactions WHERE id = $1::uuid`, id)
	t, err := scanTransaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

func (r *Repository) PendingMirror(ctx context.Context, limit int) ([]core.Transaction, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+txColumns+` FROM transactions WHERE mirrored_at IS NULL ORDER BY created_at ASC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending mirror: %w", err)
	}
	return collect(rows, scanTransaction)
}

func (r *Repository) MarkMirrored(ctx context.Context, id, ref string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE transactions SET mirrored_at = now(), mirror_ref = $2, mirror_error = NULL WHERE id = $1::uuid`, id, ref)
	if err != nil {
		return fmt.Errorf("mark mirrored: %w", err)
	}
	return requireOne(tag, "transaction", id)
}

func (r *Repository) MarkMirrorError(ctx context.Context, id string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	tag, err := r.pool.Exec(ctx, `UPDATE transactions SET mirror_error = $2 WHERE id = $1::uuid`, id, msg)
	if err != nil {
		return fmt.Errorf("mark mirror error: %w", err)
	}
	return requireOne(tag, "transaction", id)
}

func requireOne(tag pgconn.CommandTag, kind, id string) error {
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, core.ErrNotFound)
	}
	return nil
}

func optionalText(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}

func parseOptionalDecimal(s *string) (*decimal.Decimal, error) {
	if s == nil {
		return nil, nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
