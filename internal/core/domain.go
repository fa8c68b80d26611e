package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// DateLayout is the wire and storage form of calendar dates.
const DateLayout = "2006-01-02"

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

const (
	GoalActive    GoalStatus = "active"
	GoalPaused    GoalStatus = "paused"
	GoalCompleted GoalStatus = "completed"
)

type (
	TransactionType string
	GoalStatus      string

	// Date is a calendar day in UTC.
	Date struct {
		time.Time
	}

	// Transaction is a single income or expense entry. Date keeps the
	// stored YYYY-MM-DD text so corrupt rows surface during aggregation.
	Transaction struct {
		ID          string          `json:"id"`
		UserID      string          `json:"user_id"`
		Type        TransactionType `json:"type"`
		Amount      decimal.Decimal `json:"amount"`
		Category    string          `json:"category"`
		Description string          `json:"description,omitempty"`
		Date        string          `json:"date"`
		CreatedAt   time.Time       `json:"created_at"`
	}

	IncomeGoal struct {
		ID            string          `json:"id"`
		UserID        string          `json:"user_id"`
		Title         string          `json:"title"`
		TargetAmount  decimal.Decimal `json:"target_amount"`
		CurrentAmount decimal.Decimal `json:"current_amount"`
		TargetDate    *Date           `json:"target_date,omitempty"`
		Status        GoalStatus      `json:"status"`
		CreatedAt     time.Time       `json:"created_at"`
		UpdatedAt     time.Time       `json:"updated_at"`
	}

	Event struct {
		ID           string           `json:"id"`
		UserID       string           `json:"user_id"`
		Title        string           `json:"title"`
		Description  string           `json:"description,omitempty"`
		EventDate    Date             `json:"event_date"`
		EventType    string           `json:"event_type"`
		BudgetAmount *decimal.Decimal `json:"budget_amount,omitempty"`
		SpentAmount  decimal.Decimal  `json:"spent_amount"`
		CreatedAt    time.Time        `json:"created_at"`
		UpdatedAt    time.Time        `json:"updated_at"`
	}

	// Profile is the per-user display record. Email mirrors the identity
	// provider and is never written by the user.
	Profile struct {
		ID        string    `json:"id"`
		UserID    string    `json:"user_id"`
		FullName  string    `json:"full_name"`
		Email     string    `json:"email"`
		AvatarURL string    `json:"avatar_url,omitempty"`
		CreatedAt time.Time `json:"created_at"`
		UpdatedAt time.Time `json:"updated_at"`
	}
)

var (
	ErrMissingUser         = errors.New("missing user id")
	ErrNotFound            = errors.New("record not found")
	ErrInvalidDate         = errors.New("invalid date")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidType         = errors.New("invalid transaction type")
	ErrEmptyCategory       = errors.New("empty category")
	ErrDescriptionTooLong  = errors.New("description too long (max 500 characters)")
	ErrEmptyTitle          = errors.New("empty title")
	ErrInvalidStatus       = errors.New("invalid goal status")
	ErrEmptyEventType      = errors.New("empty event type")
	ErrInvalidEventAmounts = errors.New("event amounts must not be negative")
	ErrEmptyName           = errors.New("empty full name")
)

const maxDescription = 500

// IsValidation reports whether err came from rejecting user input rather
// than from storage.
func IsValidation(err error) bool {
	for _, target := range []error{
		ErrInvalidDate, ErrInvalidAmount, ErrInvalidType, ErrEmptyCategory,
		ErrDescriptionTooLong, ErrEmptyTitle, ErrInvalidStatus, ErrEmptyEventType,
		ErrInvalidEventAmounts, ErrEmptyName,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate accepts YYYY-MM-DD, or an RFC 3339 timestamp whose day is kept.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return Date{Time: t}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return DateOf(t), nil
	}
	return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return fmt.Errorf("%w: zero date", ErrInvalidDate)
	}
	return nil
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

// FirstOfMonth returns the first day of d's month.
func (d Date) FirstOfMonth() Date {
	return NewDate(d.Year(), int(d.Month()), 1)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

// ParseTransactionType normalizes case and whitespace.
func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidType, s)
	}
	return t, nil
}

func (s GoalStatus) Valid() bool {
	switch s {
	case GoalActive, GoalPaused, GoalCompleted:
		return true
	}
	return false
}

// ParseGoalStatus normalizes case and whitespace.
func ParseGoalStatus(s string) (GoalStatus, error) {
	st := GoalStatus(strings.ToLower(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	return st, nil
}

// Day parses the stored date.
func (t Transaction) Day() (Date, error) {
	return ParseDate(t.Date)
}

func (t Transaction) Validate() error {
	if !t.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidType, t.Type)
	}
	if !t.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if utf8.RuneCountInString(t.Description) > maxDescription {
		return ErrDescriptionTooLong
	}
	if _, err := t.Day(); err != nil {
		return err
	}
	return nil
}

func (g IncomeGoal) Validate() error {
	if strings.TrimSpace(g.Title) == "" {
		return ErrEmptyTitle
	}
	if !g.TargetAmount.IsPositive() {
		return fmt.Errorf("%w: target must be positive", ErrInvalidAmount)
	}
	if g.CurrentAmount.IsNegative() {
		return fmt.Errorf("%w: current amount must not be negative", ErrInvalidAmount)
	}
	if !g.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, g.Status)
	}
	return nil
}

// Progress is current/target as a percentage capped at 100, one decimal.
func (g IncomeGoal) Progress() decimal.Decimal {
	if !g.TargetAmount.IsPositive() {
		return decimal.Zero
	}
	p := g.CurrentAmount.Div(g.TargetAmount).Mul(decimal.NewFromInt(100))
	if p.GreaterThan(decimal.NewFromInt(100)) {
		p = decimal.NewFromInt(100)
	}
	return p.Round(1)
}

// Reached reports whether the current amount meets the target. Status is
// left to the user.
func (g IncomeGoal) Reached() bool {
	return g.TargetAmount.IsPositive() && g.CurrentAmount.GreaterThanOrEqual(g.TargetAmount)
}

// Remaining is the amount still missing, never negative.
func (g IncomeGoal) Remaining() decimal.Decimal {
	r := g.TargetAmount.Sub(g.CurrentAmount)
	if r.IsNegative() {
		return decimal.Zero
	}
	return r
}

func (e Event) Validate() error {
	if strings.TrimSpace(e.Title) == "" {
		return ErrEmptyTitle
	}
	if err := e.EventDate.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(e.EventType) == "" {
		return ErrEmptyEventType
	}
	if e.SpentAmount.IsNegative() || (e.BudgetAmount != nil && e.BudgetAmount.IsNegative()) {
		return ErrInvalidEventAmounts
	}
	return nil
}

// Remaining returns budget minus spent; ok is false when no budget is set.
func (e Event) Remaining() (decimal.Decimal, bool) {
	if e.BudgetAmount == nil {
		return decimal.Zero, false
	}
	return e.BudgetAmount.Sub(e.SpentAmount), true
}

// Upcoming reports whether the event falls on today or later.
func (e Event) Upcoming(today Date) bool {
	return !e.EventDate.Before(today.Time)
}
