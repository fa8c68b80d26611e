package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"budgetplanner/internal/auth"
	"budgetplanner/internal/core"
	applog "budgetplanner/internal/log"
)

// goalView adds the derived progress figures to a goal.
type goalView struct {
	core.IncomeGoal
	Progress  decimal.Decimal `json:"progress"`
	Reached   bool            `json:"reached"`
	Remaining decimal.Decimal `json:"remaining"`
}

func newGoalView(g core.IncomeGoal) goalView {
	return goalView{IncomeGoal: g, Progress: g.Progress(), Reached: g.Reached(), Remaining: g.Remaining()}
}

// eventView adds the remaining budget, null when the event has none.
type eventView struct {
	core.Event
	Remaining *decimal.Decimal `json:"remaining"`
}

func newEventView(e core.Event) eventView {
	v := eventView{Event: e}
	if rem, ok := e.Remaining(); ok {
		v.Remaining = &rem
	}
	return v
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	id, err := auth.IdentityFrom(r.Context())
	if err != nil {
		writeError(w, r, err, applog.OpList)
		return
	}
	var status *core.GoalStatus
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		st, err := core.ParseGoalStatus(raw)
		if err != nil {
			writeError(w, r, err, applog.OpList)
			return
		}
		status = &st
	}
	goals, err := s.ledger.ListGoals(r.Context(), id.UserID, status)
	if err != nil {
		writeError(w, r, err, applog.OpList)
		return
	}
	views := make([]goalView, 0, len(goals))
	for _, g := range goals {
		views = append(views, newGoalView(g))
	}
	NewResponse().JSON(map[string]any{"goals": views, "count": len(views)}).Write(w)
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	id, err := auth.IdentityFrom(r.Context())
	if err != nil {
		writeError(w, r, err, applog.OpCreate)
		return
	}
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		writeError(w, r, err, applog.OpCreate)
		return
	}
	g, err := goalFromRequest(p)
	if err != nil {
		writeError(w, r, err, applog.OpCreate)
		return
	}
	created, err := s.ledger.CreateGoal(r.Context(), id.UserID, g)
	if err != nil {
		writeError(w, r, err, applog.OpCreate)
		return
	}
	NewResponse().Status(http.StatusCreated).JSON(newGoalView(created)).Write(w)
}

func goalFromRequest(p *RequestBodyParser) (core.IncomeGoal, error) {
	target, err := core.ParseAmount(p.Get("target_amount"))
	if err != nil {
		return core.IncomeGoal{}, err
	}
	g := core.IncomeGoal{Title: p.Get("title"), TargetAmount: target}
	if raw := p.Get("current_amount"); raw != "" {
		if g.CurrentAmount, err = core.ParseNonNegativeAmount(raw); err != nil {
			return core.IncomeGoal{}, err
		}
	}
	if g.TargetDate, err = parseOptionalDate(p.Get("target_date")); err != nil {
		return core.IncomeGoal{}, err
	}
	if raw := p.Get("status"); raw != "" {
		if g.Status, err = core.ParseGoalStatus(raw); err != nil {
			return core.IncomeGoal{}, err
		}
	}
	return g, nil
}

// handleListEvents lists all events, events from a date with from=, or the
// ones from today on with upcoming=true.
func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	id, err := auth.IdentityFrom(r.Context())
	if err != nil {
		writeError(w, r, err, applog.OpList)
		return
	}
	q := r.URL.Query()
	from, err := parseOptionalDate(q.Get("from"))
	if err != nil {
		writeError(w, r, err, applog.OpList)
		return
	}
	if upcoming, _ := strconv.ParseBool(q.Get("upcoming")); upcoming && from == nil {
		today := s.ledger.Today()
		from = &today
	}
	events, err := s.ledger.ListEvents(r.Context(), id.UserID, from)
	if err != nil {
		writeError(w, r, err, applog.OpList)
		return
	}
	views := make([]eventView, 0, len(events))
	for _, e := range events {
		views = append(views, newEventView(e))
	}
	NewResponse().JSON(map[string]any{"events": views, "count": len(views)}).Write(w)
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	id, err := auth.IdentityFrom(r.Context())
	if err != nil {
		writeError(w, r, err, applog.OpCreate)
		return
	}
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		writeError(w, r, err, applog.OpCreate)
		return
	}
	e, err := eventFromRequest(p)
	if err != nil {
		writeError(w, r, err, applog.OpCreate)
		return
	}
	created, err := s.ledger.CreateEvent(r.Context(), id.UserID, e)
	if err != nil {
		writeError(w, r, err, applog.OpCreate)
		return
	}
	NewResponse().Status(http.StatusCreated).JSON(newEventView(created)).Write(w)
}

func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	id, err := auth.IdentityFrom(r.Context())
	if err != nil {
		writeError(w, r, err, applog.OpUpdate)
		return
	}
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		writeError(w, r, err, applog.OpUpdate)
		return
	}
	e, err := eventFromRequest(p)
	if err != nil {
		writeError(w, r, err, applog.OpUpdate)
		return
	}
	e.ID = r.PathValue("id")
	updated, err := s.ledger.UpdateEvent(r.Context(), id.UserID, e)
	if err != nil {
		writeError(w, r, err, applog.OpUpdate)
		return
	}
	NewResponse().JSON(newEventView(updated)).Write(w)
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, err := auth.IdentityFrom(r.Context())
	if err != nil {
		writeError(w, r, err, applog.OpDelete)
		return
	}
	if err := s.ledger.DeleteEvent(r.Context(), id.UserID, r.PathValue("id")); err != nil {
		writeError(w, r, err, applog.OpDelete)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func eventFromRequest(p *RequestBodyParser) (core.Event, error) {
	date, err := core.ParseDate(p.Get("event_date"))
	if err != nil {
		return core.Event{}, err
	}
	budget, err := core.ParseOptionalAmount(p.Get("budget_amount"))
	if err != nil {
		return core.Event{}, err
	}
	e := core.Event{
		Title:        p.Get("title"),
		Description:  p.Get("description"),
		EventDate:    date,
		EventType:    p.Get("event_type"),
		BudgetAmount: budget,
	}
	if raw := p.Get("spent_amount"); raw != "" {
		if e.SpentAmount, err = core.ParseNonNegativeAmount(raw); err != nil {
			return core.Event{}, err
		}
	}
	return e, nil
}
