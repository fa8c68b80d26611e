package http

import (
	"net/http"
	"strings"

	"budgetplanner/internal/auth"
	"budgetplanner/internal/core"
	applog "budgetplanner/internal/log"
	"budgetplanner/internal/services"
)

type transactionList struct {
	Transactions []core.Transaction `json:"transactions"`
	Count        int                `json:"count"`
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	id, err := auth.IdentityFrom(r.Context())
	if err != nil {
		writeError(w, r, err, applog.OpRead)
		return
	}
	dash, err := s.ledger.Dashboard(r.Context(), id.UserID)
	if err != nil {
		writeError(w, r, err, applog.OpRead)
		return
	}
	if r.Context().Err() != nil {
		return
	}
	NewResponse().JSON(dash).Write(w)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	id, err := auth.IdentityFrom(r.Context())
	if err != nil {
		writeError(w, r, err, applog.OpList)
		return
	}
	q, err := parseTransactionQuery(r.URL.Query(), s.ledger.Today)
	if err != nil {
		writeError(w, r, err, applog.OpList)
		return
	}
	txs, err := s.ledger.ListTransactions(r.Context(), id.UserID, q)
	if err != nil {
		writeError(w, r, err, applog.OpList)
		return
	}
	NewResponse().JSON(transactionList{Transactions: txs, Count: len(txs)}).Write(w)
}

// handleCreateTransaction accepts JSON or form fields type, amount,
// category, description and date. A missing date means today.
func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
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
	tx, err := transactionFromRequest(p, s.ledger.Today())
	if err != nil {
		writeError(w, r, err, applog.OpCreate)
		return
	}
	created, err := s.ledger.CreateTransaction(r.Context(), id.UserID, tx)
	if err != nil {
		writeError(w, r, err, applog.OpCreate)
		return
	}
	s.metrics.transactionsCreated.Add(1)
	NewResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/transactions/"+created.ID).
		JSON(created).
		Write(w)
}

func transactionFromRequest(p *RequestBodyParser, today core.Date) (core.Transaction, error) {
	typ, err := core.ParseTransactionType(p.Get("type"))
	if err != nil {
		return core.Transaction{}, err
	}
	amount, err := core.ParseAmount(p.Get("amount"))
	if err != nil {
		return core.Transaction{}, err
	}
	date := today
	if raw := p.Get("date"); raw != "" {
		if date, err = core.ParseDate(raw); err != nil {
			return core.Transaction{}, err
		}
	}
	return core.Transaction{
		Type:        typ,
		Amount:      amount,
		Category:    p.Get("category"),
		Description: p.Get("description"),
		Date:        date.String(),
	}, nil
}

// handleCategories returns the suggestion lists, both when no type is given.
func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.URL.Query().Get("type"))
	if raw == "" {
		NewResponse().JSON(map[string][]string{
			string(core.Expense): core.CategoriesFor(core.Expense),
			string(core.Income):  core.CategoriesFor(core.Income),
		}).Write(w)
		return
	}
	typ, err := core.ParseTransactionType(raw)
	if err != nil {
		writeError(w, r, err, applog.OpRead)
		return
	}
	NewResponse().JSON(map[string]any{
		"type":       typ,
		"categories": core.CategoriesFor(typ),
	}).Write(w)
}

func (s *Server) handleEventTypes(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(map[string][]string{
		"event_types": append([]string(nil), core.EventTypes...),
	}).Write(w)
}

var _ Ledger = (*services.LedgerService)(nil)
