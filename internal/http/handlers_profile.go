package http

import (
	"net/http"

	"budgetplanner/internal/auth"
	applog "budgetplanner/internal/log"
)

// handleGetProfile returns the caller's profile, creating it on first call.
func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	id, err := auth.IdentityFrom(r.Context())
	if err != nil {
		writeError(w, r, err, applog.OpRead)
		return
	}
	p, err := s.ledger.Profile(r.Context(), id.UserID, id.Email)
	if err != nil {
		writeError(w, r, err, applog.OpRead)
		return
	}
	NewResponse().JSON(p).Write(w)
}

// handleUpdateProfile changes the display name. Email follows the identity
// provider and is ignored in the body.
func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
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
	updated, err := s.ledger.UpdateProfileName(r.Context(), id.UserID, id.Email, p.Get("full_name"))
	if err != nil {
		writeError(w, r, err, applog.OpUpdate)
		return
	}
	NewResponse().JSON(updated).Write(w)
}
