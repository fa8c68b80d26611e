package http

import (
	"net/http"
	"strings"

	"budgetplanner/internal/auth"
	"budgetplanner/internal/export"
	applog "budgetplanner/internal/log"
)

// exportPrefix names the only downloadable file, export.<format>.
const exportPrefix = "export."

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	id, err := auth.IdentityFrom(r.Context())
	if err != nil {
		writeError(w, r, err, applog.OpAggregate)
		return
	}
	q := r.URL.Query()
	view, err := s.reports.Build(r.Context(), id.UserID, q.Get("range"), parseTop(q.Get("top")))
	if err != nil {
		writeError(w, r, err, applog.OpAggregate)
		return
	}
	if r.Context().Err() != nil {
		return
	}
	NewResponse().JSON(view).Write(w)
}

// handleExport serves GET /api/reports/export.{csv,xlsx,pdf}?range=.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	file := r.PathValue("file")
	if !strings.HasPrefix(file, exportPrefix) {
		NotFoundError("unknown report file").Write(w)
		return
	}
	id, err := auth.IdentityFrom(r.Context())
	if err != nil {
		writeError(w, r, err, applog.OpExport)
		return
	}
	format, err := export.ParseFormat(strings.TrimPrefix(file, exportPrefix))
	if err != nil {
		writeError(w, r, err, applog.OpExport)
		return
	}
	rangeKey := r.URL.Query().Get("range")
	doc, err := s.reports.Export(r.Context(), id.UserID, rangeKey, format)
	if err != nil {
		writeError(w, r, err, applog.OpExport)
		return
	}
	s.metrics.exports.Add(1)
	applog.NewStructuredLogger(applog.FromContext(r.Context())).
		LogExportGenerated(r.Context(), id.UserID, rangeKey, string(format), len(doc.Body))
	NewResponse().Attachment(doc.Filename, doc.ContentType, doc.Body).Write(w)
}
