package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	applog "budgetplanner/internal/log"
)

const readyTimeout = 5 * time.Second

// handleHealth is the liveness probe.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	}).Write(w)
}

// handleReady reports 503 until the store answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	status, code := "ready", http.StatusOK
	checks := map[string]any{
		"rate_limiter": map[string]any{"active_clients": s.rateLimiter.ActiveClients()},
	}
	if err := s.ledger.Ping(ctx); err != nil {
		s.logger.WarnContext(ctx, "Readiness check failed", applog.FieldError, err)
		checks["store"] = "failed: " + err.Error()
		status, code = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["store"] = "ok"
	}
	NewResponse().Status(code).JSON(map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

// handleMetrics writes counters in the Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	tm := s.traceMiddleware.GetMetrics()
	sm := s.securityDetector.GetMetrics()
	rm := s.rateLimiter.GetMetrics()
	cacheEntries := 0
	if s.cacheEntries != nil {
		cacheEntries = s.cacheEntries()
	}

	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	metric(w, "http_requests_total", "counter", "Total number of HTTP requests", tm.TotalRequests)
	metric(w, "http_requests_in_flight", "gauge", "Requests being served", tm.InFlight)
	metric(w, "http_server_errors_total", "counter", "Responses with a 5xx status", tm.ServerErrors)
	metric(w, "http_response_time_avg_microseconds", "gauge", "Average response time", tm.AverageResponseTime)
	metric(w, "transactions_created_total", "counter", "Transactions created through the API", s.metrics.transactionsCreated.Load())
	metric(w, "report_exports_total", "counter", "Report downloads served", s.metrics.exports.Load())
	metric(w, "cache_entries", "gauge", "Cached transaction lists", int64(cacheEntries))
	metric(w, "rate_limit_hits_total", "counter", "Requests rejected by the rate limiter", rm.TotalHits)
	metric(w, "active_rate_limit_clients", "gauge", "Currently tracked rate limit clients", rm.ClientCount)
	metric(w, "suspicious_requests_total", "counter", "Suspicious requests detected", sm.SuspiciousRequests)
	metric(w, "blocked_requests_total", "counter", "Suspicious requests rejected", sm.BlockedRequests)
	metric(w, "invalid_ip_total", "counter", "Requests with an unparsable client address", sm.InvalidIPAttempts)
	metric(w, "uptime_seconds", "gauge", "Application uptime in seconds", int64(time.Since(s.started).Seconds()))
}

func metric(w io.Writer, name, kind, help string, value int64) {
	fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %d\n\n", name, help, name, kind, name, value)
}
