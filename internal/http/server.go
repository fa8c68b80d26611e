package http

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"budgetplanner/internal/core"
	"budgetplanner/internal/export"
	applog "budgetplanner/internal/log"
	"budgetplanner/internal/middleware/ratelimit"
	"budgetplanner/internal/middleware/security"
	"budgetplanner/internal/middleware/trace"
	"budgetplanner/internal/services"
	"budgetplanner/internal/store"
)

// Ledger is the record side of the API.
type Ledger interface {
	ListTransactions(ctx context.Context, userID string, q store.TransactionQuery) ([]core.Transaction, error)
	CreateTransaction(ctx context.Context, userID string, t core.Transaction) (core.Transaction, error)
	ListGoals(ctx context.Context, userID string, status *core.GoalStatus) ([]core.IncomeGoal, error)
	CreateGoal(ctx context.Context, userID string, g core.IncomeGoal) (core.IncomeGoal, error)
	ListEvents(ctx context.Context, userID string, from *core.Date) ([]core.Event, error)
	CreateEvent(ctx context.Context, userID string, e core.Event) (core.Event, error)
	UpdateEvent(ctx context.Context, userID string, e core.Event) (core.Event, error)
	DeleteEvent(ctx context.Context, userID, id string) error
	Profile(ctx context.Context, userID, email string) (core.Profile, error)
	UpdateProfileName(ctx context.Context, userID, email, fullName string) (core.Profile, error)
	Dashboard(ctx context.Context, userID string) (services.Dashboard, error)
	Today() core.Date
	Ping(ctx context.Context) error
}

// Reports builds report views and downloads.
type Reports interface {
	Build(ctx context.Context, userID, rangeKey string, top int) (services.ReportView, error)
	Export(ctx context.Context, userID, rangeKey string, f export.Format) (export.Document, error)
}

// Authenticator guards the /api/ subtree.
type Authenticator interface {
	Middleware(next http.Handler) http.Handler
}

// Deps are the collaborators of a Server.
type Deps struct {
	Ledger  Ledger
	Reports Reports
	Auth    Authenticator
	Logger  *applog.Logger

	RateLimitPerMin int
	TrustedProxies  []string
	// BlockSuspicious rejects flagged requests instead of only logging them.
	BlockSuspicious bool
	// CacheEntries reports the size of the transaction cache for /metrics.
	CacheEntries func() int
}

type appMetrics struct {
	transactionsCreated atomic.Int64
	exports             atomic.Int64
}

// Server is the JSON API server.
type Server struct {
	http.Server

	ledger  Ledger
	reports Reports
	logger  *applog.Logger
	started time.Time

	traceMiddleware  *trace.Middleware
	securityDetector *security.Detector
	rateLimiter      *ratelimit.Limiter
	cacheEntries     func() int
	metrics          appMetrics
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Deps) (*Server, error) {
	if deps.Ledger == nil || deps.Reports == nil || deps.Auth == nil {
		return nil, errors.New("http server needs a ledger, reports and an authenticator")
	}
	logger := deps.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	detector, err := security.NewDetector(logger, deps.BlockSuspicious, deps.TrustedProxies...)
	if err != nil {
		return nil, err
	}
	limitCfg := ratelimit.DefaultConfig()
	if deps.RateLimitPerMin > 0 {
		limitCfg.RequestsPerMinute = deps.RateLimitPerMin
	}

	s := &Server{
		ledger:           deps.Ledger,
		reports:          deps.Reports,
		logger:           logger,
		started:          time.Now(),
		traceMiddleware:  trace.NewMiddleware(logger, detector.ExtractClientIP),
		securityDetector: detector,
		rateLimiter:      ratelimit.NewLimiter(limitCfg),
		cacheEntries:     deps.CacheEntries,
	}

	api := http.NewServeMux()
	api.HandleFunc("GET /api/dashboard", s.handleDashboard)
	api.HandleFunc("GET /api/transactions", s.handleListTransactions)
	api.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	api.HandleFunc("GET /api/categories", s.handleCategories)
	api.HandleFunc("GET /api/reports", s.handleReport)
	api.HandleFunc("GET /api/reports/{file}", s.handleExport)
	api.HandleFunc("GET /api/goals", s.handleListGoals)
	api.HandleFunc("POST /api/goals", s.handleCreateGoal)
	api.HandleFunc("GET /api/events", s.handleListEvents)
	api.HandleFunc("POST /api/events", s.handleCreateEvent)
	api.HandleFunc("PUT /api/events/{id}", s.handleUpdateEvent)
	api.HandleFunc("DELETE /api/events/{id}", s.handleDeleteEvent)
	api.HandleFunc("GET /api/event-types", s.handleEventTypes)
	api.HandleFunc("GET /api/profile", s.handleGetProfile)
	api.HandleFunc("PUT /api/profile", s.handleUpdateProfile)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)
	mux.Handle("/api/", deps.Auth.Middleware(api))

	limited := s.rateLimiter.Middleware(detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		logger.WarnContext(r.Context(), "Rate limit exceeded",
			applog.FieldClientIP, detector.ExtractClientIP(r),
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path)
		ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, please try again later").Write(w)
	})(mux)
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	handler := s.traceMiddleware.Middleware(headers.Middleware(detector.Middleware(limited)))

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

// Shutdown stops accepting requests, waits for in-flight ones and stops
// the rate limiter cleanup.
func (s *Server) Shutdown(ctx context.Context) error {
	s.rateLimiter.Stop()
	return s.Server.Shutdown(ctx)
}
