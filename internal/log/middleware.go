package log

import (
	"context"
	"log/slog"
	"net/http"
)

type contextKey string

// LoggerContextKey is the context key for the request-scoped logger.
const LoggerContextKey contextKey = "logger"

// Middleware stores logger in every request context.
func Middleware(logger *Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), logger)))
		})
	}
}

// NewContext returns ctx carrying logger.
func NewContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, LoggerContextKey, logger)
}

// FromContext returns the request logger, or a wrapper around slog.Default.
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(LoggerContextKey).(*Logger); ok {
		return logger
	}
	return &Logger{Logger: slog.Default(), component: "unknown"}
}

// RequestIDMiddleware enriches the context logger with the request id.
func RequestIDMiddleware(extractRequestID func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := FromContext(r.Context()).With(FieldRequestID, extractRequestID(r))
			next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), logger)))
		})
	}
}

// StructuredLogger emits the fixed-shape records of the HTTP and ledger flows.
type StructuredLogger struct {
	logger *Logger
}

func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{logger: logger}
}

// LogHTTPEnd logs a finished request; 4xx at warn and 5xx at error.
func (sl *StructuredLogger) LogHTTPEnd(ctx context.Context, r *http.Request, statusCode int, durationMs int64, clientIP string) {
	level := slog.LevelInfo
	switch {
	case statusCode >= 500:
		level = slog.LevelError
	case statusCode >= 400:
		level = slog.LevelWarn
	}

	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Get("User-Agent")).
		WithHTTPResponse(statusCode, durationMs).
		WithClientIP(clientIP)

	l := sl.logger.WithComponent(ComponentHTTP)
	l.Logger.Log(ctx, level, "HTTP request completed", l.tagged(fields.ToSlice())...)
}

// LogTransactionCreated records a new ledger entry.
func (sl *StructuredLogger) LogTransactionCreated(ctx context.Context, userID, id, txType, category, amount string) {
	fields := NewFields().
		WithUser(userID).
		WithTransaction(id, txType, category, amount).
		WithOperation(OpCreate)
	sl.logger.WithComponent(ComponentLedger).InfoContext(ctx, "Transaction created", fields.ToSlice()...)
}

// LogReportBuilt records an aggregation run.
func (sl *StructuredLogger) LogReportBuilt(ctx context.Context, userID, rangeKey string, records int) {
	fields := NewFields().
		WithUser(userID).
		WithOperation(OpAggregate)
	fields[FieldRange] = rangeKey
	fields[FieldRecordCount] = records
	sl.logger.WithComponent(ComponentReport).DebugContext(ctx, "Report built", fields.ToSlice()...)
}

// LogExportGenerated records a finished report download.
func (sl *StructuredLogger) LogExportGenerated(ctx context.Context, userID, rangeKey, format string, bytes int) {
	fields := NewFields().
		WithUser(userID).
		WithOperation(OpExport)
	fields[FieldRange] = rangeKey
	fields[FieldFormat] = format
	fields["bytes"] = bytes
	sl.logger.WithComponent(ComponentReport).InfoContext(ctx, "Export generated", fields.ToSlice()...)
}

// LogError logs err with its component, operation and category.
func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, component, operation, errorType string) {
	fields := NewFields().
		WithError(err).
		WithOperation(operation).
		WithErrorType(errorType)
	sl.logger.WithComponent(component).ErrorContext(ctx, msg, fields.ToSlice()...)
}
