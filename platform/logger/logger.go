// Package logger provides structured logging infrastructure for the application.
// This is part of the platform layer and contains no business logic.
package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// Context key types for storing values in context
type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"
	// VendorIDKey is the context key for the authenticated vendor ID
	VendorIDKey contextKey = "vendor_id"
	// TraceIDKey is the context key for trace ID
	TraceIDKey contextKey = "trace_id"
)

// Logger wraps slog.Logger for structured logging
type Logger struct {
	*slog.Logger
}

// New creates a new logger based on environment
func New(env string) *Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	if strings.EqualFold(env, "development") {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithContext returns a logger with context values extracted.
// Supports request_id, vendor_id, and trace_id from context.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}

	newLogger := l

	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		newLogger = newLogger.WithRequestID(requestID)
	}

	if vendorID, ok := ctx.Value(VendorIDKey).(string); ok && vendorID != "" {
		newLogger = newLogger.WithVendorID(vendorID)
	}

	if traceID, ok := ctx.Value(TraceIDKey).(string); ok && traceID != "" {
		newLogger = &Logger{
			Logger: newLogger.With(slog.String("trace_id", traceID)),
		}
	}

	return newLogger
}

// WithRequestID returns a logger with request ID
func (l *Logger) WithRequestID(requestID string) *Logger {
	return &Logger{
		Logger: l.With(slog.String("request_id", requestID)),
	}
}

// WithVendorID returns a logger with vendor ID
func (l *Logger) WithVendorID(vendorID string) *Logger {
	return &Logger{
		Logger: l.With(slog.String("vendor_id", vendorID)),
	}
}

// HTTPRequest logs an HTTP request
func (l *Logger) HTTPRequest(method, path string, status int, latencyMs float64, clientIP string) {
	l.Info("http_request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Float64("latency_ms", latencyMs),
		slog.String("client_ip", clientIP),
	)
}

// HTTPError logs an HTTP error
func (l *Logger) HTTPError(method, path string, status int, err error, clientIP string) {
	l.Error("http_error",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.String("error", err.Error()),
		slog.String("client_ip", clientIP),
	)
}

// LedgerEvent logs a credit ledger mutation.
func (l *Logger) LedgerEvent(event, vendorID string, amountCents int64, idempotencyKey string) {
	l.Info("ledger_event",
		slog.String("event", event),
		slog.String("vendor_id", vendorID),
		slog.Int64("amount_cents", amountCents),
		slog.String("idempotency_key", idempotencyKey),
	)
}

// OfferTransition logs a lead distribution state change.
func (l *Logger) OfferTransition(leadID, vendorID, from, to string) {
	l.Info("offer_transition",
		slog.String("lead_id", leadID),
		slog.String("vendor_id", vendorID),
		slog.String("from", from),
		slog.String("to", to),
	)
}

// IntegrityFault logs a ledger reconciliation mismatch. Mismatches are
// operational faults and are never auto-corrected.
func (l *Logger) IntegrityFault(vendorID string, ledgerCents, materializedCents int64) {
	l.Error("ledger_integrity_fault",
		slog.String("vendor_id", vendorID),
		slog.Int64("ledger_cents", ledgerCents),
		slog.Int64("materialized_cents", materializedCents),
	)
}

// DatabaseError logs database errors
func (l *Logger) DatabaseError(operation string, err error) {
	l.Error("database_error",
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
}

// RateLimitExceeded logs rate limit events
func (l *Logger) RateLimitExceeded(clientIP, path string) {
	l.Warn("rate_limit_exceeded",
		slog.String("client_ip", clientIP),
		slog.String("path", path),
	)
}
