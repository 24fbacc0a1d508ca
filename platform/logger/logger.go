// Package logger provides structured logging infrastructure for the application.
// This is part of the platform layer and contains no business logic.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Context key types for storing values in context
type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"
)

// Logger wraps slog.Logger for structured logging
type Logger struct {
	*slog.Logger
}

// New creates a new logger based on environment
func New(env string) *Logger {
	return NewWithWriter(os.Stdout, env)
}

// NewWithWriter creates a logger that writes to w.
func NewWithWriter(w io.Writer, env string) *Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	if strings.EqualFold(env, "development") {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
	}
}

// Discard returns a logger that drops everything. Handy in tests.
func Discard() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// WithContext returns a logger with context values extracted.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}

	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		return l.WithRequestID(requestID)
	}

	return l
}

// WithRequestID returns a logger with request ID
func (l *Logger) WithRequestID(requestID string) *Logger {
	return &Logger{
		Logger: l.With(slog.String("request_id", requestID)),
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

// RateLimitExceeded logs rate limit events
func (l *Logger) RateLimitExceeded(clientIP, path string) {
	l.Warn("rate_limit_exceeded",
		slog.String("client_ip", clientIP),
		slog.String("path", path),
	)
}

// RegistryCall logs one round trip to the VAT registry.
func (l *Logger) RegistryCall(binding, countryCode string, status int, latency time.Duration, err error) {
	attrs := []any{
		slog.String("binding", binding),
		slog.String("country_code", countryCode),
		slog.Int("status", status),
		slog.Float64("latency_ms", float64(latency.Milliseconds())),
	}
	if err != nil {
		l.Error("registry_call", append(attrs, slog.String("error", err.Error()))...)
		return
	}
	l.Debug("registry_call", attrs...)
}

// ValidationOutcome logs the terminal state of one VAT validation.
func (l *Logger) ValidationOutcome(countryCode, maskedNumber string, valid bool, kind string) {
	if valid {
		l.Info("vat_validation",
			slog.String("country_code", countryCode),
			slog.String("vat_number", maskedNumber),
			slog.Bool("valid", true),
		)
		return
	}
	l.Info("vat_validation",
		slog.String("country_code", countryCode),
		slog.String("vat_number", maskedNumber),
		slog.Bool("valid", false),
		slog.String("kind", kind),
	)
}

// Mask hides all but the last three characters of s.
func Mask(s string) string {
	r := []rune(s)
	if len(r) <= 3 {
		return strings.Repeat("*", len(r))
	}
	return strings.Repeat("*", len(r)-3) + string(r[len(r)-3:])
}
