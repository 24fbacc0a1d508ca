// Package http provides HTTP server infrastructure including module registration.
package http

import (
	"github.com/prometheus/client_golang/prometheus"

	"vies_checker/platform/config"
	"vies_checker/platform/logger"
)

// RouterConfig combines the config interfaces needed by the HTTP router.
type RouterConfig interface {
	config.HTTPConfig
	config.RateLimitConfig
	config.MetricsConfig
}

// App holds the fully initialized application dependencies.
// This is populated by main.go (the composition root) and passed to the router.
type App struct {
	// Config holds the router configuration (HTTP, rate limit and metrics settings only).
	Config RouterConfig
	// Logger is the structured logger.
	Logger *logger.Logger
	// Metrics is the Prometheus registry served on /metrics.
	Metrics *prometheus.Registry
	// Modules contains all HTTP-facing domain modules.
	Modules []Module
}
