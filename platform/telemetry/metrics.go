// Package telemetry provides the Prometheus collectors used by the service.
// Collectors are registered on an injected registerer so tests can use a
// private registry.
package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "vies"

var durationBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}

// NewRegistry returns a registry preloaded with the Go and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler exposes the registry in the Prometheus text format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// VATMetrics tracks validation outcomes and registry latency.
type VATMetrics struct {
	validations      *prometheus.CounterVec
	registryDuration *prometheus.HistogramVec
}

// NewVATMetrics registers the validation collectors on reg.
func NewVATMetrics(reg prometheus.Registerer) *VATMetrics {
	factory := promauto.With(reg)
	return &VATMetrics{
		validations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validations_total",
			Help:      "VAT validations by outcome and country code",
		}, []string{"outcome", "country"}),
		registryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "registry_request_duration_seconds",
			Help:      "Round trip time of registry lookups",
			Buckets:   durationBuckets,
		}, []string{"binding", "result"}),
	}
}

// ObserveValidation counts one finished validation. outcome is "valid" or
// the failure kind; country is "" when the country was not recognised.
func (m *VATMetrics) ObserveValidation(outcome, country string) {
	if m == nil {
		return
	}
	if country == "" {
		country = "unknown"
	}
	m.validations.WithLabelValues(outcome, country).Inc()
}

// ObserveRegistry records the duration of one registry call. result is
// "valid", "invalid" or "error".
func (m *VATMetrics) ObserveRegistry(binding, result string, start time.Time) {
	if m == nil {
		return
	}
	m.registryDuration.WithLabelValues(binding, result).Observe(time.Since(start).Seconds())
}

// HTTPMetrics records request counts, latency and in-flight requests.
type HTTPMetrics struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight prometheus.Gauge
}

// NewHTTPMetrics registers the HTTP collectors on reg.
func NewHTTPMetrics(reg prometheus.Registerer) *HTTPMetrics {
	factory := promauto.With(reg)
	return &HTTPMetrics{
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   durationBuckets,
		}, []string{"method", "path", "status"}),
		requestsInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "Number of HTTP requests currently being processed",
		}),
	}
}

// Middleware returns a gin middleware that records request metrics. The
// path label is the matched route template, so path parameters do not
// inflate cardinality.
func (m *HTTPMetrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		m.requestsInFlight.Inc()
		defer m.requestsInFlight.Dec()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())

		m.requestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		m.requestDuration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
	}
}
