// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
}

// RateLimitConfig provides per-IP rate limiting settings.
type RateLimitConfig interface {
	GetRateLimitRPS() float64
	GetRateLimitBurst() int
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig interface {
	IsMetricsEnabled() bool
}

// VIESConfig provides settings for the VIES registry client.
type VIESConfig interface {
	GetVIESBinding() string
	GetVIESSOAPURL() string
	GetVIESSOAPEndpoint() string
	GetVIESRESTURL() string
	GetVIESTimeout() time.Duration
	GetVIESBatchConcurrency() int
	GetVIESBatchMaxItems() int
}

// Supported registry bindings.
const (
	BindingREST = "rest"
	BindingSOAP = "soap"
)

// Default registry endpoints.
const (
	DefaultSOAPURL = "https://ec.europa.eu/taxation_customs/vies/checkVatService.wsdl"
	DefaultRESTURL = "https://ec.europa.eu/taxation_customs/vies/rest-api/ms/{countryCode}/vat/{vatNumber}"
)

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                  string
	HTTPAddr             string
	CORSAllowAll         bool
	CORSOrigins          []string
	RateLimitRPS         float64
	RateLimitBurst       int
	MetricsEnabled       bool
	VIESBinding          string
	VIESSOAPURL          string
	VIESSOAPEndpoint     string
	VIESRESTURL          string
	VIESTimeout          time.Duration
	VIESBatchConcurrency int
	VIESBatchMaxItems    int
}

// =============================================================================
// Interface Implementations
// =============================================================================

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }

// RateLimitConfig implementation
func (c *Config) GetRateLimitRPS() float64 { return c.RateLimitRPS }
func (c *Config) GetRateLimitBurst() int   { return c.RateLimitBurst }

// MetricsConfig implementation
func (c *Config) IsMetricsEnabled() bool { return c.MetricsEnabled }

// VIESConfig implementation
func (c *Config) GetVIESBinding() string        { return c.VIESBinding }
func (c *Config) GetVIESSOAPURL() string        { return c.VIESSOAPURL }
func (c *Config) GetVIESSOAPEndpoint() string   { return c.VIESSOAPEndpoint }
func (c *Config) GetVIESRESTURL() string        { return c.VIESRESTURL }
func (c *Config) GetVIESTimeout() time.Duration { return c.VIESTimeout }
func (c *Config) GetVIESBatchConcurrency() int  { return c.VIESBatchConcurrency }
func (c *Config) GetVIESBatchMaxItems() int     { return c.VIESBatchMaxItems }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:                  getEnv("APP_ENV", "development"),
		HTTPAddr:             getEnv("HTTP_ADDR", ":8080"),
		CORSAllowAll:         corsAllowAll,
		CORSOrigins:          corsOrigins,
		RateLimitRPS:         mustFloat(getEnv("RATE_LIMIT_RPS", "5")),
		RateLimitBurst:       mustInt(getEnv("RATE_LIMIT_BURST", "10")),
		MetricsEnabled:       strings.EqualFold(getEnv("METRICS_ENABLED", "true"), "true"),
		VIESBinding:          strings.ToLower(strings.TrimSpace(getEnv("VIES_BINDING", BindingREST))),
		VIESSOAPURL:          getEnv("VIES_SOAP_URL", DefaultSOAPURL),
		VIESSOAPEndpoint:     getEnv("VIES_SOAP_ENDPOINT", ""),
		VIESRESTURL:          getEnv("VIES_REST_URL", DefaultRESTURL),
		VIESTimeout:          mustDuration(getEnv("VIES_TIMEOUT", "10s")),
		VIESBatchConcurrency: mustInt(getEnv("VIES_BATCH_CONCURRENCY", "4")),
		VIESBatchMaxItems:    mustInt(getEnv("VIES_BATCH_MAX_ITEMS", "50")),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.VIESBinding != BindingREST && c.VIESBinding != BindingSOAP {
		return fmt.Errorf("VIES_BINDING must be %q or %q, got %q", BindingREST, BindingSOAP, c.VIESBinding)
	}
	if c.VIESBinding == BindingREST {
		if !strings.Contains(c.VIESRESTURL, "{countryCode}") || !strings.Contains(c.VIESRESTURL, "{vatNumber}") {
			return fmt.Errorf("VIES_REST_URL must contain {countryCode} and {vatNumber} placeholders")
		}
	}
	if c.VIESBinding == BindingSOAP && c.VIESSOAPURL == "" && c.VIESSOAPEndpoint == "" {
		return fmt.Errorf("VIES_SOAP_URL or VIES_SOAP_ENDPOINT is required for the soap binding")
	}
	if c.VIESTimeout <= 0 {
		return fmt.Errorf("VIES_TIMEOUT must be a positive duration")
	}
	if c.VIESBatchConcurrency < 1 {
		return fmt.Errorf("VIES_BATCH_CONCURRENCY must be at least 1")
	}
	if c.VIESBatchMaxItems < 1 {
		return fmt.Errorf("VIES_BATCH_MAX_ITEMS must be at least 1")
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst < 1 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return result
}

func mustFloat(value string) float64 {
	result, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
