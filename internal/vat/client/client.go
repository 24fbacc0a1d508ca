// Package client provides the VIES registry clients. Two bindings are
// available, a SOAP one and a REST one; both answer the same question and
// are chosen by configuration.
package client

import (
	"context"
	"fmt"
	"strings"

	"vies_checker/platform/config"
	"vies_checker/platform/logger"
)

// Binding identifies a registry transport.
type Binding string

const (
	BindingREST Binding = config.BindingREST
	BindingSOAP Binding = config.BindingSOAP
)

// ServerLabel is the prefix used in rejection messages.
func (b Binding) ServerLabel() string {
	if b == BindingSOAP {
		return "SOAP Server"
	}
	return "API Server"
}

// Registry confirms a VAT number against the authoritative registry.
type Registry interface {
	// Check returns the registry verdict and the metadata it sent back.
	// Any failure to obtain a verdict is a *TransportError.
	Check(ctx context.Context, countryCode, vatNumber string) (*CheckResult, error)
	// Binding reports which transport the implementation uses.
	Binding() Binding
}

// CheckResult is the registry verdict plus the fields it returned.
type CheckResult struct {
	Valid   bool
	Details map[string]any
}

// TransportError means no verdict could be obtained: the registry was
// unreachable, answered with an error, or sent something undecodable.
type TransportError struct {
	Binding    Binding
	Endpoint   string // URL template or service address, never with the VAT number
	StatusCode int    // 0 when no HTTP response was received
	Reason     string // registry error code, fault string or decode problem
	Err        error
}

func (e *TransportError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s registry %s", e.Binding, e.Endpoint)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ": status %d", e.StatusCode)
	}
	if e.Reason != "" {
		fmt.Fprintf(&b, ": %s", e.Reason)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// New builds the registry client selected by cfg.
func New(cfg config.VIESConfig, log *logger.Logger) (Registry, error) {
	switch Binding(cfg.GetVIESBinding()) {
	case BindingREST:
		return NewRESTClient(cfg.GetVIESRESTURL(), cfg.GetVIESTimeout(), log), nil
	case BindingSOAP:
		return NewSOAPClient(cfg.GetVIESSOAPURL(), cfg.GetVIESSOAPEndpoint(), cfg.GetVIESTimeout(), log), nil
	default:
		return nil, fmt.Errorf("unknown VIES binding %q", cfg.GetVIESBinding())
	}
}
