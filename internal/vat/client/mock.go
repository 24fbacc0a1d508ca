package client

import (
	"context"
	"sync"
)

// MockCall records one invocation of MockRegistry.Check.
type MockCall struct {
	CountryCode string
	VATNumber   string
}

// MockRegistry is an in-memory Registry for tests and local runs.
type MockRegistry struct {
	BindingValue Binding
	CheckFunc    func(ctx context.Context, countryCode, vatNumber string) (*CheckResult, error)

	mu    sync.Mutex
	calls []MockCall
}

// Binding implements Registry. It defaults to REST.
func (m *MockRegistry) Binding() Binding {
	if m.BindingValue == "" {
		return BindingREST
	}
	return m.BindingValue
}

// Check implements Registry. Without a CheckFunc every number is valid.
func (m *MockRegistry) Check(ctx context.Context, countryCode, vatNumber string) (*CheckResult, error) {
	m.mu.Lock()
	m.calls = append(m.calls, MockCall{CountryCode: countryCode, VATNumber: vatNumber})
	m.mu.Unlock()

	if m.CheckFunc != nil {
		return m.CheckFunc(ctx, countryCode, vatNumber)
	}
	return &CheckResult{
		Valid: true,
		Details: map[string]any{
			"countryCode": countryCode,
			"vatNumber":   vatNumber,
			"valid":       true,
		},
	}, nil
}

// Calls returns a copy of the recorded invocations.
func (m *MockRegistry) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockCall, len(m.calls))
	copy(out, m.calls)
	return out
}
