package service

import (
	"context"
	"sync"

	"vies_checker/internal/vat/domain"
)

// Checker keeps the result of the most recent validation for callers that
// want a validate-then-ask interface. Each call overwrites the previous
// outcome; concurrent callers share it and the last one wins. Prefer
// Service.Check, which returns everything in one value.
type Checker struct {
	svc *Service

	mu   sync.Mutex
	last *domain.Result
}

// NewChecker wraps svc.
func NewChecker(svc *Service) *Checker {
	return &Checker{svc: svc}
}

// Validate runs the pipeline and records its outcome.
func (c *Checker) Validate(ctx context.Context, country, vatID string) bool {
	return c.validate(ctx, country, vatID).Valid
}

// Details validates again and returns the registry details. On failure it
// returns the "not found" placeholder together with the actual error.
func (c *Checker) Details(ctx context.Context, country, vatID string) (map[string]any, error) {
	res := c.validate(ctx, country, vatID)
	if res.Err != nil {
		return res.DetailsOrPlaceholder(), res.Err
	}
	return res.DetailsOrPlaceholder(), nil
}

// Error returns the message recorded by the last call, or "" after a
// successful one.
func (c *Checker) Error() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last.Error()
}

func (c *Checker) validate(ctx context.Context, country, vatID string) *domain.Result {
	res, _ := c.svc.Check(ctx, country, vatID)

	c.mu.Lock()
	c.last = res
	c.mu.Unlock()

	return res
}
