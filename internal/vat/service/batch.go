package service

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"vies_checker/internal/vat/domain"
	"vies_checker/platform/apperr"
)

// Query is one identifier submitted for batch validation.
type Query struct {
	Country string
	VATID   string
}

// BatchItem pairs a query with its outcome.
type BatchItem struct {
	Query  Query
	Result *domain.Result
	Err    error
}

// CheckBatch validates queries with bounded concurrency. Items come back in
// input order and a failing item never stops the others.
func (s *Service) CheckBatch(ctx context.Context, queries []Query) ([]BatchItem, error) {
	if len(queries) == 0 {
		return nil, apperr.Validation("at least one item is required").WithOp("vat.checkBatch")
	}
	if len(queries) > s.maxBatch {
		return nil, apperr.Validation(fmt.Sprintf("at most %d items are allowed per batch", s.maxBatch)).WithOp("vat.checkBatch")
	}

	items := make([]BatchItem, len(queries))

	var g errgroup.Group
	g.SetLimit(max(s.concurrency, 1))
	for i, q := range queries {
		g.Go(func() error {
			res, err := s.Check(ctx, q.Country, q.VATID)
			items[i] = BatchItem{Query: q, Result: res, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	return items, nil
}
