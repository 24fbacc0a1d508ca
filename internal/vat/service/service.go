// Package service runs the VAT validation pipeline: country lookup,
// normalization, local format checks and the registry round trip.
package service

import (
	"context"
	"time"

	"vies_checker/internal/vat/client"
	"vies_checker/internal/vat/countries"
	"vies_checker/internal/vat/domain"
	"vies_checker/platform/config"
	"vies_checker/platform/logger"
	"vies_checker/platform/telemetry"
)

// Service validates VAT identifiers. It holds no per-call state and is safe
// for concurrent use.
type Service struct {
	registry    client.Registry
	metrics     *telemetry.VATMetrics
	log         *logger.Logger
	maxBatch    int
	concurrency int
}

// New creates a validation service. metrics may be nil.
func New(registry client.Registry, metrics *telemetry.VATMetrics, log *logger.Logger, cfg config.VIESConfig) *Service {
	return &Service{
		registry:    registry,
		metrics:     metrics,
		log:         log,
		maxBatch:    cfg.GetVIESBatchMaxItems(),
		concurrency: cfg.GetVIESBatchConcurrency(),
	}
}

// Check validates one identifier. The returned Result is never nil; for
// every outcome other than a valid number the error is a *domain.Error and
// is also recorded in Result.Err.
func (s *Service) Check(ctx context.Context, country, vatID string) (*domain.Result, error) {
	result := &domain.Result{}
	if derr := s.run(ctx, country, vatID, result); derr != nil {
		result.Err = derr
	}

	s.observe(ctx, result)

	if result.Err != nil {
		return result, result.Err
	}
	return result, nil
}

// run walks the pipeline and stops at the first failing stage.
func (s *Service) run(ctx context.Context, country, vatID string, result *domain.Result) *domain.Error {
	if isBlank(country) || isBlank(vatID) {
		return domain.EmptyInputError()
	}

	rule, ok := countries.Lookup(country)
	if !ok {
		return domain.UnknownCountryError(country)
	}

	id := domain.Normalize(vatID, rule)
	result.CountryCode = id.CountryCode
	result.VATNumber = id.Number

	if !domain.MatchesPattern(id, rule) {
		return domain.BadFormatError(id)
	}
	if !domain.SafeCharacters(id) {
		return domain.MaliciousInputError(id)
	}

	binding := s.registry.Binding()
	start := time.Now()
	verdict, err := s.registry.Check(ctx, id.CountryCode, id.Number)
	if err != nil {
		s.metrics.ObserveRegistry(string(binding), "error", start)
		return domain.TransportFailureError(string(binding), err)
	}
	if !verdict.Valid {
		s.metrics.ObserveRegistry(string(binding), "invalid", start)
		return domain.RegistryRejectedError(binding.ServerLabel(), id)
	}
	s.metrics.ObserveRegistry(string(binding), "valid", start)

	result.Valid = true
	result.Details = verdict.Details
	return nil
}

// isBlank reports whether an argument counts as missing. "0" is treated as
// missing too, which callers of the legacy checker relied on.
func isBlank(s string) bool {
	return s == "" || s == "0"
}

func (s *Service) observe(ctx context.Context, result *domain.Result) {
	outcome := "valid"
	if result.Err != nil {
		outcome = string(result.Err.Kind)
	}
	s.metrics.ObserveValidation(outcome, result.CountryCode)

	kind := ""
	if result.Err != nil {
		kind = string(result.Err.Kind)
	}
	s.log.WithContext(ctx).ValidationOutcome(result.CountryCode, logger.Mask(result.VATNumber), result.Valid, kind)
}
