// Package vat provides the VAT validation bounded context module.
// This file defines the module that encapsulates all VAT setup.
package vat

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	apphttp "vies_checker/internal/http"
	"vies_checker/internal/vat/client"
	"vies_checker/internal/vat/handler"
	"vies_checker/internal/vat/service"
	"vies_checker/platform/config"
	"vies_checker/platform/logger"
	"vies_checker/platform/telemetry"
	pvalidator "vies_checker/platform/validator"
)

// Module is the VAT bounded context module.
type Module struct {
	service *service.Service
	handler *handler.Handler
}

// NewModule creates and initializes the VAT module around registry.
func NewModule(registry client.Registry, cfg config.VIESConfig, val *pvalidator.Validator, metrics *telemetry.VATMetrics, log *logger.Logger) (*Module, error) {
	if err := val.RegisterValidation("eu_country", isEUCountry); err != nil {
		return nil, fmt.Errorf("register eu_country validation: %w", err)
	}

	svc := service.New(registry, metrics, log, cfg)
	log.Info("vat module initialized", "binding", registry.Binding())

	return &Module{
		service: svc,
		handler: handler.New(svc, val),
	}, nil
}

// Service returns the validation service for in-process callers.
func (m *Module) Service() *service.Service {
	return m.service
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "vat"
}

// RegisterRoutes mounts the VAT routes under /api/v1/vat.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.V1.Group("/vat"))
}

func isEUCountry(fl validator.FieldLevel) bool {
	_, ok := handler.LookupCountry(fl.Field().String())
	return ok
}

var _ apphttp.Module = (*Module)(nil)
