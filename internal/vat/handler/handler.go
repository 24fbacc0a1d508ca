package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"vies_checker/internal/vat/countries"
	"vies_checker/internal/vat/domain"
	"vies_checker/internal/vat/service"
	"vies_checker/internal/vat/transport"
	"vies_checker/platform/apperr"
	"vies_checker/platform/httpkit"
	"vies_checker/platform/sanitize"
	"vies_checker/platform/validator"
)

// Handler handles HTTP requests for VAT validation.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgCountryNotFound  = "country not found"
)

// Registry fields that carry free text from member state databases.
var freeTextFields = []string{"name", "address", "traderName", "traderAddress"}

// New creates a new VAT handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes mounts the VAT endpoints on group.
func (h *Handler) RegisterRoutes(group *gin.RouterGroup) {
	group.GET("/validate", h.ValidateQuery)
	group.POST("/validate", h.Validate)
	group.POST("/validate/batch", h.ValidateBatch)
	group.GET("/countries", h.ListCountries)
	group.GET("/countries/:name", h.GetCountry)
}

// Validate checks one identifier.
// POST /api/v1/vat/validate
func (h *Handler) Validate(c *gin.Context) {
	var req transport.ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest(msgInvalidRequest))
		return
	}
	h.validate(c, req)
}

// ValidateQuery checks one identifier given as query parameters.
// GET /api/v1/vat/validate?country=...&vatId=...
func (h *Handler) ValidateQuery(c *gin.Context) {
	var req transport.ValidateRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest(msgInvalidRequest))
		return
	}
	h.validate(c, req)
}

func (h *Handler) validate(c *gin.Context, req transport.ValidateRequest) {
	if err := h.val.Struct(req); err != nil {
		httpkit.HandleError(c, apperr.Validation(msgValidationFailed).WithDetails(err.Error()))
		return
	}

	result, err := h.svc.Check(c.Request.Context(), req.Country, req.VATID)
	if derr := transportFailure(err); derr != nil {
		httpkit.HandleError(c, derr.AppError())
		return
	}
	httpkit.OK(c, toResponse(result))
}

// ValidateBatch checks several identifiers. Transport failures are reported
// per item, so the call itself succeeds.
// POST /api/v1/vat/validate/batch
func (h *Handler) ValidateBatch(c *gin.Context) {
	var req transport.BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest(msgInvalidRequest))
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.HandleError(c, apperr.Validation(msgValidationFailed).WithDetails(err.Error()))
		return
	}

	queries := make([]service.Query, len(req.Items))
	for i, item := range req.Items {
		queries[i] = service.Query{Country: item.Country, VATID: item.VATID}
	}

	items, err := h.svc.CheckBatch(c.Request.Context(), queries)
	if httpkit.HandleError(c, err) {
		return
	}

	resp := transport.BatchResponse{Results: make([]transport.BatchResult, len(items))}
	for i, item := range items {
		resp.Results[i] = transport.BatchResult{
			Country:          item.Query.Country,
			VATID:            item.Query.VATID,
			ValidateResponse: toResponse(item.Result),
		}
	}
	httpkit.OK(c, resp)
}

// ListCountries returns every member state rule ordered by name.
// GET /api/v1/vat/countries
func (h *Handler) ListCountries(c *gin.Context) {
	rules := countries.All()
	resp := transport.CountryListResponse{Countries: make([]transport.Country, len(rules))}
	for i, r := range rules {
		resp.Countries[i] = toCountry(r)
	}
	httpkit.OK(c, resp)
}

// GetCountry returns the rule of one member state, looked up by name or code.
// GET /api/v1/vat/countries/:name
func (h *Handler) GetCountry(c *gin.Context) {
	var req transport.CountryRequest
	if err := c.ShouldBindUri(&req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest(msgInvalidRequest))
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.HandleError(c, apperr.NotFound(msgCountryNotFound).WithOp("countries.get"))
		return
	}

	rule, _ := LookupCountry(req.Name)
	httpkit.OK(c, toCountry(rule))
}

// LookupCountry resolves a member state by name or by its two-letter code.
func LookupCountry(nameOrCode string) (countries.Rule, bool) {
	if rule, ok := countries.Lookup(nameOrCode); ok {
		return rule, true
	}
	return countries.ByCode(nameOrCode)
}

// transportFailure returns err as a *domain.Error when the registry could
// not be reached, and nil for every other outcome.
func transportFailure(err error) *domain.Error {
	var derr *domain.Error
	if errors.As(err, &derr) && derr.Kind == domain.KindTransportFailure {
		return derr
	}
	return nil
}

func toResponse(result *domain.Result) transport.ValidateResponse {
	resp := transport.ValidateResponse{
		Valid:       result.Valid,
		CountryCode: result.CountryCode,
		VATNumber:   result.VATNumber,
	}
	if result.Valid {
		resp.Details = sanitizeDetails(result.Details)
	}
	if result.Err != nil {
		resp.Error = &transport.ErrorBody{Kind: string(result.Err.Kind), Message: result.Err.Message}
	}
	return resp
}

func sanitizeDetails(details map[string]any) map[string]any {
	if details == nil {
		return nil
	}
	out := make(map[string]any, len(details))
	for k, v := range details {
		out[k] = v
	}
	for _, field := range freeTextFields {
		if s, ok := out[field].(string); ok {
			out[field] = sanitize.Text(s)
		}
	}
	return out
}

func toCountry(r countries.Rule) transport.Country {
	return transport.Country{
		Name:    r.Name,
		Code:    r.Code,
		Length:  r.Length,
		Pattern: r.Pattern.String(),
	}
}
