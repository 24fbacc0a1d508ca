// Package transport provides request and response DTOs for the VAT API.
package transport

// ValidateRequest is one identifier to check. Empty fields are accepted here
// and reported by the pipeline as an empty-input result.
type ValidateRequest struct {
	Country string `json:"country" form:"country" validate:"max=64"`
	VATID   string `json:"vatId" form:"vatId" validate:"max=64"`
}

// BatchRequest checks several identifiers in one call.
type BatchRequest struct {
	Items []ValidateRequest `json:"items" validate:"dive"`
}

// CountryRequest selects a member state by name in any casing, or by code.
type CountryRequest struct {
	Name string `uri:"name" validate:"required,eu_country"`
}

// ErrorBody describes why an identifier was not accepted.
type ErrorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// ValidateResponse is the outcome of one validation.
type ValidateResponse struct {
	Valid       bool           `json:"valid"`
	CountryCode string         `json:"countryCode,omitempty"`
	VATNumber   string         `json:"vatNumber,omitempty"`
	Details     map[string]any `json:"details,omitempty"`
	Error       *ErrorBody     `json:"error,omitempty"`
}

// BatchResult echoes the submitted query next to its outcome.
type BatchResult struct {
	Country string `json:"country"`
	VATID   string `json:"vatId"`
	ValidateResponse
}

// BatchResponse lists results in request order.
type BatchResponse struct {
	Results []BatchResult `json:"results"`
}

// Country describes the format rule of one member state.
type Country struct {
	Name    string `json:"name"`
	Code    string `json:"code"`
	Length  int    `json:"length"`
	Pattern string `json:"pattern"`
}

// CountryListResponse lists every supported member state.
type CountryListResponse struct {
	Countries []Country `json:"countries"`
}
