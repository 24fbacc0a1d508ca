// Package domain holds the VAT validation model: the normalizer, the
// format checks, the result type and the error taxonomy.
package domain

// NotFoundMessage is returned in place of company details when validation fails.
const NotFoundMessage = "Company details could not be found"

// NormalizedID is a VAT identifier split into prefix and number.
type NormalizedID struct {
	CountryCode string
	Number      string
}

// String returns the composed identifier, e.g. "EE123456789".
func (id NormalizedID) String() string {
	return id.CountryCode + id.Number
}

// Result is the outcome of one validation. CountryCode and VATNumber are
// filled in as soon as the pipeline knows them; Details only on success.
type Result struct {
	Valid       bool
	CountryCode string
	VATNumber   string
	Details     map[string]any
	Err         *Error
}

// Error returns the recorded error message, or "" on success.
func (r *Result) Error() string {
	if r == nil || r.Err == nil {
		return ""
	}
	return r.Err.Message
}

// DetailsOrPlaceholder returns the registry details on success and a
// single-entry placeholder map otherwise.
func (r *Result) DetailsOrPlaceholder() map[string]any {
	if r != nil && r.Valid {
		return r.Details
	}
	return map[string]any{"message": NotFoundMessage}
}
