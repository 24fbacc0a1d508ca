package domain

import (
	"errors"

	"vies_checker/platform/apperr"
)

// Kind classifies why a VAT identifier was not accepted.
type Kind string

const (
	KindEmptyInput       Kind = "empty_input"
	KindUnknownCountry   Kind = "unknown_country"
	KindBadFormat        Kind = "bad_format"
	KindMaliciousInput   Kind = "malicious_input"
	KindTransportFailure Kind = "transport_failure"
	KindRegistryRejected Kind = "registry_rejected"
)

// Error is the single error recorded for a failed validation.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// AppError maps the validation error onto the HTTP-facing error kinds.
func (e *Error) AppError() *apperr.Error {
	if e.Kind == KindTransportFailure {
		return apperr.Unavailable(e.Message, e.Err).WithOp("vat.check")
	}
	return apperr.Wrap(apperr.KindValidation, e.Message, e).WithOp("vat.check")
}

// KindOf returns the Kind carried by err, or "" when err is not a *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func newError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}
