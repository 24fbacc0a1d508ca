package domain

import (
	"vies_checker/internal/vat/countries"
	"vies_checker/platform/sanitize"
)

// MatchesPattern reports whether the country pattern occurs anywhere in the
// number. The match is not anchored.
func MatchesPattern(id NormalizedID, rule countries.Rule) bool {
	return rule.Pattern.MatchString(id.Number)
}

// SafeCharacters reports whether the composed identifier only contains
// allow-listed characters.
func SafeCharacters(id NormalizedID) bool {
	return sanitize.SafeIdentifier(id.String())
}

// Messages recorded for each failure kind.

func EmptyInputError() *Error {
	return newError(KindEmptyInput, "Country or VAT ID can not be empty")
}

func UnknownCountryError(country string) *Error {
	return newError(KindUnknownCountry, country+" is not an EU country")
}

func BadFormatError(id NormalizedID) *Error {
	return newError(KindBadFormat, id.Number+" VAT Number is not in correct format")
}

func MaliciousInputError(id NormalizedID) *Error {
	return newError(KindMaliciousInput, id.String()+" VAT ID includes malicious characters")
}

// RegistryRejectedError names the server the verdict came from, e.g. "SOAP Server".
func RegistryRejectedError(server string, id NormalizedID) *Error {
	return newError(KindRegistryRejected, server+": "+id.String()+" is not a valid EU VAT Number")
}

func TransportFailureError(binding string, err error) *Error {
	return &Error{Kind: KindTransportFailure, Message: binding + " registry unavailable", Err: err}
}
