package domain

import (
	"vies_checker/internal/vat/countries"
	"vies_checker/platform/sanitize"
)

// Normalize turns raw caller input into the number sent to the registry:
// separators and control bytes are removed, ASCII letters are upper-cased, a
// leading two-letter prefix is dropped and the rest is cut to rule.Length.
// It never fails; judging the result is left to MatchesPattern.
func Normalize(raw string, rule countries.Rule) NormalizedID {
	s := sanitize.StripSeparators(raw)
	s = sanitize.StripLow(s)
	s = upperASCII(s)

	if len(s) >= 2 && isASCIILetter(s[0]) && isASCIILetter(s[1]) {
		s = s[2:]
	}
	if len(s) > rule.Length {
		s = s[:rule.Length]
	}

	return NormalizedID{CountryCode: rule.Code, Number: s}
}

// upperASCII maps a-z to A-Z and leaves every other byte alone, so the
// byte length never changes.
func upperASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if 'a' <= c && c <= 'z' {
			b[i] = c - ('a' - 'A')
		}
	}
	return string(b)
}

func isASCIILetter(b byte) bool {
	return ('A' <= b && b <= 'Z') || ('a' <= b && b <= 'z')
}
