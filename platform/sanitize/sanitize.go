// Package sanitize provides text sanitization utilities for untrusted input
// and for free text returned by third parties.
package sanitize

import (
	"regexp"
	"strings"
)

var (
	// htmlTagRegex matches HTML tags
	htmlTagRegex = regexp.MustCompile(`<[^>]*>`)

	// identifierRegex is the allow-list for identifiers that are forwarded
	// to external services: letters of any script, ASCII digits, whitespace
	// and a handful of punctuation marks.
	identifierRegex = regexp.MustCompile(`^[a-zA-Z0-9\s.\-,&+()/º\p{L}]+$`)

	separatorReplacer = strings.NewReplacer(".", "", ",", "", "-", "", " ", "")
)

// StripHTML removes all HTML tags from a string, making it safe for text-only display.
func StripHTML(s string) string {
	result := htmlTagRegex.ReplaceAllString(s, "")
	result = strings.ReplaceAll(result, "&lt;", "<")
	result = strings.ReplaceAll(result, "&gt;", ">")
	result = strings.ReplaceAll(result, "&amp;", "&")
	result = strings.ReplaceAll(result, "&quot;", "\"")
	result = strings.ReplaceAll(result, "&#39;", "'")
	// Re-strip after entity decode to catch encoded tags
	result = htmlTagRegex.ReplaceAllString(result, "")
	return strings.TrimSpace(result)
}

// Text sanitizes a string for safe text output by stripping HTML.
func Text(s string) string {
	return StripHTML(s)
}

// StripSeparators removes dots, commas, hyphens and spaces.
func StripSeparators(s string) string {
	return separatorReplacer.Replace(s)
}

// StripLow removes every byte below 0x20 (ASCII control characters).
func StripLow(s string) string {
	if strings.IndexFunc(s, func(r rune) bool { return r < 0x20 }) < 0 {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x20 {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// SafeIdentifier reports whether s consists solely of allow-listed characters.
// The empty string is not safe.
func SafeIdentifier(s string) bool {
	return identifierRegex.MatchString(s)
}
