// Package countries holds the VAT format rules of the EU member states.
// The table is built once at start-up and never mutated.
package countries

import (
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Rule describes the VAT number format of one member state.
type Rule struct {
	// Name is the canonical country name, e.g. "Czech Republic".
	Name string
	// Code is the tax authority prefix. Greece uses EL, not GR.
	Code string
	// Length is the number of characters kept after the prefix.
	Length int
	// Pattern is searched for (not anchored) within the number.
	Pattern *regexp.Regexp
}

var (
	byName map[string]Rule
	byCode map[string]Rule
	sorted []Rule
)

func init() {
	defs := []struct {
		name, code string
		length     int
		pattern    string
	}{
		{"Austria", "AT", 10, `U\d{9}`},
		{"Belgium", "BE", 10, `\d{10}`},
		{"Bulgaria", "BG", 10, `\d{10}`},
		{"Cyprus", "CY", 9, `\d{8}[A-Z]`},
		{"Czech Republic", "CZ", 10, `\d{10}`},
		{"Germany", "DE", 9, `\d{9}`},
		{"Denmark", "DK", 8, `\d{8}`},
		{"Estonia", "EE", 9, `\d{9}`},
		{"Greece", "EL", 9, `\d{9}`},
		{"Spain", "ES", 9, `[A-Z]\d{2}(?:\d{6}|\d{5}[A-Z])`},
		{"Finland", "FI", 8, `\d{8}`},
		{"France", "FR", 11, `\d{11}`},
		{"Croatia", "HR", 11, `\d{11}`},
		{"Hungary", "HU", 8, `\d{8}`},
		{"Ireland", "IE", 9, `(\d{7}[A-Z]{1,2}|(\d{1}[A-Z]{1}\d{5}[A-Z]{1}))`},
		{"Italy", "IT", 11, `\d{11}`},
		{"Luxembourg", "LU", 8, `\d{8}`},
		{"Latvia", "LV", 11, `\d{11}`},
		{"Lithuania", "LT", 12, `\d{12}`},
		{"Malta", "MT", 8, `\d{8}`},
		{"Netherlands", "NL", 12, `\d{9}B\d{2}`},
		{"Poland", "PL", 10, `\d{10}`},
		{"Portugal", "PT", 9, `\d{9}`},
		{"Romania", "RO", 8, `\d{8}`},
		{"Sweden", "SE", 12, `\d{12}`},
		{"Slovenia", "SI", 8, `\d{8}`},
		{"Slovakia", "SK", 10, `\d{10}`},
	}

	byName = make(map[string]Rule, len(defs))
	byCode = make(map[string]Rule, len(defs))
	sorted = make([]Rule, 0, len(defs))
	for _, d := range defs {
		r := Rule{Name: d.name, Code: d.code, Length: d.length, Pattern: regexp.MustCompile(d.pattern)}
		byName[r.Name] = r
		byCode[r.Code] = r
		sorted = append(sorted, r)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
}

// Canonical lower-cases name and upper-cases the first letter of every
// space-separated word. Whitespace is left untouched, so "czech  republic"
// does not collapse to the canonical key.
func Canonical(name string) string {
	words := strings.Split(strings.ToLower(name), " ")
	title := cases.Title(language.Und, cases.NoLower)
	for i, w := range words {
		words[i] = title.String(w)
	}
	return strings.Join(words, " ")
}

// Lookup finds the rule for a country name in any letter casing.
// A miss means the country is not an EU member state.
func Lookup(name string) (Rule, bool) {
	r, ok := byName[Canonical(name)]
	return r, ok
}

// ByCode finds the rule for a two-letter VAT prefix (EL for Greece).
func ByCode(code string) (Rule, bool) {
	r, ok := byCode[strings.ToUpper(strings.TrimSpace(code))]
	return r, ok
}

// All returns every rule ordered by country name.
func All() []Rule {
	out := make([]Rule, len(sorted))
	copy(out, sorted)
	return out
}
