package countries

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableHasAllMemberStates(t *testing.T) {
	all := All()
	require.Len(t, all, 27)

	codes := make(map[string]bool, len(all))
	for _, r := range all {
		codes[r.Code] = true
		assert.Len(t, r.Code, 2, r.Name)
		assert.Positive(t, r.Length, r.Name)
	}
	assert.Len(t, codes, 27, "codes must be unique")
	assert.True(t, codes["EL"], "Greece uses EL")
	assert.False(t, codes["GR"])
}

func TestLookupIsCaseInsensitive(t *testing.T) {
	for _, want := range All() {
		variants := []string{
			want.Name,
			strings.ToLower(want.Name),
			strings.ToUpper(want.Name),
			swapCase(want.Name),
		}
		for _, v := range variants {
			got, ok := Lookup(v)
			require.True(t, ok, v)
			assert.Equal(t, want.Code, got.Code, v)
			assert.Equal(t, want.Length, got.Length, v)
			assert.Same(t, want.Pattern, got.Pattern, v)
		}
	}
}

func TestLookupMisses(t *testing.T) {
	for _, name := range []string{"", "Norway", "Switzerland", "United Kingdom", "Estonai", "czech  republic", " estonia"} {
		_, ok := Lookup(name)
		assert.False(t, ok, "%q", name)
	}
}

func TestCanonical(t *testing.T) {
	assert.Equal(t, "Czech Republic", Canonical("cZECH rEPUBLIC"))
	assert.Equal(t, "Estonia", Canonical("ESTONIA"))
}

func TestByCode(t *testing.T) {
	r, ok := ByCode("el")
	require.True(t, ok)
	assert.Equal(t, "Greece", r.Name)

	_, ok = ByCode("GR")
	assert.False(t, ok)
}

func TestPatternsAcceptCanonicalLengthBodies(t *testing.T) {
	samples := map[string]string{
		"Austria":        "U123456789",
		"Belgium":        "0123456789",
		"Cyprus":         "12345678X",
		"Spain":          "X12345678",
		"Ireland":        "1234567WA",
		"Netherlands":    "123456789B01",
		"Lithuania":      "123456789012",
		"Czech Republic": "1234567890",
	}
	for name, body := range samples {
		r, ok := Lookup(name)
		require.True(t, ok, name)
		assert.Len(t, body, r.Length, name)
		assert.True(t, r.Pattern.MatchString(body), name)
	}

	spain, _ := Lookup("Spain")
	assert.True(t, spain.Pattern.MatchString("X1234567R"))
}

func TestAllReturnsCopy(t *testing.T) {
	a := All()
	a[0].Code = "ZZ"
	assert.NotEqual(t, "ZZ", All()[0].Code)
}

func swapCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if i%2 == 0 {
			b.WriteString(strings.ToUpper(string(r)))
		} else {
			b.WriteString(strings.ToLower(string(r)))
		}
	}
	return b.String()
}
