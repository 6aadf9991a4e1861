package parse_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ourcaldo/emval/internal/parse"
)

func TestNewEmail(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantValid  bool
		wantLocal  string
		wantDomain string
	}{
		{"simple", "user@example.com", true, "user", "example.com"},
		{"uppercase normalized", "User@EXAMPLE.COM", true, "user", "example.com"},
		{"surrounding whitespace", "  user@example.com  ", true, "user", "example.com"},
		{"no at sign", "userexample.com", false, "", ""},
		{"two at signs", "user@foo@example.com", false, "", ""},
		{"empty local", "@example.com", false, "", ""},
		{"empty domain", "user@", false, "", ""},
		{"empty string", "", false, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := parse.NewEmail(tt.input)
			assert.Equal(t, tt.wantValid, e.Valid)
			if tt.wantValid {
				assert.Equal(t, tt.wantLocal, e.Local)
				assert.Equal(t, tt.wantDomain, e.Domain)
			}
		})
	}
}

func TestNewEmail_IDN(t *testing.T) {
	e := parse.NewEmail("user@münchen.de")
	assert.True(t, e.Valid)
	assert.Equal(t, "xn--mnchen-3ya.de", e.Domain)
	assert.Equal(t, "münchen.de", e.DomainUnicode)

	// Punycode input recovers the Unicode display form.
	e = parse.NewEmail("user@xn--mnchen-3ya.de")
	assert.True(t, e.Valid)
	assert.Equal(t, "xn--mnchen-3ya.de", e.Domain)
	assert.Equal(t, "münchen.de", e.DomainUnicode)
}

func TestNewEmail_RawAlwaysPopulated(t *testing.T) {
	e := parse.NewEmail("  Not-An-Email  ")
	assert.False(t, e.Valid)
	assert.Equal(t, "not-an-email", e.Raw)
}

func TestExtractDomain(t *testing.T) {
	domain, ok := parse.ExtractDomain("user@example.com")
	assert.True(t, ok)
	assert.Equal(t, "example.com", domain)

	_, ok = parse.ExtractDomain("nodomain")
	assert.False(t, ok)

	_, ok = parse.ExtractDomain("")
	assert.False(t, ok)
}
