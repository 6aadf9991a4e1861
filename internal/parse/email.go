package parse

import (
	"strings"

	"golang.org/x/net/idna"
)

// Email is the internal representation of a parsed email address.
// The check/ packages receive this as parameter. The address is
// normalized (trimmed, lower-cased) exactly once here and never
// mutated afterwards; every stage reads the same value.
type Email struct {
	Raw           string // normalized input (trimmed, lower-cased)
	Local         string // the part before @
	Domain        string // the part after @, ASCII/Punycode form (for DNS/SMTP)
	DomainUnicode string // the part after @, Unicode form (for display/typo detection)
	Valid         bool   // false if Raw cannot be decomposed
}

// NewEmail normalizes and decomposes the given email string.
// If decomposition fails, Valid=false but Raw is always populated.
// Internationalized domains are carried in both IDNA2008 ASCII and
// Unicode forms.
func NewEmail(raw string) Email {
	raw = strings.ToLower(strings.TrimSpace(raw))

	if strings.Count(raw, "@") != 1 {
		return Email{Raw: raw, Valid: false}
	}

	atIdx := strings.LastIndex(raw, "@")
	local := raw[:atIdx]
	domain := raw[atIdx+1:]
	if local == "" || domain == "" {
		return Email{Raw: raw, Valid: false}
	}

	asciiDomain, unicodeDomain, ok := convertDomain(domain)
	if !ok {
		return Email{Raw: raw, Valid: false}
	}

	return Email{
		Raw:           raw,
		Local:         local,
		Domain:        asciiDomain,
		DomainUnicode: unicodeDomain,
		Valid:         true,
	}
}

// ExtractDomain returns the ASCII domain of an email address, or
// ok=false when no domain can be extracted. Never panics on
// malformed input.
func ExtractDomain(email string) (string, bool) {
	e := NewEmail(email)
	if !e.Valid {
		return "", false
	}
	return e.Domain, true
}

// convertDomain converts a domain to both ASCII/Punycode and Unicode forms.
// ok is false if the domain contains non-ASCII characters that fail
// IDNA2008 validation.
func convertDomain(domain string) (ascii, unicode string, ok bool) {
	hasNonASCII := false
	for _, r := range domain {
		if r > 127 {
			hasNonASCII = true
			break
		}
	}

	if hasNonASCII {
		a, err := idna.Lookup.ToASCII(domain)
		if err != nil {
			return "", "", false
		}
		return a, domain, true
	}

	// Pure ASCII domain: recover the Unicode display form in case the
	// input is already Punycode (xn--mnchen-3ya.de → münchen.de).
	u, err := idna.Display.ToUnicode(domain)
	if err != nil {
		u = domain
	}
	return domain, u, true
}
