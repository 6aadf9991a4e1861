package check

import (
	"context"
	"strings"
	"unicode"

	"github.com/ourcaldo/emval/internal/parse"
	"github.com/ourcaldo/emval/internal/tldset"
	"github.com/ourcaldo/emval/types"
)

// Policy selects the syntax grammar. Exactly one policy applies per
// validator; the two are never mixed.
type Policy string

const (
	// PolicyStrict is the authoritative grammar: local parts of
	// letters, digits, dot and underscore only. No plus-addressing,
	// no hyphens, no quoting, no Unicode.
	PolicyStrict Policy = "strict"

	// PolicyPermissive accepts the full RFC 5321 atext set in the
	// local part, quoted locals, SMTPUTF8 Unicode and domain
	// literals.
	PolicyPermissive Policy = "permissive"
)

// SyntaxConfig configures the syntax stage.
type SyntaxConfig struct {
	Policy Policy
	// TLDs is the registry membership set for the final domain label.
	// Nil skips the membership test (shape rules still apply).
	TLDs *tldset.Set
}

// SyntaxChecker validates email address grammar. It is a pure
// function over its input and the injected TLD set; malformed input
// is a normal, expected case, never an internal fault.
type SyntaxChecker struct {
	cfg SyntaxConfig
}

func NewSyntaxChecker(cfg SyntaxConfig) *SyntaxChecker {
	if cfg.Policy == "" {
		cfg.Policy = PolicyStrict
	}
	return &SyntaxChecker{cfg: cfg}
}

func (c *SyntaxChecker) Check(_ context.Context, email parse.Email) types.CheckResult {
	ok, reason := c.Validate(email.Raw)
	if !ok {
		return types.CheckResult{
			Stage:    types.StageSyntax,
			Passed:   false,
			Category: types.CategoryInvalid,
			Details:  reason,
		}
	}
	return types.CheckResult{Stage: types.StageSyntax, Passed: true, Details: "syntax ok"}
}

// Validate applies the configured grammar to a (normalized) address.
// Rules are ordered hard gates: the first violation wins and its
// reason is returned.
func (c *SyntaxChecker) Validate(email string) (bool, string) {
	if email == "" {
		return false, "empty email address"
	}
	if len(email) > 254 {
		return false, "email exceeds 254 characters"
	}

	switch strings.Count(email, "@") {
	case 0:
		return false, "email must contain @ symbol"
	case 1:
	default:
		return false, "email must contain exactly one @ symbol"
	}

	atIdx := strings.LastIndex(email, "@")
	local := email[:atIdx]
	domain := email[atIdx+1:]

	if reason := c.validateLocal(local); reason != "" {
		return false, reason
	}
	if reason := c.validateDomain(domain); reason != "" {
		return false, reason
	}
	return true, ""
}

// ExtractDomain returns the domain part of an email, or ok=false when
// none can be extracted.
func (c *SyntaxChecker) ExtractDomain(email string) (string, bool) {
	return parse.ExtractDomain(email)
}

func (c *SyntaxChecker) validateLocal(local string) string {
	if local == "" {
		return "local part is empty"
	}
	if len(local) > 64 {
		return "local part exceeds 64 characters"
	}

	if c.cfg.Policy == PolicyPermissive {
		return validateLocalPermissive(local)
	}
	return validateLocalStrict(local)
}

// validateLocalStrict allows exactly letters, digits, dot and
// underscore. Plus-addressing and hyphens are rejected by design.
func validateLocalStrict(local string) string {
	for _, ch := range local {
		switch {
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9':
		case ch == '.' || ch == '_':
		case ch == '+':
			return "plus-addressing not allowed in local part"
		case ch == '-':
			return "hyphen not allowed in local part"
		default:
			return "invalid character in local part: " + string(ch)
		}
	}
	if strings.HasPrefix(local, ".") || strings.HasSuffix(local, ".") {
		return "local part cannot start or end with a dot"
	}
	if strings.HasPrefix(local, "_") || strings.HasSuffix(local, "_") {
		return "local part cannot start or end with an underscore"
	}
	if strings.Contains(local, "..") {
		return "local part cannot contain consecutive dots"
	}
	return ""
}

// RFC 5321 ASCII special characters allowed in an unquoted atom.
const atextSpecial = "!#$%&'*+/=?^_`{|}~-."

func validateLocalPermissive(local string) string {
	// Quoted form: all printable characters are allowed inside.
	if strings.HasPrefix(local, `"`) && strings.HasSuffix(local, `"`) && len(local) >= 2 {
		for _, ch := range local[1 : len(local)-1] {
			if unicode.IsControl(ch) {
				return "quoted local part contains control character"
			}
		}
		return ""
	}

	for _, ch := range local {
		if ch > 127 {
			// RFC 6531 SMTPUTF8: any non-control Unicode character.
			if unicode.IsControl(ch) {
				return "local part contains control character"
			}
			continue
		}
		if (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') {
			continue
		}
		if !strings.ContainsRune(atextSpecial, ch) {
			return "invalid character in local part: " + string(ch)
		}
	}
	if strings.HasPrefix(local, ".") || strings.HasSuffix(local, ".") {
		return "local part cannot start or end with a dot"
	}
	if strings.Contains(local, "..") {
		return "local part cannot contain consecutive dots"
	}
	return ""
}

func (c *SyntaxChecker) validateDomain(domain string) string {
	if domain == "" {
		return "domain is empty"
	}
	if len(domain) > 255 {
		return "domain exceeds 255 characters"
	}

	// Domain literal: [192.0.2.1]. Permissive only; never consulted
	// against the TLD registry.
	if strings.HasPrefix(domain, "[") && strings.HasSuffix(domain, "]") {
		if c.cfg.Policy == PolicyPermissive {
			return ""
		}
		return "domain literals not allowed"
	}

	if !strings.Contains(domain, ".") {
		return "domain must contain at least one dot (TLD required)"
	}
	if strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
		return "domain cannot start or end with a dot"
	}
	if strings.Contains(domain, "..") {
		return "domain contains consecutive dots"
	}
	if strings.HasPrefix(domain, "-") || strings.HasSuffix(domain, "-") {
		return "domain cannot start or end with a hyphen"
	}

	// For membership and shape checks use the IDNA ASCII form so
	// internationalized domains resolve to registry entries (xn--).
	ascii := domain
	if c.cfg.Policy == PolicyPermissive {
		if a, ok := parse.ExtractDomain("x@" + domain); ok {
			ascii = a
		} else {
			return "invalid internationalized domain"
		}
	}

	labels := strings.Split(ascii, ".")
	for _, label := range labels {
		if reason := validateLabel(label); reason != "" {
			return reason
		}
	}

	tld := labels[len(labels)-1]
	// Punycode TLDs (xn--) only exist under the permissive policy,
	// since the strict grammar never produces them.
	if !(c.cfg.Policy == PolicyPermissive && strings.HasPrefix(tld, "xn--")) {
		for _, ch := range tld {
			if !((ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')) {
				return "TLD must contain letters only"
			}
		}
	}
	if len(tld) < 2 {
		return "TLD must be at least 2 characters"
	}
	if c.cfg.TLDs != nil && !c.cfg.TLDs.Contains(tld) {
		return "TLD '" + tld + "' is not in the IANA registry"
	}
	return ""
}

func validateLabel(label string) string {
	if label == "" {
		return "domain contains empty label"
	}
	if len(label) > 63 {
		return "domain label '" + label + "' exceeds 63 characters"
	}
	if strings.HasPrefix(label, "-") || strings.HasSuffix(label, "-") {
		return "domain label '" + label + "' cannot start or end with a hyphen"
	}
	for _, ch := range label {
		if (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') || ch == '-' {
			continue
		}
		return "invalid character in domain label '" + label + "'"
	}
	return ""
}
