package check

import (
	"context"
	"strings"

	"github.com/ourcaldo/emval/internal/disposable"
	"github.com/ourcaldo/emval/internal/levenshtein"
	"github.com/ourcaldo/emval/internal/parse"
	"github.com/ourcaldo/emval/types"
)

// DomainConfig configures the domain stage.
type DomainConfig struct {
	CheckDisposable bool
	CheckTypos      bool
	TypoThreshold   int
}

// DomainChecker rejects disposable domains and suggests corrections
// for likely provider typos. A typo suspicion never fails an email,
// it only populates the Suggestion field.
type DomainChecker struct {
	cfg            DomainConfig
	disposable     *disposable.Checker
	knownProviders []string
}

// defaultKnownProviders is the list of major email providers used for
// typo detection.
var defaultKnownProviders = []string{
	"gmail.com", "googlemail.com",
	"yahoo.com", "yahoo.co.uk", "yahoo.fr", "yahoo.de",
	"outlook.com", "hotmail.com", "hotmail.co.uk", "live.com",
	"icloud.com", "me.com", "mac.com",
	"protonmail.com", "proton.me",
	"aol.com",
	"zoho.com",
	"yandex.com", "yandex.ru",
	"mail.com",
	"gmx.com", "gmx.net", "gmx.de",
	"fastmail.com",
	"tutanota.com",
}

// NewDomainChecker creates the stage around an existing disposable
// checker so the set (and its reloads) can be shared with the caller.
func NewDomainChecker(cfg DomainConfig, disp *disposable.Checker) *DomainChecker {
	if disp == nil {
		disp = disposable.New()
	}
	return &DomainChecker{
		cfg:            cfg,
		disposable:     disp,
		knownProviders: defaultKnownProviders,
	}
}

func (c *DomainChecker) Check(_ context.Context, email parse.Email) types.CheckResult {
	if !email.Valid {
		return types.CheckResult{
			Stage:    types.StageDomain,
			Passed:   false,
			Category: types.CategoryInvalid,
			Details:  "skipped: invalid email",
		}
	}

	if c.cfg.CheckDisposable && c.disposable.IsDisposable(email.Domain) {
		return types.CheckResult{
			Stage:    types.StageDomain,
			Passed:   false,
			Category: types.CategoryInvalid,
			Details:  "disposable email domain",
		}
	}

	if c.cfg.CheckTypos {
		if suggestion := c.findTypoSuggestion(strings.ToLower(email.DomainUnicode)); suggestion != "" {
			return types.CheckResult{
				Stage:      types.StageDomain,
				Passed:     true,
				Details:    "possible typo in domain",
				Suggestion: suggestion,
			}
		}
	}

	return types.CheckResult{Stage: types.StageDomain, Passed: true, Details: "domain ok"}
}

// findTypoSuggestion returns the closest known provider within the
// threshold, or "" when the domain is an exact match or nothing is
// near enough.
func (c *DomainChecker) findTypoSuggestion(domain string) string {
	threshold := c.cfg.TypoThreshold
	if threshold <= 0 {
		threshold = 2
	}

	bestDist := threshold + 1
	bestMatch := ""
	for _, provider := range c.knownProviders {
		if domain == provider {
			return ""
		}
		if dist := levenshtein.Distance(domain, provider); dist < bestDist {
			bestDist = dist
			bestMatch = provider
		}
	}
	return bestMatch
}
