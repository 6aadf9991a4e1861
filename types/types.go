// Package types contains the shared types for emval.
// This package does not import anything from other emval packages
// to avoid circular imports.
package types

// Category is the final deliverability classification of an email address.
type Category = string

const (
	// CategoryValid means every configured check passed and, when SMTP
	// probing is enabled, the mailbox accepted RCPT TO while a random
	// probe address was rejected.
	CategoryValid Category = "valid"

	// CategoryRisk means the address itself was accepted but the domain
	// is a catch-all: acceptance carries no signal about the mailbox.
	CategoryRisk Category = "risk"

	// CategoryInvalid means a check produced a definitive rejection:
	// bad syntax, disposable domain, missing DNS records, or an SMTP
	// hard reject.
	CategoryInvalid Category = "invalid"

	// CategoryUnknown means the check could not complete: DNS or SMTP
	// infrastructure failed, the response was ambiguous, or the
	// per-item timeout expired. Unknown is "couldn't disprove", not
	// "disproved".
	CategoryUnknown Category = "unknown"
)

// Stage identifies a validation pipeline stage.
type Stage = string

const (
	StageSyntax Stage = "syntax"
	StageDomain Stage = "domain"
	StageDNS    Stage = "dns"
	StageSMTP   Stage = "smtp"
)

// CheckResult is the outcome of a single pipeline stage.
type CheckResult struct {
	Stage      Stage    `json:"stage"`
	Passed     bool     `json:"passed"`
	Category   Category `json:"category,omitempty"`
	Details    string   `json:"details,omitempty"`
	Suggestion string   `json:"suggestion,omitempty"`
	MXHost     string   `json:"mxHost,omitempty"`
	SMTPCode   int      `json:"smtpCode,omitempty"`
}
