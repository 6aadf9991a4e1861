package emval

import "errors"

var (
	// ErrInvalidSMTPOptions is returned when WithSMTP is called but
	// HeloDomain or MailFrom is missing.
	ErrInvalidSMTPOptions = errors.New("emval: SMTPOptions requires HeloDomain and MailFrom")

	// ErrInvalidPolicy is returned when an unknown syntax policy is
	// configured.
	ErrInvalidPolicy = errors.New("emval: unknown syntax policy")
)
