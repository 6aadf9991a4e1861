// Package emval validates bulk lists of email addresses for
// deliverability risk, combining syntax rules, disposable-domain
// detection, DNS MX/A resolution and live SMTP mailbox probing with
// catch-all detection. Every address is classified into one of four
// categories: valid, risk, invalid or unknown.
//
// Basic usage:
//
//	result, err := emval.New().Validate(ctx, "user@example.com")
//
// Full pipeline:
//
//	v := emval.New().
//	    WithDomain().
//	    WithDNS().
//	    WithSMTP(emval.SMTPOptions{
//	        HeloDomain: "myapp.com",
//	        MailFrom:   "verify@myapp.com",
//	    })
//	result, err := v.Validate(ctx, "user@example.com")
package emval

import (
	"github.com/ourcaldo/emval/check"
	"github.com/ourcaldo/emval/types"
)

// CheckResult is a re-export from the types package so that consumers
// don't need to import the types package directly.
type CheckResult = types.CheckResult

// Category is a re-export.
type Category = types.Category

// Stage is a re-export.
type Stage = types.Stage

// Category constants re-exported.
const (
	CategoryValid   = types.CategoryValid
	CategoryRisk    = types.CategoryRisk
	CategoryInvalid = types.CategoryInvalid
	CategoryUnknown = types.CategoryUnknown
)

// Stage constants re-exported.
const (
	StageSyntax = types.StageSyntax
	StageDomain = types.StageDomain
	StageDNS    = types.StageDNS
	StageSMTP   = types.StageSMTP
)

// Policy is a re-export of the syntax policy enum.
type Policy = check.Policy

// Policy constants re-exported.
const (
	PolicyStrict     = check.PolicyStrict
	PolicyPermissive = check.PolicyPermissive
)
