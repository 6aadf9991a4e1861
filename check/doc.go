// Package check contains the individual validation pipeline stages:
// syntax, domain (disposable + typo), DNS and SMTP. Each stage takes
// a parsed email and returns a types.CheckResult; the emval package
// chains them into the deliverability pipeline.
package check
