package emval

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ourcaldo/emval/check"
	"github.com/ourcaldo/emval/internal/disposable"
	"github.com/ourcaldo/emval/internal/dnscache"
	"github.com/ourcaldo/emval/internal/dnsresolver"
	"github.com/ourcaldo/emval/internal/parse"
	"github.com/ourcaldo/emval/internal/smtpprobe"
	"github.com/ourcaldo/emval/types"
)

// checker is the internal interface for all validation stages.
// Every check/ package type implements this.
type checker interface {
	Check(ctx context.Context, email parse.Email) types.CheckResult
}

// CacheStats is a snapshot of the shared DNS cache counters.
type CacheStats struct {
	Hits     int64 `json:"hits"`
	Misses   int64 `json:"misses"`
	CurrSize int   `json:"curr_size"`
	MaxSize  int   `json:"max_size"`
}

// Validator is the main fluent builder struct.
// Instantiate with the New() function.
type Validator struct {
	checkers []checker
	err      error // configuration error, returned on Validate()
	log      *logrus.Entry
	timeout  time.Duration // per-email bound, 0 means none

	dnsCache    *dnscache.Cache
	dnsChecker  *check.DNSChecker
	smtpChecker *check.SMTPChecker
	hasDNS      bool
	hasSMTP     bool
}

// New creates a new Validator. By default it only performs syntax
// checking. Syntax checking always runs and cannot be disabled,
// because a well-formed address is a prerequisite for the other
// stages.
func New(opts ...SyntaxOptions) *Validator {
	o := defaultSyntaxOptions()
	if len(opts) > 0 {
		o = opts[0]
	}
	v := &Validator{log: discardLogger()}
	switch o.Policy {
	case "":
		o.Policy = PolicyStrict
	case PolicyStrict, PolicyPermissive:
	default:
		v.err = ErrInvalidPolicy
		return v
	}
	v.checkers = append(v.checkers, check.NewSyntaxChecker(check.SyntaxConfig{
		Policy: o.Policy,
		TLDs:   o.TLDs,
	}))
	return v
}

// WithLogger routes stage diagnostics through the given logger.
// Call it before the other With* methods so every stage picks it up.
func (v *Validator) WithLogger(log *logrus.Logger) *Validator {
	if log != nil {
		v.log = logrus.NewEntry(log)
	}
	return v
}

// WithTimeout bounds each Validate call. An email that exceeds the
// bound is classified unknown with reason "validation timeout
// exceeded"; the in-flight probe is abandoned, not retried.
func (v *Validator) WithTimeout(d time.Duration) *Validator {
	v.timeout = d
	return v
}

// WithDomain adds domain-level validation (disposable + typo).
func (v *Validator) WithDomain(opts ...DomainOptions) *Validator {
	o := defaultDomainOptions()
	if len(opts) > 0 {
		o = opts[0]
	}
	disp := disposable.New()
	if o.DisposableFile != "" {
		d, err := disposable.NewFromFile(o.DisposableFile)
		if err != nil {
			v.err = fmt.Errorf("loading disposable list: %w", err)
			return v
		}
		disp = d
	}
	v.checkers = append(v.checkers, check.NewDomainChecker(check.DomainConfig{
		CheckDisposable: o.CheckDisposable,
		CheckTypos:      o.CheckTypos,
		TypoThreshold:   o.TypoThreshold,
	}, disp))
	return v
}

// WithDNS adds MX/A resolution to the pipeline.
// Optionally overrides the default DNSOptions.
// Outcomes are cached and shared with the SMTP checker. The call
// order relative to WithSMTP does not matter: the DNS stage always
// runs ahead of the probe, and explicit options here replace the
// default resolver WithSMTP may have created.
func (v *Validator) WithDNS(opts ...DNSOptions) *Validator {
	if v.hasDNS {
		return v
	}
	o := defaultDNSOptions()
	if len(opts) > 0 {
		o = opts[0]
	}
	if v.dnsChecker == nil {
		v.buildDNS(o)
	} else if len(opts) > 0 {
		// WithSMTP already built the shared resolver with defaults;
		// rebuild with the caller's options and repoint the probe.
		v.buildDNS(o)
		v.smtpChecker.SetDNS(v.dnsChecker)
	}
	v.hasDNS = true
	if v.smtpChecker != nil {
		v.smtpChecker.SetDNSGated(true)
		v.insertBeforeSMTP(v.dnsChecker)
	} else {
		v.checkers = append(v.checkers, v.dnsChecker)
	}
	return v
}

// insertBeforeSMTP places c ahead of the SMTP stage in the pipeline.
func (v *Validator) insertBeforeSMTP(c checker) {
	for i, existing := range v.checkers {
		if existing == v.smtpChecker {
			rest := append([]checker{c}, v.checkers[i:]...)
			v.checkers = append(v.checkers[:i], rest...)
			return
		}
	}
	v.checkers = append(v.checkers, c)
}

// WithSMTP adds the SMTP RCPT TO probe to the pipeline.
// SMTPOptions.HeloDomain and MailFrom are required.
// Catch-all detection is on unless explicitly disabled.
func (v *Validator) WithSMTP(opts SMTPOptions) *Validator {
	if opts.HeloDomain == "" || opts.MailFrom == "" {
		v.err = ErrInvalidSMTPOptions
		return v
	}
	if opts.Port == "" {
		opts.Port = "25"
	}
	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = 5 * time.Second
	}
	if opts.CommandTimeout == 0 {
		opts.CommandTimeout = 10 * time.Second
	}
	catchAll := true
	if opts.CheckCatchAll != nil {
		catchAll = *opts.CheckCatchAll
	}

	// MX discovery goes through the shared DNS checker even when the
	// DNS stage itself is not in the pipeline.
	v.ensureDNS(defaultDNSOptions())

	prober := smtpprobe.New(smtpprobe.Config{
		HeloDomain:     opts.HeloDomain,
		MailFrom:       opts.MailFrom,
		Port:           opts.Port,
		ConnectTimeout: opts.ConnectTimeout,
		CommandTimeout: opts.CommandTimeout,
		Logger:         v.log,
	})

	v.smtpChecker = check.NewSMTPChecker(check.SMTPConfig{
		CheckCatchAll: catchAll,
	}, v.dnsChecker, prober, opts.Proxies, v.log)
	v.smtpChecker.SetDNSGated(v.hasDNS)
	v.checkers = append(v.checkers, v.smtpChecker)
	v.hasSMTP = true
	return v
}

// ensureDNS creates the shared cache, resolver and DNS checker if
// they don't exist yet.
func (v *Validator) ensureDNS(o DNSOptions) {
	if v.dnsChecker != nil {
		return
	}
	v.buildDNS(o)
}

// buildDNS (re)creates the shared cache, resolver and DNS checker
// from the given options.
func (v *Validator) buildDNS(o DNSOptions) {
	v.dnsCache = dnscache.New(o.CacheSize)
	resolver := dnsresolver.New(dnsresolver.Config{
		Nameservers: o.Nameservers,
		Timeout:     o.Timeout,
		MaxRetries:  o.MaxRetries,
		RetryDelay:  o.RetryDelay,
		Logger:      v.log,
	})
	v.dnsChecker = check.NewDNSChecker(v.dnsCache, resolver, v.log)
}

// Validate runs all configured checks on the given email.
// The pipeline short-circuits: when a stage fails, subsequent stages
// are skipped. With WithTimeout set, an overrunning validation is
// abandoned and reported as unknown.
func (v *Validator) Validate(ctx context.Context, email string) (Result, error) {
	if v.err != nil {
		return Result{}, v.err
	}

	if v.timeout <= 0 {
		return v.run(ctx, email), nil
	}

	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	done := make(chan Result, 1)
	go func() {
		done <- v.run(ctx, email)
	}()

	select {
	case res := <-done:
		return res, nil
	case <-ctx.Done():
		v.log.WithField("email", email).Warn("validation timeout exceeded")
		return Result{
			Email:    email,
			IsValid:  true,
			Category: CategoryUnknown,
			Reason:   "validation timeout exceeded",
		}, nil
	}
}

func (v *Validator) run(ctx context.Context, email string) Result {
	parsed := parse.NewEmail(email)
	result := Result{Email: email}

	for _, c := range v.checkers {
		cr := c.Check(ctx, parsed)
		result.Checks = append(result.Checks, cr)

		if !cr.Passed {
			result.Category = cr.Category
			if result.Category == "" {
				result.Category = CategoryInvalid
			}
			result.Reason = cr.Details
			// Unknown means the check could not run to completion,
			// not that the address is bad.
			result.IsValid = result.Category == CategoryUnknown
			return result
		}
	}

	result.IsValid = true
	result.Category = CategoryValid
	result.Reason = v.passReason(result.Checks)
	return result
}

// passReason describes how much assurance a fully passing pipeline
// actually gives.
func (v *Validator) passReason(checks []CheckResult) string {
	if v.hasSMTP {
		for i := len(checks) - 1; i >= 0; i-- {
			if checks[i].Stage == StageSMTP {
				return checks[i].Details
			}
		}
	}
	if v.hasDNS {
		return "Valid (DNS only)"
	}
	return "Valid"
}

// ValidateAll runs all checks without short-circuiting.
// Useful when you want to know exactly which stages fail. The overall
// classification comes from the first failing stage, matching
// Validate.
func (v *Validator) ValidateAll(ctx context.Context, email string) (Result, error) {
	if v.err != nil {
		return Result{}, v.err
	}

	parsed := parse.NewEmail(email)
	result := Result{Email: email, IsValid: true, Category: CategoryValid}

	for _, c := range v.checkers {
		cr := c.Check(ctx, parsed)
		result.Checks = append(result.Checks, cr)
		if !cr.Passed && result.Category == CategoryValid {
			result.Category = cr.Category
			if result.Category == "" {
				result.Category = CategoryInvalid
			}
			result.Reason = cr.Details
			result.IsValid = result.Category == CategoryUnknown
		}
	}

	if result.Category == CategoryValid {
		result.Reason = v.passReason(result.Checks)
	}
	return result, nil
}

// ValidateMany validates multiple emails concurrently.
// The result order matches the input slice order.
// Emails are sorted by domain internally so that cache hits cluster
// and repeated probes land on warm mail exchangers.
func (v *Validator) ValidateMany(ctx context.Context, emails []string, opts ...ConcurrencyOptions) ([]Result, error) {
	if v.err != nil {
		return nil, v.err
	}

	workers := 5
	if len(opts) > 0 && opts[0].Workers > 0 {
		workers = opts[0].Workers
	}

	results := make([]Result, len(emails))
	type job struct {
		idx    int
		email  string
		domain string
	}

	jobSlice := make([]job, len(emails))
	for i, e := range emails {
		domain := ""
		if atIdx := strings.LastIndex(e, "@"); atIdx >= 0 {
			domain = strings.ToLower(e[atIdx+1:])
		}
		jobSlice[i] = job{idx: i, email: e, domain: domain}
	}
	sort.Slice(jobSlice, func(i, j int) bool {
		return jobSlice[i].domain < jobSlice[j].domain
	})

	bufSize := len(emails)
	if bufSize > 1000 {
		bufSize = 1000
	}
	jobs := make(chan job, bufSize)
	go func() {
		for _, j := range jobSlice {
			jobs <- j
		}
		close(jobs)
	}()

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				res, err := v.Validate(ctx, j.email)
				if err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = fmt.Errorf("validating %q: %w", j.email, err)
					}
					mu.Unlock()
					continue
				}
				results[j.idx] = res
			}
		}()
	}

	wg.Wait()
	return results, firstErr
}

// CacheStats reports the shared DNS cache counters. Zero value when
// neither DNS nor SMTP stages are configured.
func (v *Validator) CacheStats() CacheStats {
	if v.dnsCache == nil {
		return CacheStats{}
	}
	s := v.dnsCache.Stats()
	return CacheStats{
		Hits:     s.Hits,
		Misses:   s.Misses,
		CurrSize: s.CurrSize,
		MaxSize:  s.MaxSize,
	}
}

func discardLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}
