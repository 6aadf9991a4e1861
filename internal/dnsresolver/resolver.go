// Package dnsresolver resolves MX records for a domain, falling back to
// A and AAAA records per RFC 5321, and classifies every failure as
// either definitive (safe to cache) or transient (retried, never
// cached).
package dnsresolver

import (
	"context"
	"errors"
	"io"
	"net"
	"sort"
	"strings"
	"time"

	"github.com/miekg/dns"
	"github.com/sirupsen/logrus"
)

// Outcome is the structured result of a domain check. The resolver
// never returns a bare error: every failure path yields an Outcome
// with Err set and Cacheable distinguishing definitive facts from
// infrastructure hiccups.
type Outcome struct {
	HasRecords bool
	MXHosts    []string // mail exchangers by preference; domain itself on A/AAAA fallback
	Err        string
	Cacheable  bool
}

// Config configures the resolver.
type Config struct {
	// Nameservers to query in order (host:port). Empty means system
	// resolvers from /etc/resolv.conf, falling back to public DNS.
	Nameservers []string

	// Timeout for a single query exchange. Default 5s.
	Timeout time.Duration

	// MaxRetries is how many attempts are made for transient failures.
	// Default 3.
	MaxRetries int

	// RetryDelay is the base backoff delay; attempt n waits
	// RetryDelay * 2^n. Default 500ms.
	RetryDelay time.Duration

	// Logger for debug output. Nil means discard.
	Logger *logrus.Entry
}

// queryFunc is the raw query layer, injectable for tests.
type queryFunc func(ctx context.Context, name string, qtype uint16) ([]dns.RR, *QueryError)

// Resolver performs MX/A/AAAA resolution with retry and backoff.
type Resolver struct {
	cfg    Config
	client *dns.Client
	query  queryFunc
	log    *logrus.Entry
}

// New creates a resolver with the given configuration.
func New(cfg Config) *Resolver {
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = 500 * time.Millisecond
	}
	if len(cfg.Nameservers) == 0 {
		cfg.Nameservers = systemNameservers()
	}
	log := cfg.Logger
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = logrus.NewEntry(l)
	}

	r := &Resolver{
		cfg:    cfg,
		client: &dns.Client{Timeout: cfg.Timeout},
		log:    log,
	}
	r.query = r.doQuery
	return r
}

// NewWithQuery creates a resolver whose query layer is replaced,
// for tests.
func NewWithQuery(cfg Config, q queryFunc) *Resolver {
	r := New(cfg)
	r.query = q
	return r
}

// systemNameservers reads resolv.conf, falling back to public DNS.
func systemNameservers() []string {
	config, err := dns.ClientConfigFromFile("/etc/resolv.conf")
	if err != nil || len(config.Servers) == 0 {
		return []string{"8.8.8.8:53", "1.1.1.1:53"}
	}
	servers := make([]string, 0, len(config.Servers))
	for _, s := range config.Servers {
		servers = append(servers, net.JoinHostPort(s, config.Port))
	}
	return servers
}

// Resolve checks whether a domain can receive mail. MX records are
// consulted first; an empty MX answer falls back to A, then AAAA.
// Transient failures are retried with exponential backoff before being
// surfaced with Cacheable=false.
func (r *Resolver) Resolve(ctx context.Context, domain string) Outcome {
	domain = strings.ToLower(strings.TrimSpace(domain))

	var out Outcome
	for attempt := 0; attempt < r.cfg.MaxRetries; attempt++ {
		out = r.resolveOnce(ctx, domain)
		if out.Cacheable {
			return out
		}

		if attempt < r.cfg.MaxRetries-1 {
			wait := r.cfg.RetryDelay * (1 << uint(attempt))
			r.log.WithFields(logrus.Fields{
				"domain":  domain,
				"attempt": attempt + 1,
				"wait":    wait,
			}).Debug("transient DNS failure, backing off")

			select {
			case <-ctx.Done():
				return Outcome{Err: "DNS check cancelled (temporary)", Cacheable: false}
			case <-time.After(wait):
			}
		}
	}
	return out
}

// resolveOnce performs one MX → A → AAAA pass.
func (r *Resolver) resolveOnce(ctx context.Context, domain string) Outcome {
	answers, qerr := r.query(ctx, domain, dns.TypeMX)
	switch {
	case qerr == nil:
		hosts := mxHosts(answers)
		if len(hosts) > 0 {
			return Outcome{HasRecords: true, MXHosts: hosts, Cacheable: true}
		}
		if hasMXAnswers(answers) {
			// MX records exist but every exchange is empty or the
			// null MX root: the domain explicitly rejects mail.
			// Do not fall back to A records.
			return Outcome{Err: "MX records exist but are invalid", Cacheable: true}
		}
		// Empty answer: fall through to A/AAAA per RFC 5321.
	case qerr.Kind == ErrKindNXDomain:
		return Outcome{Err: "domain not found (no DNS records)", Cacheable: true}
	case qerr.Kind.Transient():
		return Outcome{Err: "DNS " + qerr.Kind.String() + " (temporary)", Cacheable: false}
	default:
		return Outcome{Err: qerr.Error(), Cacheable: true}
	}

	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
		answers, qerr = r.query(ctx, domain, qtype)
		if qerr != nil {
			if qerr.Kind == ErrKindNXDomain {
				return Outcome{Err: "domain not found (no DNS records)", Cacheable: true}
			}
			if qerr.Kind.Transient() {
				return Outcome{Err: "DNS " + qerr.Kind.String() + " (temporary)", Cacheable: false}
			}
			return Outcome{Err: qerr.Error(), Cacheable: true}
		}
		if hasAddressAnswers(answers) {
			// Implicit MX: the domain itself receives mail.
			return Outcome{HasRecords: true, MXHosts: []string{domain}, Cacheable: true}
		}
	}

	return Outcome{Err: "no MX, A, or AAAA records found", Cacheable: true}
}

// doQuery runs one question against the configured nameservers in
// order. It maps every failure mode onto an ErrKind and never panics,
// whatever the response looks like.
func (r *Resolver) doQuery(ctx context.Context, name string, qtype uint16) ([]dns.RR, *QueryError) {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(name), qtype)
	m.RecursionDesired = true

	var lastErr *QueryError
	for _, server := range r.cfg.Nameservers {
		select {
		case <-ctx.Done():
			return nil, &QueryError{Kind: ErrKindTimeout, Detail: ctx.Err().Error()}
		default:
		}

		resp, _, err := r.client.ExchangeContext(ctx, m, server)
		if err != nil {
			lastErr = classifyExchangeError(err)
			continue
		}
		if resp == nil {
			lastErr = &QueryError{Kind: ErrKindMalformed, Detail: "nil response"}
			continue
		}

		switch resp.Rcode {
		case dns.RcodeSuccess:
			return resp.Answer, nil
		case dns.RcodeNameError:
			return nil, &QueryError{Kind: ErrKindNXDomain}
		case dns.RcodeServerFailure:
			lastErr = &QueryError{Kind: ErrKindServerFailure, Detail: "SERVFAIL from " + server}
		case dns.RcodeRefused:
			lastErr = &QueryError{Kind: ErrKindServerFailure, Detail: "REFUSED from " + server}
		case dns.RcodeFormatError:
			lastErr = &QueryError{Kind: ErrKindMalformed, Detail: "FORMERR from " + server}
		default:
			lastErr = &QueryError{Kind: ErrKindMalformed, Detail: "unexpected rcode " + dns.RcodeToString[resp.Rcode]}
		}
	}

	if lastErr == nil {
		lastErr = &QueryError{Kind: ErrKindServerFailure, Detail: "no nameservers configured"}
	}
	return nil, lastErr
}

func classifyExchangeError(err error) *QueryError {
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return &QueryError{Kind: ErrKindTimeout, Detail: err.Error()}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &QueryError{Kind: ErrKindTimeout, Detail: err.Error()}
	}
	return &QueryError{Kind: ErrKindServerFailure, Detail: err.Error()}
}

// mxHosts extracts non-null exchanges from an MX answer, ordered by
// preference.
func mxHosts(answers []dns.RR) []string {
	type mx struct {
		pref uint16
		host string
	}
	var records []mx
	for _, rr := range answers {
		m, ok := rr.(*dns.MX)
		if !ok {
			continue
		}
		host := strings.TrimSuffix(m.Mx, ".")
		if host == "" {
			continue
		}
		records = append(records, mx{pref: m.Preference, host: host})
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].pref < records[j].pref
	})

	hosts := make([]string, 0, len(records))
	for _, rec := range records {
		hosts = append(hosts, rec.host)
	}
	return hosts
}

// hasMXAnswers reports whether the answer section carries any MX
// record at all, valid or not.
func hasMXAnswers(answers []dns.RR) bool {
	for _, rr := range answers {
		if _, ok := rr.(*dns.MX); ok {
			return true
		}
	}
	return false
}

// hasAddressAnswers reports whether the answer section carries an A or
// AAAA record.
func hasAddressAnswers(answers []dns.RR) bool {
	for _, rr := range answers {
		switch rr.(type) {
		case *dns.A, *dns.AAAA:
			return true
		}
	}
	return false
}
