package check

import (
	"context"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ourcaldo/emval/internal/dnscache"
	"github.com/ourcaldo/emval/internal/dnsresolver"
	"github.com/ourcaldo/emval/internal/parse"
	"github.com/ourcaldo/emval/types"
)

// DNSChecker verifies that a domain can receive mail, combining the
// resolver with the shared definitive-only cache. The SMTP stage
// reuses the same checker for MX discovery, so one network lookup
// serves both stages.
type DNSChecker struct {
	cache    *dnscache.Cache
	resolver *dnsresolver.Resolver
	log      *logrus.Entry
}

// NewDNSChecker composes the stage from a cache and a resolver.
func NewDNSChecker(cache *dnscache.Cache, resolver *dnsresolver.Resolver, log *logrus.Entry) *DNSChecker {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = logrus.NewEntry(l)
	}
	return &DNSChecker{cache: cache, resolver: resolver, log: log}
}

func (c *DNSChecker) Check(ctx context.Context, email parse.Email) types.CheckResult {
	if !email.Valid {
		return types.CheckResult{
			Stage:    types.StageDNS,
			Passed:   false,
			Category: types.CategoryInvalid,
			Details:  "skipped: invalid email",
		}
	}

	out := c.CheckDomain(ctx, email.Domain)
	if out.HasRecords {
		cr := types.CheckResult{Stage: types.StageDNS, Passed: true, Details: "deliverable domain"}
		if len(out.MXHosts) > 0 {
			cr.MXHost = out.MXHosts[0]
		}
		return cr
	}

	// A definitive absence of records is a rejection; a transient
	// resolver failure that survived the retries is only "couldn't
	// check", never a verdict.
	category := types.CategoryInvalid
	if !out.Cacheable {
		category = types.CategoryUnknown
	}
	return types.CheckResult{
		Stage:    types.StageDNS,
		Passed:   false,
		Category: category,
		Details:  out.Err,
	}
}

// CheckDomain resolves a domain through the cache. Only definitive
// outcomes are stored; a transient failure never overwrites or
// populates a cache entry, so a later definitive result still lands.
func (c *DNSChecker) CheckDomain(ctx context.Context, domain string) dnsresolver.Outcome {
	domain = strings.ToLower(domain)

	if out, ok := c.cache.Get(domain); ok {
		return out
	}

	out := c.resolver.Resolve(ctx, domain)
	if out.Cacheable {
		c.cache.Put(domain, out)
	} else {
		c.log.WithField("domain", domain).Debug("transient DNS failure not cached")
	}
	return out
}

// Stats exposes the shared cache counters for logging.
func (c *DNSChecker) Stats() dnscache.Stats {
	return c.cache.Stats()
}
