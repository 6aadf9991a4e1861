package check_test

import (
	"context"
	"testing"
	"time"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"

	"github.com/ourcaldo/emval/check"
	"github.com/ourcaldo/emval/internal/dnscache"
	"github.com/ourcaldo/emval/internal/dnsresolver"
	"github.com/ourcaldo/emval/internal/parse"
	"github.com/ourcaldo/emval/types"
)

func mxAnswer(host string) []dns.RR {
	return []dns.RR{&dns.MX{
		Hdr:        dns.RR_Header{Name: "example.com.", Rrtype: dns.TypeMX, Class: dns.ClassINET},
		Preference: 10,
		Mx:         host,
	}}
}

func resolverConfig() dnsresolver.Config {
	return dnsresolver.Config{
		Nameservers: []string{"127.0.0.1:53"},
		Timeout:     time.Second,
		MaxRetries:  2,
		RetryDelay:  time.Millisecond,
	}
}

func newDNSChecker(q func(ctx context.Context, name string, qtype uint16) ([]dns.RR, *dnsresolver.QueryError)) *check.DNSChecker {
	resolver := dnsresolver.NewWithQuery(resolverConfig(), q)
	return check.NewDNSChecker(dnscache.New(100), resolver, nil)
}

func TestDNSChecker_Deliverable(t *testing.T) {
	c := newDNSChecker(func(_ context.Context, _ string, qtype uint16) ([]dns.RR, *dnsresolver.QueryError) {
		if qtype == dns.TypeMX {
			return mxAnswer("mx.example.com."), nil
		}
		return nil, nil
	})

	result := c.Check(context.Background(), parse.NewEmail("user@example.com"))
	assert.True(t, result.Passed)
	assert.Equal(t, types.StageDNS, result.Stage)
	assert.Equal(t, "mx.example.com", result.MXHost)
}

func TestDNSChecker_DefinitiveFailureIsInvalid(t *testing.T) {
	c := newDNSChecker(func(_ context.Context, _ string, _ uint16) ([]dns.RR, *dnsresolver.QueryError) {
		return nil, &dnsresolver.QueryError{Kind: dnsresolver.ErrKindNXDomain}
	})

	result := c.Check(context.Background(), parse.NewEmail("user@gone.example"))
	assert.False(t, result.Passed)
	assert.Equal(t, types.CategoryInvalid, result.Category)
	assert.Equal(t, "domain not found (no DNS records)", result.Details)
}

func TestDNSChecker_TransientFailureIsUnknown(t *testing.T) {
	c := newDNSChecker(func(_ context.Context, _ string, _ uint16) ([]dns.RR, *dnsresolver.QueryError) {
		return nil, &dnsresolver.QueryError{Kind: dnsresolver.ErrKindServerFailure}
	})

	result := c.Check(context.Background(), parse.NewEmail("user@flaky.example"))
	assert.False(t, result.Passed)
	assert.Equal(t, types.CategoryUnknown, result.Category,
		"an infrastructure failure is never a verdict about the domain")
}

func TestDNSChecker_CacheHitSkipsNetwork(t *testing.T) {
	queries := 0
	c := newDNSChecker(func(_ context.Context, _ string, qtype uint16) ([]dns.RR, *dnsresolver.QueryError) {
		if qtype == dns.TypeMX {
			queries++
			return mxAnswer("mx.example.com."), nil
		}
		return nil, nil
	})

	ctx := context.Background()
	email := parse.NewEmail("user@example.com")
	c.Check(ctx, email)
	c.Check(ctx, email)
	c.Check(ctx, email)

	assert.Equal(t, 1, queries, "repeat lookups must come from the cache")
	stats := c.Stats()
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
}

func TestDNSChecker_TransientNotCachedThenDefinitiveLands(t *testing.T) {
	attempts := 0
	c := newDNSChecker(func(_ context.Context, _ string, qtype uint16) ([]dns.RR, *dnsresolver.QueryError) {
		if qtype != dns.TypeMX {
			return nil, nil
		}
		attempts++
		if attempts <= 2 {
			// Both retry attempts of the first Check fail.
			return nil, &dnsresolver.QueryError{Kind: dnsresolver.ErrKindTimeout}
		}
		return mxAnswer("mx.example.com."), nil
	})

	ctx := context.Background()
	email := parse.NewEmail("user@example.com")

	first := c.Check(ctx, email)
	assert.False(t, first.Passed)
	assert.Equal(t, types.CategoryUnknown, first.Category)

	second := c.Check(ctx, email)
	assert.True(t, second.Passed, "the transient failure must not have been cached")
}

func TestDNSChecker_InvalidEmailSkipped(t *testing.T) {
	c := newDNSChecker(func(_ context.Context, _ string, _ uint16) ([]dns.RR, *dnsresolver.QueryError) {
		t.Fatal("no query expected for an unparseable email")
		return nil, nil
	})

	result := c.Check(context.Background(), parse.NewEmail("not-an-email"))
	assert.False(t, result.Passed)
	assert.Equal(t, types.CategoryInvalid, result.Category)
}
