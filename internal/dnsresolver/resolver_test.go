package dnsresolver

import (
	"context"
	"testing"
	"time"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
)

func mxRecord(host string, pref uint16) dns.RR {
	return &dns.MX{
		Hdr:        dns.RR_Header{Name: "example.com.", Rrtype: dns.TypeMX, Class: dns.ClassINET},
		Preference: pref,
		Mx:         host,
	}
}

func aRecord() dns.RR {
	return &dns.A{Hdr: dns.RR_Header{Name: "example.com.", Rrtype: dns.TypeA, Class: dns.ClassINET}}
}

func testConfig() Config {
	return Config{
		Nameservers: []string{"127.0.0.1:53"},
		Timeout:     time.Second,
		MaxRetries:  3,
		RetryDelay:  time.Millisecond,
	}
}

func TestResolve_MXRecords(t *testing.T) {
	r := NewWithQuery(testConfig(), func(_ context.Context, _ string, qtype uint16) ([]dns.RR, *QueryError) {
		assert.Equal(t, dns.TypeMX, qtype, "MX must be queried first")
		return []dns.RR{
			mxRecord("backup.example.com.", 20),
			mxRecord("primary.example.com.", 10),
		}, nil
	})

	out := r.Resolve(context.Background(), "example.com")
	assert.True(t, out.HasRecords)
	assert.True(t, out.Cacheable)
	assert.Equal(t, []string{"primary.example.com", "backup.example.com"}, out.MXHosts,
		"exchangers sorted by preference, trailing dots trimmed")
}

func TestResolve_InvalidMXNoFallback(t *testing.T) {
	queried := []uint16{}
	r := NewWithQuery(testConfig(), func(_ context.Context, _ string, qtype uint16) ([]dns.RR, *QueryError) {
		queried = append(queried, qtype)
		// Null MX: records exist but carry no usable exchanger.
		return []dns.RR{mxRecord(".", 0)}, nil
	})

	out := r.Resolve(context.Background(), "example.com")
	assert.False(t, out.HasRecords)
	assert.True(t, out.Cacheable)
	assert.Equal(t, "MX records exist but are invalid", out.Err)
	assert.Equal(t, []uint16{dns.TypeMX}, queried, "must not fall back to A when MX exists")
}

func TestResolve_AFallback(t *testing.T) {
	r := NewWithQuery(testConfig(), func(_ context.Context, _ string, qtype uint16) ([]dns.RR, *QueryError) {
		if qtype == dns.TypeA {
			return []dns.RR{aRecord()}, nil
		}
		return nil, nil
	})

	out := r.Resolve(context.Background(), "example.com")
	assert.True(t, out.HasRecords)
	assert.Equal(t, []string{"example.com"}, out.MXHosts, "A fallback uses the domain as implicit MX")
}

func TestResolve_NXDomain(t *testing.T) {
	r := NewWithQuery(testConfig(), func(_ context.Context, _ string, _ uint16) ([]dns.RR, *QueryError) {
		return nil, &QueryError{Kind: ErrKindNXDomain}
	})

	out := r.Resolve(context.Background(), "nosuchdomain.example")
	assert.False(t, out.HasRecords)
	assert.True(t, out.Cacheable, "NXDOMAIN is definitive")
	assert.Equal(t, "domain not found (no DNS records)", out.Err)
}

func TestResolve_NoRecordsAtAll(t *testing.T) {
	r := NewWithQuery(testConfig(), func(_ context.Context, _ string, _ uint16) ([]dns.RR, *QueryError) {
		return nil, nil
	})

	out := r.Resolve(context.Background(), "example.com")
	assert.False(t, out.HasRecords)
	assert.True(t, out.Cacheable)
	assert.Equal(t, "no MX, A, or AAAA records found", out.Err)
}

func TestResolve_TransientRetriesThenFails(t *testing.T) {
	calls := 0
	r := NewWithQuery(testConfig(), func(_ context.Context, _ string, _ uint16) ([]dns.RR, *QueryError) {
		calls++
		return nil, &QueryError{Kind: ErrKindServerFailure, Detail: "SERVFAIL"}
	})

	out := r.Resolve(context.Background(), "example.com")
	assert.False(t, out.HasRecords)
	assert.False(t, out.Cacheable, "transient outcome must not be cacheable")
	assert.Contains(t, out.Err, "temporary")
	assert.Equal(t, 3, calls, "one MX query per attempt")
}

func TestResolve_TransientThenSuccess(t *testing.T) {
	calls := 0
	r := NewWithQuery(testConfig(), func(_ context.Context, _ string, _ uint16) ([]dns.RR, *QueryError) {
		calls++
		if calls == 1 {
			return nil, &QueryError{Kind: ErrKindTimeout}
		}
		return []dns.RR{mxRecord("mx.example.com.", 10)}, nil
	})

	out := r.Resolve(context.Background(), "example.com")
	assert.True(t, out.HasRecords)
	assert.True(t, out.Cacheable)
	assert.Equal(t, 2, calls)
}

func TestResolve_ContextCancelledDuringBackoff(t *testing.T) {
	cfg := testConfig()
	cfg.RetryDelay = time.Hour
	r := NewWithQuery(cfg, func(_ context.Context, _ string, _ uint16) ([]dns.RR, *QueryError) {
		return nil, &QueryError{Kind: ErrKindTimeout}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	out := r.Resolve(ctx, "example.com")
	assert.False(t, out.HasRecords)
	assert.False(t, out.Cacheable)
}

func TestErrKind(t *testing.T) {
	assert.True(t, ErrKindTimeout.Transient())
	assert.True(t, ErrKindServerFailure.Transient())
	assert.True(t, ErrKindMalformed.Transient())
	assert.False(t, ErrKindNXDomain.Transient())
	assert.False(t, ErrKindNoRecords.Transient())
	assert.False(t, ErrKindNone.Transient())
}

func TestMXHosts_MalformedAnswers(t *testing.T) {
	// Mixed answer section with non-MX records must not panic.
	answers := []dns.RR{
		aRecord(),
		mxRecord("mx.example.com.", 5),
		mxRecord("", 1),
	}
	hosts := mxHosts(answers)
	assert.Equal(t, []string{"mx.example.com"}, hosts)
}
