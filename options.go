package emval

import (
	"time"

	"github.com/ourcaldo/emval/internal/proxypool"
	"github.com/ourcaldo/emval/internal/tldset"
)

// SyntaxOptions configures the always-on syntax stage.
type SyntaxOptions struct {
	// Policy selects the grammar. Default: PolicyStrict.
	Policy Policy
	// TLDs is the registry set for final-label membership checks.
	// Nil skips the membership test.
	TLDs *tldset.Set
}

func defaultSyntaxOptions() SyntaxOptions {
	return SyntaxOptions{Policy: PolicyStrict}
}

// DomainOptions configures the disposable/typo stage.
type DomainOptions struct {
	// CheckDisposable rejects known disposable domains. Default: true.
	CheckDisposable bool
	// DisposableFile optionally replaces the embedded disposable list
	// with a plaintext file, one domain per line.
	DisposableFile string
	// CheckTypos suggests corrections for close-match provider
	// domains. Never fails an email. Default: true.
	CheckTypos bool
	// TypoThreshold is the Levenshtein distance bound. Default: 2.
	TypoThreshold int
}

func defaultDomainOptions() DomainOptions {
	return DomainOptions{
		CheckDisposable: true,
		CheckTypos:      true,
		TypoThreshold:   2,
	}
}

// DNSOptions configures the DNS deliverability stage.
type DNSOptions struct {
	// Nameservers to query (host:port). Empty uses the system
	// resolvers.
	Nameservers []string
	// Timeout per query exchange. Default: 5s.
	Timeout time.Duration
	// MaxRetries for transient failures. Default: 3.
	MaxRetries int
	// RetryDelay is the base exponential-backoff delay. Default: 500ms.
	RetryDelay time.Duration
	// CacheSize bounds the shared definitive-outcome cache.
	// Default: 10000.
	CacheSize int
}

func defaultDNSOptions() DNSOptions {
	return DNSOptions{
		Timeout:    5 * time.Second,
		MaxRetries: 3,
		RetryDelay: 500 * time.Millisecond,
		CacheSize:  10000,
	}
}

// SMTPOptions configures the SMTP probe stage.
type SMTPOptions struct {
	// HeloDomain is the domain sent in EHLO. Required.
	HeloDomain string
	// MailFrom is the address sent in MAIL FROM. Required.
	MailFrom string
	// Port is the SMTP port. Default: "25".
	Port string
	// ConnectTimeout bounds connection establishment. Default: 5s.
	ConnectTimeout time.Duration
	// CommandTimeout bounds each command round trip. Default: 10s.
	CommandTimeout time.Duration
	// CheckCatchAll enables the randomized catch-all probe.
	// Default: true.
	CheckCatchAll *bool
	// Proxies optionally routes probes through rotating SOCKS5
	// proxies.
	Proxies *proxypool.Pool
}

// ConcurrencyOptions configures ValidateMany.
type ConcurrencyOptions struct {
	// Workers is the number of concurrent goroutines. Default: 5.
	Workers int
}
