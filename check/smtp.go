package check

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/ourcaldo/emval/internal/parse"
	"github.com/ourcaldo/emval/internal/proxypool"
	"github.com/ourcaldo/emval/internal/smtpprobe"
	"github.com/ourcaldo/emval/types"
)

// SMTPConfig configures the SMTP stage.
type SMTPConfig struct {
	// CheckCatchAll enables the randomized second probe that detects
	// catch-all domains.
	CheckCatchAll bool

	// Dial overrides the connection factory for direct (unproxied)
	// probes. Nil means a plain net.Dialer. A configured proxy pool
	// always wins over this.
	Dial smtpprobe.DialFunc
}

// SMTPChecker probes the mailbox over SMTP. MX discovery goes through
// the shared DNS checker (and therefore its cache); only the first
// mail exchanger is probed, a deliberate policy since lower-priority
// exchangers regularly behave differently for verification traffic.
type SMTPChecker struct {
	cfg     SMTPConfig
	dns     *DNSChecker
	prober  *smtpprobe.Prober
	proxies *proxypool.Pool
	log     *logrus.Entry

	// dnsGated is true when a DNS stage precedes this one in the
	// pipeline. Without that gate, an unresolvable domain skips the
	// probe and passes under reduced assurance.
	dnsGated bool
}

// NewSMTPChecker creates the stage. proxies may be nil for direct
// connections.
func NewSMTPChecker(cfg SMTPConfig, dns *DNSChecker, prober *smtpprobe.Prober, proxies *proxypool.Pool, log *logrus.Entry) *SMTPChecker {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = logrus.NewEntry(l)
	}
	return &SMTPChecker{cfg: cfg, dns: dns, prober: prober, proxies: proxies, log: log}
}

// SetDNSGated records whether a DNS stage runs before this one.
func (c *SMTPChecker) SetDNSGated(gated bool) { c.dnsGated = gated }

// SetDNS swaps the shared DNS checker used for MX discovery.
func (c *SMTPChecker) SetDNS(dns *DNSChecker) { c.dns = dns }

func (c *SMTPChecker) Check(ctx context.Context, email parse.Email) types.CheckResult {
	if !email.Valid {
		return types.CheckResult{
			Stage:    types.StageSMTP,
			Passed:   false,
			Category: types.CategoryInvalid,
			Details:  "skipped: invalid email",
		}
	}

	out := c.dns.CheckDomain(ctx, email.Domain)
	if !out.HasRecords || len(out.MXHosts) == 0 {
		if !c.dnsGated {
			// Deliverability checking is off and the domain did not
			// resolve: the probe cannot run. The address passes with
			// reduced assurance rather than failing on a check the
			// caller disabled.
			c.log.WithField("domain", email.Domain).Warn("DNS unresolved with deliverability check disabled, SMTP probe skipped")
			return types.CheckResult{
				Stage:   types.StageSMTP,
				Passed:  true,
				Details: "DNS unresolved, SMTP probe skipped",
			}
		}
		return types.CheckResult{
			Stage:    types.StageSMTP,
			Passed:   false,
			Category: types.CategoryUnknown,
			Details:  fmt.Sprintf("MX resolution failed: %s", out.Err),
		}
	}

	mxHost := out.MXHosts[0]

	dial := c.cfg.Dial
	if c.proxies != nil && c.proxies.Enabled() {
		dialer, err := c.proxies.Dialer(ctx)
		if err != nil {
			// Fail safe: never fall back to a direct connection when
			// proxying was requested.
			return types.CheckResult{
				Stage:    types.StageSMTP,
				Passed:   false,
				Category: types.CategoryUnknown,
				Details:  fmt.Sprintf("proxy unavailable: %v", err),
				MXHost:   mxHost,
			}
		}
		dial = dialer.DialContext
	}

	probe := c.prober.Probe(ctx, email.Raw, mxHost, c.cfg.CheckCatchAll, dial)

	cr := types.CheckResult{
		Stage:    types.StageSMTP,
		MXHost:   mxHost,
		SMTPCode: probe.Code,
		Details:  probe.Message,
	}

	switch probe.Status {
	case smtpprobe.StatusValid:
		cr.Passed = true
		cr.Details = "RCPT TO accepted"
	case smtpprobe.StatusCatchAll:
		cr.Category = types.CategoryRisk
	case smtpprobe.StatusInvalid:
		cr.Category = types.CategoryInvalid
	default:
		cr.Category = types.CategoryUnknown
	}
	return cr
}
