// Package smtpprobe verifies mailbox existence by speaking just
// enough SMTP to a mail exchanger: EHLO (with opportunistic
// STARTTLS), MAIL FROM, and RCPT TO for the real address plus a
// randomized probe address for catch-all detection. No mail is ever
// sent.
package smtpprobe

import (
	"bufio"
	"context"
	"crypto/rand"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Status classifies a single probe.
type Status string

const (
	StatusValid    Status = "valid"
	StatusInvalid  Status = "invalid"
	StatusUnknown  Status = "unknown"
	StatusCatchAll Status = "catch-all"
)

// Outcome is the structured result of one probe. Probing never
// returns a bare error; every failure path yields an Outcome with
// StatusUnknown and the error text. Outcomes are never cached: SMTP
// state is live and server-dependent.
type Outcome struct {
	Status   Status
	Code     int
	Message  string
	CatchAll bool
}

// DialFunc produces the TCP connection for a probe. It is passed
// explicitly per probe: a SOCKS5 dialer from the proxy pool, or a
// plain net.Dialer. No global socket configuration is involved.
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// Config configures the prober.
type Config struct {
	// HeloDomain is the domain sent in EHLO. Required.
	HeloDomain string
	// MailFrom is the address sent in MAIL FROM. Required.
	MailFrom string
	// Port is the SMTP port. Default "25".
	Port string
	// ConnectTimeout bounds connection establishment. Default 5s.
	ConnectTimeout time.Duration
	// CommandTimeout bounds each command round trip. Default 10s.
	CommandTimeout time.Duration
	// TLSConfig overrides the client configuration used after a
	// STARTTLS upgrade. Nil verifies against the MX host name.
	TLSConfig *tls.Config
	// Logger for debug output. Nil means discard.
	Logger *logrus.Entry
}

// Prober runs RCPT TO probes against mail exchangers.
type Prober struct {
	cfg Config
	log *logrus.Entry
}

// New creates a prober with the given configuration.
func New(cfg Config) *Prober {
	if cfg.Port == "" {
		cfg.Port = "25"
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 5 * time.Second
	}
	if cfg.CommandTimeout == 0 {
		cfg.CommandTimeout = 10 * time.Second
	}
	log := cfg.Logger
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = logrus.NewEntry(l)
	}
	return &Prober{cfg: cfg, log: log}
}

// Probe validates a mailbox against one mail exchanger. When
// checkCatchAll is true and the real address is accepted, a second
// RCPT TO with a randomized local part decides whether the domain
// accepts anything. No retries happen here; retrying is the caller's
// policy.
func (p *Prober) Probe(ctx context.Context, email, mxHost string, checkCatchAll bool, dial DialFunc) Outcome {
	if dial == nil {
		d := &net.Dialer{Timeout: p.cfg.ConnectTimeout}
		dial = d.DialContext
	}

	dialCtx, cancel := context.WithTimeout(ctx, p.cfg.ConnectTimeout)
	defer cancel()

	conn, err := dial(dialCtx, "tcp", net.JoinHostPort(mxHost, p.cfg.Port))
	if err != nil {
		return Outcome{Status: StatusUnknown, Message: fmt.Sprintf("connection failed: %v", err)}
	}

	s := &session{conn: conn, timeout: p.cfg.CommandTimeout}
	s.reset(conn)
	defer s.close()

	if err := p.handshake(s, mxHost); err != nil {
		return Outcome{Status: StatusUnknown, Message: fmt.Sprintf("SMTP handshake failed: %v", err)}
	}

	code, msg, err := s.command(fmt.Sprintf("MAIL FROM:<%s>", p.cfg.MailFrom))
	if err != nil {
		return Outcome{Status: StatusUnknown, Message: fmt.Sprintf("MAIL FROM failed: %v", err)}
	}
	if code != 250 {
		return Outcome{Status: StatusUnknown, Code: code, Message: fmt.Sprintf("MAIL FROM rejected: %s", msg)}
	}

	code, msg, err = s.command(fmt.Sprintf("RCPT TO:<%s>", email))
	if err != nil {
		return Outcome{Status: StatusUnknown, Message: fmt.Sprintf("RCPT TO failed: %v", err)}
	}

	out := classifyRCPT(code, msg)
	if out.Status != StatusValid {
		return out
	}

	if at := strings.LastIndex(email, "@"); checkCatchAll && at >= 0 {
		domain := email[at+1:]
		probeAddr := randomProbeAddress(domain)

		probeCode, _, err := s.command(fmt.Sprintf("RCPT TO:<%s>", probeAddr))
		if err != nil {
			// The real address was already accepted; an aborted
			// catch-all probe leaves that verdict ambiguous.
			return Outcome{Status: StatusUnknown, Code: code, Message: fmt.Sprintf("catch-all probe failed: %v", err)}
		}
		if probeCode == 250 || probeCode == 251 {
			p.log.WithField("domain", domain).Debug("catch-all detected, random probe accepted")
			return Outcome{Status: StatusCatchAll, Code: code, Message: "valid but catch-all enabled (risky)", CatchAll: true}
		}
	}

	return out
}

// handshake reads the banner, sends EHLO and upgrades to TLS when the
// server advertises STARTTLS, re-issuing EHLO on the secured channel.
func (p *Prober) handshake(s *session, mxHost string) error {
	code, _, msg, err := s.read()
	if err != nil {
		return fmt.Errorf("read banner: %w", err)
	}
	if code != 220 {
		return fmt.Errorf("unexpected banner %d %s", code, msg)
	}

	code, lines, msg, err := s.commandLines("EHLO " + p.cfg.HeloDomain)
	if err != nil {
		return fmt.Errorf("EHLO: %w", err)
	}
	if code != 250 {
		return fmt.Errorf("EHLO rejected: %d %s", code, msg)
	}

	if !advertisesSTARTTLS(lines) {
		return nil
	}

	code, _, msg, err = s.commandRaw("STARTTLS")
	if err != nil {
		return fmt.Errorf("STARTTLS: %w", err)
	}
	if code != 220 {
		return fmt.Errorf("STARTTLS rejected: %d %s", code, msg)
	}

	tlsCfg := &tls.Config{ServerName: mxHost}
	if p.cfg.TLSConfig != nil {
		tlsCfg = p.cfg.TLSConfig.Clone()
		if tlsCfg.ServerName == "" {
			tlsCfg.ServerName = mxHost
		}
	}
	tlsConn := tls.Client(s.conn, tlsCfg)
	if err := tlsConn.Handshake(); err != nil {
		return fmt.Errorf("TLS handshake: %w", err)
	}
	s.reset(tlsConn)

	code, _, msg, err = s.commandLines("EHLO " + p.cfg.HeloDomain)
	if err != nil {
		return fmt.Errorf("EHLO after STARTTLS: %w", err)
	}
	if code != 250 {
		return fmt.Errorf("EHLO after STARTTLS rejected: %d %s", code, msg)
	}
	return nil
}

// classifyRCPT maps an RCPT TO response code onto a probe status.
// Soft failures and ambiguous codes are never interpreted as a
// mailbox verdict.
func classifyRCPT(code int, msg string) Outcome {
	switch code {
	case 250, 251:
		return Outcome{Status: StatusValid, Code: code, Message: msg}
	case 550, 551, 553:
		return Outcome{Status: StatusInvalid, Code: code, Message: msg}
	case 552:
		return Outcome{Status: StatusInvalid, Code: code, Message: "mailbox full: " + msg}
	case 450, 451, 452, 421:
		return Outcome{Status: StatusUnknown, Code: code, Message: "temporary error: " + msg}
	case 252:
		return Outcome{Status: StatusUnknown, Code: code, Message: "ambiguous response: " + msg}
	default:
		return Outcome{Status: StatusUnknown, Code: code, Message: fmt.Sprintf("unexpected code %d: %s", code, msg)}
	}
}

const probeAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// randomProbeAddress builds a never-issued address at the given
// domain for catch-all detection.
func randomProbeAddress(domain string) string {
	var sb strings.Builder
	sb.WriteString("verify")
	for i := 0; i < 20; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(probeAlphabet))))
		if err != nil {
			// crypto/rand failure is effectively unreachable; fall
			// back to a fixed character rather than aborting a probe.
			sb.WriteByte('x')
			continue
		}
		sb.WriteByte(probeAlphabet[n.Int64()])
	}
	sb.WriteByte('@')
	sb.WriteString(domain)
	return sb.String()
}

// session is a minimal SMTP client connection.
type session struct {
	conn    net.Conn
	reader  *bufio.Reader
	writer  *bufio.Writer
	timeout time.Duration
}

// reset rebinds the buffered reader/writer, used after a TLS upgrade.
func (s *session) reset(conn net.Conn) {
	s.conn = conn
	s.reader = bufio.NewReader(conn)
	s.writer = bufio.NewWriter(conn)
}

// command sends one SMTP command and returns the response code and
// joined message.
func (s *session) command(cmd string) (int, string, error) {
	code, _, msg, err := s.commandRaw(cmd)
	return code, msg, err
}

// commandLines additionally returns the individual response lines,
// needed for EHLO extension detection.
func (s *session) commandLines(cmd string) (int, []string, string, error) {
	return s.commandRaw(cmd)
}

func (s *session) commandRaw(cmd string) (int, []string, string, error) {
	if err := s.conn.SetDeadline(time.Now().Add(s.timeout)); err != nil {
		return 0, nil, "", fmt.Errorf("set deadline: %w", err)
	}
	if _, err := s.writer.WriteString(cmd + "\r\n"); err != nil {
		return 0, nil, "", err
	}
	if err := s.writer.Flush(); err != nil {
		return 0, nil, "", err
	}
	return s.read()
}

// read consumes a (possibly multi-line) SMTP response.
func (s *session) read() (int, []string, string, error) {
	if err := s.conn.SetDeadline(time.Now().Add(s.timeout)); err != nil {
		return 0, nil, "", fmt.Errorf("set deadline: %w", err)
	}

	var lines []string
	for {
		line, err := s.reader.ReadString('\n')
		if err != nil {
			return 0, nil, "", fmt.Errorf("read response: %w", err)
		}
		line = strings.TrimRight(line, "\r\n")
		if len(line) < 3 {
			return 0, nil, "", errors.New("response line too short")
		}
		lines = append(lines, line)
		// The 4th character is '-' on every line but the last.
		if len(line) < 4 || line[3] != '-' {
			break
		}
	}

	last := lines[len(lines)-1]
	var code int
	if _, err := fmt.Sscanf(last[:3], "%d", &code); err != nil {
		return 0, nil, "", fmt.Errorf("invalid response code %q: %w", last[:3], err)
	}
	return code, lines, strings.Join(lines, " | "), nil
}

// close terminates the session, sending a best-effort QUIT first.
func (s *session) close() {
	_ = s.conn.SetDeadline(time.Now().Add(2 * time.Second))
	_, _ = s.writer.WriteString("QUIT\r\n")
	_ = s.writer.Flush()
	_ = s.conn.Close()
}

// advertisesSTARTTLS scans EHLO response lines for the STARTTLS
// extension keyword.
func advertisesSTARTTLS(lines []string) bool {
	for _, line := range lines {
		if len(line) < 4 {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(line[4:]), "STARTTLS") {
			return true
		}
	}
	return false
}
