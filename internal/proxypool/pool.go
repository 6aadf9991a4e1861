// Package proxypool rotates a pool of SOCKS5 proxies under a
// per-proxy rate limit and hands out explicit dialers for SMTP
// probing. Proxies are never configured through process-global socket
// state; every connection receives its dialer as an argument.
package proxypool

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/proxy"
)

// ErrNoProxies is returned when the pool is empty.
var ErrNoProxies = errors.New("proxypool: no proxies loaded")

// Entry is one proxy in the rotation. lastUsed is mutated only by the
// pool when the entry is dispensed and is strictly non-decreasing.
type Entry struct {
	Host     string
	Port     int
	Username string
	Password string

	lastUsed time.Time
}

// Addr returns the host:port form of the entry.
func (e *Entry) Addr() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// Pool is a round-robin proxy rotation with a per-proxy rate limit.
type Pool struct {
	mu        sync.Mutex
	proxies   []*Entry
	next      int
	rateLimit time.Duration
	log       *logrus.Entry

	// now is injectable for rate-limiter tests.
	now func() time.Time
}

// New creates a pool from the given entries. rateLimit is the minimum
// interval between two dispensations of the same proxy; zero disables
// rate limiting.
func New(entries []*Entry, rateLimit time.Duration, log *logrus.Entry) *Pool {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = logrus.NewEntry(l)
	}
	return &Pool{
		proxies:   entries,
		rateLimit: rateLimit,
		log:       log,
		now:       time.Now,
	}
}

// Load reads a proxy list file: one proxy per line, either host:port
// or host:port:username:password, with blank lines and # comments
// skipped. A missing file yields an empty (disabled) pool rather than
// an error, matching the optional nature of proxying.
func Load(path string, rateLimit time.Duration, log *logrus.Entry) (*Pool, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(nil, rateLimit, log), nil
		}
		return nil, fmt.Errorf("proxypool: open %s: %w", path, err)
	}
	defer f.Close()

	entries, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("proxypool: parse %s: %w", path, err)
	}
	return New(entries, rateLimit, log), nil
}

// Parse reads proxy entries from a reader. Malformed lines are
// skipped, not fatal.
func Parse(r io.Reader) ([]*Entry, error) {
	var entries []*Entry
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		entry, ok := parseLine(line)
		if !ok {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, scanner.Err()
}

func parseLine(line string) (*Entry, bool) {
	parts := strings.Split(line, ":")
	if len(parts) != 2 && len(parts) != 4 {
		return nil, false
	}
	port, err := strconv.Atoi(parts[1])
	if err != nil || parts[0] == "" || port <= 0 || port > 65535 {
		return nil, false
	}
	entry := &Entry{Host: parts[0], Port: port}
	if len(parts) == 4 {
		entry.Username = parts[2]
		entry.Password = parts[3]
	}
	return entry, true
}

// Enabled reports whether any proxies are loaded.
func (p *Pool) Enabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.proxies) > 0
}

// Count returns the number of loaded proxies.
func (p *Pool) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.proxies)
}

// Next dispenses the next proxy in rotation that is outside its rate
// limit window. When every proxy is rate limited, Next releases the
// pool lock before sleeping until the soonest one frees up, so
// concurrent callers wait in parallel instead of queueing behind a
// single lock holder.
func (p *Pool) Next(ctx context.Context) (*Entry, error) {
	for {
		p.mu.Lock()
		n := len(p.proxies)
		if n == 0 {
			p.mu.Unlock()
			return nil, ErrNoProxies
		}

		now := p.now()
		minWait := time.Duration(-1)
		for i := 0; i < n; i++ {
			idx := (p.next + i) % n
			entry := p.proxies[idx]
			since := now.Sub(entry.lastUsed)
			if since >= p.rateLimit {
				entry.lastUsed = now
				p.next = (idx + 1) % n
				p.mu.Unlock()
				return entry, nil
			}
			if wait := p.rateLimit - since; minWait < 0 || wait < minWait {
				minWait = wait
			}
		}
		// Nothing available: drop the lock before sleeping.
		p.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(minWait):
		}
	}
}

// Dialer returns a SOCKS5 context dialer bound to the next available
// proxy. The dialer is an explicit connection factory passed into the
// SMTP prober: no ambient socket configuration exists that could leak
// into a concurrent plain connection.
func (p *Pool) Dialer(ctx context.Context) (proxy.ContextDialer, error) {
	entry, err := p.Next(ctx)
	if err != nil {
		return nil, err
	}

	var auth *proxy.Auth
	if entry.Username != "" && entry.Password != "" {
		auth = &proxy.Auth{User: entry.Username, Password: entry.Password}
	}

	d, err := proxy.SOCKS5("tcp", entry.Addr(), auth, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("proxypool: socks5 dialer for %s: %w", entry.Addr(), err)
	}

	cd, ok := d.(proxy.ContextDialer)
	if !ok {
		return nil, fmt.Errorf("proxypool: dialer for %s does not support context", entry.Addr())
	}

	p.log.WithField("proxy", entry.Addr()).Debug("proxy dispensed")
	return cd, nil
}
