// Package disposable detects known disposable/temporary email
// domains. The embedded default list can be replaced or extended from
// a plaintext file at runtime.
package disposable

import (
	"bufio"
	"io"
	"os"
	"strings"
	"sync"
)

// Checker is a reloadable membership set of disposable domains.
// Matching covers the exact domain and every right-hand parent
// suffix: a listed tempmail.com blocks anything.tempmail.com too.
type Checker struct {
	mu      sync.RWMutex
	domains map[string]struct{}
}

// New returns a checker seeded with the embedded default list.
func New() *Checker {
	return &Checker{domains: defaultSet()}
}

// NewFromFile returns a checker loaded from a plaintext file, one
// domain per line, # comments skipped. A missing file yields the
// embedded default list.
func NewFromFile(path string) (*Checker, error) {
	c := New()
	if path == "" {
		return c, nil
	}
	if err := c.ReloadFile(path); err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, err
	}
	return c, nil
}

// ReloadFile replaces the domain set with the contents of path.
func (c *Checker) ReloadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return c.Reload(f)
}

// Reload replaces the domain set with the contents of r.
func (c *Checker) Reload(r io.Reader) error {
	set := make(map[string]struct{})
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		set[line] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	c.domains = set
	c.mu.Unlock()
	return nil
}

// IsDisposable reports whether a domain or any of its parent domains
// is in the set. Never errors: an empty domain or empty set is simply
// not disposable.
func (c *Checker) IsDisposable(domain string) bool {
	domain = strings.ToLower(strings.TrimSpace(domain))
	if domain == "" {
		return false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.domains) == 0 {
		return false
	}

	for {
		if _, ok := c.domains[domain]; ok {
			return true
		}
		i := strings.Index(domain, ".")
		if i < 0 {
			return false
		}
		domain = domain[i+1:]
	}
}

// Count returns the number of loaded domains.
func (c *Checker) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.domains)
}
