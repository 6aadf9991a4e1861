// Package tldset maintains the set of valid top-level domains,
// refreshed from the IANA registry on startup with a local-file
// fallback when the fetch fails.
package tldset

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultURL is the IANA registry list, one TLD per line with a
// #-prefixed version header.
const DefaultURL = "https://data.iana.org/TLD/tlds-alpha-by-domain.txt"

// Set is an immutable-after-load membership set of lower-cased TLDs
// plus the registry version string, safe for concurrent readers.
type Set struct {
	mu      sync.RWMutex
	tlds    map[string]struct{}
	version string
}

// Fetch downloads the registry list, caches it to cachePath, and
// returns the parsed set. When the download fails the cached file is
// loaded instead; only when both fail is an error returned.
func Fetch(ctx context.Context, url, cachePath string, log *logrus.Entry) (*Set, error) {
	if url == "" {
		url = DefaultURL
	}

	body, err := download(ctx, url)
	if err != nil {
		if log != nil {
			log.WithError(err).Warn("TLD list download failed, falling back to cached file")
		}
		return Load(cachePath)
	}

	if cachePath != "" {
		if werr := writeCache(cachePath, body); werr != nil && log != nil {
			log.WithError(werr).Warn("could not cache TLD list")
		}
	}

	s := parse(body)
	if log != nil {
		log.WithFields(logrus.Fields{"tlds": s.Len(), "version": s.Version()}).Info("TLD list refreshed")
	}
	return s, nil
}

// Load parses a previously cached registry file.
func Load(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("tldset: load %s: %w", path, err)
	}
	return parse(string(data)), nil
}

// Parse builds a set from registry-format text.
func Parse(content string) *Set {
	return parse(content)
}

func download(ctx context.Context, url string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("tldset: fetch %s: HTTP %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func writeCache(path, content string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, []byte(content), 0o644)
}

func parse(content string) *Set {
	s := &Set{tlds: make(map[string]struct{})}
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			// The IANA header carries the list version.
			if strings.Contains(line, "Version") {
				s.version = strings.TrimSpace(strings.TrimPrefix(line, "#"))
			}
			continue
		}
		s.tlds[strings.ToLower(line)] = struct{}{}
	}
	return s
}

// Contains reports membership of a TLD, case-insensitively. An empty
// set matches nothing.
func (s *Set) Contains(tld string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.tlds[strings.ToLower(tld)]
	return ok
}

// Len returns the number of TLDs in the set.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tlds)
}

// Version returns the registry version header, if one was present.
func (s *Set) Version() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}
