// Package iolayer handles bulk input and output for the CLI: reading
// and deduplicating address lists, and writing classified results
// grouped by provider.
package iolayer

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ourcaldo/emval"
)

// defaultWellKnown are the providers that get a dedicated output file.
var defaultWellKnown = []string{
	"gmail.com",
	"googlemail.com",
	"yahoo.com",
	"yahoo.co.uk",
	"hotmail.com",
	"outlook.com",
	"live.com",
	"msn.com",
	"aol.com",
	"icloud.com",
	"me.com",
	"protonmail.com",
	"proton.me",
	"zoho.com",
	"gmx.com",
	"gmx.de",
	"mail.com",
	"yandex.ru",
	"yandex.com",
}

// ReadEmails loads one address per line, trims whitespace, skips
// blanks and deduplicates case-insensitively while preserving input
// order. Returns the unique addresses and the number of duplicates
// dropped.
func ReadEmails(path string) ([]string, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	return readEmails(f)
}

func readEmails(r io.Reader) ([]string, int, error) {
	seen := make(map[string]struct{})
	var unique []string
	dupes := 0

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		key := strings.ToLower(line)
		if _, ok := seen[key]; ok {
			dupes++
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("reading input: %w", err)
	}
	return unique, dupes, nil
}

// Summary counts the written results.
type Summary struct {
	Total             int
	Valid             int
	Risk              int
	Invalid           int
	Unknown           int
	WellKnownFiles    int
	OtherValid        int
	DuplicatesRemoved int
}

// Writer persists classified results under OutputDir:
//
//	valid/<provider>.txt   well-known providers, one file each
//	valid/other.txt        every other valid address
//	risk.txt               catch-all and similar downgrades
//	invalid.txt            definitive rejections with reasons
//	unknown.txt            inconclusive results with reasons
type Writer struct {
	OutputDir string
	WellKnown map[string]struct{}
	Log       *logrus.Entry
}

// NewWriter creates a Writer with the default well-known provider
// set. wellKnownFile optionally replaces the defaults, one domain per
// line; a missing file keeps the defaults.
func NewWriter(outputDir, wellKnownFile string, log *logrus.Entry) *Writer {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = logrus.NewEntry(l)
	}
	w := &Writer{
		OutputDir: outputDir,
		WellKnown: make(map[string]struct{}, len(defaultWellKnown)),
		Log:       log,
	}
	for _, d := range defaultWellKnown {
		w.WellKnown[d] = struct{}{}
	}
	if wellKnownFile != "" {
		if err := w.loadWellKnown(wellKnownFile); err != nil {
			log.WithError(err).WithField("file", wellKnownFile).Warn("well-known domains file not loaded, using defaults")
		}
	}
	return w
}

func (w *Writer) loadWellKnown(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	set := make(map[string]struct{})
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		d := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if d == "" || strings.HasPrefix(d, "#") {
			continue
		}
		set[d] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	w.WellKnown = set
	w.Log.WithField("count", len(set)).Info("loaded well-known domains")
	return nil
}

// WriteResults writes every result to its category file and returns
// the tally.
func (w *Writer) WriteResults(results []emval.Result) (Summary, error) {
	sum := Summary{Total: len(results)}

	validDir := filepath.Join(w.OutputDir, "valid")
	if err := os.MkdirAll(validDir, 0o755); err != nil {
		return sum, fmt.Errorf("creating %s: %w", validDir, err)
	}

	byProvider := make(map[string][]string)
	var otherValid []string
	var risk, invalid, unknown []emval.Result

	for _, r := range results {
		switch r.Category {
		case emval.CategoryValid:
			sum.Valid++
			domain := domainOf(r.Email)
			if _, ok := w.WellKnown[domain]; ok {
				byProvider[domain] = append(byProvider[domain], r.Email)
			} else {
				otherValid = append(otherValid, r.Email)
			}
		case emval.CategoryRisk:
			sum.Risk++
			risk = append(risk, r)
		case emval.CategoryInvalid:
			sum.Invalid++
			invalid = append(invalid, r)
		default:
			sum.Unknown++
			unknown = append(unknown, r)
		}
	}

	for domain, emails := range byProvider {
		path := filepath.Join(validDir, sanitizeDomainFilename(domain)+".txt")
		if err := writeLines(path, emails); err != nil {
			return sum, err
		}
		w.Log.WithFields(logrus.Fields{"file": path, "count": len(emails)}).Info("wrote provider file")
	}
	sum.WellKnownFiles = len(byProvider)

	if len(otherValid) > 0 {
		if err := writeLines(filepath.Join(validDir, "other.txt"), otherValid); err != nil {
			return sum, err
		}
	}
	sum.OtherValid = len(otherValid)

	for name, group := range map[string][]emval.Result{
		"risk.txt":    risk,
		"invalid.txt": invalid,
		"unknown.txt": unknown,
	} {
		if len(group) == 0 {
			continue
		}
		if err := writeReasons(filepath.Join(w.OutputDir, name), group); err != nil {
			return sum, err
		}
	}

	return sum, nil
}

func domainOf(email string) string {
	if at := strings.LastIndex(email, "@"); at >= 0 {
		return strings.ToLower(email[at+1:])
	}
	return ""
}

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9.-]`)

// sanitizeDomainFilename makes a domain safe to use as a file name.
func sanitizeDomainFilename(domain string) string {
	safe := unsafeFilenameChars.ReplaceAllString(domain, "_")
	safe = strings.Trim(safe, ".-")
	if safe == "" {
		safe = "unknown"
	}
	return safe
}

func writeLines(path string, emails []string) error {
	sorted := make([]string, len(emails))
	copy(sorted, emails)
	sort.Strings(sorted)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	for _, e := range sorted {
		fmt.Fprintln(bw, e)
	}
	return bw.Flush()
}

func writeReasons(path string, results []emval.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	for _, r := range results {
		fmt.Fprintf(bw, "%s | %s | %s\n", r.Email, r.Reason, r.Category)
	}
	return bw.Flush()
}

// WriteSummary prints the run tally and cache counters.
func WriteSummary(out io.Writer, sum Summary, stats emval.CacheStats) {
	fmt.Fprintf(out, "\nProcessed %d emails (%d duplicates removed)\n", sum.Total, sum.DuplicatesRemoved)
	fmt.Fprintf(out, "  valid:   %d (%d provider files, %d other)\n", sum.Valid, sum.WellKnownFiles, sum.OtherValid)
	fmt.Fprintf(out, "  risk:    %d\n", sum.Risk)
	fmt.Fprintf(out, "  invalid: %d\n", sum.Invalid)
	fmt.Fprintf(out, "  unknown: %d\n", sum.Unknown)
	if stats.MaxSize > 0 {
		fmt.Fprintf(out, "DNS cache: %d hits, %d misses, %d/%d entries\n",
			stats.Hits, stats.Misses, stats.CurrSize, stats.MaxSize)
	}
}
