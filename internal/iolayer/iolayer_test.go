package iolayer_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ourcaldo/emval"
	"github.com/ourcaldo/emval/internal/iolayer"
)

func TestReadEmails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "emails.txt")
	require.NoError(t, os.WriteFile(path, []byte(`
user@example.com
  second@example.com

USER@EXAMPLE.COM
third@example.com
second@example.com
`), 0o644))

	emails, dupes, err := iolayer.ReadEmails(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"user@example.com", "second@example.com", "third@example.com"}, emails,
		"dedup is case-insensitive and preserves first-seen order")
	assert.Equal(t, 2, dupes)
}

func TestReadEmails_MissingFile(t *testing.T) {
	_, _, err := iolayer.ReadEmails(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestWriteResults(t *testing.T) {
	dir := t.TempDir()
	w := iolayer.NewWriter(dir, "", nil)

	results := []emval.Result{
		{Email: "a@gmail.com", Category: emval.CategoryValid},
		{Email: "b@gmail.com", Category: emval.CategoryValid},
		{Email: "c@smallbiz.example", Category: emval.CategoryValid},
		{Email: "d@catchall.example", Category: emval.CategoryRisk, Reason: "valid but catch-all enabled (risky)"},
		{Email: "e@nodomain.example", Category: emval.CategoryInvalid, Reason: "domain not found (no DNS records)"},
		{Email: "f@slow.example", Category: emval.CategoryUnknown, Reason: "validation timeout exceeded"},
	}

	sum, err := w.WriteResults(results)
	require.NoError(t, err)

	assert.Equal(t, 3, sum.Valid)
	assert.Equal(t, 1, sum.Risk)
	assert.Equal(t, 1, sum.Invalid)
	assert.Equal(t, 1, sum.Unknown)
	assert.Equal(t, 1, sum.WellKnownFiles)
	assert.Equal(t, 1, sum.OtherValid)

	gmail, err := os.ReadFile(filepath.Join(dir, "valid", "gmail.com.txt"))
	require.NoError(t, err)
	assert.Equal(t, "a@gmail.com\nb@gmail.com\n", string(gmail))

	other, err := os.ReadFile(filepath.Join(dir, "valid", "other.txt"))
	require.NoError(t, err)
	assert.Equal(t, "c@smallbiz.example\n", string(other))

	invalid, err := os.ReadFile(filepath.Join(dir, "invalid.txt"))
	require.NoError(t, err)
	assert.Equal(t, "e@nodomain.example | domain not found (no DNS records) | invalid\n", string(invalid))

	risk, err := os.ReadFile(filepath.Join(dir, "risk.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(risk), "d@catchall.example")

	unknown, err := os.ReadFile(filepath.Join(dir, "unknown.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(unknown), "f@slow.example")
}

func TestWriteResults_EmptyCategoriesWriteNoFiles(t *testing.T) {
	dir := t.TempDir()
	w := iolayer.NewWriter(dir, "", nil)

	_, err := w.WriteResults([]emval.Result{
		{Email: "a@gmail.com", Category: emval.CategoryValid},
	})
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "invalid.txt"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, "valid", "other.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestNewWriter_CustomWellKnown(t *testing.T) {
	dir := t.TempDir()
	wkPath := filepath.Join(dir, "wellknown.txt")
	require.NoError(t, os.WriteFile(wkPath, []byte("# providers\nonly.example\n"), 0o644))

	w := iolayer.NewWriter(dir, wkPath, nil)

	sum, err := w.WriteResults([]emval.Result{
		{Email: "a@only.example", Category: emval.CategoryValid},
		{Email: "b@gmail.com", Category: emval.CategoryValid},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, sum.WellKnownFiles)
	assert.Equal(t, 1, sum.OtherValid, "gmail.com is not well-known once the file replaces the defaults")
}

func TestWriteSummary(t *testing.T) {
	var buf bytes.Buffer
	iolayer.WriteSummary(&buf, iolayer.Summary{
		Total: 10, Valid: 6, Risk: 1, Invalid: 2, Unknown: 1,
		WellKnownFiles: 2, OtherValid: 1, DuplicatesRemoved: 3,
	}, emval.CacheStats{Hits: 7, Misses: 3, CurrSize: 3, MaxSize: 100})

	out := buf.String()
	assert.Contains(t, out, "Processed 10 emails (3 duplicates removed)")
	assert.Contains(t, out, "valid:   6")
	assert.Contains(t, out, "DNS cache: 7 hits, 3 misses, 3/100 entries")
}
