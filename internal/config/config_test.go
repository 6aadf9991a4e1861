package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ourcaldo/emval/internal/config"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Concurrency)
	assert.Equal(t, "strict", cfg.Validation.Policy)
	assert.True(t, cfg.Validation.CheckSMTP)
	assert.Equal(t, "25", cfg.SMTP.Port)
	assert.Equal(t, 10000, cfg.DNS.CacheSize)
	assert.Equal(t, 60*time.Second, cfg.ItemTimeout())
	assert.Equal(t, 500*time.Millisecond, cfg.DNSRetryDelay())
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
concurrency: 20
validation:
  policy: permissive
  check_smtp: false
  timeout_seconds: 30
dns:
  nameservers: ["9.9.9.9:53"]
  cache_size: 50
smtp:
  helo_domain: verifier.example
  mail_from: check@verifier.example
proxy:
  enabled: true
  file: proxies.txt
`), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 20, cfg.Concurrency)
	assert.Equal(t, "permissive", cfg.Validation.Policy)
	assert.False(t, cfg.Validation.CheckSMTP)
	assert.Equal(t, 30*time.Second, cfg.ItemTimeout())
	assert.Equal(t, []string{"9.9.9.9:53"}, cfg.DNS.Nameservers)
	assert.Equal(t, 50, cfg.DNS.CacheSize)
	assert.Equal(t, "verifier.example", cfg.SMTP.HeloDomain)
	assert.True(t, cfg.Proxy.Enabled)
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("concurrency: 20\n"), 0o644))

	t.Setenv("EMVAL_CONCURRENCY", "50")
	t.Setenv("EMVAL_POLICY", "permissive")
	t.Setenv("EMVAL_PROXY_ENABLED", "true")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.Concurrency)
	assert.Equal(t, "permissive", cfg.Validation.Policy)
	assert.True(t, cfg.Proxy.Enabled)
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("concurrency: [not an int\n"), 0o644))

	_, err := config.Load(path)
	assert.Error(t, err)
}
