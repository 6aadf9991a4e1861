// Package config loads bulk-validation settings from a YAML file with
// environment-variable overrides. A .env file next to the binary is
// picked up automatically.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"gopkg.in/yaml.v3"
)

// Config is the full settings tree for the emval CLI.
type Config struct {
	Concurrency int `yaml:"concurrency"`
	BatchSize   int `yaml:"batch_size"`

	Validation struct {
		Policy          string `yaml:"policy"` // strict or permissive
		CheckDisposable bool   `yaml:"check_disposable"`
		CheckTypos      bool   `yaml:"check_typos"`
		CheckDNS        bool   `yaml:"check_dns"`
		CheckSMTP       bool   `yaml:"check_smtp"`
		CheckCatchAll   bool   `yaml:"check_catch_all"`
		TimeoutSeconds  int    `yaml:"timeout_seconds"` // per email, 0 disables
	} `yaml:"validation"`

	DNS struct {
		Nameservers []string `yaml:"nameservers"`
		TimeoutSecs int      `yaml:"timeout_seconds"`
		MaxRetries  int      `yaml:"max_retries"`
		RetryDelay  int      `yaml:"retry_delay_ms"`
		CacheSize   int      `yaml:"cache_size"`
	} `yaml:"dns"`

	SMTP struct {
		HeloDomain     string `yaml:"helo_domain"`
		MailFrom       string `yaml:"mail_from"`
		Port           string `yaml:"port"`
		ConnectTimeout int    `yaml:"connect_timeout_seconds"`
		CommandTimeout int    `yaml:"command_timeout_seconds"`
	} `yaml:"smtp"`

	Proxy struct {
		Enabled     bool   `yaml:"enabled"`
		File        string `yaml:"file"`
		RateLimitMS int    `yaml:"rate_limit_ms"`
	} `yaml:"proxy"`

	Paths struct {
		Input          string `yaml:"input"`
		OutputDir      string `yaml:"output_dir"`
		DisposableList string `yaml:"disposable_list"`
		TLDCache       string `yaml:"tld_cache"`
	} `yaml:"paths"`

	Logger struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"` // text or json
	} `yaml:"logger"`
}

// Default returns the settings used when no file or overrides are
// present.
func Default() *Config {
	cfg := &Config{}
	cfg.Concurrency = 5
	cfg.BatchSize = 1000
	cfg.Validation.Policy = "strict"
	cfg.Validation.CheckDisposable = true
	cfg.Validation.CheckTypos = true
	cfg.Validation.CheckDNS = true
	cfg.Validation.CheckSMTP = true
	cfg.Validation.CheckCatchAll = true
	cfg.Validation.TimeoutSeconds = 60
	cfg.DNS.TimeoutSecs = 5
	cfg.DNS.MaxRetries = 3
	cfg.DNS.RetryDelay = 500
	cfg.DNS.CacheSize = 10000
	cfg.SMTP.Port = "25"
	cfg.SMTP.ConnectTimeout = 5
	cfg.SMTP.CommandTimeout = 10
	cfg.Proxy.RateLimitMS = 1000
	cfg.Paths.Input = "emails.txt"
	cfg.Paths.OutputDir = "results"
	cfg.Paths.TLDCache = "tlds-alpha-by-domain.txt"
	cfg.Logger.Level = "info"
	cfg.Logger.Format = "text"
	return cfg
}

// Load reads the YAML settings file at path, then applies environment
// overrides. A missing file is not an error; defaults apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv overlays EMVAL_* environment variables on the loaded
// settings. The .env autoload makes these usable without exporting.
func (c *Config) applyEnv() {
	c.Concurrency = getInt("EMVAL_CONCURRENCY", c.Concurrency)
	c.Validation.Policy = getOrDefault("EMVAL_POLICY", c.Validation.Policy)
	c.SMTP.HeloDomain = getOrDefault("EMVAL_HELO_DOMAIN", c.SMTP.HeloDomain)
	c.SMTP.MailFrom = getOrDefault("EMVAL_MAIL_FROM", c.SMTP.MailFrom)
	c.Proxy.File = getOrDefault("EMVAL_PROXY_FILE", c.Proxy.File)
	if v, ok := os.LookupEnv("EMVAL_PROXY_ENABLED"); ok {
		c.Proxy.Enabled = v == "true" || v == "1"
	}
	c.Paths.Input = getOrDefault("EMVAL_INPUT", c.Paths.Input)
	c.Paths.OutputDir = getOrDefault("EMVAL_OUTPUT_DIR", c.Paths.OutputDir)
	c.Logger.Level = getOrDefault("EMVAL_LOG_LEVEL", c.Logger.Level)
}

// ItemTimeout converts the per-email bound to a duration.
func (c *Config) ItemTimeout() time.Duration {
	return time.Duration(c.Validation.TimeoutSeconds) * time.Second
}

// DNSTimeout converts the per-query bound to a duration.
func (c *Config) DNSTimeout() time.Duration {
	return time.Duration(c.DNS.TimeoutSecs) * time.Second
}

// DNSRetryDelay converts the base backoff to a duration.
func (c *Config) DNSRetryDelay() time.Duration {
	return time.Duration(c.DNS.RetryDelay) * time.Millisecond
}

// ProxyRateLimit converts the per-proxy reuse gap to a duration.
func (c *Config) ProxyRateLimit() time.Duration {
	return time.Duration(c.Proxy.RateLimitMS) * time.Millisecond
}

func getOrDefault(variable, def string) string {
	result, ok := os.LookupEnv(variable)
	if !ok || result == "" {
		return def
	}
	return result
}

func getInt(variable string, def int) int {
	result, ok := os.LookupEnv(variable)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(result)
	if err != nil {
		return def
	}
	return n
}
