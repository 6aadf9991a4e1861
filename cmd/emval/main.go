// Command emval validates a bulk list of email addresses and writes
// the classified results to per-category output files.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ourcaldo/emval"
	"github.com/ourcaldo/emval/internal/config"
	"github.com/ourcaldo/emval/internal/iolayer"
	"github.com/ourcaldo/emval/internal/proxypool"
	"github.com/ourcaldo/emval/internal/tldset"
)

func main() {
	configPath := flag.String("config", "settings.yaml", "path to the YAML settings file")
	inputPath := flag.String("input", "", "input file, one email per line (overrides config)")
	outputDir := flag.String("output", "", "output directory (overrides config)")
	flag.Parse()

	if err := run(*configPath, *inputPath, *outputDir); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(configPath, inputPath, outputDir string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if inputPath != "" {
		cfg.Paths.Input = inputPath
	}
	if outputDir != "" {
		cfg.Paths.OutputDir = outputDir
	}

	log := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	v, err := buildValidator(ctx, cfg, log)
	if err != nil {
		return err
	}

	emails, dupes, err := iolayer.ReadEmails(cfg.Paths.Input)
	if err != nil {
		return err
	}
	if len(emails) == 0 {
		return fmt.Errorf("no emails found in %s", cfg.Paths.Input)
	}
	log.WithFields(logrus.Fields{
		"count":      len(emails),
		"duplicates": dupes,
	}).Info("loaded input")

	start := time.Now()
	results, err := v.ValidateMany(ctx, emails, emval.ConcurrencyOptions{Workers: cfg.Concurrency})
	if err != nil {
		return err
	}
	log.WithField("elapsed", time.Since(start).Round(time.Millisecond)).Info("validation finished")

	writer := iolayer.NewWriter(cfg.Paths.OutputDir, "", logrus.NewEntry(log))
	sum, err := writer.WriteResults(results)
	if err != nil {
		return err
	}
	sum.DuplicatesRemoved = dupes

	iolayer.WriteSummary(os.Stdout, sum, v.CacheStats())
	return nil
}

func buildValidator(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*emval.Validator, error) {
	policy := emval.PolicyStrict
	if cfg.Validation.Policy == "permissive" {
		policy = emval.PolicyPermissive
	}

	tlds, err := tldset.Fetch(ctx, tldset.DefaultURL, cfg.Paths.TLDCache, logrus.NewEntry(log))
	if err != nil {
		log.WithError(err).Warn("TLD registry unavailable, skipping TLD membership check")
		tlds = nil
	}

	v := emval.New(emval.SyntaxOptions{Policy: policy, TLDs: tlds}).
		WithLogger(log).
		WithTimeout(cfg.ItemTimeout()).
		WithDomain(emval.DomainOptions{
			CheckDisposable: cfg.Validation.CheckDisposable,
			CheckTypos:      cfg.Validation.CheckTypos,
			TypoThreshold:   2,
			DisposableFile:  cfg.Paths.DisposableList,
		})

	if cfg.Validation.CheckDNS {
		v = v.WithDNS(emval.DNSOptions{
			Nameservers: cfg.DNS.Nameservers,
			Timeout:     cfg.DNSTimeout(),
			MaxRetries:  cfg.DNS.MaxRetries,
			RetryDelay:  cfg.DNSRetryDelay(),
			CacheSize:   cfg.DNS.CacheSize,
		})
	}

	if cfg.Validation.CheckSMTP {
		var proxies *proxypool.Pool
		if cfg.Proxy.Enabled {
			proxies, err = proxypool.Load(cfg.Proxy.File, cfg.ProxyRateLimit(), logrus.NewEntry(log))
			if err != nil {
				return nil, fmt.Errorf("loading proxies: %w", err)
			}
			log.WithField("count", proxies.Count()).Info("proxy rotation enabled")
		}
		catchAll := cfg.Validation.CheckCatchAll
		v = v.WithSMTP(emval.SMTPOptions{
			HeloDomain:     cfg.SMTP.HeloDomain,
			MailFrom:       cfg.SMTP.MailFrom,
			Port:           cfg.SMTP.Port,
			ConnectTimeout: time.Duration(cfg.SMTP.ConnectTimeout) * time.Second,
			CommandTimeout: time.Duration(cfg.SMTP.CommandTimeout) * time.Second,
			CheckCatchAll:  &catchAll,
			Proxies:        proxies,
		})
	}

	return v, nil
}

func newLogger(cfg *config.Config) *logrus.Logger {
	log := logrus.New()
	level, err := logrus.ParseLevel(cfg.Logger.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	if cfg.Logger.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log
}
