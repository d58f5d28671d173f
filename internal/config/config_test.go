package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/myspacecornelius/leadscout/internal/adapter"
)

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
server:
  enabled: true
  port: 9090
logging:
  development: false
  level: debug
vertical:
  dir: profiles
  slug: pe
fetch:
  concurrency: 12
  request_timeout: 30s
  per_domain_rps: 2
browser:
  max_concurrency: 3
  page_timeout: 60s
  headless: false
crawler:
  targets_file: seeds/funds.csv
  max_concurrent: 4
  domain_timeout: 2m
  max_team_pages: 8
stealth:
  speed_factor: 1.5
  proxy:
    enabled: true
    mode: per_site
    host: proxy.example.com
    port: 8000
sites:
  - name: openvc
    adapter: openvc
    url: https://openvc.app/investors
    pagination:
      type: numbered_pages
      max_pages: 10
enrich:
  enable_dorking: false
  smtp:
    hello_domain: example.com
    timeout: 5s
score:
  tiers:
    hot: 85
state:
  backend: sqlite
  path: data/state.db
  stale_days: 14
output:
  dir: exports
  xlsx: false
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 || !cfg.Server.Enabled {
		t.Fatalf("expected status server on :9090, got %+v", cfg.Server)
	}
	if cfg.Vertical.Slug != "pe" || cfg.Vertical.Dir != "profiles" {
		t.Fatalf("expected vertical override to apply, got %+v", cfg.Vertical)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("expected log level override, got %+v", cfg.Logging)
	}
	if cfg.Fetch.Concurrency != 12 || cfg.Fetch.RequestTimeout != 30*time.Second {
		t.Fatalf("expected fetch overrides to apply, got %+v", cfg.Fetch)
	}
	if cfg.Crawler.DomainTimeout != 2*time.Minute {
		t.Fatalf("expected domain timeout 2m, got %v", cfg.Crawler.DomainTimeout)
	}
	if !cfg.Stealth.Proxy.Enabled || cfg.Stealth.Proxy.Host != "proxy.example.com" {
		t.Fatalf("expected proxy overrides to apply, got %+v", cfg.Stealth.Proxy)
	}
	if len(cfg.Sites) != 1 || cfg.Sites[0].Name != "openvc" {
		t.Fatalf("expected one site, got %+v", cfg.Sites)
	}
	if cfg.Sites[0].Pagination.MaxPages != 10 {
		t.Fatalf("expected pagination override, got %+v", cfg.Sites[0].Pagination)
	}
	if cfg.Enrich.EnableDorking {
		t.Fatalf("expected dorking disabled")
	}
	if cfg.Enrich.SMTP.HelloDomain != "example.com" || cfg.Enrich.SMTP.Timeout != 5*time.Second {
		t.Fatalf("expected smtp overrides to apply, got %+v", cfg.Enrich.SMTP)
	}
	if cfg.Score.Tiers.Hot != 85 || cfg.Score.Tiers.Warm != 60 {
		t.Fatalf("expected tier override with defaulted warm, got %+v", cfg.Score.Tiers)
	}
	if cfg.State.Backend != "sqlite" || cfg.State.StaleDays != 14 {
		t.Fatalf("expected sqlite state backend, got %+v", cfg.State)
	}
	if cfg.Output.Dir != "exports" || cfg.Output.XLSX {
		t.Fatalf("expected output overrides to apply, got %+v", cfg.Output)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Fetch.Concurrency != 8 || cfg.Fetch.RequestTimeout != 20*time.Second {
		t.Fatalf("unexpected fetch defaults: %+v", cfg.Fetch)
	}
	if !cfg.Browser.Headless || cfg.Browser.MaxConcurrency != 2 {
		t.Fatalf("unexpected browser defaults: %+v", cfg.Browser)
	}
	if cfg.State.Backend != "" || cfg.State.StaleDays != 7 {
		t.Fatalf("unexpected state defaults: %+v", cfg.State)
	}
	if !cfg.Enrich.EnableSMTP {
		t.Fatalf("expected smtp verification on by default")
	}
	if cfg.Vertical.Slug != "vc" {
		t.Fatalf("unexpected vertical default: %+v", cfg.Vertical)
	}
	if cfg.Enrich.Concurrency != 4 {
		t.Fatalf("unexpected enrich concurrency default: %+v", cfg.Enrich.Concurrency)
	}
	if cfg.Crawler.MaxPortfolioPages != 2 {
		t.Fatalf("unexpected portfolio page default: %+v", cfg.Crawler.MaxPortfolioPages)
	}
}

// Zero browser concurrency is a deliberate off switch, not a misconfiguration.
func TestConfigValidateAllowsDisabledBrowser(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	cfg.Browser.MaxConcurrency = 0
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	base, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{
			name:   "server port",
			mutate: func(c *Config) { c.Server.Enabled = true; c.Server.Port = 0 },
			want:   "server.port",
		},
		{
			name:   "fetch concurrency",
			mutate: func(c *Config) { c.Fetch.Concurrency = 0 },
			want:   "fetch.concurrency",
		},
		{
			name:   "domain timeout",
			mutate: func(c *Config) { c.Crawler.DomainTimeout = 0 },
			want:   "crawler.domain_timeout",
		},
		{
			name:   "negative browser concurrency",
			mutate: func(c *Config) { c.Browser.MaxConcurrency = -1 },
			want:   "browser.max_concurrency",
		},
		{
			name:   "missing vertical",
			mutate: func(c *Config) { c.Vertical.Slug = "" },
			want:   "vertical.slug",
		},
		{
			name:   "postgres without dsn",
			mutate: func(c *Config) { c.State.Backend = "postgres" },
			want:   "state.dsn",
		},
		{
			name:   "sqlite without path",
			mutate: func(c *Config) { c.State.Backend = "sqlite" },
			want:   "state.path",
		},
		{
			name:   "unknown backend",
			mutate: func(c *Config) { c.State.Backend = "redis" },
			want:   "state.backend",
		},
		{
			name:   "site without url",
			mutate: func(c *Config) { c.Sites = []adapter.SiteConfig{{Name: "openvc"}} },
			want:   "sites[0]",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
