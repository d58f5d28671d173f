// Package config loads and validates pipeline configuration via Viper.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/myspacecornelius/leadscout/internal/adapter"
	"github.com/myspacecornelius/leadscout/internal/browser"
	"github.com/myspacecornelius/leadscout/internal/crawler"
	"github.com/myspacecornelius/leadscout/internal/enrich"
	"github.com/myspacecornelius/leadscout/internal/fetch"
	"github.com/myspacecornelius/leadscout/internal/output"
	"github.com/myspacecornelius/leadscout/internal/score"
	"github.com/myspacecornelius/leadscout/internal/stealth"
)

// Config captures every knob a run reads, loaded from file and the
// LEADSCOUT_ environment.
type Config struct {
	Server   ServerConfig         `mapstructure:"server"`
	Logging  LoggingConfig        `mapstructure:"logging"`
	Vertical VerticalConfig       `mapstructure:"vertical"`
	Fetch    fetch.Config         `mapstructure:"fetch"`
	Browser  browser.Config       `mapstructure:"browser"`
	Crawler  crawler.Config       `mapstructure:"crawler"`
	Stealth  StealthConfig        `mapstructure:"stealth"`
	Sites    []adapter.SiteConfig `mapstructure:"sites"`
	Score    score.Config         `mapstructure:"score"`
	Enrich   enrich.Config        `mapstructure:"enrich"`
	Output   output.Config        `mapstructure:"output"`
	State    StateConfig          `mapstructure:"state"`
}

// ServerConfig controls the status/metrics endpoint.
type ServerConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// LoggingConfig toggles zap development features and the minimum level.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// VerticalConfig names the industry profile a run targets.
type VerticalConfig struct {
	Dir  string `mapstructure:"dir"`
	Slug string `mapstructure:"slug"`
}

// StealthConfig tunes the fingerprint/behavior/proxy layer.
type StealthConfig struct {
	SpeedFactor float64             `mapstructure:"speed_factor"`
	Seed        int64               `mapstructure:"seed"`
	Proxy       stealth.ProxyConfig `mapstructure:"proxy"`
}

// StateConfig selects the crawl-state backend. An empty backend keeps state
// in memory for the run only.
type StateConfig struct {
	Backend   string `mapstructure:"backend"`
	DSN       string `mapstructure:"dsn"`
	Path      string `mapstructure:"path"`
	Table     string `mapstructure:"table"`
	StaleDays int    `mapstructure:"stale_days"`
}

// Load builds a Config from disk and environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("LEADSCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.enabled", false)
	v.SetDefault("server.port", 8080)
	v.SetDefault("logging.development", true)
	v.SetDefault("vertical.dir", "verticals")
	v.SetDefault("vertical.slug", "vc")
	v.SetDefault("fetch.concurrency", 8)
	v.SetDefault("fetch.request_timeout", "20s")
	v.SetDefault("fetch.per_domain_rps", 1)
	v.SetDefault("browser.max_concurrency", 2)
	v.SetDefault("browser.page_timeout", "45s")
	v.SetDefault("browser.headless", true)
	v.SetDefault("crawler.checkpoint_path", "data/raw/checkpoint.csv")
	v.SetDefault("crawler.max_concurrent", 8)
	v.SetDefault("crawler.domain_timeout", "90s")
	v.SetDefault("crawler.max_team_pages", 5)
	v.SetDefault("crawler.max_portfolio_pages", 2)
	v.SetDefault("crawler.load_more_clicks", 3)
	v.SetDefault("stealth.speed_factor", 1.0)
	v.SetDefault("enrich.enable_dorking", true)
	v.SetDefault("enrich.enable_oracle", true)
	v.SetDefault("enrich.enable_keyserver", true)
	v.SetDefault("enrich.enable_github", true)
	v.SetDefault("enrich.enable_edgar", true)
	v.SetDefault("enrich.enable_wayback", true)
	v.SetDefault("enrich.enable_smtp", true)
	v.SetDefault("enrich.http_timeout", "20s")
	v.SetDefault("enrich.concurrency", 4)
	v.SetDefault("score.tiers.hot", 80)
	v.SetDefault("score.tiers.warm", 60)
	v.SetDefault("score.tiers.cool", 40)
	v.SetDefault("output.dir", "data")
	v.SetDefault("output.master_file", "investor_leads_master.csv")
	v.SetDefault("output.xlsx", true)
	v.SetDefault("state.backend", "")
	v.SetDefault("state.table", "crawl_state")
	v.SetDefault("state.stale_days", 7)
}

// Validate fails fast on configuration errors instead of surfacing them mid
// run.
func (c Config) Validate() error {
	if c.Server.Enabled && c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0 when the status server is enabled")
	}
	if c.Fetch.Concurrency <= 0 {
		return fmt.Errorf("fetch.concurrency must be > 0")
	}
	if c.Fetch.RequestTimeout <= 0 {
		return fmt.Errorf("fetch.request_timeout must be > 0")
	}
	if c.Browser.MaxConcurrency < 0 {
		return fmt.Errorf("browser.max_concurrency must be >= 0 (0 disables headless rendering)")
	}
	if c.Crawler.MaxConcurrent <= 0 {
		return fmt.Errorf("crawler.max_concurrent must be > 0")
	}
	if c.Crawler.DomainTimeout <= 0 {
		return fmt.Errorf("crawler.domain_timeout must be > 0")
	}
	if c.Vertical.Slug == "" {
		return fmt.Errorf("vertical.slug is required")
	}
	switch c.State.Backend {
	case "", "memory":
	case "postgres":
		if c.State.DSN == "" {
			return fmt.Errorf("state.dsn is required for the postgres backend")
		}
	case "sqlite":
		if c.State.Path == "" {
			return fmt.Errorf("state.path is required for the sqlite backend")
		}
	default:
		return fmt.Errorf("unknown state.backend %q", c.State.Backend)
	}
	for i, site := range c.Sites {
		if site.Name == "" || site.URL == "" {
			return fmt.Errorf("sites[%d]: name and url are required", i)
		}
	}
	return nil
}
