package enrich

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/myspacecornelius/leadscout/internal/browser"
	"github.com/myspacecornelius/leadscout/internal/ratelimit"
)

// Config selects and tunes the pipeline's stages. Each toggle defaults on;
// disabling a stage is lossless because every stage is monotonic.
type Config struct {
	EnableDorking   bool `mapstructure:"enable_dorking"`
	EnableOracle    bool `mapstructure:"enable_oracle"`
	EnableKeyserver bool `mapstructure:"enable_keyserver"`
	EnableGitHub    bool `mapstructure:"enable_github"`
	EnableEdgar     bool `mapstructure:"enable_edgar"`
	EnableWayback   bool `mapstructure:"enable_wayback"`
	EnableSMTP      bool `mapstructure:"enable_smtp"`

	HTTPTimeout time.Duration `mapstructure:"http_timeout"`

	// Concurrency bounds each stage's per-domain worker pool.
	Concurrency int `mapstructure:"concurrency"`

	Dorker  DorkerConfig      `mapstructure:"dorker"`
	GitHub  GitHubMinerConfig `mapstructure:"github"`
	Edgar   EdgarConfig       `mapstructure:"edgar"`
	Wayback WaybackConfig     `mapstructure:"wayback"`
	SMTP    VerifierConfig    `mapstructure:"smtp"`
}

// DefaultConfig enables every stage with its stock endpoints.
func DefaultConfig() Config {
	return Config{
		EnableDorking:   true,
		EnableOracle:    true,
		EnableKeyserver: true,
		EnableGitHub:    true,
		EnableEdgar:     true,
		EnableWayback:   true,
		EnableSMTP:      true,
		HTTPTimeout:     20 * time.Second,
		Concurrency:     DefaultStageConcurrency,
	}
}

// Build assembles the pipeline in its fixed cheap-to-expensive order.
// renderer may be nil (the rendered-DOM fallback is skipped) and gate may be
// nil (no inter-request pacing, for tests).
func Build(cfg Config, cache *DomainCache, gate *ratelimit.Gate, renderer *browser.Renderer, log *zap.Logger) *Pipeline {
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 20 * time.Second
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultStageConcurrency
	}
	client := &http.Client{Timeout: cfg.HTTPTimeout}

	var verifier *Verifier
	if cfg.EnableSMTP {
		verifier = NewVerifier(cfg.SMTP, cache, gate, nil, log)
	}

	stages := make([]Stage, 0, 10)
	stages = append(stages, NewGuesser(cache, verifier, log))
	stages = append(stages, NewDNSHarvester(cache, nil, log))
	if cfg.EnableDorking {
		stages = append(stages, NewDorker(cfg.Dorker, cache, client, gate, log))
	}
	if cfg.EnableOracle {
		stages = append(stages, NewOracle(nil, client, log))
	}
	if cfg.EnableKeyserver {
		stages = append(stages, NewKeyserver(nil, client, gate, log))
	}
	if cfg.EnableGitHub {
		stages = append(stages, NewGitHubMiner(cfg.GitHub, cache, client, gate, log))
	}
	if cfg.EnableEdgar {
		stages = append(stages, NewEdgar(cfg.Edgar, cache, client, gate, log))
	}
	if cfg.EnableWayback {
		stages = append(stages, NewWayback(cfg.Wayback, cache, client, gate, log))
	}
	if verifier != nil {
		stages = append(stages, NewCatchAllStage(cache, verifier, renderer, log))
		stages = append(stages, NewVerifyStage(verifier, cache, log))
	}
	for _, s := range stages {
		if c, ok := s.(interface{ setConcurrency(int) }); ok {
			c.setConcurrency(cfg.Concurrency)
		}
	}
	return NewPipeline(log, stages...)
}
