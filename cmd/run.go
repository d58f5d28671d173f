package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/myspacecornelius/leadscout/internal/api"
	"github.com/myspacecornelius/leadscout/internal/browser"
	"github.com/myspacecornelius/leadscout/internal/config"
	"github.com/myspacecornelius/leadscout/internal/crawler"
	"github.com/myspacecornelius/leadscout/internal/enrich"
	"github.com/myspacecornelius/leadscout/internal/fetch"
	"github.com/myspacecornelius/leadscout/internal/lead"
	"github.com/myspacecornelius/leadscout/internal/metrics"
	"github.com/myspacecornelius/leadscout/internal/output"
	"github.com/myspacecornelius/leadscout/internal/ratelimit"
	"github.com/myspacecornelius/leadscout/internal/score"
	"github.com/myspacecornelius/leadscout/internal/state"
	"github.com/myspacecornelius/leadscout/internal/stealth"
	"github.com/myspacecornelius/leadscout/internal/vertical"
)

// stack bundles the long-lived services a run needs.
type stack struct {
	gate     *ratelimit.Gate
	fetcher  *fetch.Fetcher
	detector *fetch.Detector
	renderer *browser.Renderer
	store    state.Store
	tracker  *state.Tracker
}

func (s *stack) Close() {
	if s.renderer != nil {
		s.renderer.Close()
	}
	if s.store != nil {
		s.store.Close()
	}
}

// buildStack wires the stealth layer, both fetch paths, and the crawl-state
// tracker. A renderer that cannot start degrades the run to the static path.
func buildStack(ctx context.Context, cfg config.Config, log *zap.Logger) (*stack, error) {
	gate := ratelimit.New(ratelimit.Config{
		DefaultRPS:   float64(cfg.Fetch.PerDomainRPS),
		DefaultBurst: 1,
	})
	gate.OnDelay(metrics.ObserveRateLimitDelay)

	fps := stealth.NewGenerator(cfg.Stealth.Seed)
	behavior := stealth.NewBehavior(cfg.Stealth.SpeedFactor, cfg.Stealth.Seed)
	proxies := stealth.NewRotator(cfg.Stealth.Proxy, cfg.Stealth.Seed)

	fetcher, err := fetch.New(cfg.Fetch, fps, proxies, log)
	if err != nil {
		return nil, fmt.Errorf("init fetcher: %w", err)
	}

	var browserProxy *stealth.Proxy
	if p, ok := proxies.Next("browser"); ok {
		browserProxy = &p
	}
	renderer, err := browser.New(cfg.Browser, gate, fps, behavior, browserProxy, log)
	switch {
	case err == nil:
	case errors.Is(err, browser.ErrDisabled):
		log.Info("headless rendering disabled")
		renderer = nil
	default:
		log.Warn("headless browser unavailable, static path only", zap.Error(err))
		renderer = nil
	}

	store, err := openStore(ctx, cfg.State)
	if err != nil {
		// The tracker degrades to in-memory state; the run still happens.
		log.Warn("crawl-state store unavailable", zap.Error(err))
		store = nil
	}
	tracker := state.NewTracker(store, cfg.State.StaleDays, log)

	return &stack{
		gate:     gate,
		fetcher:  fetcher,
		detector: fetch.NewDetector(0, nil, nil),
		renderer: renderer,
		store:    store,
		tracker:  tracker,
	}, nil
}

func openStore(ctx context.Context, cfg config.StateConfig) (state.Store, error) {
	switch cfg.Backend {
	case "postgres":
		return state.NewPostgresStore(ctx, state.PostgresConfig{DSN: cfg.DSN, Table: cfg.Table})
	case "sqlite":
		return state.NewSQLiteStore(ctx, cfg.Path)
	case "", "memory":
		return state.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown state backend %q", cfg.Backend)
	}
}

// startStatusServer serves /healthz, /metrics and /progress for the run.
func startStatusServer(cfg config.ServerConfig, progress *api.Progress, log *zap.Logger) {
	if !cfg.Enabled {
		return
	}
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           api.NewServer(progress, log).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn("status server stopped", zap.Error(err))
		}
	}()
	log.Info("status server listening", zap.Int("port", cfg.Port))
}

// loadVertical is tolerant: a missing profile logs a warning and the run
// proceeds without vertical defaults.
func loadVertical(cfg config.VerticalConfig, log *zap.Logger) *vertical.Vertical {
	vert, err := vertical.Load(cfg.Dir, cfg.Slug)
	if err != nil {
		log.Warn("vertical profile unavailable", zap.String("slug", cfg.Slug), zap.Error(err))
		return nil
	}
	log.Info("vertical profile loaded", zap.String("slug", vert.Slug), zap.String("name", vert.Name))
	return vert
}

// applyVerticalConfig folds the profile's crawl, search, site, and scoring
// knobs into the run configuration. Values set explicitly in the config file
// win over the profile.
func applyVerticalConfig(cfg *config.Config, vert *vertical.Vertical) {
	if vert == nil {
		return
	}
	if len(cfg.Crawler.TeamPageKeywords) == 0 {
		cfg.Crawler.TeamPageKeywords = vert.TeamPageKeywords
	}
	if len(cfg.Crawler.RoleKeywords) == 0 {
		cfg.Crawler.RoleKeywords = vert.RoleKeywords
	}
	if len(cfg.Enrich.Dorker.ExtraQueries) == 0 {
		cfg.Enrich.Dorker.ExtraQueries = vert.SearchQueries
	}
	if len(vert.Adapters) > 0 {
		allowed := make(map[string]struct{}, len(vert.Adapters))
		for _, a := range vert.Adapters {
			allowed[a] = struct{}{}
		}
		kept := cfg.Sites[:0]
		for _, site := range cfg.Sites {
			if _, ok := allowed[site.Adapter]; ok {
				kept = append(kept, site)
			}
		}
		cfg.Sites = kept
	}
	if cfg.Score.Roles.MatchBonus == 0 {
		cfg.Score.Roles = score.RoleWeights{
			MatchBonus: vert.Scoring.RoleMatchBonus,
			Priority:   vert.Scoring.PriorityRoles,
			Depriority: vert.Scoring.DepriorityRoles,
		}
	}
	if cfg.Score.Modifiers.HasEmail == 0 {
		cfg.Score.Modifiers.HasEmail = vert.Scoring.HasEmail
	}
	if cfg.Score.Modifiers.HasLinkedIn == 0 {
		cfg.Score.Modifiers.HasLinkedIn = vert.Scoring.HasLinkedIn
	}
}

// applyVerticalDefaults backfills vertical-level attributes on leads that the
// page itself did not state.
func applyVerticalDefaults(leads []*lead.Lead, vert *vertical.Vertical) {
	if vert == nil {
		return
	}
	for _, l := range leads {
		if l.CheckSize == "" && vert.DefaultCheckSize != "N/A" {
			l.CheckSize = vert.DefaultCheckSize
		}
		if len(l.Sectors) == 0 {
			l.Sectors = append(l.Sectors, vert.DefaultSectors...)
		}
	}
}

// enrichLeads runs the staged pipeline over the contact set.
func enrichLeads(ctx context.Context, cfg config.Config, st *stack, leads []*lead.Lead, log *zap.Logger) (enrich.Summary, error) {
	cache := enrich.NewDomainCache(nil)
	pipeline := enrich.Build(cfg.Enrich, cache, st.gate, st.renderer, log)
	return pipeline.Run(ctx, leads)
}

// scoreLeads scores in place and returns the tier histogram.
func scoreLeads(cfg score.Config, leads []*lead.Lead) map[string]int {
	scorer := score.New(cfg)
	scorer.ScoreAll(leads)
	tiers := make(map[string]int)
	for _, l := range leads {
		tiers[l.Tier]++
	}
	return tiers
}

// writeExports writes the master/history/delta set and logs the result.
func writeExports(cfg output.Config, leads []*lead.Lead, log *zap.Logger) (*output.Result, error) {
	writer := output.NewWriter(cfg, log)
	res, err := writer.WriteMaster(leads)
	if err != nil {
		return nil, fmt.Errorf("write exports: %w", err)
	}
	return res, nil
}

// logRunSummary emits the end-of-run report. csum is nil when the run did
// not crawl (enrich over a checkpoint).
func logRunSummary(log *zap.Logger, st *stack, res *output.Result, tiers map[string]int, esum enrich.Summary, csum *crawler.Summary) {
	fields := []zap.Field{
		zap.Int("contacts", res.Total),
		zap.Int("new", res.New),
		zap.Int("emails_resolved", esum.Resolved),
		zap.Int("emails_missing", esum.Remaining),
		zap.Int64("rate_limited_calls", st.gate.DelayedCalls()),
	}
	if csum != nil {
		fields = append(fields,
			zap.Int("funds_crawled", csum.Crawled),
			zap.Int("domains_skipped_fresh", csum.SkippedFresh),
			zap.Int("domains_skipped_timeout", csum.SkippedTimeout),
			zap.Int("domains_failed", csum.Failed),
		)
	}
	for tier, n := range tiers {
		fields = append(fields, zap.Int("tier_"+tier, n))
	}
	searchLimited := 0
	for _, stage := range esum.Stages {
		if stage.Disabled {
			fields = append(fields, zap.String("disabled_stage", stage.Stage))
		}
		searchLimited += stage.RateLimited
	}
	if searchLimited > 0 {
		fields = append(fields, zap.Int("search_rate_limited", searchLimited))
	}
	log.Info("run complete", fields...)
}
