package cmd

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/myspacecornelius/leadscout/internal/adapter"
	"github.com/myspacecornelius/leadscout/internal/api"
	"github.com/myspacecornelius/leadscout/internal/crawler"
	"github.com/myspacecornelius/leadscout/internal/lead"
	"github.com/myspacecornelius/leadscout/internal/metrics"
	"github.com/myspacecornelius/leadscout/internal/output"
)

func newCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Discover contacts, enrich their emails, score and export",
		Long: `Runs the full pipeline: scrapes the configured directory sites,
deep-crawls the seed fund websites for team pages, resolves missing emails
through the enrichment stages, scores every contact, and writes the master
export.`,
		RunE: runCrawlCommand,
	}
	cmd.Flags().Bool("force", false, "recrawl domains inside the freshness window")
	return cmd
}

func runCrawlCommand(cmd *cobra.Command, _ []string) error {
	rt, err := mustRuntime(cmd.Context())
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	cfg, log := rt.cfg, rt.log
	if force, _ := cmd.Flags().GetBool("force"); force {
		cfg.Crawler.ForceRecrawl = true
	}

	metrics.Init()
	progress := api.NewProgress(uuid.NewString(), cfg.Vertical.Slug)
	startStatusServer(cfg.Server, progress, log)

	st, err := buildStack(ctx, cfg, log)
	if err != nil {
		progress.Fail(err)
		return err
	}
	defer st.Close()

	vert := loadVertical(cfg.Vertical, log)
	applyVerticalConfig(&cfg, vert)
	if cfg.Crawler.TargetsFile == "" && vert != nil {
		for _, src := range vert.SeedSources {
			if src.Type == "csv" && src.Path != "" {
				cfg.Crawler.TargetsFile = src.Path
				break
			}
		}
	}

	progress.SetPhase(api.PhaseCrawling)
	leads, siteCount, err := scrapeSites(ctx, cfg.Sites, st, log)
	if err != nil {
		log.Warn("directory scrape incomplete", zap.Error(err))
	}

	deep := crawler.New(cfg.Crawler, st.fetcher, st.detector, st.renderer, st.tracker, log)
	deepLeads, deepSummary, err := deep.Run(ctx)
	if err != nil {
		progress.Fail(err)
		return fmt.Errorf("deep crawl: %w", err)
	}
	deepSummary.Contacts += siteCount
	leads = append(leads, deepLeads...)
	progress.SetCrawl(deepSummary)
	applyVerticalDefaults(leads, vert)

	// Raw pre-enrichment snapshot, so a crashed enrichment can be replayed.
	if _, err := output.NewWriter(cfg.Output, log).WriteRaw(cfg.Vertical.Slug+".csv", leads); err != nil {
		log.Warn("raw export failed", zap.Error(err))
	}

	progress.SetPhase(api.PhaseEnriching)
	esum, err := enrichLeads(ctx, cfg, st, leads, log)
	if err != nil {
		progress.Fail(err)
		return fmt.Errorf("enrich: %w", err)
	}

	progress.SetPhase(api.PhaseScoring)
	tiers := scoreLeads(cfg.Score, leads)
	progress.SetTiers(tiers)

	progress.SetPhase(api.PhaseWriting)
	res, err := writeExports(cfg.Output, leads, log)
	if err != nil {
		progress.Fail(err)
		return err
	}
	progress.SetEnrich(esum)
	progress.SetPhase(api.PhaseDone)

	logRunSummary(log, st, res, tiers, esum, &deepSummary)
	return nil
}

// scrapeSites sweeps the configured directory listings. Rendered pagination
// is used when a browser is up; otherwise each listing gets a single static
// extraction pass. Returns the leads and how many the directories yielded.
func scrapeSites(ctx context.Context, sites []adapter.SiteConfig, st *stack, log *zap.Logger) ([]*lead.Lead, int, error) {
	var (
		all  []*lead.Lead
		errs error
	)
	for _, site := range sites {
		a, err := adapter.New(site)
		if err != nil {
			log.Warn("site adapter unavailable", zap.String("site", site.Name), zap.Error(err))
			errs = err
			continue
		}
		siteLeads, err := scrapeSite(ctx, site, a, st, log)
		if err != nil {
			log.Warn("site sweep failed", zap.String("site", site.Name), zap.Error(err))
			errs = err
			continue
		}
		metrics.ObserveLeads(a.Name(), len(siteLeads))
		log.Info("site swept", zap.String("site", site.Name), zap.Int("contacts", len(siteLeads)))
		all = append(all, siteLeads...)
	}
	return all, len(all), errs
}

func scrapeSite(ctx context.Context, site adapter.SiteConfig, a adapter.SiteAdapter, st *stack, log *zap.Logger) ([]*lead.Lead, error) {
	if st.renderer != nil {
		tab, err := st.renderer.NewTab(ctx, site.URL)
		if err != nil {
			return nil, fmt.Errorf("open listing: %w", err)
		}
		defer tab.Close()
		return adapter.NewDriver(site, a, log).Run(ctx, tab)
	}

	// Static fallback: no pagination, one extraction pass.
	page, err := st.fetcher.Fetch(ctx, site.URL)
	if err != nil {
		return nil, fmt.Errorf("fetch listing: %w", err)
	}
	leads, _, err := adapter.NewExtractor(a, site.URL, log).ExtractHTML(string(page.Body))
	return leads, err
}
