package cmd

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/myspacecornelius/leadscout/internal/api"
	"github.com/myspacecornelius/leadscout/internal/crawler"
	"github.com/myspacecornelius/leadscout/internal/metrics"
)

func newEnrichCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "enrich",
		Short: "Re-run email enrichment over a crawl checkpoint",
		Long: `Loads contacts from a checkpoint CSV written by a previous crawl,
runs the enrichment pipeline over the ones still missing an email, rescores,
and rewrites the master export. Useful after a crash or when a stage that
self-disabled (blocked SMTP, rate-limited search) is available again.`,
		RunE: runEnrichCommand,
	}
	cmd.Flags().String("input", "", "checkpoint CSV to enrich (default: crawler.checkpoint_path)")
	return cmd
}

func runEnrichCommand(cmd *cobra.Command, _ []string) error {
	rt, err := mustRuntime(cmd.Context())
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	cfg, log := rt.cfg, rt.log

	path, _ := cmd.Flags().GetString("input")
	if path == "" {
		path = cfg.Crawler.CheckpointPath
	}
	leads, err := crawler.LoadCheckpoint(path)
	if err != nil {
		return err
	}
	if len(leads) == 0 {
		return fmt.Errorf("no contacts in checkpoint %s", path)
	}
	log.Info("checkpoint loaded", zap.String("path", path), zap.Int("contacts", len(leads)))

	metrics.Init()
	progress := api.NewProgress(uuid.NewString(), cfg.Vertical.Slug)
	startStatusServer(cfg.Server, progress, log)

	st, err := buildStack(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.Close()

	vert := loadVertical(cfg.Vertical, log)
	applyVerticalConfig(&cfg, vert)
	applyVerticalDefaults(leads, vert)

	progress.SetPhase(api.PhaseEnriching)
	esum, err := enrichLeads(ctx, cfg, st, leads, log)
	if err != nil {
		progress.Fail(err)
		return fmt.Errorf("enrich: %w", err)
	}
	progress.SetEnrich(esum)

	progress.SetPhase(api.PhaseScoring)
	tiers := scoreLeads(cfg.Score, leads)
	progress.SetTiers(tiers)

	progress.SetPhase(api.PhaseWriting)
	res, err := writeExports(cfg.Output, leads, log)
	if err != nil {
		progress.Fail(err)
		return err
	}
	progress.SetPhase(api.PhaseDone)

	logRunSummary(log, st, res, tiers, esum, nil)
	return nil
}
