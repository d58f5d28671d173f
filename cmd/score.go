package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/myspacecornelius/leadscout/internal/crawler"
	"github.com/myspacecornelius/leadscout/internal/output"
)

func newScoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Rescore a checkpoint and rewrite the exports",
		Long: `Loads contacts from a checkpoint CSV, applies the configured
scoring weights and tier thresholds without touching emails, and rewrites
the master export. Use it to re-rank an existing contact set after tuning
the startup profile.`,
		RunE: runScoreCommand,
	}
	cmd.Flags().String("input", "", "checkpoint CSV to score (default: crawler.checkpoint_path)")
	return cmd
}

func runScoreCommand(cmd *cobra.Command, _ []string) error {
	rt, err := mustRuntime(cmd.Context())
	if err != nil {
		return err
	}
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

	vert := loadVertical(cfg.Vertical, log)
	applyVerticalConfig(&cfg, vert)
	applyVerticalDefaults(leads, vert)
	tiers := scoreLeads(cfg.Score, leads)

	writer := output.NewWriter(cfg.Output, log)
	res, err := writer.WriteMaster(leads)
	if err != nil {
		return fmt.Errorf("write exports: %w", err)
	}

	fields := []zap.Field{zap.Int("contacts", res.Total), zap.Int("new", res.New)}
	for tier, n := range tiers {
		fields = append(fields, zap.Int("tier_"+tier, n))
	}
	log.Info("rescore complete", fields...)
	return nil
}
