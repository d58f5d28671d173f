// Package cmd defines the CLI commands for the leadscout executable.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/myspacecornelius/leadscout/internal/config"
	"github.com/myspacecornelius/leadscout/internal/logging"
)

var cfgFile string

// runtime carries the services every subcommand needs.
type runtime struct {
	cfg config.Config
	log *zap.Logger
}

type runtimeKey struct{}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "leadscout",
		Short: "Investor-contact discovery and email enrichment pipeline",
		Long: `leadscout crawls investor directories and fund websites, extracts
contacts from team pages, resolves their email addresses through a staged
enrichment pipeline, scores the results, and exports them as CSV/XLSX.`,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			log, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			rt := &runtime{cfg: cfg, log: log}
			cmd.SetContext(context.WithValue(cmd.Context(), runtimeKey{}, rt))
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if rt, ok := cmd.Context().Value(runtimeKey{}).(*runtime); ok {
				_ = rt.log.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: built-in defaults + LEADSCOUT_ env)")

	cmd.AddCommand(newCrawlCmd())
	cmd.AddCommand(newEnrichCmd())
	cmd.AddCommand(newScoreCmd())

	return cmd
}

func mustRuntime(ctx context.Context) (*runtime, error) {
	rt, ok := ctx.Value(runtimeKey{}).(*runtime)
	if !ok || rt == nil {
		return nil, fmt.Errorf("runtime not initialized")
	}
	return rt, nil
}

// ExecuteContext is the main entry point. The context carries the signal
// cancellation installed by main.
func ExecuteContext(ctx context.Context) {
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
