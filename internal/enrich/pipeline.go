package enrich

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/myspacecornelius/leadscout/internal/lead"
	"github.com/myspacecornelius/leadscout/internal/metrics"
)

// ErrStageDisabled marks a stage that self-disabled for the rest of the run,
// typically because the network or a provider policy blocks it. The pipeline
// records it and moves on.
var ErrStageDisabled = errors.New("stage disabled")

// Stage is one enrichment module. Enrich inspects the full lead set but must
// only assign emails to leads that do not have one yet, returning how many it
// resolved. Stages group work by domain internally so per-domain probes run
// once.
type Stage interface {
	Name() string
	Enrich(ctx context.Context, leads []*lead.Lead) (int, error)
}

// StageResult is one stage's outcome within a run.
type StageResult struct {
	Stage       string `json:"stage"`
	Resolved    int    `json:"resolved"`
	RateLimited int    `json:"rate_limited,omitempty"`
	Disabled    bool   `json:"disabled,omitempty"`
	Err         string `json:"error,omitempty"`
}

// Summary aggregates a pipeline run.
type Summary struct {
	Leads     int           `json:"leads"`
	Missing   int           `json:"missing_at_start"`
	Resolved  int           `json:"resolved"`
	Remaining int           `json:"remaining"`
	Stages    []StageResult `json:"stages"`
}

// Pipeline runs enrichment stages in their fixed cheap-to-expensive order. A
// failing stage never blocks the ones after it.
type Pipeline struct {
	stages []Stage
	log    *zap.Logger
}

// NewPipeline assembles a pipeline from the given stages. Nil stages are
// skipped so callers can conditionally wire optional modules.
func NewPipeline(log *zap.Logger, stages ...Stage) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	kept := make([]Stage, 0, len(stages))
	for _, s := range stages {
		if s != nil {
			kept = append(kept, s)
		}
	}
	return &Pipeline{stages: kept, log: log}
}

// Run executes every stage in order over the lead set and returns per-stage
// counts. Leads are mutated in place.
func (p *Pipeline) Run(ctx context.Context, leads []*lead.Lead) (Summary, error) {
	summary := Summary{Leads: len(leads), Missing: len(pending(leads))}

	for _, stage := range p.stages {
		if err := ctx.Err(); err != nil {
			return summary, fmt.Errorf("enrichment interrupted: %w", err)
		}
		remaining := len(pending(leads))
		if remaining == 0 && stage.Name() != "smtp_verify" {
			continue
		}

		resolved, err := stage.Enrich(ctx, leads)
		result := StageResult{Stage: stage.Name(), Resolved: resolved}
		if rl, ok := stage.(interface{ RateLimited() int }); ok {
			result.RateLimited = rl.RateLimited()
		}
		for i := 0; i < resolved; i++ {
			metrics.ObserveEmailResolved(stage.Name())
		}
		switch {
		case errors.Is(err, ErrStageDisabled):
			result.Disabled = true
			metrics.ObserveStageDisabled(stage.Name())
			p.log.Warn("enrichment stage self-disabled",
				zap.String("stage", stage.Name()))
		case err != nil:
			result.Err = err.Error()
			p.log.Warn("enrichment stage failed",
				zap.String("stage", stage.Name()),
				zap.Error(err))
		default:
			p.log.Info("enrichment stage complete",
				zap.String("stage", stage.Name()),
				zap.Int("pending", remaining),
				zap.Int("resolved", resolved))
		}
		summary.Stages = append(summary.Stages, result)
		summary.Resolved += resolved
	}

	summary.Remaining = len(pending(leads))
	return summary, nil
}
