package api

import (
	"sync"
	"time"

	"github.com/myspacecornelius/leadscout/internal/crawler"
	"github.com/myspacecornelius/leadscout/internal/enrich"
)

// Run phases, in order.
const (
	PhaseIdle      = "idle"
	PhaseCrawling  = "crawling"
	PhaseEnriching = "enriching"
	PhaseScoring   = "scoring"
	PhaseWriting   = "writing"
	PhaseDone      = "done"
	PhaseFailed    = "failed"
)

// RunProgress is the JSON snapshot served at /progress.
type RunProgress struct {
	RunID     string           `json:"run_id"`
	Vertical  string           `json:"vertical,omitempty"`
	Phase     string           `json:"phase"`
	StartedAt time.Time        `json:"started_at"`
	UpdatedAt time.Time        `json:"updated_at"`
	Crawl     *crawler.Summary `json:"crawl,omitempty"`
	Enrich    *enrich.Summary  `json:"enrich,omitempty"`
	Tiers     map[string]int   `json:"tiers,omitempty"`
	Error     string           `json:"error,omitempty"`
}

// Progress tracks the state of the current run for the status endpoint. The
// pipeline writes, HTTP handlers read.
type Progress struct {
	mu  sync.RWMutex
	p   RunProgress
	now func() time.Time
}

// NewProgress starts a tracker for one run.
func NewProgress(runID, vertical string) *Progress {
	t := &Progress{now: time.Now}
	t.p = RunProgress{
		RunID:     runID,
		Vertical:  vertical,
		Phase:     PhaseIdle,
		StartedAt: t.now(),
		UpdatedAt: t.now(),
	}
	return t
}

// SetPhase advances the run to the named phase.
func (t *Progress) SetPhase(phase string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.p.Phase = phase
	t.p.UpdatedAt = t.now()
}

// Fail marks the run failed with its terminal error.
func (t *Progress) Fail(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.p.Phase = PhaseFailed
	if err != nil {
		t.p.Error = err.Error()
	}
	t.p.UpdatedAt = t.now()
}

// SetCrawl records the crawl summary.
func (t *Progress) SetCrawl(s crawler.Summary) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.p.Crawl = &s
	t.p.UpdatedAt = t.now()
}

// SetEnrich records the enrichment summary.
func (t *Progress) SetEnrich(s enrich.Summary) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.p.Enrich = &s
	t.p.UpdatedAt = t.now()
}

// SetTiers records the tier histogram of the scored set.
func (t *Progress) SetTiers(tiers map[string]int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.p.Tiers = tiers
	t.p.UpdatedAt = t.now()
}

// Snapshot returns a copy safe to serialize.
func (t *Progress) Snapshot() RunProgress {
	t.mu.RLock()
	defer t.mu.RUnlock()
	snap := t.p
	if t.p.Tiers != nil {
		snap.Tiers = make(map[string]int, len(t.p.Tiers))
		for k, v := range t.p.Tiers {
			snap.Tiers[k] = v
		}
	}
	return snap
}
