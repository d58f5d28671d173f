// Package state tracks per-domain crawl freshness. The control-plane owns
// the table; the pipeline reads it to decide staleness and appends completed
// crawls.
package state

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/myspacecornelius/leadscout/internal/lead"
)

// DefaultStaleDays is the freshness window: domains crawled more recently
// are skipped.
const DefaultStaleDays = 7

// Status values recorded per crawl.
const (
	StatusCompleted      = "completed"
	StatusSkippedTimeout = "skipped_timeout"
	StatusFailed         = "failed"
)

// Record is one domain's crawl state.
type Record struct {
	Domain      string
	LastCrawled time.Time
	LeadsFound  int
	Status      string
	Duration    time.Duration
}

// Store persists crawl-state records.
type Store interface {
	Load(ctx context.Context) ([]Record, error)
	Upsert(ctx context.Context, rec Record) error
	Close()
}

// Tracker caches crawl state in memory and gates re-crawls on the freshness
// window. A store failure degrades to fresh in-memory state rather than
// aborting the run.
type Tracker struct {
	mu        sync.Mutex
	cache     map[string]Record
	store     Store
	staleDays int
	now       func() time.Time
	log       *zap.Logger
}

// NewTracker builds a Tracker over a store. store may be nil for a purely
// in-memory run.
func NewTracker(store Store, staleDays int, log *zap.Logger) *Tracker {
	if staleDays <= 0 {
		staleDays = DefaultStaleDays
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Tracker{
		cache:     make(map[string]Record),
		store:     store,
		staleDays: staleDays,
		now:       time.Now,
		log:       log,
	}
}

// Load pulls persisted state into the cache. A load failure is logged and
// leaves the tracker with fresh state.
func (t *Tracker) Load(ctx context.Context) {
	if t.store == nil {
		return
	}
	recs, err := t.store.Load(ctx)
	if err != nil {
		t.log.Warn("crawl state unavailable, starting fresh", zap.Error(err))
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, r := range recs {
		t.cache[r.Domain] = r
	}
	t.log.Info("crawl state loaded", zap.Int("domains", len(recs)))
}

// IsStale reports whether a URL's domain is outside the freshness window or
// has never been crawled.
func (t *Tracker) IsStale(rawURL string) bool {
	domain := normalizeDomain(rawURL)
	t.mu.Lock()
	rec, ok := t.cache[domain]
	t.mu.Unlock()
	if !ok || rec.LastCrawled.IsZero() {
		return true
	}
	cutoff := t.now().Add(-time.Duration(t.staleDays) * 24 * time.Hour)
	return rec.LastCrawled.Before(cutoff)
}

// FilterStale splits URLs into those due for a crawl and those still fresh.
func (t *Tracker) FilterStale(urls []string) (stale, fresh []string) {
	for _, u := range urls {
		if t.IsStale(u) {
			stale = append(stale, u)
		} else {
			fresh = append(fresh, u)
		}
	}
	return stale, fresh
}

// MarkCrawled records a completed (or skipped) crawl in cache and store.
func (t *Tracker) MarkCrawled(ctx context.Context, rawURL string, leadsFound int, status string, dur time.Duration) {
	rec := Record{
		Domain:      normalizeDomain(rawURL),
		LastCrawled: t.now(),
		LeadsFound:  leadsFound,
		Status:      status,
		Duration:    dur,
	}
	t.mu.Lock()
	t.cache[rec.Domain] = rec
	t.mu.Unlock()
	if t.store == nil {
		return
	}
	if err := t.store.Upsert(ctx, rec); err != nil {
		t.log.Warn("persist crawl state", zap.String("domain", rec.Domain), zap.Error(err))
	}
}

// Summary counts tracked, stale, and fresh domains for the run report.
func (t *Tracker) Summary() (total, stale int) {
	cutoff := t.now().Add(-time.Duration(t.staleDays) * 24 * time.Hour)
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, rec := range t.cache {
		if rec.LastCrawled.Before(cutoff) {
			stale++
		}
	}
	return len(t.cache), stale
}

func normalizeDomain(rawURL string) string {
	if d := lead.RegistrableDomain(rawURL); d != "" {
		return d
	}
	return strings.ToLower(strings.TrimSpace(rawURL))
}
