package adapter

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/myspacecornelius/leadscout/internal/lead"
)

// CardResult is the outcome of parsing one card. A malformed card produces an
// error result and never aborts the sweep; duplicates are counted, not kept.
type CardResult struct {
	Index     int
	Lead      *lead.Lead
	Err       error
	Duplicate bool
}

// PageStats summarizes one extraction sweep for the run log.
type PageStats struct {
	Cards      int
	Extracted  int
	Duplicates int
	Malformed  int
}

// Extractor applies one adapter to rendered HTML, deduplicating by contact
// name across all sweeps of the same run.
type Extractor struct {
	adapter SiteAdapter
	source  string
	seen    map[string]struct{}
	log     *zap.Logger
}

// NewExtractor builds an extractor for one site sweep. source is stamped onto
// every lead as its discovery URL.
func NewExtractor(a SiteAdapter, source string, log *zap.Logger) *Extractor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Extractor{adapter: a, source: source, seen: map[string]struct{}{}, log: log}
}

// ExtractHTML parses the document and runs the adapter over every card.
// Returns the new leads this sweep found plus per-card results.
func (e *Extractor) ExtractHTML(html string) ([]*lead.Lead, PageStats, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, PageStats{}, fmt.Errorf("parse page for %s: %w", e.adapter.Name(), err)
	}

	var (
		leads []*lead.Lead
		stats PageStats
	)
	doc.Find(e.adapter.CardSelector()).Each(func(i int, card *goquery.Selection) {
		stats.Cards++
		res := e.parseOne(i, card)
		switch {
		case res.Err != nil:
			stats.Malformed++
			e.log.Debug("card rejected",
				zap.String("site", e.adapter.Name()),
				zap.Int("card", i),
				zap.Error(res.Err))
		case res.Duplicate:
			stats.Duplicates++
		default:
			stats.Extracted++
			leads = append(leads, res.Lead)
		}
	})
	return leads, stats, nil
}

func (e *Extractor) parseOne(i int, card *goquery.Selection) CardResult {
	l, err := e.adapter.ParseCard(card)
	if err != nil {
		return CardResult{Index: i, Err: err}
	}
	if l.Email == "" {
		l.Email = lead.EmailUnknown
	}
	l.SourceURL = e.source
	if err := l.Validate(); err != nil {
		return CardResult{Index: i, Err: err}
	}
	key := strings.ToLower(strings.TrimSpace(l.Name))
	if _, dup := e.seen[key]; dup {
		return CardResult{Index: i, Lead: l, Duplicate: true}
	}
	e.seen[key] = struct{}{}
	return CardResult{Index: i, Lead: l}
}

// SeenCount reports how many distinct contacts the run has extracted so far.
func (e *Extractor) SeenCount() int {
	return len(e.seen)
}
