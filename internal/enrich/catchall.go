package enrich

import (
	"context"

	"go.uber.org/zap"

	"github.com/myspacecornelius/leadscout/internal/browser"
	"github.com/myspacecornelius/leadscout/internal/lead"
)

// catchAllScrapePaths are the candidate pages rendered when a domain is not
// catch-all and earlier stages found nothing. JS-built mailto attributes only
// exist in the executed DOM.
var catchAllScrapePaths = []string{"/team", "/about", "/people", "/contact", "/us"}

// CatchAllStage is the last resolution stage before verification. It probes
// whether the domain's exchange accepts any recipient; on a catch-all domain
// a generated guess is deliverable by construction, so guesses are stamped
// with their own provenance tag. Domains that are not catch-all get their
// JS-heavy pages rendered in a real browser and scanned.
type CatchAllStage struct {
	cache    *DomainCache
	verifier *Verifier
	renderer *browser.Renderer // nil skips the rendered-DOM fallback
	log      *zap.Logger
	limit    int
}

// NewCatchAllStage wires the catch-all detector.
func NewCatchAllStage(cache *DomainCache, verifier *Verifier, renderer *browser.Renderer, log *zap.Logger) *CatchAllStage {
	if log == nil {
		log = zap.NewNop()
	}
	return &CatchAllStage{cache: cache, verifier: verifier, renderer: renderer, log: log}
}

// Name implements Stage.
func (s *CatchAllStage) Name() string { return "catch_all" }

func (s *CatchAllStage) setConcurrency(n int) { s.limit = n }

// Enrich implements Stage.
func (s *CatchAllStage) Enrich(ctx context.Context, leads []*lead.Lead) (int, error) {
	used := claimed(leads)
	return runDomains(ctx, leads, s.limit, func(dctx context.Context, domain string, group []*lead.Lead) (int, error) {
		verdict := CatchAllUnknown
		if s.verifier != nil && s.verifier.Available(dctx) {
			v, err := s.cache.CatchAll(dctx, domain, func(pctx context.Context) (bool, error) {
				return s.verifier.ProbeCatchAll(pctx, domain)
			})
			if err != nil {
				s.log.Debug("catch-all probe failed",
					zap.String("domain", domain), zap.Error(err))
			}
			verdict = v
		}

		if verdict == CatchAllYes {
			return s.generate(domain, group), nil
		}
		return s.scrapeRendered(dctx, domain, group, used), nil
	})
}

// generate hands every person-named contact a pattern-built address. On a
// catch-all exchange these are accepted by construction.
func (s *CatchAllStage) generate(domain string, group []*lead.Lead) int {
	resolved := 0
	for _, l := range group {
		if l.HasEmail() || !lead.IsPersonName(l.Name) {
			continue
		}
		name := lead.CleanPersonName(l.Name)
		email, ok := lead.DefaultPattern.Apply(name, domain)
		if !ok {
			// Single-word names still get first@domain.
			if local := lead.NormalizeNamePart(name); local != "" {
				email, ok = local+"@"+domain, true
			}
		}
		if ok {
			l.SetEmail(email, lead.StatusCatchAllGenerated)
			resolved++
		}
	}
	return resolved
}

// scrapeRendered executes the candidate pages in the browser and regex-scans
// the live DOM, then assigns matches and distributes domain-scoped leftovers.
func (s *CatchAllStage) scrapeRendered(ctx context.Context, domain string, group []*lead.Lead, used map[string]struct{}) int {
	if s.renderer == nil {
		return 0
	}
	emails, err := s.cache.Emails(ctx, "js_scrape", domain, func(fctx context.Context) ([]string, error) {
		seen := map[string]struct{}{}
		var out []string
		for _, path := range catchAllScrapePaths {
			html, err := s.renderer.Render(fctx, "https://"+domain+path)
			if err != nil {
				continue
			}
			for _, email := range domainEmails(lead.ExtractEmails(html), domain) {
				if !plausibleEmail(email) {
					continue
				}
				if _, dup := seen[email]; dup {
					continue
				}
				seen[email] = struct{}{}
				out = append(out, email)
			}
		}
		return out, nil
	})
	if err != nil {
		return 0
	}
	emails = unclaimed(emails, used)
	if len(emails) == 0 {
		return 0
	}
	s.log.Debug("rendered pages yielded addresses",
		zap.String("domain", domain),
		zap.Int("count", len(emails)))

	assigned, leftover := assignBest(group, emails, lead.StatusScraped, 0)
	assigned += distribute(group, leftover, lead.StatusScraped)
	return assigned
}
