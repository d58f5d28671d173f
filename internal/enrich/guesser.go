package enrich

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/myspacecornelius/leadscout/internal/lead"
)

// Guesser is the first and cheapest enrichment stage. It learns the email
// format already observed at a domain and propagates it to the rest of the
// domain's contacts without any network call. For domains with no observed
// email it probes the top patterns live to discover the format, then falls
// back to the statistically dominant first.last form gated only by MX
// existence.
//
// MX records are domain-level, not email-level, so the MX check runs once per
// domain through the cache and its answer is shared by every contact there.
type Guesser struct {
	cache    *DomainCache
	verifier *Verifier // nil disables live pattern discovery
	log      *zap.Logger
	limit    int
	sleep    func(context.Context, time.Duration)
}

// NewGuesser builds the pattern-guessing stage. verifier may be nil when SMTP
// probing is unavailable; discovery is skipped and only learned patterns and
// the MX-gated default apply.
func NewGuesser(cache *DomainCache, verifier *Verifier, log *zap.Logger) *Guesser {
	if log == nil {
		log = zap.NewNop()
	}
	return &Guesser{cache: cache, verifier: verifier, log: log, sleep: sleepCtx}
}

// Name implements Stage.
func (g *Guesser) Name() string { return "pattern_guess" }

func (g *Guesser) setConcurrency(n int) { g.limit = n }

// Enrich implements Stage.
func (g *Guesser) Enrich(ctx context.Context, leads []*lead.Lead) (int, error) {
	// Learn patterns from contacts that already carry an email.
	for _, l := range leads {
		if !l.HasEmail() || !lead.IsPersonName(l.Name) {
			continue
		}
		if domain := l.Domain(); domain != "" {
			if p, ok := g.cache.LearnPattern(domain, l.Email, lead.CleanPersonName(l.Name)); ok {
				g.log.Debug("learned email pattern",
					zap.String("domain", domain),
					zap.String("pattern", string(p)))
			}
		}
	}

	return runDomains(ctx, leads, g.limit, func(dctx context.Context, domain string, group []*lead.Lead) (int, error) {
		if err := dctx.Err(); err != nil {
			return 0, err
		}
		return g.enrichDomain(dctx, domain, group), nil
	})
}

func (g *Guesser) enrichDomain(ctx context.Context, domain string, group []*lead.Lead) int {
	pattern, known := g.cache.Pattern(domain)
	if !known {
		pattern, known = g.discover(ctx, domain, group)
	}

	resolved := 0
	for _, l := range group {
		if l.HasEmail() || !lead.IsPersonName(l.Name) {
			continue
		}
		name := lead.CleanPersonName(l.Name)
		if known {
			// Pattern came from a real address, so the domain is
			// known to accept mail; no MX gate needed.
			if email, ok := pattern.Apply(name, domain); ok {
				l.SetEmail(email, lead.StatusPatternGuessed)
				resolved++
			}
			continue
		}
		hasMX, _, err := g.cache.MX(ctx, domain)
		if err != nil || !hasMX {
			continue
		}
		if email, ok := lead.DefaultPattern.Apply(name, domain); ok {
			l.SetEmail(email, lead.StatusPatternGuessed)
			g.cache.SetPattern(domain, lead.DefaultPattern)
			pattern, known = lead.DefaultPattern, true
			resolved++
		}
	}
	return resolved
}

// discover SMTP-verifies the top candidate formats for one contact at the
// domain. A deliverable hit reveals the domain's pattern for everyone else.
func (g *Guesser) discover(ctx context.Context, domain string, group []*lead.Lead) (lead.Pattern, bool) {
	if g.verifier == nil || !g.verifier.Available(ctx) {
		return "", false
	}
	var probe *lead.Lead
	for _, l := range group {
		if lead.IsPersonName(l.Name) {
			probe = l
			break
		}
	}
	if probe == nil {
		return "", false
	}
	name := lead.CleanPersonName(probe.Name)
	candidates := lead.Candidates(name, domain)
	if len(candidates) > lead.ProbeCount {
		candidates = candidates[:lead.ProbeCount]
	}
	for _, candidate := range candidates {
		verdict, err := g.verifier.Verify(ctx, candidate)
		if err != nil {
			return "", false
		}
		if verdict == VerdictDeliverable {
			if p, ok := lead.DetectPattern(candidate, name); ok {
				g.cache.SetPattern(domain, p)
				g.log.Info("discovered email pattern via probe",
					zap.String("domain", domain),
					zap.String("pattern", string(p)))
				return p, true
			}
		}
		g.sleep(ctx, 500*time.Millisecond)
	}
	return "", false
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
