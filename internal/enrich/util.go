package enrich

import (
	"context"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/myspacecornelius/leadscout/internal/lead"
	"github.com/myspacecornelius/leadscout/internal/ratelimit"
)

// DefaultStageConcurrency bounds a stage's domain workers when no explicit
// limit is configured.
const DefaultStageConcurrency = 4

// runDomains fans the pending domain groups out to a bounded worker pool and
// sums what the workers resolved. Groups are disjoint, so no two workers ever
// touch the same lead.
func runDomains(ctx context.Context, leads []*lead.Lead, limit int, fn func(ctx context.Context, domain string, group []*lead.Lead) (int, error)) (int, error) {
	if limit <= 0 {
		limit = DefaultStageConcurrency
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	var resolved atomic.Int64
	for domain, group := range byDomain(leads) {
		domain, group := domain, group
		g.Go(func() error {
			n, err := fn(gctx, domain, group)
			resolved.Add(int64(n))
			return err
		})
	}
	err := g.Wait()
	return int(resolved.Load()), err
}

// runLeads is runDomains for stages that probe per contact rather than per
// domain. Each worker owns exactly one lead.
func runLeads(ctx context.Context, leads []*lead.Lead, limit int, fn func(ctx context.Context, l *lead.Lead) (int, error)) (int, error) {
	if limit <= 0 {
		limit = DefaultStageConcurrency
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	var resolved atomic.Int64
	for _, l := range leads {
		l := l
		g.Go(func() error {
			n, err := fn(gctx, l)
			resolved.Add(int64(n))
			return err
		})
	}
	err := g.Wait()
	return int(resolved.Load()), err
}

// pending returns the leads still missing an email.
func pending(leads []*lead.Lead) []*lead.Lead {
	var out []*lead.Lead
	for _, l := range leads {
		if !l.HasEmail() {
			out = append(out, l)
		}
	}
	return out
}

// byDomain groups the leads still missing an email by their organization's
// registrable domain, dropping leads with no usable website.
func byDomain(leads []*lead.Lead) map[string][]*lead.Lead {
	groups := map[string][]*lead.Lead{}
	for _, l := range pending(leads) {
		if d := l.Domain(); d != "" {
			groups[d] = append(groups[d], l)
		}
	}
	return groups
}

// assignBest hands each email-less lead in the group the highest-scoring
// candidate at or above the match threshold. Assigned emails leave the pool.
// Returns the number of assignments and the unassigned remainder.
func assignBest(group []*lead.Lead, pool []string, status lead.EmailStatus, threshold float64) (int, []string) {
	if threshold <= 0 {
		threshold = lead.DefaultMatchThreshold
	}
	remaining := make([]string, len(pool))
	copy(remaining, pool)
	assigned := 0
	for _, l := range group {
		if l.HasEmail() || len(remaining) == 0 {
			continue
		}
		bestIdx, bestScore := -1, 0.0
		for i, email := range remaining {
			if s := lead.MatchScore(email, l.Name); s > bestScore {
				bestIdx, bestScore = i, s
			}
		}
		if bestIdx < 0 || bestScore < threshold {
			continue
		}
		l.SetEmail(remaining[bestIdx], status)
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
		assigned++
	}
	return assigned, remaining
}

// distribute hands leftover candidates to still-empty leads one each, in
// order. Used after best-match assignment when the source guarantees the
// emails belong to the organization.
func distribute(group []*lead.Lead, pool []string, status lead.EmailStatus) int {
	assigned := 0
	i := 0
	for _, l := range group {
		if i >= len(pool) {
			break
		}
		if l.HasEmail() {
			continue
		}
		l.SetEmail(pool[i], status)
		i++
		assigned++
	}
	return assigned
}

// claimed snapshots every assigned address before a stage's workers fan out,
// so pool filtering never reads a lead another goroutine is writing.
// Addresses assigned mid-stage belong to other domains and cannot collide
// with a domain-scoped pool.
func claimed(leads []*lead.Lead) map[string]struct{} {
	used := map[string]struct{}{}
	for _, l := range leads {
		if l.HasEmail() {
			used[strings.ToLower(l.Email)] = struct{}{}
		}
	}
	return used
}

// unclaimed drops pool entries already present in the claimed set, so a
// cached candidate set can never hand the same address to two people across
// re-runs.
func unclaimed(pool []string, used map[string]struct{}) []string {
	var out []string
	for _, e := range pool {
		if _, taken := used[strings.ToLower(e)]; !taken {
			out = append(out, e)
		}
	}
	return out
}

// domainEmails filters candidates down to addresses at the given domain.
func domainEmails(emails []string, domain string) []string {
	suffix := "@" + strings.ToLower(domain)
	var out []string
	for _, e := range emails {
		if strings.HasSuffix(strings.ToLower(e), suffix) {
			out = append(out, e)
		}
	}
	return out
}

// plausibleEmail applies the shared length and junk filters to a harvested
// address.
func plausibleEmail(email string) bool {
	if len(email) < 5 || len(email) > 60 {
		return false
	}
	return lead.ValidFormat(email) && lead.Classify(email) != lead.QualityInvalid
}

// waitHost blocks on the per-host gate when one is configured.
func waitHost(ctx context.Context, gate *ratelimit.Gate, host string) error {
	if gate == nil {
		return nil
	}
	return gate.Wait(ctx, host)
}
