// Package enrich fills in missing contact emails through an ordered pipeline
// of OSINT stages, cheapest and most reliable first. Every stage only touches
// contacts still missing an email, so the pipeline is monotonic and safe to
// re-run.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/myspacecornelius/leadscout/internal/lead"
)

// Resolver is the DNS surface the pipeline needs. *net.Resolver satisfies it.
type Resolver interface {
	LookupMX(ctx context.Context, name string) ([]*net.MX, error)
	LookupTXT(ctx context.Context, name string) ([]string, error)
}

// CatchAllVerdict is the tri-state result of a catch-all probe. A probe that
// could not complete leaves the verdict unknown rather than guessing.
type CatchAllVerdict int

// Catch-all verdicts.
const (
	CatchAllUnknown CatchAllVerdict = iota
	CatchAllYes
	CatchAllNo
)

type domainEntry struct {
	mxChecked bool
	hasMX     bool
	bestMX    string

	pattern      lead.Pattern
	patternKnown bool

	catchAll CatchAllVerdict

	// Per-stage candidate email sets, so a stage's expensive domain-wide
	// search runs once and fans out to every contact at the domain.
	candidates map[string][]string
}

// DomainCache holds everything expensive the pipeline learns about a domain:
// MX existence, the learned email pattern, the catch-all verdict, and each
// stage's harvested candidate set. Entries are populated once per run and
// never invalidated mid-run. Concurrent workers asking for the same key are
// collapsed through a single-flight group so a probe runs exactly once.
type DomainCache struct {
	resolver Resolver
	flight   singleflight.Group

	mu      sync.Mutex
	entries map[string]*domainEntry
}

// NewDomainCache builds a cache over the given resolver. A nil resolver
// falls back to net.DefaultResolver.
func NewDomainCache(resolver Resolver) *DomainCache {
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	return &DomainCache{
		resolver: resolver,
		entries:  map[string]*domainEntry{},
	}
}

func (c *DomainCache) entry(domain string) *domainEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[domain]
	if !ok {
		e = &domainEntry{candidates: map[string][]string{}}
		c.entries[domain] = e
	}
	return e
}

type mxResult struct {
	hasMX bool
	best  string
}

// MX reports whether the domain can receive mail and the preferred exchange
// host. The lookup runs once per domain; an NXDOMAIN-style failure is cached
// as "no MX", a transport error is returned and retried on the next call.
func (c *DomainCache) MX(ctx context.Context, domain string) (bool, string, error) {
	e := c.entry(domain)
	c.mu.Lock()
	if e.mxChecked {
		has, best := e.hasMX, e.bestMX
		c.mu.Unlock()
		return has, best, nil
	}
	c.mu.Unlock()

	v, err, _ := c.flight.Do(domain+"|mx", func() (any, error) {
		records, err := c.resolver.LookupMX(ctx, domain)
		if err != nil {
			var dnsErr *net.DNSError
			if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
				return mxResult{}, nil
			}
			return nil, fmt.Errorf("lookup mx %s: %w", domain, err)
		}
		if len(records) == 0 {
			return mxResult{}, nil
		}
		sort.Slice(records, func(i, j int) bool { return records[i].Pref < records[j].Pref })
		best := records[0].Host
		if n := len(best); n > 0 && best[n-1] == '.' {
			best = best[:n-1]
		}
		return mxResult{hasMX: true, best: best}, nil
	})
	if err != nil {
		return false, "", err
	}
	res := v.(mxResult)

	c.mu.Lock()
	e.mxChecked = true
	e.hasMX = res.hasMX
	e.bestMX = res.best
	c.mu.Unlock()
	return res.hasMX, res.best, nil
}

// Pattern returns the learned email pattern for a domain, if any.
func (c *DomainCache) Pattern(domain string) (lead.Pattern, bool) {
	e := c.entry(domain)
	c.mu.Lock()
	defer c.mu.Unlock()
	return e.pattern, e.patternKnown
}

// SetPattern records the domain's email pattern. The first pattern learned
// wins; later observations do not overwrite it.
func (c *DomainCache) SetPattern(domain string, p lead.Pattern) {
	e := c.entry(domain)
	c.mu.Lock()
	defer c.mu.Unlock()
	if !e.patternKnown {
		e.pattern = p
		e.patternKnown = true
	}
}

// LearnPattern reverse-detects the pattern behind a known email+name pair and
// caches it for the domain. Returns the pattern in effect afterwards.
func (c *DomainCache) LearnPattern(domain, email, name string) (lead.Pattern, bool) {
	if p, ok := c.Pattern(domain); ok {
		return p, true
	}
	p, ok := lead.DetectPattern(email, name)
	if !ok {
		return "", false
	}
	c.SetPattern(domain, p)
	return p, true
}

// CatchAll returns the cached catch-all verdict, running probe exactly once
// per domain when the verdict is still unknown. A probe error leaves the
// verdict unknown so a later stage may retry.
func (c *DomainCache) CatchAll(ctx context.Context, domain string, probe func(ctx context.Context) (bool, error)) (CatchAllVerdict, error) {
	e := c.entry(domain)
	c.mu.Lock()
	if e.catchAll != CatchAllUnknown {
		v := e.catchAll
		c.mu.Unlock()
		return v, nil
	}
	c.mu.Unlock()

	v, err, _ := c.flight.Do(domain+"|catchall", func() (any, error) {
		accepts, err := probe(ctx)
		if err != nil {
			return CatchAllUnknown, err
		}
		if accepts {
			return CatchAllYes, nil
		}
		return CatchAllNo, nil
	})
	verdict, _ := v.(CatchAllVerdict)
	if err != nil {
		return CatchAllUnknown, err
	}
	c.mu.Lock()
	e.catchAll = verdict
	c.mu.Unlock()
	return verdict, nil
}

// Emails returns the stage's candidate email set for a domain, invoking fetch
// once per (stage, domain) and caching the result. Fetch errors are returned
// without caching so a later lead at the same domain can retry.
func (c *DomainCache) Emails(ctx context.Context, stage, domain string, fetch func(ctx context.Context) ([]string, error)) ([]string, error) {
	e := c.entry(domain)
	key := stage + "|" + domain
	c.mu.Lock()
	if cached, ok := e.candidates[stage]; ok {
		c.mu.Unlock()
		return cached, nil
	}
	c.mu.Unlock()

	v, err, _ := c.flight.Do(key, func() (any, error) {
		return fetch(ctx)
	})
	if err != nil {
		return nil, err
	}
	emails, _ := v.([]string)
	c.mu.Lock()
	e.candidates[stage] = emails
	c.mu.Unlock()
	return emails, nil
}
