// Package ratelimit implements per-host token buckets and interval gates so
// politeness toward remote services is explicit instead of scattered sleeps.
package ratelimit

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// Gate hands out tokens per remote host. Hosts it has never seen get a
// limiter at the default rate; hot paths (SMTP, archive APIs) register
// explicit per-host rates up front.
type Gate struct {
	mu           sync.Mutex
	limiters     map[string]*rate.Limiter
	defaultRate  rate.Limit
	defaultBurst int

	waits   atomic.Int64
	delayed atomic.Int64

	onDelay func(host string, d time.Duration)
}

// Config holds gate defaults.
type Config struct {
	DefaultRPS   float64
	DefaultBurst int
}

// New creates a Gate. A non-positive RPS means unlimited.
func New(cfg Config) *Gate {
	r := rate.Limit(cfg.DefaultRPS)
	if cfg.DefaultRPS <= 0 {
		r = rate.Inf
	}
	burst := cfg.DefaultBurst
	if burst <= 0 {
		burst = 1
	}
	return &Gate{
		limiters:     make(map[string]*rate.Limiter),
		defaultRate:  r,
		defaultBurst: burst,
	}
}

// OnDelay registers a callback invoked whenever a caller actually blocked
// waiting for a token. Used to feed the rate-limited-calls counter.
func (g *Gate) OnDelay(fn func(host string, d time.Duration)) {
	g.onDelay = fn
}

// SetHostInterval pins a host to a minimum gap between requests, e.g. one
// SMTP conversation per mail exchange every few seconds.
func (g *Gate) SetHostInterval(host string, interval time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.limiters[host] = rate.NewLimiter(rate.Every(interval), 1)
}

// SetHostRate pins a host to an explicit requests-per-second budget.
func (g *Gate) SetHostRate(host string, rps float64, burst int) {
	if burst <= 0 {
		burst = 1
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.limiters[host] = rate.NewLimiter(rate.Limit(rps), burst)
}

func (g *Gate) limiter(host string) *rate.Limiter {
	g.mu.Lock()
	defer g.mu.Unlock()
	l, ok := g.limiters[host]
	if !ok {
		l = rate.NewLimiter(g.defaultRate, g.defaultBurst)
		g.limiters[host] = l
	}
	return l
}

// Wait blocks until the host's bucket yields a token or ctx ends.
func (g *Gate) Wait(ctx context.Context, host string) error {
	g.waits.Add(1)
	start := time.Now()
	if err := g.limiter(host).Wait(ctx); err != nil {
		return fmt.Errorf("rate gate %s: %w", host, err)
	}
	if d := time.Since(start); d > time.Millisecond {
		g.delayed.Add(1)
		if g.onDelay != nil {
			g.onDelay(host, d)
		}
	}
	return nil
}

// WaitURL is Wait keyed by the URL's hostname.
func (g *Gate) WaitURL(ctx context.Context, rawURL string) error {
	host := "unknown"
	if u, err := url.Parse(rawURL); err == nil && u.Hostname() != "" {
		host = u.Hostname()
	}
	return g.Wait(ctx, host)
}

// DelayedCalls reports how many Wait calls actually blocked, for the run
// summary.
func (g *Gate) DelayedCalls() int64 { return g.delayed.Load() }
