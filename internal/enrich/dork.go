package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/myspacecornelius/leadscout/internal/lead"
	"github.com/myspacecornelius/leadscout/internal/ratelimit"
)

var dorkUserAgents = []string{
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:122.0) Gecko/20100101 Firefox/122.0",
}

// DorkerConfig tunes the search-dorking stage.
type DorkerConfig struct {
	// SearchURL is the result-page endpoint for direct queries.
	SearchURL string `mapstructure:"search_url"`
	// SerpURL is the paid-API fallback endpoint.
	SerpURL string `mapstructure:"serp_url"`
	// SerpAPIKey enables the fallback when the direct path is blocked.
	SerpAPIKey string `mapstructure:"serpapi_key"`
	// PersonQueries caps per-person follow-up searches per domain.
	PersonQueries int `mapstructure:"person_queries"`
	// ExtraQueries are vertical-specific phrases combined with the domain
	// address pattern, e.g. "venture capital partner".
	ExtraQueries []string `mapstructure:"extra_queries"`
	// QueryInterval spaces successive queries against the search host.
	QueryInterval time.Duration `mapstructure:"query_interval"`
}

func (c *DorkerConfig) applyDefaults() {
	if c.SearchURL == "" {
		c.SearchURL = "https://www.google.com/search"
	}
	if c.SerpURL == "" {
		c.SerpURL = "https://serpapi.com/search.json"
	}
	if c.PersonQueries <= 0 {
		c.PersonQueries = 3
	}
	if c.QueryInterval <= 0 {
		c.QueryInterval = 3 * time.Second
	}
}

// Dorker issues targeted search queries to find emails leaked on third-party
// pages: filings, conference programs, press releases, cached pages. When the
// direct search path is rate-limited it falls back to the paid API if a key
// is configured.
type Dorker struct {
	cfg    DorkerConfig
	cache  *DomainCache
	client *http.Client
	gate   *ratelimit.Gate
	log    *zap.Logger
	limit  int

	rateLimited atomic.Int64
}

// NewDorker builds the dorking stage. A nil client uses http.DefaultClient.
func NewDorker(cfg DorkerConfig, cache *DomainCache, client *http.Client, gate *ratelimit.Gate, log *zap.Logger) *Dorker {
	cfg.applyDefaults()
	if client == nil {
		client = http.DefaultClient
	}
	if log == nil {
		log = zap.NewNop()
	}
	d := &Dorker{cfg: cfg, cache: cache, client: client, gate: gate, log: log}
	if gate != nil {
		if u, err := url.Parse(cfg.SearchURL); err == nil {
			gate.SetHostInterval(u.Host, cfg.QueryInterval)
		}
	}
	return d
}

// Name implements Stage.
func (d *Dorker) Name() string { return "search_dork" }

func (d *Dorker) setConcurrency(n int) { d.limit = n }

// Enrich implements Stage.
func (d *Dorker) Enrich(ctx context.Context, leads []*lead.Lead) (int, error) {
	used := claimed(leads)
	return runDomains(ctx, leads, d.limit, func(dctx context.Context, domain string, group []*lead.Lead) (int, error) {
		resolved := 0
		emails, err := d.cache.Emails(dctx, d.Name(), domain, func(fctx context.Context) ([]string, error) {
			return d.searchDomain(fctx, domain)
		})
		if err != nil {
			d.log.Debug("domain dork failed", zap.String("domain", domain), zap.Error(err))
			return 0, nil
		}
		assigned, _ := assignBest(group, unclaimed(emails, used), lead.StatusScraped, 0)
		resolved += assigned

		// Per-person follow-up for the first few still unresolved.
		missing := 0
		for _, l := range group {
			if l.HasEmail() || !lead.IsPersonName(l.Name) {
				continue
			}
			if missing >= d.cfg.PersonQueries {
				break
			}
			missing++
			email, err := d.searchPerson(dctx, lead.CleanPersonName(l.Name), domain)
			if err != nil || email == "" {
				continue
			}
			l.SetEmail(email, lead.StatusScraped)
			resolved++
		}
		return resolved, nil
	})
}

func (d *Dorker) searchDomain(ctx context.Context, domain string) ([]string, error) {
	queries := []string{
		fmt.Sprintf("%q", "@"+domain),
		fmt.Sprintf("%q email contact team", "@"+domain),
		fmt.Sprintf("site:sec.gov %q", "@"+domain),
		fmt.Sprintf("site:crunchbase.com %q", "@"+domain),
	}
	for _, extra := range d.cfg.ExtraQueries {
		queries = append(queries, fmt.Sprintf("%s %q", extra, "@"+domain))
	}
	seen := map[string]struct{}{}
	var out []string
	for _, q := range queries {
		text, err := d.search(ctx, q)
		if err != nil {
			return out, err
		}
		for _, email := range domainEmails(lead.ExtractEmails(text), domain) {
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
}

func (d *Dorker) searchPerson(ctx context.Context, name, domain string) (string, error) {
	text, err := d.search(ctx, fmt.Sprintf("%q %q", name, "@"+domain))
	if err != nil {
		return "", err
	}
	for _, email := range domainEmails(lead.ExtractEmails(text), domain) {
		if plausibleEmail(email) {
			return email, nil
		}
	}
	return "", nil
}

// search runs one query through the direct path, falling back to the paid
// API on a block or empty result.
func (d *Dorker) search(ctx context.Context, query string) (string, error) {
	text, err := d.searchDirect(ctx, query)
	if err == nil && text != "" {
		return text, nil
	}
	if d.cfg.SerpAPIKey == "" {
		return text, err
	}
	return d.searchSerp(ctx, query)
}

func (d *Dorker) searchDirect(ctx context.Context, query string) (string, error) {
	u, err := url.Parse(d.cfg.SearchURL)
	if err != nil {
		return "", fmt.Errorf("parse search url: %w", err)
	}
	if err := waitHost(ctx, d.gate, u.Host); err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("q", query)
	q.Set("num", "10")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("User-Agent", dorkUserAgents[rand.Intn(len(dorkUserAgents))])
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusTooManyRequests {
		d.rateLimited.Add(1)
		return "", fmt.Errorf("search rate-limited")
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("search status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return "", fmt.Errorf("read search response: %w", err)
	}
	return string(body), nil
}

func (d *Dorker) searchSerp(ctx context.Context, query string) (string, error) {
	u, err := url.Parse(d.cfg.SerpURL)
	if err != nil {
		return "", fmt.Errorf("parse serp url: %w", err)
	}
	q := u.Query()
	q.Set("q", query)
	q.Set("api_key", d.cfg.SerpAPIKey)
	q.Set("num", "10")
	q.Set("engine", "google")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("build serp request: %w", err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("serp request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("serp status %d", resp.StatusCode)
	}

	var payload struct {
		OrganicResults []struct {
			Title   string `json:"title"`
			Snippet string `json:"snippet"`
			Link    string `json:"link"`
		} `json:"organic_results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode serp response: %w", err)
	}
	var parts []string
	for _, r := range payload.OrganicResults {
		parts = append(parts, r.Snippet, r.Title, r.Link)
	}
	return strings.Join(parts, " "), nil
}

// RateLimited reports how many direct queries were blocked this run.
func (d *Dorker) RateLimited() int { return int(d.rateLimited.Load()) }
