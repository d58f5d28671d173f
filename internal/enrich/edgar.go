package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/myspacecornelius/leadscout/internal/lead"
	"github.com/myspacecornelius/leadscout/internal/ratelimit"
)

// edgarForms are the filing types most likely to carry a fund manager's
// direct contact email.
var edgarForms = []string{"D", "ADV", "13F-HR", "13F-NT"}

// EdgarConfig tunes the regulatory-filing stage.
type EdgarConfig struct {
	// BaseURL is the full-text search endpoint, overridable for tests.
	BaseURL string `mapstructure:"base_url"`
	// UserAgent identifies the client; the API requires a descriptive one
	// with contact information.
	UserAgent string `mapstructure:"user_agent"`
}

func (c *EdgarConfig) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "https://efts.sec.gov/LATEST/search-index"
	}
	if c.UserAgent == "" {
		c.UserAgent = "leadscout/1.0 (ops@leadscout.dev)"
	}
}

// Edgar searches the SEC full-text index for domain-scoped email mentions.
// Form D and ADV filings often include a manager's direct address.
type Edgar struct {
	cfg    EdgarConfig
	cache  *DomainCache
	client *http.Client
	gate   *ratelimit.Gate
	log    *zap.Logger
	limit  int
}

// NewEdgar builds the filings stage.
func NewEdgar(cfg EdgarConfig, cache *DomainCache, client *http.Client, gate *ratelimit.Gate, log *zap.Logger) *Edgar {
	cfg.applyDefaults()
	if client == nil {
		client = http.DefaultClient
	}
	if log == nil {
		log = zap.NewNop()
	}
	e := &Edgar{cfg: cfg, cache: cache, client: client, gate: gate, log: log}
	if gate != nil {
		// Fair-use policy allows 10 req/s; stay an order under it.
		if u, err := url.Parse(cfg.BaseURL); err == nil {
			gate.SetHostInterval(u.Host, time.Second)
		}
	}
	return e
}

// Name implements Stage.
func (e *Edgar) Name() string { return "sec_edgar" }

func (e *Edgar) setConcurrency(n int) { e.limit = n }

// Enrich implements Stage.
func (e *Edgar) Enrich(ctx context.Context, leads []*lead.Lead) (int, error) {
	used := claimed(leads)
	return runDomains(ctx, leads, e.limit, func(dctx context.Context, domain string, group []*lead.Lead) (int, error) {
		emails, err := e.cache.Emails(dctx, e.Name(), domain, func(fctx context.Context) ([]string, error) {
			return e.searchDomain(fctx, domain)
		})
		if err != nil {
			e.log.Debug("filing search failed", zap.String("domain", domain), zap.Error(err))
			return 0, nil
		}
		assigned, _ := assignBest(group, unclaimed(emails, used), lead.StatusScraped, 0)
		return assigned, nil
	})
}

type edgarResponse struct {
	Hits struct {
		Hits []struct {
			Source    map[string]any      `json:"_source"`
			Highlight map[string][]string `json:"highlight"`
		} `json:"hits"`
	} `json:"hits"`
}

func (e *Edgar) searchDomain(ctx context.Context, domain string) ([]string, error) {
	// First pass restricts to the filing forms that usually carry
	// contacts; a broader unfiltered pass runs only when that comes up
	// empty.
	emails, err := e.query(ctx, domain, edgarForms)
	if err != nil {
		return nil, err
	}
	if len(emails) == 0 {
		emails, err = e.query(ctx, domain, nil)
	}
	return emails, err
}

func (e *Edgar) query(ctx context.Context, domain string, forms []string) ([]string, error) {
	u, err := url.Parse(e.cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse edgar url: %w", err)
	}
	if err := waitHost(ctx, e.gate, u.Host); err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("q", fmt.Sprintf("%q", "@"+domain))
	q.Set("startdt", "2015-01-01")
	if len(forms) > 0 {
		q.Set("forms", strings.Join(forms, ","))
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build edgar request: %w", err)
	}
	req.Header.Set("User-Agent", e.cfg.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("edgar request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("edgar status %d", resp.StatusCode)
	}

	var payload edgarResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode edgar response: %w", err)
	}

	seen := map[string]struct{}{}
	var out []string
	collect := func(text string) {
		for _, email := range domainEmails(lead.ExtractEmails(text), domain) {
			if !plausibleEmail(email) || strings.Contains(email, "sec.gov") {
				continue
			}
			if _, dup := seen[email]; dup {
				continue
			}
			seen[email] = struct{}{}
			out = append(out, email)
		}
	}
	for _, hit := range payload.Hits.Hits {
		for _, snippets := range hit.Highlight {
			for _, snippet := range snippets {
				collect(snippet)
			}
		}
		for _, val := range hit.Source {
			if s, ok := val.(string); ok && strings.Contains(s, "@") {
				collect(s)
			}
		}
	}
	return out, nil
}
