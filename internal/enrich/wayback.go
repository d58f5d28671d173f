package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/myspacecornelius/leadscout/internal/lead"
	"github.com/myspacecornelius/leadscout/internal/ratelimit"
)

// waybackPages are the paths whose archived copies most often held emails
// since removed from the live site.
var waybackPages = []string{
	"/team", "/about", "/people", "/about/team", "/about-us", "/contact",
}

// waybackIgnore drops archive chrome and infrastructure addresses.
var waybackIgnore = []string{"archive.org", "no-reply", "donotreply", "noreply"}

// WaybackConfig tunes the web-archive stage.
type WaybackConfig struct {
	// CDXURL is the snapshot-index endpoint, overridable for tests.
	CDXURL string `mapstructure:"cdx_url"`
	// SnapshotPrefix is prepended to timestamp/original to fetch a copy.
	SnapshotPrefix string `mapstructure:"snapshot_prefix"`
	// MaxSnapshots bounds fetches per archived page.
	MaxSnapshots int `mapstructure:"max_snapshots"`
	// MaxPages bounds archived pages checked per domain.
	MaxPages int `mapstructure:"max_pages"`
}

func (c *WaybackConfig) applyDefaults() {
	if c.CDXURL == "" {
		c.CDXURL = "http://web.archive.org/cdx/search/cdx"
	}
	if c.SnapshotPrefix == "" {
		c.SnapshotPrefix = "http://web.archive.org/web"
	}
	if c.MaxSnapshots <= 0 {
		c.MaxSnapshots = 3
	}
	if c.MaxPages <= 0 {
		c.MaxPages = 2
	}
}

// Wayback mines historical snapshots of a domain's team and about pages,
// catching addresses that were published once and later taken down.
type Wayback struct {
	cfg    WaybackConfig
	cache  *DomainCache
	client *http.Client
	gate   *ratelimit.Gate
	log    *zap.Logger
	limit  int
}

// NewWayback builds the web-archive stage.
func NewWayback(cfg WaybackConfig, cache *DomainCache, client *http.Client, gate *ratelimit.Gate, log *zap.Logger) *Wayback {
	cfg.applyDefaults()
	if client == nil {
		client = http.DefaultClient
	}
	if log == nil {
		log = zap.NewNop()
	}
	w := &Wayback{cfg: cfg, cache: cache, client: client, gate: gate, log: log}
	if gate != nil {
		if u, err := url.Parse(cfg.CDXURL); err == nil {
			gate.SetHostInterval(u.Host, 1500*time.Millisecond)
		}
	}
	return w
}

// Name implements Stage.
func (w *Wayback) Name() string { return "wayback" }

func (w *Wayback) setConcurrency(n int) { w.limit = n }

// Enrich implements Stage.
func (w *Wayback) Enrich(ctx context.Context, leads []*lead.Lead) (int, error) {
	used := claimed(leads)
	return runDomains(ctx, leads, w.limit, func(dctx context.Context, domain string, group []*lead.Lead) (int, error) {
		emails, err := w.cache.Emails(dctx, w.Name(), domain, func(fctx context.Context) ([]string, error) {
			return w.searchDomain(fctx, domain)
		})
		if err != nil {
			w.log.Debug("archive search failed", zap.String("domain", domain), zap.Error(err))
			return 0, nil
		}
		assigned, _ := assignBest(group, unclaimed(emails, used), lead.StatusScraped, 0)
		return assigned, nil
	})
}

func (w *Wayback) searchDomain(ctx context.Context, domain string) ([]string, error) {
	seen := map[string]struct{}{}
	var out []string
	pagesChecked := 0
	for _, page := range waybackPages {
		if pagesChecked >= w.cfg.MaxPages {
			break
		}
		snapshots, err := w.snapshots(ctx, domain+page+"*")
		if err != nil {
			return out, err
		}
		if len(snapshots) == 0 {
			continue
		}
		pagesChecked++
		for _, snapshot := range snapshots {
			for _, email := range w.scanSnapshot(ctx, snapshot, domain) {
				if _, dup := seen[email]; dup {
					continue
				}
				seen[email] = struct{}{}
				out = append(out, email)
			}
		}
	}
	return out, nil
}

// snapshots asks the CDX index for the most recent distinct captures of a URL
// pattern. The response is a JSON array whose first row is the header.
func (w *Wayback) snapshots(ctx context.Context, pattern string) ([]string, error) {
	u, err := url.Parse(w.cfg.CDXURL)
	if err != nil {
		return nil, fmt.Errorf("parse cdx url: %w", err)
	}
	if err := waitHost(ctx, w.gate, u.Host); err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("url", pattern)
	q.Set("output", "json")
	q.Set("limit", fmt.Sprint(w.cfg.MaxSnapshots+2))
	q.Set("fl", "timestamp,original")
	q.Set("filter", "statuscode:200")
	q.Set("collapse", "digest")
	q.Set("from", "20150101")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build cdx request: %w", err)
	}
	resp, err := w.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cdx request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cdx status %d", resp.StatusCode)
	}

	var rows [][]string
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode cdx response: %w", err)
	}
	if len(rows) < 2 {
		return nil, nil
	}
	var snapshots []string
	// Most recent captures come last; walk backwards.
	for i := len(rows) - 1; i >= 1 && len(snapshots) < w.cfg.MaxSnapshots; i-- {
		if len(rows[i]) < 2 {
			continue
		}
		snapshots = append(snapshots,
			fmt.Sprintf("%s/%s/%s", w.cfg.SnapshotPrefix, rows[i][0], rows[i][1]))
	}
	return snapshots, nil
}

func (w *Wayback) scanSnapshot(ctx context.Context, snapshotURL, domain string) []string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, snapshotURL, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("Accept", "text/html")
	resp, err := w.client.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil
	}
	var out []string
	for _, email := range domainEmails(lead.ExtractEmails(string(body)), domain) {
		if plausibleEmail(email) && !waybackIgnored(email) {
			out = append(out, email)
		}
	}
	return out
}

func waybackIgnored(email string) bool {
	for _, pattern := range waybackIgnore {
		if strings.Contains(email, pattern) {
			return true
		}
	}
	return false
}
