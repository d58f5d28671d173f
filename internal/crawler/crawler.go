package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/myspacecornelius/leadscout/internal/browser"
	"github.com/myspacecornelius/leadscout/internal/fetch"
	"github.com/myspacecornelius/leadscout/internal/lead"
	"github.com/myspacecornelius/leadscout/internal/metrics"
	"github.com/myspacecornelius/leadscout/internal/state"
)

// Config controls the deep-crawl loop. The keyword lists come from the
// vertical profile; empty lists keep the built-in vocabulary.
type Config struct {
	TargetsFile       string        `mapstructure:"targets_file"`
	CheckpointPath    string        `mapstructure:"checkpoint_path"`
	MaxConcurrent     int           `mapstructure:"max_concurrent"`
	DomainTimeout     time.Duration `mapstructure:"domain_timeout"`
	MaxTeamPages      int           `mapstructure:"max_team_pages"`
	MaxPortfolioPages int           `mapstructure:"max_portfolio_pages"`
	LoadMoreClicks    int           `mapstructure:"load_more_clicks"`
	ForceRecrawl      bool          `mapstructure:"force_recrawl"`
	TeamPageKeywords  []string      `mapstructure:"team_page_keywords"`
	RoleKeywords      []string      `mapstructure:"role_keywords"`
}

func (c *Config) applyDefaults() {
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = 3
	}
	if c.DomainTimeout <= 0 {
		c.DomainTimeout = 45 * time.Second
	}
	if c.MaxTeamPages <= 0 {
		c.MaxTeamPages = 8
	}
	if c.MaxPortfolioPages <= 0 {
		c.MaxPortfolioPages = 2
	}
	if c.LoadMoreClicks <= 0 {
		c.LoadMoreClicks = 3
	}
}

// staticFetcher is the slice of the fetch layer the crawler uses.
type staticFetcher interface {
	Fetch(ctx context.Context, rawURL string) (fetch.Page, error)
}

// Summary reports what a crawl run did.
type Summary struct {
	Targets        int `json:"targets"`
	SkippedFresh   int `json:"skipped_fresh"`
	Crawled        int `json:"crawled"`
	SkippedTimeout int `json:"skipped_timeout"`
	Failed         int `json:"failed"`
	Contacts       int `json:"contacts"`
	Emails         int `json:"emails"`
	Profiles       int `json:"profiles"`
}

// Crawler walks fund sites in batches, with a hard wall-clock ceiling per
// domain and a checkpoint after every batch.
type Crawler struct {
	cfg      Config
	kw       Keywords
	fetcher  staticFetcher
	detector *fetch.Detector
	renderer *browser.Renderer
	tracker  *state.Tracker
	log      *zap.Logger
	now      func() time.Time
	sleep    func(context.Context, time.Duration) error
}

// New builds a Crawler. renderer may be nil, which limits the crawl to the
// static path; tracker may be nil to disable freshness filtering.
func New(cfg Config, fetcher staticFetcher, detector *fetch.Detector, renderer *browser.Renderer, tracker *state.Tracker, log *zap.Logger) *Crawler {
	cfg.applyDefaults()
	if log == nil {
		log = zap.NewNop()
	}
	return &Crawler{
		cfg:      cfg,
		kw:       Keywords{TeamPage: cfg.TeamPageKeywords, Role: cfg.RoleKeywords}.withDefaults(),
		fetcher:  fetcher,
		detector: detector,
		renderer: renderer,
		tracker:  tracker,
		log:      log,
		now:      time.Now,
		sleep:    sleepCtx,
	}
}

// Run crawls every stale target and returns the deduplicated contact set.
func (c *Crawler) Run(ctx context.Context) ([]*lead.Lead, Summary, error) {
	targets, err := LoadTargets(c.cfg.TargetsFile)
	if err != nil {
		return nil, Summary{}, err
	}
	summary := Summary{Targets: len(targets)}

	if c.tracker != nil && !c.cfg.ForceRecrawl {
		c.tracker.Load(ctx)
		stale, fresh := c.tracker.FilterStale(targets)
		summary.SkippedFresh = len(fresh)
		for range fresh {
			metrics.ObserveDomainSkipped("fresh")
		}
		if len(fresh) > 0 {
			c.log.Info("skipping fresh domains",
				zap.Int("skipped", len(fresh)),
				zap.Int("due", len(stale)))
		}
		targets = stale
	}

	var (
		mu  sync.Mutex
		all []*lead.Lead
	)
	seen := map[string]struct{}{}
	collect := func(leads []*lead.Lead) {
		mu.Lock()
		defer mu.Unlock()
		for _, l := range leads {
			key := l.DedupKey()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			all = append(all, l)
		}
	}

	for start := 0; start < len(targets); start += c.cfg.MaxConcurrent {
		end := start + c.cfg.MaxConcurrent
		if end > len(targets) {
			end = len(targets)
		}
		batch := targets[start:end]
		c.log.Info("crawl batch",
			zap.Int("batch", start/c.cfg.MaxConcurrent+1),
			zap.Int("from", start+1),
			zap.Int("to", end),
			zap.Int("total", len(targets)))

		// The batch gets an aggregate ceiling on top of the per-domain
		// one, so a wedged browser cannot stall the run.
		batchCtx, cancel := context.WithTimeout(ctx, time.Duration(len(batch))*(c.cfg.DomainTimeout+5*time.Second))
		g := new(errgroup.Group)
		for _, target := range batch {
			target := target
			g.Go(func() error {
				leads, status, dur := c.crawlFund(batchCtx, target)
				collect(leads)
				mu.Lock()
				switch status {
				case state.StatusCompleted:
					summary.Crawled++
				case state.StatusSkippedTimeout:
					summary.SkippedTimeout++
					metrics.ObserveDomainSkipped("timeout")
				default:
					summary.Failed++
					metrics.ObserveDomainSkipped("failed")
				}
				mu.Unlock()
				if c.tracker != nil {
					c.tracker.MarkCrawled(ctx, target, len(leads), status, dur)
				}
				metrics.ObserveDomainCrawl(dur)
				return nil
			})
		}
		g.Wait()
		cancel()

		if c.cfg.CheckpointPath != "" {
			mu.Lock()
			snapshot := append([]*lead.Lead(nil), all...)
			mu.Unlock()
			if err := SaveCheckpoint(c.cfg.CheckpointPath, snapshot); err != nil {
				c.log.Warn("checkpoint save failed", zap.Error(err))
			} else {
				c.log.Info("checkpoint saved", zap.Int("contacts", len(snapshot)))
			}
		}
		if err := ctx.Err(); err != nil {
			return all, summary, err
		}
	}

	// A run that produced nothing may still have a checkpoint from a
	// previous crash worth recovering.
	if len(all) == 0 && c.cfg.CheckpointPath != "" {
		if recovered, err := LoadCheckpoint(c.cfg.CheckpointPath); err == nil && len(recovered) > 0 {
			c.log.Info("recovered contacts from checkpoint", zap.Int("contacts", len(recovered)))
			all = recovered
		}
	}

	summary.Contacts = len(all)
	for _, l := range all {
		if l.HasEmail() {
			summary.Emails++
		}
		if l.ProfileURL != "" {
			summary.Profiles++
		}
	}
	return all, summary, nil
}

// crawlFund processes one fund site under the per-domain deadline. A timeout
// returns whatever was extracted before the wall; the domain is recorded as
// skipped, not failed, and is retried on the next run.
func (c *Crawler) crawlFund(ctx context.Context, fundURL string) ([]*lead.Lead, string, time.Duration) {
	start := c.now()
	dctx, cancel := context.WithTimeout(ctx, c.cfg.DomainTimeout)
	defer cancel()

	fundName := FundName(fundURL)
	log := c.log.With(zap.String("fund", fundName), zap.String("url", fundURL))

	leads, err := c.doCrawl(dctx, fundURL, fundName, log)
	dur := c.now().Sub(start)
	switch {
	case err == nil:
		log.Info("fund crawled", zap.Int("contacts", len(leads)), zap.Duration("took", dur))
		return leads, state.StatusCompleted, dur
	case errors.Is(err, context.DeadlineExceeded):
		log.Warn("fund crawl hit the domain timeout", zap.Int("contacts", len(leads)), zap.Duration("took", dur))
		return leads, state.StatusSkippedTimeout, dur
	default:
		log.Warn("fund crawl failed", zap.Error(err))
		return leads, state.StatusFailed, dur
	}
}

func (c *Crawler) doCrawl(ctx context.Context, fundURL, fundName string, log *zap.Logger) ([]*lead.Lead, error) {
	html, err := c.getPage(ctx, fundURL)
	if err != nil {
		return nil, fmt.Errorf("homepage: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse homepage: %w", err)
	}

	teamURLs := c.kw.TeamPageLinks(doc, fundURL)
	if len(teamURLs) == 0 {
		teamURLs = FallbackTeamURLs(fundURL)
	}
	log.Debug("team page candidates", zap.Int("count", len(teamURLs)))

	var found []*lead.Lead
	for i, teamURL := range teamURLs {
		if i >= c.cfg.MaxTeamPages {
			break
		}
		if err := ctx.Err(); err != nil {
			return found, err
		}
		pageLeads, err := c.crawlTeamPage(ctx, teamURL, fundName, fundURL)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				return found, err
			}
			log.Debug("team page skipped", zap.String("page", teamURL), zap.Error(err))
			continue
		}
		if len(pageLeads) > 0 {
			log.Debug("team page extracted", zap.String("page", teamURL), zap.Int("contacts", len(pageLeads)))
			metrics.ObserveLeads("crawl", len(pageLeads))
		}
		found = append(found, pageLeads...)
	}
	found = dedupByName(found)

	// Sector backfill from the fund's portfolio pages, best-effort inside
	// whatever domain budget remains.
	if sectors := c.crawlPortfolio(ctx, doc, fundURL, log); len(sectors) > 0 {
		for _, l := range found {
			if len(l.Sectors) == 0 {
				l.Sectors = append(l.Sectors, sectors...)
			}
		}
	}
	return found, nil
}

// crawlPortfolio sweeps the portfolio listing pages linked from the homepage
// and collects the sector tags shown on the company cards.
func (c *Crawler) crawlPortfolio(ctx context.Context, homepage *goquery.Document, fundURL string, log *zap.Logger) []string {
	urls := PortfolioPageLinks(homepage, fundURL)
	if len(urls) == 0 {
		urls = FallbackPortfolioURLs(fundURL)
	}

	seen := map[string]struct{}{}
	var sectors []string
	fetched := 0
	for _, u := range urls {
		if fetched >= c.cfg.MaxPortfolioPages || len(sectors) >= maxPortfolioSectors {
			break
		}
		if ctx.Err() != nil {
			break
		}
		html, err := c.getPage(ctx, u)
		if err != nil {
			continue
		}
		fetched++
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
		if err != nil {
			continue
		}
		for _, s := range PortfolioSectors(doc) {
			if _, dup := seen[s]; dup {
				continue
			}
			seen[s] = struct{}{}
			sectors = append(sectors, s)
		}
	}
	if len(sectors) > maxPortfolioSectors {
		sectors = sectors[:maxPortfolioSectors]
	}
	if len(sectors) > 0 {
		log.Debug("portfolio sectors extracted", zap.Int("count", len(sectors)))
	}
	return sectors
}

var pageParamLink = regexp.MustCompile(`[?&]page=\d+`)

// crawlTeamPage extracts one team page, sweeping bounded load-more reveals
// and numbered pagination links.
func (c *Crawler) crawlTeamPage(ctx context.Context, teamURL, fundName, fundURL string) ([]*lead.Lead, error) {
	html, tab, err := c.getPageTab(ctx, teamURL)
	if err != nil {
		return nil, err
	}
	if tab != nil {
		defer tab.Close()
	}
	if is404(html) {
		return nil, nil
	}

	leads, err := c.kw.PageContacts(html, teamURL, fundName, fundURL, c.now())
	if err != nil {
		return nil, err
	}

	if tab != nil {
		for i := 0; i < c.cfg.LoadMoreClicks; i++ {
			clicked, err := tab.ClickByText("Load More", "Show More", "View All", "See All", "Show all")
			if err != nil || !clicked {
				break
			}
			if err := c.sleep(ctx, 2*time.Second); err != nil {
				return leads, err
			}
			more, err := tab.HTML()
			if err != nil {
				break
			}
			html = more
			extra, err := c.kw.PageContacts(more, teamURL, fundName, fundURL, c.now())
			if err == nil {
				leads = append(leads, extra...)
			}
		}
	}

	// Numbered pagination: follow a couple of same-host ?page=N links.
	for _, next := range pageLinks(html, teamURL, 2) {
		if err := ctx.Err(); err != nil {
			return leads, err
		}
		nextHTML, err := c.getPage(ctx, next)
		if err != nil {
			continue
		}
		extra, err := c.kw.PageContacts(nextHTML, next, fundName, fundURL, c.now())
		if err == nil {
			leads = append(leads, extra...)
		}
	}
	return leads, nil
}

// getPage returns a page's HTML, promoting to the headless renderer when the
// static body shows signs of client-side rendering.
func (c *Crawler) getPage(ctx context.Context, rawURL string) (string, error) {
	html, tab, err := c.getPageTab(ctx, rawURL)
	if tab != nil {
		tab.Close()
	}
	return html, err
}

// getPageTab is getPage but keeps the tab open when the rendered path was
// taken, so the caller can drive pagination on it.
func (c *Crawler) getPageTab(ctx context.Context, rawURL string) (string, *browser.Tab, error) {
	page, err := c.fetcher.Fetch(ctx, rawURL)
	if err == nil && fetch.CaptchaDetected(page.Body) {
		metrics.ObservePage("static", "captcha")
		err = fmt.Errorf("captcha wall on %s", rawURL)
	}
	if err == nil && (c.detector == nil || !c.detector.NeedsRender(page)) {
		metrics.ObservePage("static", "ok")
		return string(page.Body), nil, nil
	}
	if c.renderer == nil {
		if err != nil {
			metrics.ObservePage("static", "error")
			return "", nil, err
		}
		// Static body is thin but it is all we have.
		metrics.ObservePage("static", "thin")
		return string(page.Body), nil, nil
	}

	tab, err := c.renderer.NewTab(ctx, rawURL)
	if err != nil {
		metrics.ObservePage("rendered", "error")
		return "", nil, err
	}
	html, err := tab.HTML()
	if err != nil {
		tab.Close()
		metrics.ObservePage("rendered", "error")
		return "", nil, err
	}
	metrics.ObservePage("rendered", "ok")
	return html, tab, nil
}

func is404(html string) bool {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return false
	}
	title := strings.ToLower(doc.Find("title").First().Text())
	return strings.Contains(title, "404") || strings.Contains(title, "not found")
}

// pageLinks finds same-host links carrying a ?page=N parameter.
func pageLinks(html, baseURL string, limit int) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil
	}
	seen := map[string]struct{}{baseURL: {}}
	var out []string
	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		full, err := base.Parse(href)
		if err != nil || full.Host != base.Host {
			return true
		}
		s := full.String()
		if !pageParamLink.MatchString(s) {
			return true
		}
		if _, dup := seen[s]; dup {
			return true
		}
		seen[s] = struct{}{}
		out = append(out, s)
		return len(out) < limit
	})
	return out
}

func dedupByName(leads []*lead.Lead) []*lead.Lead {
	seen := map[string]struct{}{}
	out := leads[:0]
	for _, l := range leads {
		key := strings.ToLower(strings.TrimSpace(l.Name))
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, l)
	}
	return out
}

// FundName derives a display name from the site host: "https://www.acme.vc"
// becomes "Acme".
func FundName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return rawURL
	}
	host := strings.TrimPrefix(u.Hostname(), "www.")
	label, _, _ := strings.Cut(host, ".")
	if label == "" {
		return host
	}
	return strings.ToUpper(label[:1]) + label[1:]
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
