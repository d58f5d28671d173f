package adapter

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/myspacecornelius/leadscout/internal/lead"
)

// Pager is the slice of tab behavior pagination needs. *browser.Tab
// satisfies it; tests substitute a scripted fake.
type Pager interface {
	HTML() (string, error)
	Navigate(rawURL string) error
	ClickIfVisible(sel string) (bool, error)
	Count(sel string) (int, error)
	DocHeight() (int, error)
	HumanScroll() error
	ScrollToBottom() error
}

// Driver walks one site's listing with the configured pagination strategy,
// extracting after every round so a mid-run failure still yields the rounds
// already swept.
type Driver struct {
	cfg SiteConfig
	ext *Extractor
	log *zap.Logger

	sleep func(context.Context, time.Duration) error
}

// Strategy budgets applied when the site config leaves them zero.
const (
	defaultScrollCount = 10
	defaultScrollDelay = 1500 * time.Millisecond
	defaultMaxClicks   = 20
	defaultClickDelay  = 2 * time.Second
	defaultMaxPages    = 20
	defaultStaleRounds = 3
)

// NewDriver builds a driver for one site sweep.
func NewDriver(cfg SiteConfig, a SiteAdapter, log *zap.Logger) *Driver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Driver{
		cfg:   cfg,
		ext:   NewExtractor(a, cfg.URL, log),
		log:   log.With(zap.String("site", a.Name())),
		sleep: sleepCtx,
	}
}

// Run paginates the already-loaded listing and returns every distinct lead
// found. It terminates within the strategy budget even when the site keeps
// serving duplicate content.
func (d *Driver) Run(ctx context.Context, tab Pager) ([]*lead.Lead, error) {
	switch d.cfg.Pagination.Type {
	case "", PaginateNone:
		leads, _, err := d.sweep(tab)
		return leads, err
	case PaginateInfiniteScroll:
		return d.runInfiniteScroll(ctx, tab)
	case PaginateLoadMore:
		return d.runLoadMore(ctx, tab)
	case PaginateNumberedPages:
		return d.runNumberedPages(ctx, tab)
	default:
		return nil, fmt.Errorf("site %s: unknown pagination type %q", d.cfg.Name, d.cfg.Pagination.Type)
	}
}

// sweep extracts the current DOM once.
func (d *Driver) sweep(tab Pager) ([]*lead.Lead, PageStats, error) {
	html, err := tab.HTML()
	if err != nil {
		return nil, PageStats{}, err
	}
	leads, stats, err := d.ext.ExtractHTML(html)
	if err != nil {
		return nil, stats, err
	}
	d.log.Debug("page swept",
		zap.Int("cards", stats.Cards),
		zap.Int("extracted", stats.Extracted),
		zap.Int("duplicates", stats.Duplicates),
		zap.Int("malformed", stats.Malformed))
	return leads, stats, nil
}

func (d *Driver) runInfiniteScroll(ctx context.Context, tab Pager) ([]*lead.Lead, error) {
	p := d.cfg.Pagination
	rounds := orDefault(p.ScrollCount, defaultScrollCount)
	delay := orDuration(p.ScrollDelay, defaultScrollDelay)
	staleLimit := orDefault(p.StaleRounds, defaultStaleRounds)

	all, _, err := d.sweep(tab)
	if err != nil {
		return nil, err
	}
	lastHeight, _ := tab.DocHeight()
	stale := 0
	for i := 0; i < rounds; i++ {
		if err := ctx.Err(); err != nil {
			return all, err
		}
		if err := tab.ScrollToBottom(); err != nil {
			return all, err
		}
		if err := d.sleep(ctx, delay); err != nil {
			return all, err
		}
		if p.LoadIndicator != "" {
			d.awaitIndicatorGone(ctx, tab, p.LoadIndicator)
		}
		leads, stats, err := d.sweep(tab)
		if err != nil {
			return all, err
		}
		all = append(all, leads...)

		height, _ := tab.DocHeight()
		if stats.Extracted == 0 && height <= lastHeight {
			stale++
			if stale >= staleLimit {
				d.log.Debug("scroll exhausted", zap.Int("round", i+1))
				break
			}
		} else {
			stale = 0
		}
		lastHeight = height
	}
	return all, nil
}

func (d *Driver) runLoadMore(ctx context.Context, tab Pager) ([]*lead.Lead, error) {
	p := d.cfg.Pagination
	if p.ButtonSelector == "" {
		return nil, fmt.Errorf("site %s: load_more_button pagination needs button_selector", d.cfg.Name)
	}
	clicks := orDefault(p.MaxClicks, defaultMaxClicks)
	delay := orDuration(p.ScrollDelay, defaultClickDelay)
	staleLimit := orDefault(p.StaleRounds, defaultStaleRounds)

	all, _, err := d.sweep(tab)
	if err != nil {
		return nil, err
	}
	stale := 0
	for i := 0; i < clicks; i++ {
		if err := ctx.Err(); err != nil {
			return all, err
		}
		clicked, err := tab.ClickIfVisible(p.ButtonSelector)
		if err != nil {
			return all, err
		}
		if !clicked {
			d.log.Debug("load-more button gone", zap.Int("click", i+1))
			break
		}
		if err := d.sleep(ctx, delay); err != nil {
			return all, err
		}
		leads, stats, err := d.sweep(tab)
		if err != nil {
			return all, err
		}
		all = append(all, leads...)
		if stats.Extracted == 0 {
			stale++
			if stale >= staleLimit {
				d.log.Debug("load-more exhausted", zap.Int("click", i+1))
				break
			}
		} else {
			stale = 0
		}
	}
	return all, nil
}

func (d *Driver) runNumberedPages(ctx context.Context, tab Pager) ([]*lead.Lead, error) {
	p := d.cfg.Pagination
	pages := orDefault(p.MaxPages, defaultMaxPages)
	delay := orDuration(p.ScrollDelay, defaultClickDelay)
	staleLimit := orDefault(p.StaleRounds, defaultStaleRounds)

	var all []*lead.Lead
	stale := 0
	for page := 1; page <= pages; page++ {
		if err := ctx.Err(); err != nil {
			return all, err
		}
		leads, stats, err := d.sweep(tab)
		if err != nil {
			return all, err
		}
		all = append(all, leads...)
		if stats.Extracted == 0 {
			stale++
			if stale >= staleLimit {
				d.log.Debug("numbered pages exhausted", zap.Int("page", page))
				break
			}
		} else {
			stale = 0
		}
		if page == pages {
			break
		}
		advanced, err := d.nextPage(tab, page+1)
		if err != nil {
			return all, err
		}
		if !advanced {
			break
		}
		if err := d.sleep(ctx, delay); err != nil {
			return all, err
		}
	}
	return all, nil
}

// nextPage advances by clicking the next button, or when none is configured,
// by navigating to the ?page=N form of the listing URL.
func (d *Driver) nextPage(tab Pager, page int) (bool, error) {
	if d.cfg.Pagination.NextButton != "" {
		return tab.ClickIfVisible(d.cfg.Pagination.NextButton)
	}
	u, err := url.Parse(d.cfg.URL)
	if err != nil {
		return false, fmt.Errorf("site %s: bad listing url: %w", d.cfg.Name, err)
	}
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()
	if err := tab.Navigate(u.String()); err != nil {
		return false, err
	}
	return true, nil
}

// awaitIndicatorGone polls briefly until the site's loading spinner leaves
// the DOM. Best effort; a stuck spinner just costs the poll budget.
func (d *Driver) awaitIndicatorGone(ctx context.Context, tab Pager, sel string) {
	for i := 0; i < 10; i++ {
		n, err := tab.Count(sel)
		if err != nil || n == 0 {
			return
		}
		if d.sleep(ctx, 300*time.Millisecond) != nil {
			return
		}
	}
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func orDuration(v, def time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return def
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
