// Package browser wraps headless Chrome behind a slot-limited renderer.
// Each tab is exclusively owned by one worker for the duration of a page's
// processing; tabs are never shared across concurrent tasks.
package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/myspacecornelius/leadscout/internal/ratelimit"
	"github.com/myspacecornelius/leadscout/internal/stealth"
)

// ErrDisabled indicates rendering has been disabled via configuration.
var ErrDisabled = errors.New("browser renderer disabled")

// Config controls the renderer.
type Config struct {
	MaxConcurrency int           `mapstructure:"max_concurrency"`
	PageTimeout    time.Duration `mapstructure:"page_timeout"`
	Headless       bool          `mapstructure:"headless"`
}

// Renderer owns one Chrome process and hands out isolated tabs.
type Renderer struct {
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	log           *zap.Logger
	sem           chan struct{}
	timeout       time.Duration
	gate          *ratelimit.Gate
	fingerprints  *stealth.Generator
	behavior      *stealth.Behavior
}

// New starts Chrome with a generated fingerprint. An optional proxy applies
// to the whole browser process; per-site proxy rotation happens on the
// static fetch path instead.
func New(cfg Config, gate *ratelimit.Gate, fps *stealth.Generator, behavior *stealth.Behavior, proxy *stealth.Proxy, log *zap.Logger) (*Renderer, error) {
	if cfg.MaxConcurrency <= 0 {
		return nil, ErrDisabled
	}
	if cfg.PageTimeout <= 0 {
		cfg.PageTimeout = 30 * time.Second
	}
	fp := fps.Generate()

	opts := chromedp.DefaultExecAllocatorOptions[:]
	opts = append(opts,
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)
	opts = append(opts, fp.AllocatorOptions()...)
	if proxy != nil {
		opts = append(opts, chromedp.ProxyServer(proxy.Server))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("chromedp warmup: %w", err)
	}

	return &Renderer{
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		log:           log,
		sem:           make(chan struct{}, cfg.MaxConcurrency),
		timeout:       cfg.PageTimeout,
		gate:          gate,
		fingerprints:  fps,
		behavior:      behavior,
	}, nil
}

// Close tears down the Chrome process.
func (r *Renderer) Close() {
	if r == nil {
		return
	}
	r.browserCancel()
	r.allocCancel()
}

// Behavior exposes the humanlike timing source shared by tab drivers.
func (r *Renderer) Behavior() *stealth.Behavior { return r.behavior }

// Render loads a URL in a fresh tab and returns the post-JS DOM.
func (r *Renderer) Render(ctx context.Context, rawURL string) (string, error) {
	tab, err := r.NewTab(ctx, rawURL)
	if err != nil {
		return "", err
	}
	defer tab.Close()
	return tab.HTML()
}

// NewTab acquires a render slot, opens an isolated tab with a fresh
// fingerprint, and navigates it. The caller owns the tab until Close.
func (r *Renderer) NewTab(ctx context.Context, rawURL string) (*Tab, error) {
	if r == nil {
		return nil, ErrDisabled
	}
	select {
	case r.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("acquire render slot: %w", ctx.Err())
	}
	release := func() { <-r.sem }

	if r.gate != nil {
		if err := r.gate.WaitURL(ctx, rawURL); err != nil {
			release()
			return nil, err
		}
	}

	tabCtx, cancelTab := chromedp.NewContext(r.browserCtx)
	taskCtx, cancelTask := context.WithTimeout(tabCtx, r.timeout)
	stopForward := forwardCancel(ctx, cancelTask)

	fp := r.fingerprints.Generate()
	tasks := chromedp.Tasks{
		network.Enable(),
		emulation.SetUserAgentOverride(fp.UserAgent),
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(fp.OverrideScript()).Do(ctx)
			return err
		}),
		chromedp.Navigate(rawURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
	}
	if err := chromedp.Run(taskCtx, tasks); err != nil {
		stopForward()
		cancelTask()
		cancelTab()
		release()
		return nil, fmt.Errorf("navigate %s: %w", rawURL, err)
	}

	return &Tab{
		ctx:      taskCtx,
		behavior: r.behavior,
		close: func() {
			stopForward()
			cancelTask()
			cancelTab()
			release()
		},
	}, nil
}

func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}
