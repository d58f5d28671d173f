// Package fetch is the static HTTP path: a colly-based fetcher plus the
// heuristics that decide when a page needs promotion to the headless
// renderer.
package fetch

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/myspacecornelius/leadscout/internal/stealth"
)

// Config controls the static fetcher.
type Config struct {
	Concurrency    int           `mapstructure:"concurrency"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	PerDomainRPS   int           `mapstructure:"per_domain_rps"`
}

// Page is a fetched document.
type Page struct {
	URL        string
	FinalURL   string
	StatusCode int
	Headers    http.Header
	Body       []byte
	Rendered   bool
}

// Fetcher retrieves pages over plain HTTP with a rotating identity.
type Fetcher struct {
	base         *colly.Collector
	fingerprints *stealth.Generator
	proxies      *stealth.Rotator
	log          *zap.Logger
}

// New constructs a configured Fetcher.
func New(cfg Config, fps *stealth.Generator, proxies *stealth.Rotator, log *zap.Logger) (*Fetcher, error) {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 15 * time.Second
	}
	base := colly.NewCollector(colly.Async(true))
	base.AllowURLRevisit = false
	base.WithTransport(&http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          128,
		MaxIdleConnsPerHost:   32,
		MaxConnsPerHost:       cfg.Concurrency * 2,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: cfg.RequestTimeout,
		ForceAttemptHTTP2:     true,
	})
	base.SetRequestTimeout(cfg.RequestTimeout)

	rps := cfg.PerDomainRPS
	if rps <= 0 {
		rps = 1
	}
	if err := base.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: cfg.Concurrency,
		Delay:       time.Second / time.Duration(rps),
	}); err != nil {
		return nil, err
	}

	return &Fetcher{base: base, fingerprints: fps, proxies: proxies, log: log}, nil
}

type fetchResult struct {
	page Page
	err  error
}

// Fetch retrieves one page. Each call clones the collector so per-request
// identity (user agent, proxy) never leaks across fetches.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (Page, error) {
	collector := f.base.Clone()
	if f.fingerprints != nil {
		collector.UserAgent = f.fingerprints.Generate().UserAgent
	}
	if f.proxies != nil {
		if p, ok := f.proxies.Next(rawURL); ok {
			if err := collector.SetProxy(p.Server); err != nil {
				return Page{}, err
			}
		}
	}

	resultCh := make(chan fetchResult, 1)
	var once sync.Once
	send := func(res fetchResult) {
		once.Do(func() { resultCh <- res })
	}

	collector.OnResponse(func(r *colly.Response) {
		headers := http.Header{}
		if r.Headers != nil {
			for k, v := range *r.Headers {
				cp := make([]string, len(v))
				copy(cp, v)
				headers[k] = cp
			}
		}
		send(fetchResult{page: Page{
			URL:        rawURL,
			FinalURL:   r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Headers:    headers,
			Body:       append([]byte{}, r.Body...),
		}})
	})

	collector.OnError(func(_ *colly.Response, err error) {
		if err == nil {
			err = errors.New("unknown colly error")
		}
		send(fetchResult{err: err})
	})

	if err := collector.Visit(rawURL); err != nil {
		return Page{}, err
	}
	collector.Wait()

	select {
	case res := <-resultCh:
		if err := ctx.Err(); err != nil {
			return Page{}, err
		}
		return res.page, res.err
	default:
		return Page{}, errors.New("colly fetch produced no result")
	}
}
