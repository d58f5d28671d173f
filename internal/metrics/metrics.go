// Package metrics exposes Prometheus collectors for the discovery pipeline.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	pagesTotal            *prometheus.CounterVec
	leadsExtractedTotal   *prometheus.CounterVec
	emailsResolvedTotal   *prometheus.CounterVec
	domainsSkippedTotal   *prometheus.CounterVec
	stageDisabledTotal    *prometheus.CounterVec
	rateLimitDelaySeconds *prometheus.HistogramVec
	domainCrawlSeconds    prometheus.Histogram

	once sync.Once
)

// Init registers the collectors. Safe to call more than once; the Observe
// helpers are no-ops until it runs.
func Init() {
	once.Do(func() {
		pagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadscout_pages_total",
				Help: "Pages processed, labeled by path (static or rendered) and status.",
			},
			[]string{"path", "status"},
		)

		leadsExtractedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadscout_leads_extracted_total",
				Help: "Leads extracted, labeled by source (adapter name or crawl).",
			},
			[]string{"source"},
		)

		emailsResolvedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadscout_emails_resolved_total",
				Help: "Emails resolved, labeled by the pipeline stage that found them.",
			},
			[]string{"stage"},
		)

		domainsSkippedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadscout_domains_skipped_total",
				Help: "Domains skipped, labeled by reason (fresh, timeout, failed).",
			},
			[]string{"reason"},
		)

		stageDisabledTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadscout_stage_disabled_total",
				Help: "Enrichment stages self-disabled for the rest of a run.",
			},
			[]string{"stage"},
		)

		rateLimitDelaySeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "leadscout_rate_limit_delay_seconds",
				Help:    "Histogram of per-host rate limit wait durations.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"host"},
		)

		domainCrawlSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "leadscout_domain_crawl_seconds",
				Help:    "Histogram of wall-clock time spent per crawled domain.",
				Buckets: []float64{1, 5, 10, 20, 30, 45, 60},
			},
		)
	})
}

// Handler returns the metrics endpoint handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObservePage counts one processed page.
func ObservePage(path, status string) {
	if pagesTotal == nil {
		return
	}
	pagesTotal.WithLabelValues(path, status).Inc()
}

// ObserveLeads counts leads extracted from a source.
func ObserveLeads(source string, n int) {
	if leadsExtractedTotal == nil || n <= 0 {
		return
	}
	leadsExtractedTotal.WithLabelValues(source).Add(float64(n))
}

// ObserveEmailResolved counts one email resolved by a pipeline stage.
func ObserveEmailResolved(stage string) {
	if emailsResolvedTotal == nil {
		return
	}
	emailsResolvedTotal.WithLabelValues(stage).Inc()
}

// ObserveDomainSkipped counts a skipped domain by reason.
func ObserveDomainSkipped(reason string) {
	if domainsSkippedTotal == nil {
		return
	}
	domainsSkippedTotal.WithLabelValues(reason).Inc()
}

// ObserveStageDisabled counts a stage self-disabling for the run.
func ObserveStageDisabled(stage string) {
	if stageDisabledTotal == nil {
		return
	}
	stageDisabledTotal.WithLabelValues(stage).Inc()
}

// ObserveRateLimitDelay records one rate-limit wait.
func ObserveRateLimitDelay(host string, d time.Duration) {
	if rateLimitDelaySeconds == nil {
		return
	}
	rateLimitDelaySeconds.WithLabelValues(host).Observe(d.Seconds())
}

// ObserveDomainCrawl records one domain's crawl duration.
func ObserveDomainCrawl(d time.Duration) {
	if domainCrawlSeconds == nil {
		return
	}
	domainCrawlSeconds.Observe(d.Seconds())
}
