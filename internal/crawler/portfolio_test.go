package crawler

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsPortfolioPageURL(t *testing.T) {
	assert.True(t, IsPortfolioPageURL("https://acme.vc/portfolio"))
	assert.True(t, IsPortfolioPageURL("https://acme.vc/our-companies/"))
	assert.True(t, IsPortfolioPageURL("https://acme.vc/investments"))
	assert.False(t, IsPortfolioPageURL("https://acme.vc/team"))
	assert.False(t, IsPortfolioPageURL("https://acme.vc/"))
}

func TestPortfolioPageLinks(t *testing.T) {
	html := `<html><body>
		<a href="/portfolio">Portfolio</a>
		<a href="/portfolio#grid">Anchor dup</a>
		<a href="/team">Team</a>
		<a href="https://other.example/portfolio">External</a>
	</body></html>`

	links := PortfolioPageLinks(doc(t, html), "https://acme.vc")
	sort.Strings(links)
	assert.Equal(t, []string{"https://acme.vc/portfolio"}, links)
}

func TestFallbackPortfolioURLs(t *testing.T) {
	urls := FallbackPortfolioURLs("https://acme.vc")
	require.NotEmpty(t, urls)
	assert.Contains(t, urls, "https://acme.vc/portfolio")
	assert.Contains(t, urls, "https://acme.vc/companies")
}

func TestPortfolioSectors(t *testing.T) {
	html := `<html><body>
		<div class="company-card">
			<h4>Widgetly</h4>
			<span class="sector">Fintech</span>
		</div>
		<div class="company-card">
			<h4>Carely</h4>
			<small>Digital Health</small>
		</div>
		<div class="company-card">
			<h4>Duply</h4>
			<span class="sector-tag">Fintech</span>
		</div>
		<p class="focus-copy">We back ambitious founders building enduring companies across many industries and geographies worldwide</p>
	</body></html>`

	sectors := PortfolioSectors(doc(t, html))
	assert.Equal(t, []string{"Fintech", "Digital Health"}, sectors)
}

func TestCrawlerBackfillsSectorsFromPortfolio(t *testing.T) {
	portfolioHTML := `<html><body>
		<div class="company-card"><h4>Widgetly</h4><span class="sector">Fintech</span></div>
		<div class="company-card"><h4>Carely</h4><span class="sector">Digital Health</span></div>
	</body></html>`
	fetcher := &fakeFetcher{pages: map[string]string{
		"https://acme.vc":           homepageHTML,
		"https://acme.vc/team":      teamPageHTML,
		"https://acme.vc/portfolio": portfolioHTML,
	}}
	targets := writeTargets(t, "https://acme.vc")

	c := New(Config{TargetsFile: targets, MaxConcurrent: 1}, fetcher, nil, nil, nil, nil)
	leads, _, err := c.Run(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, leads)
	for _, l := range leads {
		assert.Equal(t, []string{"Fintech", "Digital Health"}, l.Sectors, l.Name)
	}
}
