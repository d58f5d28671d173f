package adapter

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/myspacecornelius/leadscout/internal/lead"
)

func firstCard(t *testing.T, html, sel string) *goquery.Selection {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	card := doc.Find(sel).First()
	require.Equal(t, 1, card.Length(), "card selector %q should match", sel)
	return card
}

func TestNewUnknownAdapter(t *testing.T) {
	_, err := New(SiteConfig{Adapter: "crunchscout"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "crunchscout")
	assert.Contains(t, err.Error(), "openvc")
}

func TestKnownAdapters(t *testing.T) {
	assert.Equal(t, []string{"angelmatch", "generic", "openvc"}, Known())
}

func TestGenericRequiresSelectors(t *testing.T) {
	_, err := New(SiteConfig{Adapter: "generic"})
	assert.Error(t, err)

	_, err = New(SiteConfig{Adapter: "generic", Selectors: Selectors{Card: ".c"}})
	assert.Error(t, err)

	_, err = New(SiteConfig{Adapter: "generic", Selectors: Selectors{Card: ".c", Name: ".n"}})
	assert.NoError(t, err)
}

const openVCCard = `
<div class="investor-card">
  <h3>Meet Jane Smith</h3>
  <span class="fund-name">Acme Ventures</span>
  <span class="investor-role">General Partner</span>
  <span class="focus-tag">Fintech</span>
  <span class="focus-tag">Climate</span>
  <span class="stage-tag">Seed</span>
  <span class="check-size">$100K - $500K</span>
  <span class="location">Berlin</span>
  <a href="https://linkedin.com/in/janesmith">LinkedIn</a>
  <a class="website-link" href="https://acme.vc">Site</a>
  <a href="mailto:jane@acme.vc?subject=hi">Email</a>
</div>`

func TestOpenVCParseCard(t *testing.T) {
	a, err := New(SiteConfig{Adapter: "openvc"})
	require.NoError(t, err)

	l, err := a.ParseCard(firstCard(t, openVCCard, a.CardSelector()))
	require.NoError(t, err)

	assert.Equal(t, "Jane Smith", l.Name)
	assert.Equal(t, "Acme Ventures", l.Org)
	assert.Equal(t, "General Partner", l.Role)
	assert.Equal(t, []string{"Fintech", "Climate"}, l.Sectors)
	assert.Equal(t, "seed", l.Stage)
	assert.Equal(t, "$100K - $500K", l.CheckSize)
	assert.Equal(t, "Berlin", l.Location)
	assert.Equal(t, "https://linkedin.com/in/janesmith", l.ProfileURL)
	assert.Equal(t, "https://acme.vc", l.Website)
	assert.Equal(t, "jane@acme.vc", l.Email)
	assert.Equal(t, lead.StatusScraped, l.EmailStatus)
}

func TestOpenVCCardWithoutEmail(t *testing.T) {
	a, err := New(SiteConfig{Adapter: "openvc"})
	require.NoError(t, err)

	html := `<div class="investor-card"><h3>John Doe</h3></div>`
	l, err := a.ParseCard(firstCard(t, html, a.CardSelector()))
	require.NoError(t, err)
	assert.Equal(t, lead.EmailUnknown, l.Email)
	assert.False(t, l.HasEmail())
}

func TestOpenVCCardWithoutName(t *testing.T) {
	a, err := New(SiteConfig{Adapter: "openvc"})
	require.NoError(t, err)

	html := `<div class="investor-card"><span class="fund-name">Acme</span></div>`
	_, err = a.ParseCard(firstCard(t, html, a.CardSelector()))
	assert.Error(t, err)
}

const angelMatchCard = `
<div class="investor-item">
  <div class="investor-name">Ada Lovelace</div>
  <div class="investor-title">Angel</div>
  <div class="investor-company">Analytical</div>
  <span class="interest-tag">DevTools</span>
  <div class="investment-range">$10K - $100K</div>
  <div class="investor-location">London</div>
  <a href="https://www.linkedin.com/in/ada">in</a>
  <p>Reach out: ada [at] analytical.vc or ada@analytical.vc</p>
</div>`

func TestAngelMatchParseCard(t *testing.T) {
	a, err := New(SiteConfig{Adapter: "angelmatch"})
	require.NoError(t, err)

	l, err := a.ParseCard(firstCard(t, angelMatchCard, a.CardSelector()))
	require.NoError(t, err)

	assert.Equal(t, "Ada Lovelace", l.Name)
	assert.Equal(t, "Analytical", l.Org)
	assert.Equal(t, "Angel", l.Role)
	assert.Equal(t, []string{"DevTools"}, l.Sectors)
	assert.Equal(t, "$10K - $100K", l.CheckSize)
	assert.Equal(t, "ada@analytical.vc", l.Email)
	assert.Equal(t, lead.StatusScraped, l.EmailStatus)
}

func TestGenericSplitsFocusString(t *testing.T) {
	a, err := New(SiteConfig{
		Adapter:   "generic",
		Selectors: Selectors{Card: ".p", Name: ".n", FocusAreas: ".f"},
	})
	require.NoError(t, err)

	html := `<div class="p"><span class="n">Jo Ko</span><span class="f">SaaS, AI / Robotics</span></div>`
	l, err := a.ParseCard(firstCard(t, html, ".p"))
	require.NoError(t, err)
	assert.Equal(t, []string{"SaaS", "AI", "Robotics"}, l.Sectors)
}

func listingHTML(names ...string) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	for _, n := range names {
		b.WriteString(`<div class="investor-card"><h3>` + n + `</h3></div>`)
	}
	b.WriteString("</body></html>")
	return b.String()
}

func TestExtractorDedupAndContainment(t *testing.T) {
	a, err := New(SiteConfig{Adapter: "openvc"})
	require.NoError(t, err)
	ext := NewExtractor(a, "https://openvc.app/investors", nil)

	html := `<html><body>
		<div class="investor-card"><h3>Jane Smith</h3></div>
		<div class="investor-card"><span class="fund-name">no name here</span></div>
		<div class="investor-card"><h3>jane smith</h3></div>
		<div class="investor-card"><h3>John Doe</h3></div>
	</body></html>`

	leads, stats, err := ext.ExtractHTML(html)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Cards)
	assert.Equal(t, 2, stats.Extracted)
	assert.Equal(t, 1, stats.Duplicates)
	assert.Equal(t, 1, stats.Malformed)
	require.Len(t, leads, 2)
	assert.Equal(t, "https://openvc.app/investors", leads[0].SourceURL)

	// Dedup carries across sweeps of the same run.
	leads, stats, err = ext.ExtractHTML(listingHTML("John Doe", "New Person"))
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Extracted)
	assert.Equal(t, 1, stats.Duplicates)
	require.Len(t, leads, 1)
	assert.Equal(t, "New Person", leads[0].Name)
	assert.Equal(t, 3, ext.SeenCount())
}
