package crawler

import (
	"sort"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	d, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return d
}

func TestIsTeamPageURL(t *testing.T) {
	kw := DefaultKeywords()
	assert.True(t, kw.IsTeamPageURL("https://acme.vc/team"))
	assert.True(t, kw.IsTeamPageURL("https://acme.vc/about-us"))
	assert.True(t, kw.IsTeamPageURL("https://acme.vc/our-people/"))
	assert.True(t, kw.IsTeamPageURL("https://acme.vc/company/leadership"))
	assert.False(t, kw.IsTeamPageURL("https://acme.vc/portfolio"))
	assert.False(t, kw.IsTeamPageURL("https://acme.vc/"))
}

func TestTeamPageLinks(t *testing.T) {
	html := `<html><body>
		<a href="/team">Our Team</a>
		<a href="/portfolio">Portfolio</a>
		<a href="/story">Who we are</a>
		<a href="https://twitter.com/acme/team">Twitter</a>
		<a href="/team#top">Anchor</a>
	</body></html>`

	links := DefaultKeywords().TeamPageLinks(doc(t, html), "https://acme.vc")
	sort.Strings(links)
	assert.Equal(t, []string{"https://acme.vc/story", "https://acme.vc/team"}, links)
}

func TestCustomKeywordsDriveDiscovery(t *testing.T) {
	// A vertical profile for clinics swaps the vocabulary: /doctors is a
	// roster page, /team is not, and "Surgeon" counts as a role.
	kw := Keywords{TeamPage: []string{"doctors"}, Role: []string{"surgeon"}}.withDefaults()

	assert.True(t, kw.IsTeamPageURL("https://clinic.example/doctors"))
	assert.False(t, kw.IsTeamPageURL("https://clinic.example/team"))

	html := `<html><body>
		<div><h3>Jane Smith</h3><p>Orthopedic Surgeon</p></div>
		<div><h3>John Doe</h3><p>Resident</p></div>
	</body></html>`
	pairs := kw.ExtractNameRoles(doc(t, html))
	require.NotEmpty(t, pairs)
	assert.Equal(t, NameRole{Name: "Jane Smith", Role: "Orthopedic Surgeon"}, pairs[0])
}

func TestFallbackTeamURLs(t *testing.T) {
	urls := FallbackTeamURLs("https://acme.vc")
	require.NotEmpty(t, urls)
	assert.Contains(t, urls, "https://acme.vc/team")
	assert.Contains(t, urls, "https://acme.vc/about/team")
}

func TestHarvestEmails(t *testing.T) {
	html := `<html><body>
		<a href="mailto:jane@acme.vc?subject=hello">Jane</a>
		<div data-email="john@acme.vc"></div>
		<p>Reach ada [at] acme.vc or bob (at) acme.vc</p>
		<p>Not this: icon@2x.png or logo.svg@example.com</p>
		<span>raw: maria@acme.vc</span>
	</body></html>`

	emails := HarvestEmails(doc(t, html), html)
	sort.Strings(emails)
	assert.Equal(t, []string{"ada@acme.vc", "bob@acme.vc", "jane@acme.vc", "john@acme.vc", "maria@acme.vc"}, emails)
}

func TestLinkedInMatching(t *testing.T) {
	html := `<html><body>
		<a href="https://linkedin.com/in/jane-smith-123?trk=nav">Jane</a>
		<a href="https://www.linkedin.com/in/someone-else">Other</a>
		<a href="https://linkedin.com/company/acme">Acme</a>
	</body></html>`

	urls := LinkedInURLs(doc(t, html))
	require.Len(t, urls, 2)
	assert.Contains(t, urls, "https://linkedin.com/in/jane-smith-123")

	assert.Equal(t, "https://linkedin.com/in/jane-smith-123", MatchLinkedIn("Jane Smith", urls))
	assert.Empty(t, MatchLinkedIn("Bob Jones", urls))
}

func TestCleanRoleText(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"General Partner", "General Partner"},
		{"Based InBay AreaSpecialtySpecialistsFocusInvestor Relations", "Investor Relations"},
		{"PartnerLocationLondon", "Partner"},
		{"xy", ""},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, CleanRoleText(tc.in), tc.in)
	}
}

func TestLooksLikeName(t *testing.T) {
	yes := []string{"Jane Smith", "Jean-Luc Picard", "Mary Anne O'Neil"}
	no := []string{
		"Jane",
		"Our Team",
		"San Francisco",
		"Chief Marketing Officer",
		"Meet Jane Smith",
		"Jane Smith 2024",
		"jane smith",
		"J Smith",
		"Functional Cookies",
	}
	for _, s := range yes {
		assert.True(t, LooksLikeName(s), s)
	}
	for _, s := range no {
		assert.False(t, LooksLikeName(s), s)
	}
}

const teamPageHTML = `<html><head><title>Team — Acme</title></head><body>
<div class="team-grid">
	<div class="team-member">
		<h3>Jane Smith</h3>
		<p>General Partner</p>
		<a href="https://linkedin.com/in/jane-smith-123">LinkedIn</a>
	</div>
	<div class="team-member">
		<h3>John Doe</h3>
		<p>Principal</p>
	</div>
	<div class="team-member">
		<h3>Our Portfolio</h3>
		<p>Companies we back</p>
	</div>
</div>
<footer>Contact: jane.smith@acme.vc or info@acme.vc</footer>
</body></html>`

func TestExtractNameRoles(t *testing.T) {
	pairs := DefaultKeywords().ExtractNameRoles(doc(t, teamPageHTML))
	require.Len(t, pairs, 2)
	assert.Equal(t, NameRole{Name: "Jane Smith", Role: "General Partner"}, pairs[0])
	assert.Equal(t, "John Doe", pairs[1].Name)
	assert.Equal(t, "Principal", pairs[1].Role)
}

func TestExtractNameRolesRelaxedFallback(t *testing.T) {
	// No role text anywhere: the relaxed sweep still finds the names when
	// nothing stricter matched.
	html := `<html><body>
		<div><h3>Jane Smith</h3></div>
		<div><h3>John Doe</h3></div>
	</body></html>`
	pairs := DefaultKeywords().ExtractNameRoles(doc(t, html))
	require.Len(t, pairs, 2)
	assert.Equal(t, "Jane Smith", pairs[0].Name)
	assert.Empty(t, pairs[0].Role)
}
