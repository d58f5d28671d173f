// Package crawler walks fund websites: it locates team pages, extracts
// contact names, roles, emails and profile links from them, and drives the
// per-domain crawl loop with its timeouts and checkpoints.
package crawler

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/myspacecornelius/leadscout/internal/lead"
)

// teamPageKeywords mark URL path segments that likely lead to a roster page.
var teamPageKeywords = []string{
	"team", "people", "about", "who-we-are", "our-team",
	"partners", "leadership", "staff", "investors", "bios",
	"professionals", "portfolio-team", "our-people", "meet-the-team",
}

// Keywords is the vocabulary the extractors match against. Vertical profiles
// substitute their own lists; empty fields keep the built-in English ones.
type Keywords struct {
	TeamPage []string
	Role     []string
}

// DefaultKeywords returns the built-in vocabulary.
func DefaultKeywords() Keywords {
	return Keywords{TeamPage: teamPageKeywords, Role: roleKeywords}
}

func (k Keywords) withDefaults() Keywords {
	if len(k.TeamPage) == 0 {
		k.TeamPage = teamPageKeywords
	}
	if len(k.Role) == 0 {
		k.Role = roleKeywords
	}
	return k
}

// anchorTextClues are link labels worth following even when the href path
// gives nothing away.
var anchorTextClues = []string{"team", "people", "about us", "who we are", "our team"}

// fallbackPaths are tried when a homepage links to no recognizable team page.
var fallbackPaths = []string{
	"/team", "/about", "/people", "/about-us", "/our-team",
	"/leadership", "/who-we-are", "/about/team", "/partners", "/our-people",
}

// roleKeywords identify text describing someone's job at a fund.
var roleKeywords = []string{
	"partner", "principal", "associate", "analyst", "founder",
	"managing", "director", "vice president", "vp", "ceo",
	"cto", "cfo", "coo", "general partner", "venture partner",
	"operating partner", "senior associate", "investment",
	"head of", "chief", "chairman", "advisory", "advisor",
	"eir", "entrepreneur in residence", "scout", "fellow",
	"investor", "member", "operator", "observer", "mentor",
	"board", "team", "staff", "manager", "counsel",
	"secretary", "treasurer", "controller", "intern", "resident",
}

// IsTeamPageURL reports whether a URL path looks like a team or about page.
func (k Keywords) IsTeamPageURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	path := strings.Trim(strings.ToLower(u.Path), "/")
	for _, kw := range k.TeamPage {
		if strings.Contains(path, kw) {
			return true
		}
	}
	return false
}

// TeamPageLinks scans a homepage document for internal links to team pages,
// matching both URL paths and anchor text.
func (k Keywords) TeamPageLinks(doc *goquery.Document, baseURL string) []string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil
	}
	seen := map[string]struct{}{}
	var out []string
	add := func(full *url.URL) {
		if full.Host != base.Host {
			return
		}
		full.Fragment = ""
		s := full.String()
		if _, dup := seen[s]; dup {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		full, err := base.Parse(href)
		if err != nil {
			return
		}
		if k.IsTeamPageURL(full.String()) {
			add(full)
			return
		}
		text := strings.ToLower(strings.TrimSpace(a.Text()))
		for _, clue := range anchorTextClues {
			if strings.Contains(text, clue) {
				add(full)
				return
			}
		}
	})
	return out
}

// FallbackTeamURLs returns the conventional team paths joined to the site
// root, used when the homepage links to nothing recognizable.
func FallbackTeamURLs(baseURL string) []string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil
	}
	out := make([]string, 0, len(fallbackPaths))
	for _, p := range fallbackPaths {
		if u, err := base.Parse(p); err == nil {
			out = append(out, u.String())
		}
	}
	return out
}

var dataEmailAttrs = []string{"data-email", "data-mail", "data-contact", "data-href"}

var obfuscationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)([a-zA-Z0-9._%+-]+)\s*\[at\]\s*([a-zA-Z0-9.-]+\.[a-zA-Z]{2,})`),
	regexp.MustCompile(`(?i)([a-zA-Z0-9._%+-]+)\s*\(at\)\s*([a-zA-Z0-9.-]+\.[a-zA-Z]{2,})`),
	regexp.MustCompile(`(?i)([a-zA-Z0-9._%+-]+)\s*@\s*([a-zA-Z0-9.-]+)\s*\.\s*([a-zA-Z]{2,})`),
}

var retinaAssetMarkers = []string{"@2x", "@3x"}

// HarvestEmails pulls addresses from every source one page offers: mailto
// links, data attributes, visible text, raw markup, and the usual
// "name [at] domain" obfuscations.
func HarvestEmails(doc *goquery.Document, rawHTML string) []string {
	seen := map[string]struct{}{}
	add := func(e string) {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			return
		}
		seen[e] = struct{}{}
	}

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if !strings.HasPrefix(href, "mailto:") {
			return
		}
		addr := strings.TrimPrefix(href, "mailto:")
		if i := strings.IndexByte(addr, '?'); i >= 0 {
			addr = addr[:i]
		}
		if at := strings.LastIndex(addr, "@"); at > 0 && strings.Contains(addr[at:], ".") {
			add(addr)
		}
	})

	doc.Find("*").Each(func(_ int, s *goquery.Selection) {
		for _, attr := range dataEmailAttrs {
			if v, ok := s.Attr(attr); ok && strings.Contains(v, "@") && strings.Contains(v, ".") {
				add(v)
			}
		}
	})

	pageText := doc.Text()
	for _, e := range lead.ExtractEmails(pageText) {
		add(e)
	}
	for _, e := range lead.ExtractEmails(rawHTML) {
		add(e)
	}

	for _, pat := range obfuscationPatterns {
		for _, m := range pat.FindAllStringSubmatch(pageText, -1) {
			switch len(m) {
			case 3:
				add(m[1] + "@" + m[2])
			case 4:
				add(m[1] + "@" + m[2] + "." + m[3])
			}
		}
	}

	var out []string
	for e := range seen {
		if len(e) < 5 || len(e) > 60 {
			continue
		}
		if junkEmail(e) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func junkEmail(e string) bool {
	if !lead.ValidFormat(e) {
		return true
	}
	for _, m := range retinaAssetMarkers {
		if strings.Contains(e, m) {
			return true
		}
	}
	// ExtractEmails applies the shared asset/placeholder filters.
	return len(lead.ExtractEmails(e)) == 0
}

// LinkedInURLs collects profile links, with tracking parameters stripped.
func LinkedInURLs(doc *goquery.Document) []string {
	seen := map[string]struct{}{}
	var out []string
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if !strings.Contains(href, "linkedin.com/in/") {
			return
		}
		if i := strings.IndexByte(href, '?'); i >= 0 {
			href = href[:i]
		}
		if _, dup := seen[href]; dup {
			return
		}
		seen[href] = struct{}{}
		out = append(out, href)
	})
	return out
}

// MatchLinkedIn finds the profile URL whose slug resembles the contact name.
func MatchLinkedIn(name string, urls []string) string {
	slug := strings.ToLower(strings.ReplaceAll(name, " ", ""))
	if len(slug) > 6 {
		slug = slug[:6]
	}
	if slug == "" {
		return ""
	}
	for _, u := range urls {
		if strings.Contains(strings.ReplaceAll(strings.ToLower(u), "-", ""), slug) {
			return u
		}
	}
	return ""
}

var (
	camelBoundary  = regexp.MustCompile(`([a-z])([A-Z])`)
	roleNoise      = regexp.MustCompile(`(?i)(Based\s+In\s*|Specialty\s*|Specialists?\s*|Focus\s*|Location\s*|Office\b\s*:?\s*|Region\s*)`)
	leakedCities   *regexp.Regexp
	collapseSpaces = regexp.MustCompile(`\s+`)
)

func init() {
	cities := []string{
		"Bay Area", "San Francisco", "New York", "Palo Alto", "Boston",
		"London", "Berlin", "Tel Aviv", "Singapore", "Beijing", "Shanghai",
		"Los Angeles", "Chicago", "Austin", "Seattle", "Menlo Park",
		"Mountain View", "Toronto", "Mumbai", "Bangalore", "Bengaluru",
	}
	quoted := make([]string, len(cities))
	for i, c := range cities {
		quoted[i] = regexp.QuoteMeta(c)
	}
	leakedCities = regexp.MustCompile(`(?i)(` + strings.Join(quoted, "|") + `)`)
}

// CleanRoleText repairs role strings mangled by structural HTML, where
// sibling labels concatenate without separators
// ("Based InBay AreaSpecialtyInvestor Relations").
func CleanRoleText(raw string) string {
	text := camelBoundary.ReplaceAllString(raw, "$1 $2")
	text = roleNoise.ReplaceAllString(text, " ")
	text = leakedCities.ReplaceAllString(text, "")
	text = strings.TrimSpace(collapseSpaces.ReplaceAllString(text, " "))
	if len(text) < 3 {
		return ""
	}
	return text
}
