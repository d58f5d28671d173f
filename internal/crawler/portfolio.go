package crawler

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// portfolioPathKeywords mark URL path segments that lead to a fund's company
// listing.
var portfolioPathKeywords = []string{"portfolio", "companies", "investments", "startups"}

// fallbackPortfolioPaths are tried when the homepage links to no recognizable
// portfolio page.
var fallbackPortfolioPaths = []string{"/portfolio", "/companies", "/investments"}

// sectorClassPattern matches the CSS classes funds hang sector tags on.
var sectorClassPattern = regexp.MustCompile(`(?i)sector|category|tag|industry|vertical|focus`)

// sectorHints are the focus-area words that make a short text fragment a
// plausible sector label rather than navigation or a company name.
var sectorHints = []string{
	"fintech", "health", "bio", "ai", "saas", "crypto", "web3", "climate",
	"edtech", "enterprise", "consumer", "hardware", "marketplace",
	"security", "cyber", "data", "analytics", "robotics", "deep tech",
	"gaming", "media", "food", "agri", "logistics", "proptech",
	"insurtech", "legaltech", "govtech", "cleantech", "mobility",
	"infrastructure", "developer", "devtools",
}

// maxPortfolioSectors caps how many distinct labels one domain contributes.
const maxPortfolioSectors = 8

// IsPortfolioPageURL reports whether a URL path looks like a company listing.
func IsPortfolioPageURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	path := strings.Trim(strings.ToLower(u.Path), "/")
	for _, kw := range portfolioPathKeywords {
		if strings.Contains(path, kw) {
			return true
		}
	}
	return false
}

// PortfolioPageLinks scans a homepage document for internal links to the
// fund's portfolio listing.
func PortfolioPageLinks(doc *goquery.Document, baseURL string) []string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil
	}
	seen := map[string]struct{}{}
	var out []string
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		full, err := base.Parse(href)
		if err != nil || full.Host != base.Host {
			return
		}
		if !IsPortfolioPageURL(full.String()) {
			return
		}
		full.Fragment = ""
		s := full.String()
		if _, dup := seen[s]; dup {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	})
	return out
}

// FallbackPortfolioURLs returns the conventional portfolio paths joined to
// the site root.
func FallbackPortfolioURLs(baseURL string) []string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil
	}
	out := make([]string, 0, len(fallbackPortfolioPaths))
	for _, p := range fallbackPortfolioPaths {
		if u, err := base.Parse(p); err == nil {
			out = append(out, u.String())
		}
	}
	return out
}

// PortfolioSectors extracts the sector labels a portfolio page shows on its
// company cards: elements whose class names them a sector or tag, plus short
// text fragments carrying a known focus-area word.
func PortfolioSectors(doc *goquery.Document) []string {
	seen := map[string]struct{}{}
	var out []string
	add := func(text string) {
		text = strings.TrimSpace(collapseSpaces.ReplaceAllString(text, " "))
		if len(text) < 2 || len(text) > 40 {
			return
		}
		key := strings.ToLower(text)
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		out = append(out, text)
	}

	doc.Find("[class]").Each(func(_ int, el *goquery.Selection) {
		class, _ := el.Attr("class")
		if !sectorClassPattern.MatchString(class) {
			return
		}
		if el.Children().Length() > 0 {
			return
		}
		add(el.Text())
	})

	doc.Find("span, small, em").Each(func(_ int, el *goquery.Selection) {
		text := strings.TrimSpace(el.Text())
		if len(text) > 40 {
			return
		}
		lower := strings.ToLower(text)
		for _, hint := range sectorHints {
			if strings.Contains(lower, hint) {
				add(text)
				return
			}
		}
	})
	return out
}
