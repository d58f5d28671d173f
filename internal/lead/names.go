package lead

import (
	"strings"
	"unicode"
)

// companyWords flag strings that name a firm, a nav element, or page chrome
// rather than a person. Any single hit rejects the candidate name.
var companyWords = map[string]struct{}{}

func init() {
	for _, w := range []string{
		"capital", "ventures", "partners", "fund", "group", "holdings",
		"management", "investments", "equity", "advisors", "advisory",
		"associates", "labs", "studio", "studios", "foundation",
		"initiative", "institute", "accelerator", "incubator", "llc",
		"inc", "corp", "ltd", "limited", "gmbh", "sa", "ag",
		"news", "our", "the", "about", "additional", "strategic",
		"continuity", "growth", "seed", "series", "demo", "day",
		"portfolio", "companies", "company", "team", "meet", "join",
		"alumni", "network", "community", "program", "programs",
		"scout", "scouts", "bio", "life", "sciences", "games",
		"start", "path", "next", "catalyst", "innovation",
		"development", "fundamentals", "research", "digital",
		"global", "international", "technology", "technologies",
		"operating", "platform", "select", "emerging",
		"twitter", "linkedin", "facebook", "instagram", "youtube",
		"follow", "contact", "apply", "subscribe", "sign", "read",
		"learn", "view", "visit", "more", "blog", "press", "media",
		"on", "in", "at", "for", "to", "of", "an", "by", "from",
		"cookies", "cookie", "functional", "performance", "targeting",
		"marketing", "privacy", "overview", "principles", "core",
		"leadership", "history", "availability", "resources",
		"navigation", "submission", "submissions", "board",
		"shared", "values", "philosophy", "customers", "colleagues",
		"communities", "activity", "putting", "challenging",
		"convention", "smarter", "together", "humbly", "check",
		"your", "every", "stage", "how", "we", "help",
		"startups", "links", "information", "connect",
	} {
		companyWords[w] = struct{}{}
	}
}

var namePrefixes = []string{"Meet ", "About ", "Dr. ", "Prof. "}

// CleanPersonName strips team-page prefixes and trailing periods from a
// candidate person name.
func CleanPersonName(name string) string {
	cleaned := strings.TrimSpace(name)
	for _, p := range namePrefixes {
		if strings.HasPrefix(cleaned, p) {
			cleaned = cleaned[len(p):]
		}
	}
	return strings.TrimSpace(strings.TrimRight(cleaned, "."))
}

// IsPersonName reports whether a string plausibly names a real person rather
// than a fund, a nav label, or a page heading.
func IsPersonName(name string) bool {
	if name == "" || name == "N/A" || strings.EqualFold(name, EmailUnknown) {
		return false
	}
	cleaned := CleanPersonName(name)
	words := strings.Fields(strings.ToLower(cleaned))
	if len(words) < 2 || len(words) > 5 {
		return false
	}
	for _, w := range words {
		if _, hit := companyWords[strings.TrimRight(w, ".,;:")]; hit {
			return false
		}
	}
	// All-caps multi-word strings are headers, not names.
	if len(words) > 2 && cleaned == strings.ToUpper(cleaned) {
		return false
	}
	for _, r := range cleaned {
		if unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
