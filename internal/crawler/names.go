package crawler

import (
	"strings"
	"unicode"
)

// nameBlocklist holds phrases that show up where names should be: cities,
// navigation labels, section headers, cookie banners, slogans. A candidate
// containing any of these is rejected outright.
var nameBlocklist = []string{
	"san francisco", "new york", "palo alto", "los angeles", "boston",
	"chicago", "austin", "seattle", "menlo park", "silicon valley",
	"mountain view", "tel aviv", "london", "berlin", "toronto",
	"hong kong", "singapore", "beijing", "shanghai", "mumbai",
	"helpful tips", "read more", "learn more", "contact us", "get started",
	"sign up", "log in", "about us", "who we are", "what we do",
	"how it works", "join us", "careers", "open positions",
	"view all", "see more", "load more", "subscribe", "follow us",
	"main navigation", "quick links", "site map", "back top",
	"check availability", "founder resources", "submit application",
	"our portfolio", "our approach", "our story", "our mission",
	"our values", "our focus", "our team", "our people",
	"our philosophy", "our leadership", "our customers",
	"our colleagues", "our communities", "our shared values",
	"latest news", "press releases", "recent investments",
	"portfolio companies", "featured",
	"investment team", "advisory board", "advisory team",
	"investment activity", "core principles",
	"company history", "putting our",
	"functional cookies", "performance cookies", "targeting cookies",
	"marketing cookies", "privacy overview", "privacy policy",
	"terms of service", "cookie policy", "cookie settings",
	"smarter together", "humbly open-minded", "challenging convention",
	"we invest in", "how we help", "our startups",
	"our blog", "connect with us", "links you may",
	"more from", "additional information",
}

// jobTitleWords appear in titles but not in person names. Two or more hits
// reject the candidate.
var jobTitleWords = map[string]struct{}{
	"officer": {}, "manager": {}, "director": {}, "engineer": {},
	"specialist": {}, "accountant": {}, "analyst": {}, "coordinator": {},
	"administrator": {}, "president": {}, "vice": {}, "senior": {},
	"junior": {}, "associate": {}, "lead": {}, "chief": {}, "head": {},
	"staff": {}, "principal": {}, "marketing": {}, "operations": {},
	"technology": {}, "financial": {}, "reporting": {}, "portfolio": {},
	"accounting": {}, "product": {}, "investment": {}, "full": {},
	"stack": {}, "fund": {},
}

var nonNameStarters = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "our": {}, "your": {}, "my": {},
	"this": {}, "that": {}, "we": {}, "how": {}, "set": {}, "more": {},
	"about": {}, "meet": {},
}

// LooksLikeName reports whether heading text plausibly names a person rather
// than a section, a city, or a job title.
func LooksLikeName(text string) bool {
	words := strings.Fields(text)
	if len(words) < 2 || len(words) > 5 {
		return false
	}
	if len(text) > 40 || len(text) < 4 {
		return false
	}
	for _, r := range text {
		if unicode.IsDigit(r) {
			return false
		}
	}
	lower := strings.ToLower(text)
	for _, blocked := range nameBlocklist {
		if strings.Contains(lower, blocked) {
			return false
		}
	}
	hits := 0
	for _, w := range strings.Fields(lower) {
		if _, hit := jobTitleWords[w]; hit {
			hits++
		}
	}
	if hits >= 2 {
		return false
	}
	if _, hit := nonNameStarters[strings.ToLower(words[0])]; hit {
		return false
	}
	for _, w := range words {
		cleaned := strings.Map(func(r rune) rune {
			switch r {
			case '-', '.', '\'', '’':
				return -1
			}
			return r
		}, w)
		if cleaned == "" {
			return false
		}
		first := []rune(cleaned)[0]
		if !unicode.IsUpper(first) {
			return false
		}
		for _, r := range cleaned {
			if !unicode.IsLetter(r) {
				return false
			}
		}
	}
	if len([]rune(words[0])) < 2 || len([]rune(words[len(words)-1])) < 2 {
		return false
	}
	return true
}

// roleIsActuallyAName catches the off-by-one where grid markup hands us the
// next person's name as this person's role.
func (k Keywords) roleIsActuallyAName(roleText string) bool {
	if roleText == "" || !LooksLikeName(roleText) {
		return false
	}
	lower := strings.ToLower(roleText)
	for _, kw := range k.Role {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return false
		}
	}
	return true
}

func (k Keywords) containsRoleKeyword(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range k.Role {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
