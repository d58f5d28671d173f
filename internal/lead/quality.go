package lead

import (
	"regexp"
	"strings"
)

// Quality buckets an email address by how trustworthy it is as a direct
// personal contact.
type Quality string

// Quality levels.
const (
	QualityHigh    Quality = "high"
	QualityMedium  Quality = "medium"
	QualityLow     Quality = "low"
	QualityInvalid Quality = "invalid"
)

var emailFormat = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// ValidFormat reports whether s is syntactically an email address.
func ValidFormat(s string) bool {
	return emailFormat.MatchString(strings.TrimSpace(s))
}

var disposableDomains = map[string]struct{}{
	"tempmail.com": {}, "throwaway.email": {}, "guerrillamail.com": {},
	"mailinator.com": {}, "yopmail.com": {}, "trashmail.com": {},
	"fakeinbox.com": {}, "sharklasers.com": {}, "grr.la": {},
	"dispostable.com": {}, "10minutemail.com": {},
}

var rolePrefixes = map[string]struct{}{
	"info": {}, "contact": {}, "hello": {}, "admin": {}, "support": {},
	"team": {}, "office": {}, "press": {}, "media": {}, "sales": {},
	"marketing": {}, "noreply": {}, "no-reply": {},
}

// Classify rates an email: invalid format, disposable domain (low),
// role-based local part like info@ (medium), or a plausible personal
// address (high).
func Classify(email string) Quality {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || email == "N/A" || email == EmailUnknown || !emailFormat.MatchString(email) {
		return QualityInvalid
	}
	local, domain, _ := strings.Cut(email, "@")
	if _, hit := disposableDomains[domain]; hit {
		return QualityLow
	}
	if _, hit := rolePrefixes[local]; hit {
		return QualityMedium
	}
	return QualityHigh
}

var emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,15}`)

// CleanExtractedEmail repairs an address harvested by regex from flowed page
// text, where adjacent words get concatenated onto the local part
// ("Email2024jane@x.com") or onto the TLD ("jane@x.vcFollow").
func CleanExtractedEmail(raw string) string {
	if !strings.Contains(raw, "@") {
		return strings.ToLower(raw)
	}
	at := strings.LastIndex(raw, "@")
	local, domain := raw[:at], raw[at+1:]
	local = stripGluedPrefix(local)

	// A lower-to-upper case transition inside the TLD marks where glued
	// text begins ("vcFollow" -> "vc").
	if dot := strings.LastIndex(domain, "."); dot >= 0 {
		base, tld := domain[:dot], domain[dot+1:]
		for i := 1; i < len(tld); i++ {
			if tld[i] >= 'A' && tld[i] <= 'Z' && tld[i-1] >= 'a' && tld[i-1] <= 'z' {
				tld = tld[:i]
				break
			}
		}
		if len(tld) > 15 {
			tld = tld[:3]
		}
		domain = base + "." + tld
	}
	return strings.ToLower(local + "@" + domain)
}

// stripGluedPrefix removes leading digit runs and Capitalized words that page
// text concatenated onto a local part. Stops rather than empty the value.
func stripGluedPrefix(local string) string {
	for local != "" {
		var i int
		switch c := local[0]; {
		case c >= '0' && c <= '9':
			for i = 1; i < len(local) && local[i] >= '0' && local[i] <= '9'; i++ {
			}
		case c >= 'A' && c <= 'Z':
			for i = 1; i < len(local) && local[i] >= 'a' && local[i] <= 'z'; i++ {
			}
		default:
			return local
		}
		if i >= len(local) {
			break
		}
		local = local[i:]
	}
	return local
}

var junkEmailMarkers = []string{
	".png", ".jpg", ".svg", ".gif", ".css", ".js",
	"example.com", "email.com", "domain.com", "sentry.io",
	"wixpress", "sentry-next",
}

// ExtractEmails regex-scans text for addresses, cleans concatenation damage,
// and drops asset filenames and placeholder domains that match the email
// shape.
func ExtractEmails(text string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, m := range emailPattern.FindAllString(text, -1) {
		e := CleanExtractedEmail(m)
		if hasJunkMarker(e) {
			continue
		}
		if _, dup := seen[e]; dup {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	return out
}

func hasJunkMarker(email string) bool {
	for _, m := range junkEmailMarkers {
		if strings.Contains(email, m) {
			return true
		}
	}
	return false
}
