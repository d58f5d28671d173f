package lead

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Pattern is a canonical local-part construction rule for an organization's
// email domain.
type Pattern string

// The eight canonical patterns, ordered by prevalence at professional firms.
// first.last leads because it is the Google Workspace / Microsoft 365 default.
const (
	PatternFirstDotLast   Pattern = "{first}.{last}"
	PatternFirst          Pattern = "{first}"
	PatternFLast          Pattern = "{f}{last}"
	PatternFirstLast      Pattern = "{first}{last}"
	PatternFDotLast       Pattern = "{f}.{last}"
	PatternLast           Pattern = "{last}"
	PatternFirstUnderLast Pattern = "{first}_{last}"
	PatternLastDotFirst   Pattern = "{last}.{first}"
)

// Patterns lists every canonical pattern in prevalence order.
var Patterns = []Pattern{
	PatternFirstDotLast,
	PatternFirst,
	PatternFLast,
	PatternFirstLast,
	PatternFDotLast,
	PatternLast,
	PatternFirstUnderLast,
	PatternLastDotFirst,
}

// DefaultPattern is the statistical fallback when nothing was learned for a
// domain.
const DefaultPattern = PatternFirstDotLast

// ProbeCount is how many top patterns the discovery probe tries per domain.
const ProbeCount = 3

var stripAccents = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeNamePart lowercases a name fragment, strips accents, and keeps
// only ASCII letters, matching how local parts are built in practice.
func NormalizeNamePart(s string) string {
	if out, _, err := transform.String(stripAccents, s); err == nil {
		s = out
	}
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if r >= 'a' && r <= 'z' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// SplitName returns the normalized first and last name parts. Middle names
// are ignored. ok is false when the name cannot yield both parts.
func SplitName(name string) (first, last string, ok bool) {
	parts := strings.Fields(CleanPersonName(name))
	if len(parts) < 2 {
		return "", "", false
	}
	first = NormalizeNamePart(parts[0])
	last = NormalizeNamePart(parts[len(parts)-1])
	return first, last, first != "" && last != ""
}

// LocalPart renders the pattern's local part for a name. ok is false when the
// name cannot be split.
func (p Pattern) LocalPart(name string) (string, bool) {
	first, last, ok := SplitName(name)
	if !ok {
		return "", false
	}
	r := strings.NewReplacer(
		"{first}", first,
		"{last}", last,
		"{f}", first[:1],
	)
	return r.Replace(string(p)), true
}

// Apply renders a full address for a name at a domain.
func (p Pattern) Apply(name, domain string) (string, bool) {
	local, ok := p.LocalPart(name)
	if !ok || domain == "" {
		return "", false
	}
	return local + "@" + domain, true
}

// Candidates generates one address per canonical pattern, in prevalence
// order. Empty when the name cannot be split.
func Candidates(name, domain string) []string {
	if _, _, ok := SplitName(name); !ok || domain == "" {
		return nil
	}
	out := make([]string, 0, len(Patterns))
	for _, p := range Patterns {
		if email, ok := p.Apply(name, domain); ok {
			out = append(out, email)
		}
	}
	return out
}

// DetectPattern reverse-matches a known email against the person's name and
// returns the canonical pattern it conforms to.
func DetectPattern(email, name string) (Pattern, bool) {
	local, _, found := strings.Cut(email, "@")
	if !found || local == "" {
		return "", false
	}
	local = strings.ToLower(local)
	for _, p := range Patterns {
		if expected, ok := p.LocalPart(name); ok && expected == local {
			return p, true
		}
	}
	return "", false
}
