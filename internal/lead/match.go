package lead

import "strings"

// MatchScore rates how well an email's local part matches a person's name,
// from 0 (no relation) to 1 (exact first.last). Exact pattern hits outrank
// partial containment so that jsmith@ beats a stray smithers@ for Jane Smith.
func MatchScore(email, name string) float64 {
	local, _, found := strings.Cut(strings.ToLower(email), "@")
	if !found || local == "" {
		return 0
	}
	first, last, ok := SplitName(name)
	if !ok {
		return 0
	}
	f := first[:1]

	switch local {
	case first + "." + last:
		return 1.0
	case first + last, first + "_" + last:
		return 0.9
	case f + last, f + "." + last:
		return 0.85
	case first, last + "." + first:
		return 0.8
	case last:
		return 0.6
	}
	hasFirst := strings.Contains(local, first)
	hasLast := strings.Contains(local, last)
	switch {
	case hasFirst && hasLast:
		return 0.7
	case hasLast:
		return 0.5
	case hasFirst:
		return 0.4
	}
	return 0
}

// DefaultMatchThreshold is the minimum MatchScore required before an orphan
// email is assigned to a contact.
const DefaultMatchThreshold = 0.3

// AssignEmails pairs orphan emails harvested from a page with the contacts
// extracted from the same page. Each contact without an email takes the
// highest-scoring candidate at or above threshold; an assigned email leaves
// the pool so it can never be given to two people. Returns the number of
// assignments made.
func AssignEmails(leads []*Lead, pool []string, threshold float64) int {
	if threshold <= 0 {
		threshold = DefaultMatchThreshold
	}
	remaining := make([]string, len(pool))
	copy(remaining, pool)
	assigned := 0
	for _, l := range leads {
		if l.HasEmail() || len(remaining) == 0 {
			continue
		}
		bestIdx, bestScore := -1, 0.0
		for i, email := range remaining {
			if s := MatchScore(email, l.Name); s > bestScore {
				bestIdx, bestScore = i, s
			}
		}
		if bestIdx < 0 || bestScore < threshold {
			continue
		}
		l.SetEmail(remaining[bestIdx], StatusScraped)
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
		assigned++
	}
	return assigned
}
