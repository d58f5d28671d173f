package crawler

import (
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/myspacecornelius/leadscout/internal/lead"
)

// PageContacts runs the three extractors over one rendered team page and
// assembles leads: named contacts with their roles and profile links, the
// harvested email pool fuzzily assigned to them, and any leftover addresses
// recorded as unattributed contacts.
func (k Keywords) PageContacts(html, pageURL, fundName, fundURL string, now time.Time) ([]*lead.Lead, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse team page %s: %w", pageURL, err)
	}

	emails := HarvestEmails(doc, html)
	profiles := LinkedInURLs(doc)
	pairs := k.ExtractNameRoles(doc)

	leads := make([]*lead.Lead, 0, len(pairs))
	for _, p := range pairs {
		l := &lead.Lead{
			Name:       lead.CleanPersonName(p.Name),
			Org:        fundName,
			Role:       p.Role,
			Email:      lead.EmailUnknown,
			Website:    fundURL,
			SourceURL:  pageURL,
			Discovered: now,
		}
		if u := MatchLinkedIn(l.Name, profiles); u != "" {
			l.ProfileURL = u
		}
		leads = append(leads, l)
	}

	if len(leads) > 0 {
		lead.AssignEmails(leads, emails, lead.DefaultMatchThreshold)
		return leads, nil
	}

	// No names on the page: keep the addresses anyway, attributed to the
	// fund rather than a person.
	for _, e := range emails {
		l := &lead.Lead{
			Name:       "Unknown",
			Org:        fundName,
			Website:    fundURL,
			SourceURL:  pageURL,
			Discovered: now,
		}
		l.SetEmail(e, lead.StatusScraped)
		leads = append(leads, l)
	}
	return leads, nil
}
