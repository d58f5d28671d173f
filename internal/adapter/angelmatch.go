package adapter

import (
	"errors"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/myspacecornelius/leadscout/internal/lead"
)

// angelMatch parses angelmatch.com angel listings. The directory reveals more
// rows through a "Load more" button, so sites using this adapter default to
// the load-more strategy. Check sizes arrive as ranges ("$10K - $100K") and
// are kept verbatim for the scorer's range parser.
type angelMatch struct {
	sel Selectors
}

func newAngelMatch(cfg SiteConfig) (SiteAdapter, error) {
	sel := cfg.Selectors
	if sel.Card == "" {
		sel.Card = ".investor-item"
	}
	if sel.Name == "" {
		sel.Name = ".investor-name"
	}
	if sel.Role == "" {
		sel.Role = ".investor-title"
	}
	if sel.Fund == "" {
		sel.Fund = ".investor-company"
	}
	if sel.FocusAreas == "" {
		sel.FocusAreas = ".interest-tag"
	}
	if sel.CheckSize == "" {
		sel.CheckSize = ".investment-range"
	}
	if sel.Location == "" {
		sel.Location = ".investor-location"
	}
	if sel.LinkedIn == "" {
		sel.LinkedIn = `a[href*="linkedin.com"]`
	}
	return &angelMatch{sel: sel}, nil
}

func (a *angelMatch) Name() string         { return "angelmatch" }
func (a *angelMatch) CardSelector() string { return a.sel.Card }

func (a *angelMatch) ParseCard(card *goquery.Selection) (*lead.Lead, error) {
	name := safeText(card, a.sel.Name)
	if name == "" {
		return nil, errors.New("card has no name")
	}
	l := &lead.Lead{
		Name:      lead.CleanPersonName(name),
		Org:       safeText(card, a.sel.Fund),
		Role:      safeText(card, a.sel.Role),
		Email:     lead.EmailUnknown,
		Sectors:   safeList(card, a.sel.FocusAreas),
		Stage:     strings.ToLower(safeText(card, a.sel.Stage)),
		CheckSize: safeText(card, a.sel.CheckSize),
		Location:  safeText(card, a.sel.Location),
	}
	if u := safeAttr(card, a.sel.LinkedIn, "href"); u != "" {
		l.ProfileURL = u
	}
	if e := cardEmail(card, a.sel.Email); e != "" {
		l.SetEmail(e, lead.StatusScraped)
	}
	return l, nil
}
