package adapter

import (
	"errors"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/myspacecornelius/leadscout/internal/lead"
)

// openVC parses the openvc.app investor directory. The list hydrates more
// rows as the page scrolls, so sites using this adapter default to the
// infinite-scroll strategy.
type openVC struct {
	sel Selectors
}

func newOpenVC(cfg SiteConfig) (SiteAdapter, error) {
	sel := cfg.Selectors
	if sel.Card == "" {
		sel.Card = ".investor-card"
	}
	if sel.Name == "" {
		sel.Name = "h3"
	}
	if sel.Fund == "" {
		sel.Fund = ".fund-name"
	}
	if sel.Role == "" {
		sel.Role = ".investor-role"
	}
	if sel.FocusAreas == "" {
		sel.FocusAreas = ".focus-tag"
	}
	if sel.Stage == "" {
		sel.Stage = ".stage-tag"
	}
	if sel.CheckSize == "" {
		sel.CheckSize = ".check-size"
	}
	if sel.Location == "" {
		sel.Location = ".location"
	}
	if sel.LinkedIn == "" {
		sel.LinkedIn = `a[href*="linkedin.com"]`
	}
	if sel.Website == "" {
		sel.Website = "a.website-link"
	}
	return &openVC{sel: sel}, nil
}

func (o *openVC) Name() string         { return "openvc" }
func (o *openVC) CardSelector() string { return o.sel.Card }

func (o *openVC) ParseCard(card *goquery.Selection) (*lead.Lead, error) {
	name := safeText(card, o.sel.Name)
	if name == "" {
		return nil, errors.New("card has no name")
	}
	l := &lead.Lead{
		Name:      lead.CleanPersonName(name),
		Org:       safeText(card, o.sel.Fund),
		Role:      safeText(card, o.sel.Role),
		Email:     lead.EmailUnknown,
		Sectors:   safeList(card, o.sel.FocusAreas),
		Stage:     strings.ToLower(safeText(card, o.sel.Stage)),
		CheckSize: safeText(card, o.sel.CheckSize),
		Location:  safeText(card, o.sel.Location),
	}
	if u := safeAttr(card, o.sel.LinkedIn, "href"); u != "" {
		l.ProfileURL = u
	}
	if u := safeAttr(card, o.sel.Website, "href"); u != "" {
		l.Website = u
	}
	if e := cardEmail(card, o.sel.Email); e != "" {
		l.SetEmail(e, lead.StatusScraped)
	}
	return l, nil
}
