package adapter

import (
	"errors"

	"github.com/PuerkitoBio/goquery"

	"github.com/myspacecornelius/leadscout/internal/lead"
)

// generic is a fully selector-driven adapter for directory sites that have
// no bespoke parsing quirks. Everything it knows comes from SiteConfig.
type generic struct {
	name string
	sel  Selectors
}

func newGeneric(cfg SiteConfig) (SiteAdapter, error) {
	if cfg.Selectors.Card == "" {
		return nil, errors.New("generic adapter requires a card selector")
	}
	if cfg.Selectors.Name == "" {
		return nil, errors.New("generic adapter requires a name selector")
	}
	name := cfg.Name
	if name == "" {
		name = "generic"
	}
	return &generic{name: name, sel: cfg.Selectors}, nil
}

func (g *generic) Name() string         { return g.name }
func (g *generic) CardSelector() string { return g.sel.Card }

func (g *generic) ParseCard(card *goquery.Selection) (*lead.Lead, error) {
	name := safeText(card, g.sel.Name)
	if name == "" {
		return nil, errors.New("card has no name")
	}
	l := &lead.Lead{
		Name:      lead.CleanPersonName(name),
		Org:       safeText(card, g.sel.Fund),
		Role:      safeText(card, g.sel.Role),
		Email:     lead.EmailUnknown,
		Sectors:   safeList(card, g.sel.FocusAreas),
		Stage:     safeText(card, g.sel.Stage),
		CheckSize: safeText(card, g.sel.CheckSize),
		Location:  safeText(card, g.sel.Location),
	}
	if len(l.Sectors) == 1 {
		l.Sectors = splitFocusAreas(l.Sectors[0])
	}
	if u := safeAttr(card, g.sel.LinkedIn, "href"); u != "" {
		l.ProfileURL = u
	}
	if u := safeAttr(card, g.sel.Website, "href"); u != "" {
		l.Website = u
	}
	if e := cardEmail(card, g.sel.Email); e != "" {
		l.SetEmail(e, lead.StatusScraped)
	}
	return l, nil
}
