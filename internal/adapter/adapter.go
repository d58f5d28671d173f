// Package adapter holds the site-adapter capability contract, the static
// registry of concrete per-site extractors, and the pagination state machine
// that drives them.
package adapter

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/myspacecornelius/leadscout/internal/lead"
)

// Selectors are the per-site CSS selectors a card parser reads.
type Selectors struct {
	Card       string `mapstructure:"card"`
	Name       string `mapstructure:"name"`
	Role       string `mapstructure:"role"`
	Fund       string `mapstructure:"fund"`
	FocusAreas string `mapstructure:"focus_areas"`
	Stage      string `mapstructure:"stage"`
	CheckSize  string `mapstructure:"check_size"`
	Location   string `mapstructure:"location"`
	LinkedIn   string `mapstructure:"linkedin"`
	Website    string `mapstructure:"website"`
	Email      string `mapstructure:"email"`
}

// PaginationType selects one of the four driver strategies.
type PaginationType string

// Pagination strategies.
const (
	PaginateNone           PaginationType = "none"
	PaginateInfiniteScroll PaginationType = "infinite_scroll"
	PaginateLoadMore       PaginationType = "load_more_button"
	PaginateNumberedPages  PaginationType = "numbered_pages"
)

// Pagination configures the driver for one site.
type Pagination struct {
	Type           PaginationType `mapstructure:"type"`
	ScrollCount    int            `mapstructure:"scroll_count"`
	ScrollDelay    time.Duration  `mapstructure:"scroll_delay"`
	LoadIndicator  string         `mapstructure:"load_indicator"`
	ButtonSelector string         `mapstructure:"button_selector"`
	MaxClicks      int            `mapstructure:"max_clicks"`
	NextButton     string         `mapstructure:"next_button"`
	MaxPages       int            `mapstructure:"max_pages"`
	StaleRounds    int            `mapstructure:"stale_rounds"`
}

// SiteConfig is one site's entry in configuration.
type SiteConfig struct {
	Name       string     `mapstructure:"name"`
	Adapter    string     `mapstructure:"adapter"`
	URL        string     `mapstructure:"url"`
	Selectors  Selectors  `mapstructure:"selectors"`
	Pagination Pagination `mapstructure:"pagination"`
}

// SiteAdapter turns one card element into at most one Lead. Adapters never
// manage navigation; the Driver owns that.
type SiteAdapter interface {
	Name() string
	CardSelector() string
	ParseCard(card *goquery.Selection) (*lead.Lead, error)
}

// factory builds an adapter from its site configuration.
type factory func(cfg SiteConfig) (SiteAdapter, error)

// registry is the closed set of known adapters. Selection is a static map
// lookup, not reflection.
var registry = map[string]factory{
	"openvc":     newOpenVC,
	"angelmatch": newAngelMatch,
	"generic":    newGeneric,
}

// New resolves a site config to its adapter implementation. An unknown
// adapter name is a configuration error, fatal for this site only.
func New(cfg SiteConfig) (SiteAdapter, error) {
	name := cfg.Adapter
	if name == "" {
		name = "generic"
	}
	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown adapter %q (known: %s)", name, strings.Join(Known(), ", "))
	}
	return f(cfg)
}

// Known lists the registered adapter names.
func Known() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
