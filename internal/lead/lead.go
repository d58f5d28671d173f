// Package lead defines the contact record shared across the pipeline and the
// email-format heuristics that operate on it.
package lead

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
)

// EmailUnknown is the sentinel value for a contact whose email has not been
// resolved yet. It is never a deliverable address.
const EmailUnknown = "unknown"

// EmailStatus records how an email value was obtained.
type EmailStatus string

// Email provenance tags, ordered roughly by confidence.
const (
	StatusUnverified        EmailStatus = "unverified"
	StatusScraped           EmailStatus = "scraped_from_page"
	StatusPatternGuessed    EmailStatus = "pattern_guessed"
	StatusOracleConfirmed   EmailStatus = "confirmed_by_oracle"
	StatusSMTPVerified      EmailStatus = "verified_by_smtp"
	StatusCatchAllGenerated EmailStatus = "catch_all_generated"
	StatusUndeliverable     EmailStatus = "undeliverable"
)

// Valid reports whether s is one of the defined provenance tags.
func (s EmailStatus) Valid() bool {
	switch s {
	case StatusUnverified, StatusScraped, StatusPatternGuessed,
		StatusOracleConfirmed, StatusSMTPVerified, StatusCatchAllGenerated,
		StatusUndeliverable:
		return true
	}
	return false
}

// Verified reports whether s asserts the address actually exists.
func (s EmailStatus) Verified() bool {
	return s == StatusOracleConfirmed || s == StatusSMTPVerified
}

// Lead is a discovered investor contact.
type Lead struct {
	Name        string      `json:"name"`
	Org         string      `json:"org"`
	Role        string      `json:"role,omitempty"`
	Email       string      `json:"email"`
	EmailStatus EmailStatus `json:"email_status"`
	ProfileURL  string      `json:"profile_url,omitempty"`
	Website     string      `json:"website,omitempty"`
	Sectors     []string    `json:"sectors,omitempty"`
	Stage       string      `json:"stage,omitempty"`
	CheckSize   string      `json:"check_size,omitempty"`
	Location    string      `json:"location,omitempty"`
	SourceURL   string      `json:"source_url,omitempty"`
	Discovered  time.Time   `json:"discovered_at"`
	Score       float64     `json:"score"`
	Tier        string      `json:"tier,omitempty"`
}

// HasEmail reports whether the contact carries a real address rather than the
// sentinel.
func (l *Lead) HasEmail() bool {
	return l.Email != "" && l.Email != EmailUnknown
}

// SetEmail assigns an address and its provenance in one step so the two
// fields cannot drift apart.
func (l *Lead) SetEmail(email string, status EmailStatus) {
	l.Email = strings.ToLower(strings.TrimSpace(email))
	l.EmailStatus = status
}

// Validate enforces the persisted-contact invariants: a non-empty name, a
// known provenance tag, and no verified provenance on a sentinel email.
func (l *Lead) Validate() error {
	if strings.TrimSpace(l.Name) == "" {
		return fmt.Errorf("lead %q: empty name", l.DedupKey())
	}
	if l.EmailStatus != "" && !l.EmailStatus.Valid() {
		return fmt.Errorf("lead %q: unknown email status %q", l.Name, l.EmailStatus)
	}
	if !l.HasEmail() && l.EmailStatus.Verified() {
		return fmt.Errorf("lead %q: verified provenance on sentinel email", l.Name)
	}
	return nil
}

// DedupKey is the (name, organization) identity used to deduplicate contacts
// within a run and against the persisted master set.
func (l *Lead) DedupKey() string {
	return strings.ToLower(strings.TrimSpace(l.Name)) + "|" + strings.ToLower(strings.TrimSpace(l.Org))
}

// Domain returns the registrable domain of the contact's website, or "" when
// the website is missing or unparseable.
func (l *Lead) Domain() string {
	return RegistrableDomain(l.Website)
}

// RegistrableDomain extracts the eTLD+1 from a URL or bare hostname.
func RegistrableDomain(raw string) string {
	if raw == "" {
		return ""
	}
	host := raw
	if strings.Contains(raw, "://") {
		u, err := url.Parse(raw)
		if err != nil {
			return ""
		}
		host = u.Hostname()
	} else if i := strings.IndexAny(host, "/?#"); i >= 0 {
		host = host[:i]
	}
	host = strings.ToLower(strings.TrimPrefix(host, "www."))
	host = strings.TrimSuffix(host, ".")
	if host == "" || !strings.Contains(host, ".") {
		return ""
	}
	if d, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
		return d
	}
	return host
}
