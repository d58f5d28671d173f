package adapter

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/myspacecornelius/leadscout/internal/lead"
)

// safeText returns the trimmed text of the first match, or "".
func safeText(card *goquery.Selection, sel string) string {
	if sel == "" {
		return ""
	}
	return strings.TrimSpace(card.Find(sel).First().Text())
}

// safeAttr returns the trimmed attribute of the first match, or "".
func safeAttr(card *goquery.Selection, sel, attr string) string {
	if sel == "" {
		return ""
	}
	v, _ := card.Find(sel).First().Attr(attr)
	return strings.TrimSpace(v)
}

// safeList collects the trimmed text of every match.
func safeList(card *goquery.Selection, sel string) []string {
	if sel == "" {
		return nil
	}
	var out []string
	card.Find(sel).Each(func(_ int, s *goquery.Selection) {
		if t := strings.TrimSpace(s.Text()); t != "" {
			out = append(out, t)
		}
	})
	return out
}

// cardEmail pulls an email out of one card: mailto links first, then a
// regex sweep over the card text. Returns "" when nothing survives cleanup.
func cardEmail(card *goquery.Selection, emailSel string) string {
	if emailSel != "" {
		if e := cleanValid(strings.TrimPrefix(safeAttr(card, emailSel, "href"), "mailto:")); e != "" {
			return e
		}
		if e := cleanValid(safeText(card, emailSel)); e != "" {
			return e
		}
	}
	var found string
	card.Find(`a[href^="mailto:"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		addr := strings.TrimPrefix(href, "mailto:")
		if i := strings.IndexByte(addr, '?'); i >= 0 {
			addr = addr[:i]
		}
		if e := cleanValid(addr); e != "" {
			found = e
			return false
		}
		return true
	})
	if found != "" {
		return found
	}
	if emails := lead.ExtractEmails(card.Text()); len(emails) > 0 {
		return emails[0]
	}
	return ""
}

// cleanValid cleans a candidate and keeps it only if it still parses as an
// email afterwards.
func cleanValid(raw string) string {
	e := lead.CleanExtractedEmail(raw)
	if !lead.ValidFormat(e) {
		return ""
	}
	return e
}

// splitFocusAreas turns a comma or slash separated focus string into sectors.
func splitFocusAreas(raw string) []string {
	if raw == "" {
		return nil
	}
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == '/' || r == ';' || r == '|'
	})
	var out []string
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
