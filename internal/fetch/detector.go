package fetch

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Detector decides from static-fetch signals whether a page needs the
// headless renderer, and spots captcha walls that must self-disable the
// browser path for the run.
type Detector struct {
	minHTMLBytes int
	selectors    []string
	keywords     [][]byte
}

// jsMarkers are framework shells that ship an empty body and hydrate
// client-side.
var defaultJSMarkers = []string{
	"__NEXT_DATA__", "ng-app", "data-reactroot", "enable javascript",
	"please enable javascript", "window.__NUXT__",
}

var captchaMarkers = [][]byte{
	[]byte("g-recaptcha"), []byte("h-captcha"), []byte("cf-challenge"),
	[]byte("challenge-platform"), []byte("are you a robot"),
	[]byte("unusual traffic"),
}

// NewDetector constructs a Detector. selectors are the content selectors
// whose absence from static HTML suggests client-side rendering.
func NewDetector(minBytes int, selectors, extraKeywords []string) *Detector {
	keywords := make([][]byte, 0, len(defaultJSMarkers)+len(extraKeywords))
	for _, kw := range append(append([]string{}, defaultJSMarkers...), extraKeywords...) {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		keywords = append(keywords, bytes.ToLower([]byte(kw)))
	}
	return &Detector{minHTMLBytes: minBytes, selectors: selectors, keywords: keywords}
}

// NeedsRender reports whether the static body shows signs of requiring JS
// execution: suspiciously small HTML, framework shell markers, or the
// expected content selectors missing entirely.
func (d *Detector) NeedsRender(page Page) bool {
	if d == nil {
		return false
	}
	switch {
	case d.minHTMLBytes > 0 && len(page.Body) < d.minHTMLBytes:
		return true
	case d.containsKeywords(page.Body):
		return true
	default:
		return d.missingSelectors(page.Body)
	}
}

// CaptchaDetected reports whether the body is a bot-challenge wall. The
// caller self-disables the dependent subsystem for the rest of the run.
func CaptchaDetected(body []byte) bool {
	if len(body) == 0 {
		return false
	}
	lower := bytes.ToLower(body)
	for _, m := range captchaMarkers {
		if bytes.Contains(lower, m) {
			return true
		}
	}
	return false
}

func (d *Detector) containsKeywords(body []byte) bool {
	if len(body) == 0 || len(d.keywords) == 0 {
		return false
	}
	lower := bytes.ToLower(body)
	for _, kw := range d.keywords {
		if bytes.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func (d *Detector) missingSelectors(body []byte) bool {
	if len(d.selectors) == 0 || len(body) == 0 {
		return false
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return true
	}
	for _, sel := range d.selectors {
		if sel == "" {
			continue
		}
		if doc.Find(sel).Length() == 0 {
			return true
		}
	}
	return false
}
