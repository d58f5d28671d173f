// Package stealth generates consistent browser identities, humanlike timing,
// and proxy assignment for every browser-driven component.
package stealth

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"

	"github.com/chromedp/chromedp"
)

var userAgents = []string{
	// Chrome on macOS
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_2_1) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
	// Chrome on Windows
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	// Firefox
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:122.0) Gecko/20100101 Firefox/122.0",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:122.0) Gecko/20100101 Firefox/122.0",
	// Safari on macOS
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_2_1) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Safari/605.1.15",
	// Edge on Windows
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36 Edg/121.0.0.0",
}

var viewports = [][2]int{
	{1920, 1080}, {1440, 900}, {1536, 864}, {1366, 768},
	{2560, 1440}, {1680, 1050}, {1280, 800},
}

var timezones = []string{
	"America/New_York", "America/Chicago", "America/Denver",
	"America/Los_Angeles", "America/Toronto", "Europe/London", "Europe/Berlin",
}

var locales = []string{"en-US", "en-GB", "en-CA"}

var colorSchemes = []string{"light", "dark"}

// Fingerprint is one internally-consistent browser identity.
type Fingerprint struct {
	UserAgent   string
	ViewportW   int
	ViewportH   int
	AvailHeight int
	Timezone    string
	Locale      string
	ColorScheme string
	Platform    string
	ScaleFactor float64
}

// Generator produces randomized fingerprints. Safe for concurrent use.
type Generator struct {
	mu        sync.Mutex
	rng       *rand.Rand
	generated int
	uniqueUA  map[string]struct{}
}

// NewGenerator creates a Generator. seed 0 means time-seeded randomness; any
// other value makes the sequence reproducible for tests.
func NewGenerator(seed int64) *Generator {
	src := rand.NewSource(seed)
	if seed == 0 {
		src = rand.NewSource(rand.Int63())
	}
	return &Generator{rng: rand.New(src), uniqueUA: make(map[string]struct{})}
}

// Generate builds a new identity. The platform always matches the user
// agent so the two never contradict each other in detection scripts.
func (g *Generator) Generate() Fingerprint {
	g.mu.Lock()
	defer g.mu.Unlock()

	ua := userAgents[g.rng.Intn(len(userAgents))]
	vp := viewports[g.rng.Intn(len(viewports))]
	fp := Fingerprint{
		UserAgent:   ua,
		ViewportW:   vp[0],
		ViewportH:   vp[1],
		AvailHeight: vp[1] - (25 + g.rng.Intn(56)),
		Timezone:    timezones[g.rng.Intn(len(timezones))],
		Locale:      locales[g.rng.Intn(len(locales))],
		ColorScheme: colorSchemes[g.rng.Intn(len(colorSchemes))],
		Platform:    platformFor(ua),
		ScaleFactor: []float64{1, 1.5, 2}[g.rng.Intn(3)],
	}
	g.generated++
	g.uniqueUA[ua] = struct{}{}
	return fp
}

// Stats reports how many fingerprints were handed out and how many distinct
// user agents they used.
func (g *Generator) Stats() (generated, uniqueUserAgents int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.generated, len(g.uniqueUA)
}

func platformFor(ua string) string {
	switch {
	case strings.Contains(ua, "Macintosh"), strings.Contains(ua, "Mac OS"):
		return "MacIntel"
	case strings.Contains(ua, "Windows"):
		return "Win32"
	default:
		return "Linux x86_64"
	}
}

// AllocatorOptions returns chromedp allocator options carrying the identity.
func (f Fingerprint) AllocatorOptions() []chromedp.ExecAllocatorOption {
	return []chromedp.ExecAllocatorOption{
		chromedp.UserAgent(f.UserAgent),
		chromedp.WindowSize(f.ViewportW, f.ViewportH),
		chromedp.Flag("lang", f.Locale),
	}
}

// OverrideScript returns the JS injected before any page script runs. It
// patches the detection points headless Chrome gets wrong: the webdriver
// flag, the missing chrome runtime object, empty plugin and language lists,
// and screen metrics that disagree with the viewport.
func (f Fingerprint) OverrideScript() string {
	return fmt.Sprintf(`
Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
window.chrome = { runtime: {}, loadTimes: function() {}, csi: function() {}, app: {} };
const originalQuery = window.navigator.permissions.query.bind(window.navigator.permissions);
window.navigator.permissions.query = (parameters) =>
	parameters.name === 'notifications'
		? Promise.resolve({ state: Notification.permission })
		: originalQuery(parameters);
Object.defineProperty(navigator, 'plugins', { get: () => [1, 2, 3, 4, 5] });
Object.defineProperty(navigator, 'languages', { get: () => ['%s', 'en'] });
Object.defineProperty(navigator, 'platform', { get: () => '%s' });
Object.defineProperty(navigator, 'hardwareConcurrency', { get: () => %d });
Object.defineProperty(screen, 'availHeight', { get: () => %d });
Object.defineProperty(screen, 'width', { get: () => %d });
Object.defineProperty(screen, 'height', { get: () => %d });
`, f.Locale, f.Platform, []int{4, 8, 12, 16}[len(f.UserAgent)%4], f.AvailHeight, f.ViewportW, f.ViewportH)
}
