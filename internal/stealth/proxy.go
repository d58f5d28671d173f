package stealth

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
)

// RotationMode controls when the rotator hands out a new proxy.
type RotationMode string

// Rotation modes.
const (
	RotatePerRequest    RotationMode = "per_request"
	RotatePerSite       RotationMode = "per_site"
	RotateStickySession RotationMode = "sticky_session"
)

// ProxyConfig describes the proxy pool. Provider credentials take precedence
// over the fallback list.
type ProxyConfig struct {
	Enabled        bool         `mapstructure:"enabled"`
	Mode           RotationMode `mapstructure:"mode"`
	Host           string       `mapstructure:"host"`
	Port           int          `mapstructure:"port"`
	Username       string       `mapstructure:"username"`
	Password       string       `mapstructure:"password"`
	CountryTargets []string     `mapstructure:"country_targets"`
	Fallback       []string     `mapstructure:"fallback_proxies"`
}

// Proxy is one assignment handed to a browser context.
type Proxy struct {
	Server   string
	Username string
	Password string
}

// Rotator assigns proxies per the configured rotation mode.
type Rotator struct {
	mu      sync.Mutex
	cfg     ProxyConfig
	rng     *rand.Rand
	current *Proxy
	site    string
	handed  int
}

// NewRotator creates a Rotator. seed 0 means time-seeded.
func NewRotator(cfg ProxyConfig, seed int64) *Rotator {
	if cfg.Mode == "" {
		cfg.Mode = RotatePerRequest
	}
	if cfg.Port == 0 {
		cfg.Port = 22225
	}
	src := rand.NewSource(seed)
	if seed == 0 {
		src = rand.NewSource(rand.Int63())
	}
	return &Rotator{cfg: cfg, rng: rand.New(src)}
}

// Next returns the proxy for the next request against site. ok is false when
// proxies are disabled or unconfigured.
func (r *Rotator) Next(site string) (Proxy, bool) {
	if !r.cfg.Enabled {
		return Proxy{}, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current != nil {
		switch r.cfg.Mode {
		case RotateStickySession:
			return *r.current, true
		case RotatePerSite:
			if site != "" && site == r.site {
				return *r.current, true
			}
		}
	}
	p, ok := r.build()
	if !ok {
		return Proxy{}, false
	}
	r.current, r.site = &p, site
	r.handed++
	return p, true
}

// Rotate drops the current assignment so the next call builds a fresh one.
func (r *Rotator) Rotate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current = nil
	r.site = ""
}

// Assigned reports how many distinct proxy assignments were built.
func (r *Rotator) Assigned() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.handed
}

func (r *Rotator) build() (Proxy, bool) {
	if r.cfg.Host != "" {
		country := "us"
		if len(r.cfg.CountryTargets) > 0 {
			country = strings.ToLower(r.cfg.CountryTargets[r.rng.Intn(len(r.cfg.CountryTargets))])
		}
		// Residential providers encode country and session in the
		// username; a new session id means a new exit IP.
		session := 100000 + r.rng.Intn(900000)
		return Proxy{
			Server:   fmt.Sprintf("http://%s:%d", r.cfg.Host, r.cfg.Port),
			Username: fmt.Sprintf("%s-country-%s-session-%d", r.cfg.Username, country, session),
			Password: r.cfg.Password,
		}, true
	}
	if len(r.cfg.Fallback) > 0 {
		return Proxy{Server: r.cfg.Fallback[r.rng.Intn(len(r.cfg.Fallback))]}, true
	}
	return Proxy{}, false
}
