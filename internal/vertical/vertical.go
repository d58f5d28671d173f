// Package vertical loads named industry profiles. A vertical tells the
// engine which seed sources to read, what a team page looks like in that
// industry, and how to weigh roles when scoring.
package vertical

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/viper"
)

// SeedSource is one origin of seed targets: a local CSV, a hosted list, or
// an API endpoint.
type SeedSource struct {
	Type    string            `mapstructure:"type"`
	Path    string            `mapstructure:"path"`
	URLs    []string          `mapstructure:"urls"`
	Headers map[string]string `mapstructure:"headers"`
}

// Scoring carries the vertical's role-weighting knobs.
type Scoring struct {
	HasEmail        int      `mapstructure:"has_email"`
	HasLinkedIn     int      `mapstructure:"has_linkedin"`
	RoleMatchBonus  int      `mapstructure:"role_match_bonus"`
	PriorityRoles   []string `mapstructure:"priority_roles"`
	DepriorityRoles []string `mapstructure:"depriority_roles"`
}

// Vertical is one industry profile, loaded from <dir>/<slug>.yaml.
type Vertical struct {
	Name             string       `mapstructure:"name"`
	Slug             string       `mapstructure:"-"`
	Description      string       `mapstructure:"description"`
	SeedSources      []SeedSource `mapstructure:"seed_sources"`
	SearchQueries    []string     `mapstructure:"search_queries"`
	TeamPageKeywords []string     `mapstructure:"team_page_keywords"`
	RoleKeywords     []string     `mapstructure:"role_keywords"`
	Scoring          Scoring      `mapstructure:"scoring"`
	Adapters         []string     `mapstructure:"adapters"`
	DefaultCheckSize string       `mapstructure:"default_check_size"`
	DefaultSectors   []string     `mapstructure:"default_sectors"`
}

var defaultTeamPageKeywords = []string{
	"team", "people", "about", "leadership", "partners",
	"professionals", "staff", "who-we-are", "our-team",
}

var defaultRoleKeywords = []string{
	"partner", "director", "principal", "associate",
	"analyst", "managing", "founder", "ceo", "cto",
	"vice president", "vp", "head of",
}

// Load reads one vertical profile from dir.
func Load(dir, slug string) (*Vertical, error) {
	if strings.TrimSpace(slug) == "" {
		return nil, fmt.Errorf("vertical slug is empty")
	}

	v := viper.New()
	v.SetConfigFile(filepath.Join(dir, slug+".yaml"))
	setDefaults(v, slug)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read vertical %q: %w", slug, err)
	}

	var vert Vertical
	if err := v.Unmarshal(&vert); err != nil {
		return nil, fmt.Errorf("unmarshal vertical %q: %w", slug, err)
	}
	vert.Slug = slug

	if err := vert.Validate(); err != nil {
		return nil, err
	}
	return &vert, nil
}

func setDefaults(v *viper.Viper, slug string) {
	v.SetDefault("name", slug)
	v.SetDefault("team_page_keywords", defaultTeamPageKeywords)
	v.SetDefault("role_keywords", defaultRoleKeywords)
	v.SetDefault("default_check_size", "N/A")
	v.SetDefault("scoring.has_email", 20)
	v.SetDefault("scoring.has_linkedin", 10)
	v.SetDefault("scoring.role_match_bonus", 15)
}

// Validate enforces the profile invariants a run depends on.
func (v *Vertical) Validate() error {
	if strings.TrimSpace(v.Name) == "" {
		return fmt.Errorf("vertical %q: empty name", v.Slug)
	}
	if len(v.TeamPageKeywords) == 0 {
		return fmt.Errorf("vertical %q: no team page keywords", v.Slug)
	}
	if len(v.RoleKeywords) == 0 {
		return fmt.Errorf("vertical %q: no role keywords", v.Slug)
	}
	for i, src := range v.SeedSources {
		switch src.Type {
		case "csv":
			if src.Path == "" {
				return fmt.Errorf("vertical %q: seed source %d: csv source needs a path", v.Slug, i)
			}
		case "github", "api":
			if len(src.URLs) == 0 {
				return fmt.Errorf("vertical %q: seed source %d: %s source needs urls", v.Slug, i, src.Type)
			}
		default:
			return fmt.Errorf("vertical %q: seed source %d: unknown type %q", v.Slug, i, src.Type)
		}
	}
	return nil
}

// List returns the slugs of every profile in dir, sorted.
func List(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("list verticals: %w", err)
	}
	slugs := make([]string, 0, len(matches))
	for _, m := range matches {
		slugs = append(slugs, strings.TrimSuffix(filepath.Base(m), ".yaml"))
	}
	sort.Strings(slugs)
	return slugs, nil
}
