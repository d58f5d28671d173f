// Package score converts a contact's attributes into a 0-100 priority score
// and a discrete tier. Scoring is a pure function of the contact so re-runs
// are deterministic.
package score

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/myspacecornelius/leadscout/internal/lead"
)

// Weights are the per-dimension point budgets.
type Weights struct {
	StageMatch         int `mapstructure:"stage_match"`
	SectorMatch        int `mapstructure:"sector_match"`
	CheckSizeFit       int `mapstructure:"check_size_fit"`
	PortfolioRelevance int `mapstructure:"portfolio_relevance"`
	Recency            int `mapstructure:"recency"`
}

// Modifiers are flat adjustments applied after the weighted dimensions.
type Modifiers struct {
	HasEmail    int `mapstructure:"has_email"`
	HasLinkedIn int `mapstructure:"has_linkedin"`
	NoEmail     int `mapstructure:"no_email"`
	Stale       int `mapstructure:"stale"`
}

// RoleWeights adjusts the score by the contact's stated role. Priority roles
// gain the bonus, depriority roles lose it.
type RoleWeights struct {
	MatchBonus int      `mapstructure:"match_bonus"`
	Priority   []string `mapstructure:"priority"`
	Depriority []string `mapstructure:"depriority"`
}

// Tiers holds the threshold ladder. Thresholds come from configuration so
// operators can retune without code changes.
type Tiers struct {
	Hot  int `mapstructure:"hot"`
	Warm int `mapstructure:"warm"`
	Cool int `mapstructure:"cool"`
}

// Profile describes the startup the leads are scored against.
type Profile struct {
	Stage        string   `mapstructure:"stage"`
	Sectors      []string `mapstructure:"sectors"`
	CheckSizeMin int      `mapstructure:"check_size_min"`
	CheckSizeMax int      `mapstructure:"check_size_max"`
}

// Config bundles everything the scorer needs.
type Config struct {
	Weights   Weights     `mapstructure:"weights"`
	Modifiers Modifiers   `mapstructure:"modifiers"`
	Roles     RoleWeights `mapstructure:"roles"`
	Tiers     Tiers       `mapstructure:"tiers"`
	Profile   Profile     `mapstructure:"startup_profile"`
}

// DefaultConfig mirrors the tuning that shipped with the original weights.
func DefaultConfig() Config {
	return Config{
		Weights: Weights{
			StageMatch:         30,
			SectorMatch:        25,
			CheckSizeFit:       20,
			PortfolioRelevance: 15,
			Recency:            10,
		},
		Modifiers: Modifiers{HasEmail: 10, HasLinkedIn: 5, NoEmail: -15, Stale: -5},
		Roles:     RoleWeights{MatchBonus: 15},
		Tiers:     Tiers{Hot: 80, Warm: 60, Cool: 40},
		Profile:   Profile{Stage: "seed"},
	}
}

// Tier labels.
const (
	TierHot  = "HOT"
	TierWarm = "WARM"
	TierCool = "COOL"
	TierCold = "COLD"
)

// stageOrder fixes adjacency for partial stage credit.
var stageOrder = []string{"pre-seed", "seed", "series-a", "series-b", "growth"}

// Scorer scores leads against a startup profile.
type Scorer struct {
	cfg Config
	now func() time.Time
}

// New creates a Scorer. Zero-valued tiers fall back to the defaults.
func New(cfg Config) *Scorer {
	if cfg.Tiers == (Tiers{}) {
		cfg.Tiers = DefaultConfig().Tiers
	}
	return &Scorer{cfg: cfg, now: time.Now}
}

// Score computes the clamped 0-100 score and tier for one lead.
func (s *Scorer) Score(l *lead.Lead) (int, string) {
	total := s.scoreStage(l.Stage)
	total += s.scoreSectors(l.Sectors)
	total += s.scoreCheckSize(l.CheckSize)
	total += s.scoreRecency(l.Discovered)
	total += s.scoreRole(l.Role)

	if l.HasEmail() {
		total += s.cfg.Modifiers.HasEmail
	} else {
		total += s.cfg.Modifiers.NoEmail
	}
	if l.ProfileURL != "" {
		total += s.cfg.Modifiers.HasLinkedIn
	}

	if total < 0 {
		total = 0
	}
	if total > 100 {
		total = 100
	}
	return total, s.Tier(total)
}

// ScoreAll scores every lead in place and returns them sorted best-first.
func (s *Scorer) ScoreAll(leads []*lead.Lead) []*lead.Lead {
	for _, l := range leads {
		n, tier := s.Score(l)
		l.Score = float64(n)
		l.Tier = tier
	}
	sort.SliceStable(leads, func(i, j int) bool { return leads[i].Score > leads[j].Score })
	return leads
}

// Tier maps a score onto the configured threshold ladder.
func (s *Scorer) Tier(score int) string {
	switch {
	case score >= s.cfg.Tiers.Hot:
		return TierHot
	case score >= s.cfg.Tiers.Warm:
		return TierWarm
	case score >= s.cfg.Tiers.Cool:
		return TierCool
	default:
		return TierCold
	}
}

func (s *Scorer) scoreStage(investorStage string) int {
	w := s.cfg.Weights.StageMatch
	mine := strings.ToLower(s.cfg.Profile.Stage)
	theirs := strings.ToLower(investorStage)

	if theirs == "" || theirs == "n/a" {
		return w / 3
	}
	if mine != "" && (strings.Contains(theirs, mine) || strings.Contains(mine, theirs)) {
		return w
	}
	myIdx, theirIdx := stageIndex(mine), stageIndex(theirs)
	if myIdx < 0 || theirIdx < 0 {
		return w / 3
	}
	switch dist := abs(myIdx - theirIdx); dist {
	case 1:
		return int(float64(w) * 0.6)
	case 2:
		return int(float64(w) * 0.2)
	}
	return 0
}

func stageIndex(stage string) int {
	for i, s := range stageOrder {
		if strings.Contains(stage, s) {
			return i
		}
	}
	return -1
}

func (s *Scorer) scoreSectors(investorSectors []string) int {
	// Sector overlap doubles as the portfolio-relevance signal: both read
	// the same focus tags, so they share one overlap computation.
	w := s.cfg.Weights.SectorMatch + s.cfg.Weights.PortfolioRelevance
	if len(investorSectors) == 0 {
		return w / 4
	}
	if len(s.cfg.Profile.Sectors) == 0 {
		return w / 3
	}
	overlap := 0
	for _, mine := range s.cfg.Profile.Sectors {
		m := strings.ToLower(mine)
		for _, theirs := range investorSectors {
			th := strings.ToLower(theirs)
			if strings.Contains(th, m) || strings.Contains(m, th) {
				overlap++
				break
			}
		}
	}
	ratio := float64(overlap) / float64(len(s.cfg.Profile.Sectors)) * 1.5
	if ratio > 1 {
		ratio = 1
	}
	return int(float64(w) * ratio)
}

var checkSizeNumbers = regexp.MustCompile(`[\d,]+`)

func (s *Scorer) scoreCheckSize(checkSize string) int {
	w := s.cfg.Weights.CheckSizeFit
	if checkSize == "" || checkSize == "N/A" {
		return w / 3
	}
	expanded := strings.NewReplacer("K", "000", "k", "000", "M", "000000", "m", "000000").Replace(checkSize)
	matches := checkSizeNumbers.FindAllString(expanded, -1)
	if len(matches) == 0 {
		return w / 3
	}
	invMin, invMax := -1, -1
	for _, m := range matches {
		n, err := strconv.Atoi(strings.ReplaceAll(m, ",", ""))
		if err != nil {
			return w / 3
		}
		if invMin < 0 || n < invMin {
			invMin = n
		}
		if n > invMax {
			invMax = n
		}
	}
	targetMin := s.cfg.Profile.CheckSizeMin
	targetMax := s.cfg.Profile.CheckSizeMax
	if targetMax <= 0 {
		targetMax = int(^uint(0) >> 1)
	}
	if invMin <= targetMax && invMax >= targetMin {
		return w
	}
	return int(float64(w) * 0.15)
}

// scoreRole applies the vertical's role weighting. Depriority keywords win
// over priority ones so "junior partner" is never boosted by "partner".
func (s *Scorer) scoreRole(role string) int {
	bonus := s.cfg.Roles.MatchBonus
	if bonus == 0 || role == "" {
		return 0
	}
	r := strings.ToLower(role)
	for _, kw := range s.cfg.Roles.Depriority {
		if strings.Contains(r, strings.ToLower(kw)) {
			return -bonus
		}
	}
	for _, kw := range s.cfg.Roles.Priority {
		if strings.Contains(r, strings.ToLower(kw)) {
			return bonus
		}
	}
	return 0
}

// scoreRecency gives full credit inside the freshness window and decays
// linearly to zero at ninety days.
func (s *Scorer) scoreRecency(discovered time.Time) int {
	w := s.cfg.Weights.Recency
	if discovered.IsZero() {
		return w / 3
	}
	age := s.now().Sub(discovered)
	switch {
	case age <= 7*24*time.Hour:
		return w
	case age >= 90*24*time.Hour:
		return 0
	default:
		frac := 1 - age.Hours()/(90*24)
		return int(float64(w) * frac)
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
