package score

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/myspacecornelius/leadscout/internal/lead"
)

func newTestScorer(t *testing.T) *Scorer {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Profile = Profile{
		Stage:        "seed",
		Sectors:      []string{"fintech", "devtools"},
		CheckSizeMin: 100_000,
		CheckSizeMax: 1_000_000,
	}
	s := New(cfg)
	s.now = func() time.Time { return time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC) }
	return s
}

func TestScoreBounds(t *testing.T) {
	s := newTestScorer(t)
	leads := []*lead.Lead{
		{Name: "Jane Smith", Stage: "seed", Sectors: []string{"fintech", "devtools"},
			CheckSize: "$100K - $500K", Email: "jane@acme.vc", EmailStatus: lead.StatusSMTPVerified,
			ProfileURL: "https://linkedin.com/in/janesmith",
			Discovered: time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC)},
		{Name: "John Doe", Email: lead.EmailUnknown},
		{Name: "Old Contact", Stage: "growth", Email: lead.EmailUnknown,
			Discovered: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, l := range leads {
		n, tier := s.Score(l)
		assert.GreaterOrEqual(t, n, 0, "lead %s", l.Name)
		assert.LessOrEqual(t, n, 100, "lead %s", l.Name)
		assert.NotEmpty(t, tier)
	}
}

func TestPerfectFitScoresHot(t *testing.T) {
	s := newTestScorer(t)
	l := &lead.Lead{
		Name:       "Jane Smith",
		Stage:      "seed",
		Sectors:    []string{"fintech", "devtools"},
		CheckSize:  "$250K",
		Email:      "jane@acme.vc",
		EmailStatus: lead.StatusSMTPVerified,
		ProfileURL: "https://linkedin.com/in/janesmith",
		Discovered: time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC),
	}
	n, tier := s.Score(l)
	assert.Equal(t, 100, n)
	assert.Equal(t, TierHot, tier)
}

func TestStageAdjacency(t *testing.T) {
	s := newTestScorer(t)
	tests := []struct {
		stage string
		want  int
	}{
		{"seed", 30},
		{"early seed stage", 30},
		{"series-a", 18}, // distance 1
		{"pre-seed", 30}, // substring hit on "seed" wins over adjacency
		{"series-b", 6},  // distance 2
		{"growth", 0},     // distance 3
		{"", 10},          // unknown
		{"N/A", 10},
		{"crypto only", 10}, // unrecognized stage word
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, s.scoreStage(tt.stage), "stage %q", tt.stage)
	}
}

func TestSectorOverlapCappedBoost(t *testing.T) {
	s := newTestScorer(t)
	// One of two profile sectors overlaps: ratio 0.5 * 1.5 = 0.75 of 40.
	assert.Equal(t, 30, s.scoreSectors([]string{"consumer fintech"}))
	// Both overlap: capped at full weight.
	assert.Equal(t, 40, s.scoreSectors([]string{"fintech", "developer tools and devtools"}))
	// Unknown gets small credit.
	assert.Equal(t, 10, s.scoreSectors(nil))
}

func TestCheckSizeOverlap(t *testing.T) {
	s := newTestScorer(t)
	assert.Equal(t, 20, s.scoreCheckSize("$100K - $500K"))
	assert.Equal(t, 20, s.scoreCheckSize("$50K - $150K"))  // partial overlap
	assert.Equal(t, 3, s.scoreCheckSize("$5M - $20M"))     // no overlap
	assert.Equal(t, 6, s.scoreCheckSize("N/A"))
	assert.Equal(t, 6, s.scoreCheckSize("flexible"))
}

func TestRoleWeighting(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Roles = RoleWeights{
		MatchBonus: 15,
		Priority:   []string{"partner", "principal"},
		Depriority: []string{"analyst", "junior"},
	}
	s := New(cfg)

	tests := []struct {
		role string
		want int
	}{
		{"Managing Partner", 15},
		{"Principal", 15},
		{"Senior Analyst", -15},
		{"Junior Partner", -15}, // depriority wins over the partner hit
		{"Operations Manager", 0},
		{"", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, s.scoreRole(tt.role), "role %q", tt.role)
	}
}

func TestRoleWeightingChangesLeadScore(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Roles = RoleWeights{MatchBonus: 15, Priority: []string{"partner"}}
	s := New(cfg)
	s.now = func() time.Time { return time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC) }

	partner := &lead.Lead{Name: "Jane Smith", Role: "General Partner",
		Stage: "seed", Email: "jane@acme.vc", EmailStatus: lead.StatusScraped}
	staffer := &lead.Lead{Name: "John Doe", Role: "Office Manager",
		Stage: "seed", Email: "john@acme.vc", EmailStatus: lead.StatusScraped}

	p, _ := s.Score(partner)
	q, _ := s.Score(staffer)
	assert.Equal(t, 15, p-q)
}

func TestTierLadderFromConfig(t *testing.T) {
	s := New(Config{Tiers: Tiers{Hot: 80, Warm: 60, Cool: 40}})
	tests := []struct {
		score int
		want  string
	}{
		{85, TierHot}, {80, TierHot},
		{65, TierWarm}, {60, TierWarm},
		{45, TierCool}, {40, TierCool},
		{39, TierCold}, {0, TierCold},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, s.Tier(tt.score), "score %d", tt.score)
	}
}

func TestTierMonotonicInScore(t *testing.T) {
	s := New(DefaultConfig())
	rank := map[string]int{TierCold: 0, TierCool: 1, TierWarm: 2, TierHot: 3}
	prev := 0
	for n := 0; n <= 100; n++ {
		r := rank[s.Tier(n)]
		require.GreaterOrEqual(t, r, prev, "score %d", n)
		prev = r
	}
}

func TestScoreAllSortsBestFirst(t *testing.T) {
	s := newTestScorer(t)
	leads := []*lead.Lead{
		{Name: "John Doe", Email: lead.EmailUnknown},
		{Name: "Jane Smith", Stage: "seed", Sectors: []string{"fintech", "devtools"},
			CheckSize: "$250K", Email: "jane@acme.vc", EmailStatus: lead.StatusSMTPVerified,
			ProfileURL: "https://linkedin.com/in/janesmith",
			Discovered: time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC)},
	}
	got := s.ScoreAll(leads)
	assert.Equal(t, "Jane Smith", got[0].Name)
	assert.GreaterOrEqual(t, got[0].Score, got[1].Score)
}

func TestScoringIsDeterministic(t *testing.T) {
	s := newTestScorer(t)
	l := &lead.Lead{Name: "Jane Smith", Stage: "series-a", Sectors: []string{"fintech"},
		CheckSize: "$250K", Email: "jane@acme.vc", EmailStatus: lead.StatusScraped}
	a, _ := s.Score(l)
	b, _ := s.Score(l)
	assert.Equal(t, a, b)
}
