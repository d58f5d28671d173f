package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/myspacecornelius/leadscout/internal/adapter"
	"github.com/myspacecornelius/leadscout/internal/config"
	"github.com/myspacecornelius/leadscout/internal/score"
	"github.com/myspacecornelius/leadscout/internal/vertical"
)

func TestApplyVerticalConfig(t *testing.T) {
	cfg := config.Config{
		Sites: []adapter.SiteConfig{
			{Name: "openvc", Adapter: "openvc", URL: "https://openvc.app/investors"},
			{Name: "nvca", Adapter: "directory", URL: "https://nvca.org/members"},
		},
	}
	vert := &vertical.Vertical{
		TeamPageKeywords: []string{"doctors", "physicians"},
		RoleKeywords:     []string{"surgeon"},
		SearchQueries:    []string{"venture capital partner"},
		Adapters:         []string{"openvc"},
		Scoring: vertical.Scoring{
			HasEmail:        20,
			HasLinkedIn:     10,
			RoleMatchBonus:  15,
			PriorityRoles:   []string{"partner"},
			DepriorityRoles: []string{"analyst"},
		},
	}

	applyVerticalConfig(&cfg, vert)

	assert.Equal(t, []string{"doctors", "physicians"}, cfg.Crawler.TeamPageKeywords)
	assert.Equal(t, []string{"surgeon"}, cfg.Crawler.RoleKeywords)
	assert.Equal(t, []string{"venture capital partner"}, cfg.Enrich.Dorker.ExtraQueries)
	require.Len(t, cfg.Sites, 1)
	assert.Equal(t, "openvc", cfg.Sites[0].Name)
	assert.Equal(t, 15, cfg.Score.Roles.MatchBonus)
	assert.Equal(t, []string{"partner"}, cfg.Score.Roles.Priority)
	assert.Equal(t, []string{"analyst"}, cfg.Score.Roles.Depriority)
	assert.Equal(t, 20, cfg.Score.Modifiers.HasEmail)
	assert.Equal(t, 10, cfg.Score.Modifiers.HasLinkedIn)
}

func TestApplyVerticalConfigKeepsExplicitValues(t *testing.T) {
	cfg := config.Config{}
	cfg.Crawler.TeamPageKeywords = []string{"team"}
	cfg.Score.Roles = score.RoleWeights{MatchBonus: 30, Priority: []string{"gp"}}

	vert := &vertical.Vertical{
		TeamPageKeywords: []string{"doctors"},
		Scoring:          vertical.Scoring{RoleMatchBonus: 15, PriorityRoles: []string{"partner"}},
	}
	applyVerticalConfig(&cfg, vert)

	assert.Equal(t, []string{"team"}, cfg.Crawler.TeamPageKeywords)
	assert.Equal(t, 30, cfg.Score.Roles.MatchBonus)
	assert.Equal(t, []string{"gp"}, cfg.Score.Roles.Priority)
}

func TestApplyVerticalConfigNilProfile(t *testing.T) {
	cfg := config.Config{
		Sites: []adapter.SiteConfig{{Name: "openvc", Adapter: "openvc", URL: "https://openvc.app"}},
	}
	applyVerticalConfig(&cfg, nil)
	assert.Len(t, cfg.Sites, 1)
	assert.Empty(t, cfg.Crawler.TeamPageKeywords)
}
