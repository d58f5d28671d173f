package vertical

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeProfile(t *testing.T, dir, slug, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, slug+".yaml"), []byte(body), 0o644))
}

func TestLoadFullProfile(t *testing.T) {
	dir := t.TempDir()
	writeProfile(t, dir, "vc", `
name: Venture Capital
description: Early-stage venture funds
seed_sources:
  - type: csv
    path: seeds/vc.csv
  - type: github
    urls:
      - https://raw.githubusercontent.com/example/investors/main/vc.csv
search_queries:
  - '"venture capital" team site:*.vc'
team_page_keywords: [team, partners]
role_keywords: [partner, principal]
scoring:
  has_email: 25
  priority_roles: [general partner, managing partner]
adapters: [openvc, angelmatch]
default_check_size: $250K-$2M
default_sectors: [saas, fintech]
`)

	v, err := Load(dir, "vc")
	require.NoError(t, err)
	assert.Equal(t, "Venture Capital", v.Name)
	assert.Equal(t, "vc", v.Slug)
	require.Len(t, v.SeedSources, 2)
	assert.Equal(t, "csv", v.SeedSources[0].Type)
	assert.Equal(t, "seeds/vc.csv", v.SeedSources[0].Path)
	assert.Equal(t, []string{"team", "partners"}, v.TeamPageKeywords)
	assert.Equal(t, 25, v.Scoring.HasEmail)
	assert.Equal(t, 10, v.Scoring.HasLinkedIn)
	assert.Equal(t, []string{"general partner", "managing partner"}, v.Scoring.PriorityRoles)
	assert.Equal(t, []string{"openvc", "angelmatch"}, v.Adapters)
	assert.Equal(t, "$250K-$2M", v.DefaultCheckSize)
}

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	writeProfile(t, dir, "pe", `description: Private equity firms`)

	v, err := Load(dir, "pe")
	require.NoError(t, err)
	assert.Equal(t, "pe", v.Name)
	assert.Equal(t, defaultTeamPageKeywords, v.TeamPageKeywords)
	assert.Equal(t, defaultRoleKeywords, v.RoleKeywords)
	assert.Equal(t, "N/A", v.DefaultCheckSize)
	assert.Equal(t, 20, v.Scoring.HasEmail)
	assert.Equal(t, 15, v.Scoring.RoleMatchBonus)
}

func TestLoadMissingProfile(t *testing.T) {
	_, err := Load(t.TempDir(), "ghost")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost")
}

func TestLoadRejectsBadSeedSource(t *testing.T) {
	dir := t.TempDir()
	writeProfile(t, dir, "vc", `
seed_sources:
  - type: csv
`)
	_, err := Load(dir, "vc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "needs a path")

	writeProfile(t, dir, "fo", `
seed_sources:
  - type: carrier-pigeon
`)
	_, err = Load(dir, "fo")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown type")
}

func TestListSortsSlugs(t *testing.T) {
	dir := t.TempDir()
	writeProfile(t, dir, "vc", `name: VC`)
	writeProfile(t, dir, "angels", `name: Angels`)
	writeProfile(t, dir, "pe", `name: PE`)

	slugs, err := List(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"angels", "pe", "vc"}, slugs)
}
