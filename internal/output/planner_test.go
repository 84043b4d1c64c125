package output

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanSubstitutesTokens(t *testing.T) {
	p := NewPlanner()
	path, err := p.Plan("app", "a1b2c3d4", ".css", "[name].[contenthash][ext]")
	require.NoError(t, err)
	assert.Equal(t, "app.a1b2c3d4.css", path)
}

func TestPlanUnknownTokenFails(t *testing.T) {
	p := NewPlanner()
	_, err := p.Plan("app", "abcd", ".js", "[name].[chunkhash][ext]")

	var ite *InvalidTemplateError
	require.ErrorAs(t, err, &ite)
	assert.Equal(t, "[chunkhash]", ite.Token)
}

func TestPlanSlugsLogicalName(t *testing.T) {
	p := NewPlanner()
	path, err := p.Plan("Héllo World", "ff00ff00", ".js", "[name].[contenthash][ext]")
	require.NoError(t, err)
	assert.Equal(t, "hello-world.ff00ff00.js", path)
}

func TestClaimDeduplicatesIdenticalBytes(t *testing.T) {
	p := NewPlanner()
	require.NoError(t, p.Claim("app.aa.js", "aa", "full-sum-1"))
	require.NoError(t, p.Claim("app.aa.js", "aa", "full-sum-1"))
	assert.Equal(t, 1, p.Claimed())
}

func TestClaimDetectsHashCollision(t *testing.T) {
	p := NewPlanner()
	require.NoError(t, p.Claim("app.aa.js", "aa", "full-sum-1"))

	err := p.Claim("app.aa.js", "aa", "full-sum-2")
	var hcc *HashCollisionConflict
	require.ErrorAs(t, err, &hcc)
	assert.Equal(t, "app.aa.js", hcc.FinalPath)
}

func TestClaimDetectsPathConflict(t *testing.T) {
	p := NewPlanner()
	require.NoError(t, p.Claim("vendor.js", "aa", "full-sum-1"))

	err := p.Claim("vendor.js", "bb", "full-sum-2")
	var pce *PathConflictError
	require.ErrorAs(t, err, &pce)
	assert.Equal(t, "vendor.js", pce.FinalPath)
}

func TestDistinctLogicalNamesStayDistinct(t *testing.T) {
	// Identical content under different logical names must keep separate
	// final paths so named chunks remain separately addressable.
	p := NewPlanner()
	hero, err := p.Plan("hero", "cafecafe", ".png", "[name].[contenthash][ext]")
	require.NoError(t, err)
	banner, err := p.Plan("banner", "cafecafe", ".png", "[name].[contenthash][ext]")
	require.NoError(t, err)

	assert.NotEqual(t, hero, banner)
	require.NoError(t, p.Claim(hero, "cafecafe", "same-sum"))
	require.NoError(t, p.Claim(banner, "cafecafe", "same-sum"))
	assert.Equal(t, 2, p.Claimed())
}

func TestSlug(t *testing.T) {
	cases := map[string]string{
		"app":          "app",
		"Main App":     "main-app",
		"café":         "cafe",
		"--weird__x--": "weird-x",
		"UPPER":        "upper",
	}
	for in, want := range cases {
		assert.Equal(t, want, Slug(in), in)
	}
}
