package incremental

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/assetpipe/internal/config"
	"git.home.luguber.info/inful/assetpipe/internal/manifest"
	"git.home.luguber.info/inful/assetpipe/internal/storage"
)

func testConfig() *config.Config {
	return &config.Config{
		Entries: []config.Entry{{Name: "app", Path: "src/app.js"}},
		Output:  config.OutputConfig{Dir: "dist"},
	}
}

func TestSignatureDeterministicUnderOrdering(t *testing.T) {
	cfg := testConfig()

	sig1, err := ComputeBuildSignature(cfg, []SourceHash{
		{Path: "src/b.js", Hash: "bb"},
		{Path: "src/a.js", Hash: "aa"},
	}, []string{"jsmin", "passthrough"})
	require.NoError(t, err)

	sig2, err := ComputeBuildSignature(cfg, []SourceHash{
		{Path: "src/a.js", Hash: "aa"},
		{Path: "src/b.js", Hash: "bb"},
	}, []string{"passthrough", "jsmin"})
	require.NoError(t, err)

	assert.True(t, sig1.Equals(sig2))
	assert.Equal(t, sig1.BuildHash, sig2.BuildHash)
}

func TestSignatureChangesWithSource(t *testing.T) {
	cfg := testConfig()

	sig1, err := ComputeBuildSignature(cfg, []SourceHash{{Path: "src/a.js", Hash: "aa"}}, nil)
	require.NoError(t, err)
	sig2, err := ComputeBuildSignature(cfg, []SourceHash{{Path: "src/a.js", Hash: "cc"}}, nil)
	require.NoError(t, err)

	assert.False(t, sig1.Equals(sig2))
}

func TestSignatureChangesWithConfig(t *testing.T) {
	sig1, err := ComputeBuildSignature(testConfig(), nil, nil)
	require.NoError(t, err)

	other := testConfig()
	other.Output.HashLength = 12
	sig2, err := ComputeBuildSignature(other, nil, nil)
	require.NoError(t, err)

	assert.NotEqual(t, sig1.BuildHash, sig2.BuildHash)
}

func TestSignatureJSONRoundTrip(t *testing.T) {
	sig, err := ComputeBuildSignature(testConfig(), []SourceHash{{Path: "src/a.js", Hash: "aa"}}, []string{"jsmin"})
	require.NoError(t, err)

	data, err := sig.ToJSON()
	require.NoError(t, err)

	got, err := FromJSON(data)
	require.NoError(t, err)
	assert.True(t, sig.Equals(got))
}

func TestBuildCacheSkipDetection(t *testing.T) {
	store, err := storage.NewFSStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	cache := NewBuildCache(store)
	ctx := context.Background()

	sig, err := ComputeBuildSignature(testConfig(), []SourceHash{{Path: "src/a.js", Hash: "aa"}}, []string{"jsmin"})
	require.NoError(t, err)

	skip, _, err := cache.ShouldSkipBuild(ctx, sig)
	require.NoError(t, err)
	assert.False(t, skip)

	m := manifest.New("build-1", manifest.Inputs{ConfigHash: sig.ConfigHash})
	m.Add("app", "dist/app.11111111.js", "11111111")
	require.NoError(t, cache.RecordBuild(ctx, sig, m))

	skip, entry, err := cache.ShouldSkipBuild(ctx, sig)
	require.NoError(t, err)
	require.True(t, skip)
	assert.Equal(t, "build-1", entry.BuildID)
	assert.Equal(t, "dist/app.11111111.js", entry.Manifest.Assets["app"])
}

func TestBuildCacheInvalidSignature(t *testing.T) {
	store, err := storage.NewFSStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	cache := NewBuildCache(store)
	_, _, err = cache.ShouldSkipBuild(context.Background(), nil)
	assert.Error(t, err)
}
