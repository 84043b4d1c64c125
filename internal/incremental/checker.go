package incremental

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"git.home.luguber.info/inful/assetpipe/internal/manifest"
	"git.home.luguber.info/inful/assetpipe/internal/storage"
)

// BuildCache tracks previous builds and their signatures for skip detection.
type BuildCache struct {
	store  storage.ObjectStore
	logger *slog.Logger
}

// NewBuildCache creates a new build cache over an object store.
func NewBuildCache(store storage.ObjectStore) *BuildCache {
	return &BuildCache{
		store:  store,
		logger: slog.Default(),
	}
}

// WithLogger sets a custom logger.
func (c *BuildCache) WithLogger(logger *slog.Logger) *BuildCache {
	c.logger = logger
	return c
}

// BuildCacheEntry represents a cached build with its signature and manifest.
type BuildCacheEntry struct {
	BuildID   string                  `json:"build_id"`
	Signature string                  `json:"signature"`
	Manifest  *manifest.BuildManifest `json:"manifest"`
	Timestamp time.Time               `json:"timestamp"`
}

// ShouldSkipBuild checks if a build with the given signature already exists.
// Returns true if the build can be skipped, along with the cached manifest.
func (c *BuildCache) ShouldSkipBuild(ctx context.Context, sig *BuildSignature) (bool, *BuildCacheEntry, error) {
	if sig == nil || sig.BuildHash == "" {
		return false, nil, fmt.Errorf("invalid signature")
	}

	hashes, err := c.store.List(ctx, storage.ObjectTypeBuildManifest)
	if err != nil {
		return false, nil, fmt.Errorf("failed to list builds: %w", err)
	}

	// Most recent matching build wins.
	var objects []*storage.Object
	for _, hash := range hashes {
		obj, err := c.store.Get(ctx, hash)
		if err != nil {
			c.logger.Warn("Failed to get object", "hash", hash, "error", err)
			continue
		}
		objects = append(objects, obj)
	}
	sort.Slice(objects, func(i, j int) bool {
		return objects[i].Metadata.CreatedAt.After(objects[j].Metadata.CreatedAt)
	})

	for _, obj := range objects {
		storedSig, ok := obj.Metadata.Custom["signature"]
		if !ok || storedSig != sig.BuildHash {
			continue
		}

		m, err := manifest.FromJSON(obj.Data)
		if err != nil {
			c.logger.Warn("Failed to parse cached manifest", "hash", obj.Hash, "error", err)
			continue
		}

		c.logger.Debug("Found matching build signature", "build_hash", sig.BuildHash)
		return true, &BuildCacheEntry{
			BuildID:   m.ID,
			Signature: storedSig,
			Manifest:  m,
			Timestamp: obj.Metadata.CreatedAt,
		}, nil
	}

	c.logger.Debug("No matching build found", "signature", sig.BuildHash)
	return false, nil, nil
}

// RecordBuild stores a completed build's manifest under its signature so a
// later identical build can be skipped.
func (c *BuildCache) RecordBuild(ctx context.Context, sig *BuildSignature, m *manifest.BuildManifest) error {
	if sig == nil || sig.BuildHash == "" {
		return fmt.Errorf("invalid signature")
	}

	data, err := m.ToJSON()
	if err != nil {
		return fmt.Errorf("serialize manifest: %w", err)
	}

	_, err = c.store.Put(ctx, &storage.Object{
		Type: storage.ObjectTypeBuildManifest,
		Data: data,
		Metadata: storage.Metadata{
			Custom: map[string]string{
				"signature": sig.BuildHash,
				"build_id":  m.ID,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("store build manifest: %w", err)
	}
	return nil
}
