package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// TransformCache memoizes stage chain output keyed by the source bytes and
// the chain's identity. A cache hit means the transform phase can be
// skipped for that node.
type TransformCache struct {
	store ObjectStore
}

// NewTransformCache wraps an object store as a transform cache.
func NewTransformCache(store ObjectStore) *TransformCache {
	return &TransformCache{store: store}
}

// Key derives the cache key for a node's transform result. The key covers
// the source bytes and the stage chain signature, so either changing
// invalidates the entry.
func (c *TransformCache) Key(source []byte, chainSignature string) string {
	h := sha256.New()
	h.Write(source)
	h.Write([]byte("\x00"))
	h.Write([]byte(chainSignature))
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached transform output for key, or (nil, false) on miss.
func (c *TransformCache) Get(ctx context.Context, key string) ([]byte, bool) {
	obj, err := c.store.Get(ctx, key)
	if err != nil {
		return nil, false
	}
	return obj.Data, true
}

// Put stores transform output under key.
func (c *TransformCache) Put(ctx context.Context, key string, data []byte) error {
	_, err := c.store.Put(ctx, &Object{
		Hash: key,
		Type: ObjectTypeTransformed,
		Data: data,
	})
	if err != nil {
		return fmt.Errorf("cache transform result: %w", err)
	}
	return nil
}
