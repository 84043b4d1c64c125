package storage

import (
	"context"
	"os"
	"testing"
)

func TestFSStorePutAndGet(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSStore failed: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	data := []byte("transformed stylesheet bytes")
	obj := &Object{
		Type: ObjectTypeTransformed,
		Data: data,
		Metadata: Metadata{
			Custom: map[string]string{"node": "src/styles/main.css"},
		},
	}

	hash, err := store.Put(ctx, obj)
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if hash == "" {
		t.Fatal("Put returned empty hash")
	}

	if _, err := os.Stat(store.objectPath(hash)); err != nil {
		t.Errorf("Object file not created: %v", err)
	}

	retrieved, err := store.Get(ctx, hash)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(retrieved.Data) != string(data) {
		t.Errorf("Got data %q, want %q", retrieved.Data, data)
	}
	if retrieved.Type != ObjectTypeTransformed {
		t.Errorf("Got type %v, want %v", retrieved.Type, ObjectTypeTransformed)
	}
	if retrieved.Metadata.Custom["node"] != "src/styles/main.css" {
		t.Errorf("Custom metadata not preserved: %v", retrieved.Metadata.Custom)
	}
}

func TestFSStorePutIdempotent(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSStore failed: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	obj := &Object{Type: ObjectTypeArtifact, Data: []byte("same bytes")}

	h1, err := store.Put(ctx, obj)
	if err != nil {
		t.Fatalf("first Put failed: %v", err)
	}
	h2, err := store.Put(ctx, &Object{Type: ObjectTypeArtifact, Data: []byte("same bytes")})
	if err != nil {
		t.Fatalf("second Put failed: %v", err)
	}
	if h1 != h2 {
		t.Errorf("identical content produced different hashes: %s vs %s", h1, h2)
	}

	got, err := store.Get(ctx, h1)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Metadata.RefCount != 2 {
		t.Errorf("RefCount = %d, want 2", got.Metadata.RefCount)
	}
}

func TestFSStoreGetNotFound(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSStore failed: %v", err)
	}
	defer store.Close()

	_, err = store.Get(context.Background(), "deadbeef00")
	if !IsNotFound(err) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestFSStoreDeleteAndList(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSStore failed: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	h1, _ := store.Put(ctx, &Object{Type: ObjectTypeTransformed, Data: []byte("a")})
	h2, _ := store.Put(ctx, &Object{Type: ObjectTypeArtifact, Data: []byte("b")})

	transformed, err := store.List(ctx, ObjectTypeTransformed)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(transformed) != 1 || transformed[0] != h1 {
		t.Errorf("List(transformed) = %v, want [%s]", transformed, h1)
	}

	if err := store.Delete(ctx, h1); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := store.Delete(ctx, h1); !IsNotFound(err) {
		t.Errorf("second Delete should return ErrNotFound, got %v", err)
	}

	all, err := store.List(ctx, "")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 1 || all[0] != h2 {
		t.Errorf("List after delete = %v, want [%s]", all, h2)
	}
}

func TestFSStoreGC(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSStore failed: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	keep, _ := store.Put(ctx, &Object{Type: ObjectTypeTransformed, Data: []byte("keep")})
	_, _ = store.Put(ctx, &Object{Type: ObjectTypeTransformed, Data: []byte("drop")})

	removed, err := store.GC(ctx, map[string]bool{keep: true})
	if err != nil {
		t.Fatalf("GC failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("GC removed %d objects, want 1", removed)
	}

	exists, _ := store.Exists(ctx, keep)
	if !exists {
		t.Error("referenced object removed by GC")
	}
}

func TestTransformCacheRoundTrip(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSStore failed: %v", err)
	}
	defer store.Close()

	cache := NewTransformCache(store)
	ctx := context.Background()

	key := cache.Key([]byte("body { color: red; }"), "style-default|cssmin")
	if _, ok := cache.Get(ctx, key); ok {
		t.Fatal("unexpected cache hit before Put")
	}

	if err := cache.Put(ctx, key, []byte("body{color:red}")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	got, ok := cache.Get(ctx, key)
	if !ok {
		t.Fatal("cache miss after Put")
	}
	if string(got) != "body{color:red}" {
		t.Errorf("cached bytes = %q", got)
	}

	// Different chain signature must produce a different key.
	other := cache.Key([]byte("body { color: red; }"), "style-default")
	if other == key {
		t.Error("chain signature not part of cache key")
	}
}
