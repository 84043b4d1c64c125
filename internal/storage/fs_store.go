package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// FSStore is a filesystem-based implementation of ObjectStore.
// It stores objects in a content-addressable layout:
//
//	.assetpipe/cache/
//	  objects/
//	    ab/
//	      cd1234... (first 2 chars = subdir, rest = filename)
type FSStore struct {
	basePath string
	mu       sync.RWMutex
}

// NewFSStore creates a new filesystem-based object store rooted at basePath.
func NewFSStore(basePath string) (*FSStore, error) {
	if err := os.MkdirAll(filepath.Join(basePath, "objects"), 0o750); err != nil {
		return nil, fmt.Errorf("create objects directory: %w", err)
	}
	return &FSStore{basePath: basePath}, nil
}

// Put stores an object and returns its content hash.
func (fs *FSStore) Put(ctx context.Context, obj *Object) (string, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	hash := obj.Hash
	if hash == "" {
		h := sha256.Sum256(obj.Data)
		hash = hex.EncodeToString(h[:])
	}

	objectPath := fs.objectPath(hash)
	if _, err := os.Stat(objectPath); err == nil {
		// Object exists, bump ref count
		metadata, err := fs.readMetadata(hash)
		if err == nil {
			metadata.RefCount++
			metadata.LastAccessed = time.Now()
			if err := fs.writeMetadata(hash, metadata); err != nil {
				return hash, fmt.Errorf("update metadata: %w", err)
			}
		}
		return hash, nil
	}

	if err := os.MkdirAll(filepath.Dir(objectPath), 0o750); err != nil {
		return "", fmt.Errorf("create object directory: %w", err)
	}
	if err := os.WriteFile(objectPath, obj.Data, 0o600); err != nil {
		return "", fmt.Errorf("write object: %w", err)
	}

	metadata := Metadata{
		CreatedAt:    time.Now(),
		LastAccessed: time.Now(),
		RefCount:     1,
		Custom:       make(map[string]string),
	}
	for k, v := range obj.Metadata.Custom {
		metadata.Custom[k] = v
	}
	metadata.Custom["object_type"] = string(obj.Type)

	if err := fs.writeMetadata(hash, metadata); err != nil {
		return hash, fmt.Errorf("write metadata: %w", err)
	}

	return hash, nil
}

// Get retrieves an object by its content hash.
func (fs *FSStore) Get(ctx context.Context, hash string) (*Object, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	objectPath := fs.objectPath(hash)
	// #nosec G304 - objectPath is internal, constructed from sanitized hash
	data, err := os.ReadFile(objectPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound{Hash: hash}
		}
		return nil, fmt.Errorf("read object: %w", err)
	}

	metadata, err := fs.readMetadata(hash)
	if err != nil {
		metadata = Metadata{
			CreatedAt:    time.Now(),
			LastAccessed: time.Now(),
			RefCount:     1,
			Custom:       make(map[string]string),
		}
	}

	metadata.LastAccessed = time.Now()
	if err := fs.writeMetadata(hash, metadata); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to update metadata for %s: %v\n", hash, err)
	}

	return &Object{
		Hash:     hash,
		Type:     ObjectType(metadata.Custom["object_type"]),
		Size:     int64(len(data)),
		Data:     data,
		Metadata: metadata,
	}, nil
}

// Exists checks if an object with the given hash exists.
func (fs *FSStore) Exists(ctx context.Context, hash string) (bool, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	_, err := os.Stat(fs.objectPath(hash))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat object: %w", err)
	}
	return true, nil
}

// Delete removes an object by its content hash.
func (fs *FSStore) Delete(ctx context.Context, hash string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	return fs.deleteUnlocked(hash)
}

// List returns all object hashes matching the given type filter.
func (fs *FSStore) List(ctx context.Context, objectType ObjectType) ([]string, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	return fs.listUnlocked(objectType)
}

// Close releases resources.
func (fs *FSStore) Close() error {
	return nil
}

// GC removes objects whose hash is not in referencedHashes and returns the
// number removed.
func (fs *FSStore) GC(ctx context.Context, referencedHashes map[string]bool) (int, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	allHashes, err := fs.listUnlocked("")
	if err != nil {
		return 0, fmt.Errorf("list objects: %w", err)
	}

	removed := 0
	for _, hash := range allHashes {
		if !referencedHashes[hash] {
			if err := fs.deleteUnlocked(hash); err != nil && !IsNotFound(err) {
				return removed, fmt.Errorf("delete object %s: %w", hash, err)
			}
			removed++
		}
	}

	return removed, nil
}

func (fs *FSStore) listUnlocked(objectType ObjectType) ([]string, error) {
	var hashes []string
	objectsDir := filepath.Join(fs.basePath, "objects")

	err := filepath.Walk(objectsDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || strings.HasSuffix(path, ".meta.json") {
			return nil
		}

		relPath, err := filepath.Rel(objectsDir, path)
		if err != nil {
			return nil
		}
		hash := strings.ReplaceAll(relPath, string(filepath.Separator), "")

		if objectType != "" {
			metadata, err := fs.readMetadata(hash)
			if err == nil && ObjectType(metadata.Custom["object_type"]) != objectType {
				return nil
			}
		}

		hashes = append(hashes, hash)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk objects: %w", err)
	}

	return hashes, nil
}

func (fs *FSStore) deleteUnlocked(hash string) error {
	objectPath := fs.objectPath(hash)
	if err := os.Remove(objectPath); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound{Hash: hash}
		}
		return fmt.Errorf("delete object: %w", err)
	}

	os.Remove(fs.metadataPath(hash))   // Best effort
	os.Remove(filepath.Dir(objectPath)) // Best effort

	return nil
}

func (fs *FSStore) objectPath(hash string) string {
	if len(hash) < 2 {
		return filepath.Join(fs.basePath, "objects", hash)
	}
	return filepath.Join(fs.basePath, "objects", hash[:2], hash[2:])
}

func (fs *FSStore) metadataPath(hash string) string {
	return fs.objectPath(hash) + ".meta.json"
}

func (fs *FSStore) readMetadata(hash string) (Metadata, error) {
	// #nosec G304 - metadata path is internal, constructed from sanitized hash
	data, err := os.ReadFile(fs.metadataPath(hash))
	if err != nil {
		return Metadata{}, fmt.Errorf("read metadata: %w", err)
	}

	var metadata Metadata
	if err := json.Unmarshal(data, &metadata); err != nil {
		return Metadata{}, fmt.Errorf("unmarshal metadata: %w", err)
	}
	return metadata, nil
}

func (fs *FSStore) writeMetadata(hash string, metadata Metadata) error {
	metadataPath := fs.metadataPath(hash)
	if err := os.MkdirAll(filepath.Dir(metadataPath), 0o750); err != nil {
		return fmt.Errorf("create metadata directory: %w", err)
	}

	data, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	if err := os.WriteFile(metadataPath, data, 0o600); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	return nil
}
