// Package manifest records a build's inputs and the mapping from logical
// chunk names to final hashed artifact paths.
package manifest

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"
)

// FileName is the manifest artifact written into the output directory.
const FileName = "manifest.json"

// BuildManifest is the complete record of one build: inputs, the
// name-to-path mapping, and per-artifact content hashes.
type BuildManifest struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Inputs    Inputs    `json:"inputs"`
	// Assets maps logical chunk name to final hashed path.
	Assets map[string]string `json:"assets"`
	// ArtifactHashes maps final path to its content hash fragment.
	ArtifactHashes map[string]string `json:"artifact_hashes,omitempty"`
	Status         string            `json:"status"`
	Duration       int64             `json:"duration_ms"`
}

// Inputs captures all inputs to the build.
type Inputs struct {
	SourceRoot string `json:"source_root"`
	// SourceRevision is the VCS commit of the source root when available.
	SourceRevision string `json:"source_revision,omitempty"`
	// Dirty marks a worktree with uncommitted changes at build time.
	Dirty      bool     `json:"dirty,omitempty"`
	ConfigHash string   `json:"config_hash"`
	Entries    []string `json:"entries"`
}

// New creates a manifest shell for a build session.
func New(id string, inputs Inputs) *BuildManifest {
	return &BuildManifest{
		ID:             id,
		Timestamp:      time.Now().UTC(),
		Inputs:         inputs,
		Assets:         make(map[string]string),
		ArtifactHashes: make(map[string]string),
	}
}

// Add records one artifact under its logical name.
func (m *BuildManifest) Add(logicalName, finalPath, hash string) {
	m.Assets[logicalName] = finalPath
	m.ArtifactHashes[finalPath] = hash
}

// ToJSON serializes the manifest to indented JSON. Map keys serialize
// sorted, so output is deterministic for identical content.
func (m *BuildManifest) ToJSON() ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}
	return data, nil
}

// FromJSON deserializes a manifest from JSON.
func FromJSON(data []byte) (*BuildManifest, error) {
	var m BuildManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal manifest: %w", err)
	}
	return &m, nil
}

// Hash computes a deterministic digest over the manifest's inputs and
// asset mapping, excluding volatile fields (ID, timestamp, duration).
// Two builds over identical sources produce identical manifest hashes.
func (m *BuildManifest) Hash() (string, error) {
	hashInput := struct {
		Inputs Inputs            `json:"inputs"`
		Assets map[string]string `json:"assets"`
		Hashes map[string]string `json:"artifact_hashes"`
	}{
		Inputs: m.Inputs,
		Assets: m.Assets,
		Hashes: m.ArtifactHashes,
	}

	data, err := json.Marshal(hashInput)
	if err != nil {
		return "", fmt.Errorf("marshal for hash: %w", err)
	}

	hash := sha256.Sum256(data)
	return fmt.Sprintf("%x", hash), nil
}
