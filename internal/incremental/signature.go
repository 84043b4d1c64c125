// Package incremental provides build skip detection based on content hashing.
package incremental

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"git.home.luguber.info/inful/assetpipe/internal/config"
)

// SourceHash records one source file's content hash.
type SourceHash struct {
	Path string `json:"path"`
	Hash string `json:"hash"`
}

// BuildSignature represents the complete signature of a build's inputs.
type BuildSignature struct {
	SourceHashes []SourceHash      `json:"source_hashes"`
	Stages       []string          `json:"stages"`
	ConfigHash   string            `json:"config_hash"`
	BuildHash    string            `json:"build_hash"` // computed hash of all above
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// ComputeBuildSignature computes a deterministic hash for the entire build.
// The signature covers every source file's content hash, the registered
// stage names, and a hash of the configuration.
//
// Two builds with identical signatures would produce identical artifacts,
// so the later build can be skipped.
func ComputeBuildSignature(cfg *config.Config, sources []SourceHash, stages []string) (*BuildSignature, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	configHash, err := computeConfigHash(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to compute config hash: %w", err)
	}

	sig := &BuildSignature{
		SourceHashes: append([]SourceHash(nil), sources...),
		Stages:       append([]string(nil), stages...),
		ConfigHash:   configHash,
		Metadata:     make(map[string]string),
	}

	// Sort inputs for determinism regardless of discovery order.
	sort.Slice(sig.SourceHashes, func(i, j int) bool {
		return sig.SourceHashes[i].Path < sig.SourceHashes[j].Path
	})
	sort.Strings(sig.Stages)

	hash, err := computeSignatureHash(sig)
	if err != nil {
		return nil, fmt.Errorf("failed to compute signature hash: %w", err)
	}

	sig.BuildHash = hash
	return sig, nil
}

func computeConfigHash(cfg *config.Config) (string, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("failed to marshal config: %w", err)
	}
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:]), nil
}

// computeSignatureHash hashes the normalized signature components,
// excluding BuildHash and Metadata.
func computeSignatureHash(sig *BuildSignature) (string, error) {
	normalized := struct {
		SourceHashes []SourceHash `json:"source_hashes"`
		Stages       []string     `json:"stages"`
		ConfigHash   string       `json:"config_hash"`
	}{
		SourceHashes: sig.SourceHashes,
		Stages:       sig.Stages,
		ConfigHash:   sig.ConfigHash,
	}

	data, err := json.Marshal(normalized)
	if err != nil {
		return "", fmt.Errorf("failed to marshal signature: %w", err)
	}

	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:]), nil
}

// ToJSON serializes the signature to JSON.
func (s *BuildSignature) ToJSON() ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

// FromJSON deserializes a signature from JSON.
func FromJSON(data []byte) (*BuildSignature, error) {
	var sig BuildSignature
	if err := json.Unmarshal(data, &sig); err != nil {
		return nil, fmt.Errorf("failed to unmarshal signature: %w", err)
	}
	return &sig, nil
}

// Equals checks if two signatures are equal (same BuildHash).
func (s *BuildSignature) Equals(other *BuildSignature) bool {
	if s == nil || other == nil {
		return s == other
	}
	return s.BuildHash == other.BuildHash
}
