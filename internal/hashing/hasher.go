// Package hashing computes content fingerprints for cache-busting file
// names and cache keys.
package hashing

import (
	"crypto/sha256"
	"encoding/hex"
)

// MinLength and MaxLength bound the hash fragment used in file names.
// Collision resistance only needs to avoid accidental cache collisions.
const (
	MinLength = 8
	MaxLength = 16
)

// Hasher produces fixed-length hex fragments of content digests. The
// fragment is a pure function of the bytes, never of path or timestamp,
// so identical source always yields identical hashes.
type Hasher struct {
	length int
}

// New creates a hasher emitting fragments of the given length, clamped to
// [MinLength, MaxLength].
func New(length int) *Hasher {
	if length < MinLength {
		length = MinLength
	}
	if length > MaxLength {
		length = MaxLength
	}
	return &Hasher{length: length}
}

// Sum returns the truncated hex digest of data.
func (h *Hasher) Sum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:h.length]
}

// FullSum returns the complete hex digest, used for cache keys where
// truncation buys nothing.
func FullSum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
