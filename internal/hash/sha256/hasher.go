// Package sha256 derives content-addressed keys with SHA-256.
package sha256

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hasher names stored assets after the digest of their source URL.
type Hasher struct{}

// New returns a SHA-256 hasher.
func New() *Hasher {
	return &Hasher{}
}

// Sum returns the hex digest of data.
func (*Hasher) Sum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Key returns the storage key for a source URL.
func (h *Hasher) Key(sourceURL string) string {
	return h.Sum([]byte(sourceURL))
}
