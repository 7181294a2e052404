package chain

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash/fnv"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Hasher computes a deterministic, hex-encoded digest of data.
// Implementations must be stable across processes for identical input.
type Hasher interface {
	Hash(data string) string
}

// FNVHasher is the default mock hasher: 128-bit FNV-1a, 32 hex characters.
type FNVHasher struct{}

// Hash implements Hasher.
func (FNVHasher) Hash(data string) string {
	h := fnv.New128a()
	h.Write([]byte(data)) //nolint:errcheck
	return hex.EncodeToString(h.Sum(nil))
}

// SHA256Hasher hashes with SHA-256, 64 hex characters.
type SHA256Hasher struct{}

// Hash implements Hasher.
func (SHA256Hasher) Hash(data string) string {
	sum := sha256.Sum256([]byte(data))
	return hex.EncodeToString(sum[:])
}

// BLAKE2bHasher hashes with BLAKE2b-256, 64 hex characters.
type BLAKE2bHasher struct{}

// Hash implements Hasher.
func (BLAKE2bHasher) Hash(data string) string {
	sum := blake2b.Sum256([]byte(data))
	return hex.EncodeToString(sum[:])
}

// HasherByName returns the hasher registered under name ("fnv", "sha256" or
// "blake2b"). An empty name selects FNVHasher.
func HasherByName(name string) (Hasher, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "fnv":
		return FNVHasher{}, nil
	case "sha256":
		return SHA256Hasher{}, nil
	case "blake2b":
		return BLAKE2bHasher{}, nil
	default:
		return nil, fmt.Errorf("unknown hasher %q", name)
	}
}

// NewTxID returns 64 hex characters drawn from crypto/rand.
func NewTxID() (string, error) {
	var b [32]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return hex.EncodeToString(b[:]), nil
}
