package core

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// IsEmpty checks if the hash is empty
func (h Hash) IsEmpty() bool {
	return h == ""
}

// Equals checks if two hashes are equal
func (h Hash) Equals(other Hash) bool {
	return h == other
}

// Fingerprint computes a deterministic hash of a JSON-serializable value.
// Repeated analyses over the same counts, config and seed must produce
// the same fingerprint.
func Fingerprint(v interface{}) Hash {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return NewHash(data)
}
