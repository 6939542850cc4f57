package core

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"strings"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// HashFloats hashes the exact bit patterns of values, so two slices hash equal
// only when every element is bit-identical.
func HashFloats(values ...float64) Hash {
	buf := make([]byte, 8*len(values))
	for i, v := range values {
		binary.BigEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return NewHash(buf)
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// IsEmpty checks if the hash is empty
func (h Hash) IsEmpty() bool {
	return h == ""
}

// Equals compares two hashes, ignoring hex case
func (h Hash) Equals(other Hash) bool {
	return strings.EqualFold(string(h), string(other))
}

// Short returns the first 12 hex characters for log lines
func (h Hash) Short() string {
	if len(h) <= 12 {
		return string(h)
	}
	return string(h[:12])
}
