package core

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
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

// ComputeFloatHash fingerprints the exact bit patterns of values, so two
// results hash equal only when they are bit-identical.
func ComputeFloatHash(labels []string, values []float64) Hash {
	h := sha256.New()
	for _, label := range labels {
		h.Write([]byte(label))
		h.Write([]byte{0})
	}
	buf := make([]byte, 8)
	for _, v := range values {
		binary.LittleEndian.PutUint64(buf, math.Float64bits(v))
		h.Write(buf)
	}
	return Hash(hex.EncodeToString(h.Sum(nil)))
}
