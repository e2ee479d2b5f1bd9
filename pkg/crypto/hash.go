// Package crypto provides the hashing used for local storage keys.
// Transaction hashing and signing are done by cardano-cli.
package crypto

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// HashSize is the length of a Hash in bytes.
const HashSize = 32

// KeySize is the length of a storage key digest.
const KeySize = 20

// Hash is a BLAKE3-256 digest.
type Hash [HashSize]byte

// String returns the hex-encoded hash.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// Sum computes a BLAKE3-256 hash of the input data.
func Sum(data []byte) Hash {
	return blake3.Sum256(data)
}

// Key returns the first KeySize bytes of the hash of s. Used to give
// variable-length identifiers such as bech32 addresses a fixed-size
// storage key.
func Key(s string) [KeySize]byte {
	h := Sum([]byte(s))
	var k [KeySize]byte
	copy(k[:], h[:KeySize])
	return k
}
