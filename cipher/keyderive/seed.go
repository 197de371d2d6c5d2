// Package keyderive turns a password into the fixed-width seed that drives
// every password-dependent draw in the cipher packages.
package keyderive

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"math/big"
)

// SeedSize is the width of a Seed in bytes (256 bits).
const SeedSize = sha256.Size

// ErrEmptyPassword is returned when the password is empty.
var ErrEmptyPassword = errors.New("keyderive: password must not be empty")

// Seed is a 256-bit unsigned integer stored big-endian.
type Seed [SeedSize]byte

// DeriveSeed hashes the UTF-8 bytes of password with SHA-256. The digest,
// read as a big-endian integer, is the seed.
func DeriveSeed(password string) (Seed, error) {
	if password == "" {
		return Seed{}, ErrEmptyPassword
	}
	return Seed(sha256.Sum256([]byte(password))), nil
}

// BigInt returns the seed as an unsigned integer.
func (s Seed) BigInt() *big.Int {
	return new(big.Int).SetBytes(s[:])
}

// Bytes returns a copy of the raw seed bytes.
func (s Seed) Bytes() []byte {
	b := make([]byte, SeedSize)
	copy(b, s[:])
	return b
}

// String returns the seed as lowercase hex.
func (s Seed) String() string {
	return hex.EncodeToString(s[:])
}
