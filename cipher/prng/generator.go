// Package prng provides the seeded pseudo-random stream behind every
// password-dependent draw.
//
// The algorithm is pinned so that any implementation, in any language, can
// reproduce the same draws from the same seed:
//
//	keystream  ChaCha20 (RFC 8439), key = 32 seed bytes, nonce = 12 zero bytes, counter from 0
//	Uint64     next 8 keystream bytes, little-endian
//	Float64    (Uint64 >> 11) * 2^-53
//	Uniform    low + (high-low)*Float64, rounded after the multiply
//	Bounded(n) mask = 2^bitlen(n-1)-1, draw Uint64&mask until < n
//	Shuffle    Fisher-Yates, i from n-1 down to 1, j = Bounded(i+1)
package prng

import (
	"encoding/binary"
	"fmt"
	"math/bits"

	"github.com/RyanBlaney/sonido-crypt/cipher/keyderive"
	"golang.org/x/crypto/chacha20"
)

const blockSize = 64

// Generator is a deterministic stream of draws. It is not safe for
// concurrent use; create one per operation.
type Generator struct {
	stream *chacha20.Cipher
	block  [blockSize]byte
	off    int
	draws  uint64
}

// New creates a generator positioned at the start of the stream for seed.
func New(seed keyderive.Seed) (*Generator, error) {
	var nonce [chacha20.NonceSize]byte
	stream, err := chacha20.NewUnauthenticatedCipher(seed[:], nonce[:])
	if err != nil {
		return nil, fmt.Errorf("prng: keystream init: %w", err)
	}
	return &Generator{stream: stream, off: blockSize}, nil
}

func (g *Generator) refill() {
	clear(g.block[:])
	g.stream.XORKeyStream(g.block[:], g.block[:])
	g.off = 0
}

// Uint64 returns the next 64 bits of the stream.
func (g *Generator) Uint64() uint64 {
	if g.off+8 > blockSize {
		g.refill()
	}
	v := binary.LittleEndian.Uint64(g.block[g.off:])
	g.off += 8
	g.draws++
	return v
}

// Float64 returns a uniform value in [0, 1) with 53 bits of precision.
func (g *Generator) Float64() float64 {
	return float64(g.Uint64()>>11) * 0x1p-53
}

// Uniform returns a uniform value in [low, high).
func (g *Generator) Uniform(low, high float64) float64 {
	span := high - low
	// the conversion forces rounding of the product so no FMA is emitted
	return low + float64(span*g.Float64())
}

// UniformVector returns n successive Uniform draws.
func (g *Generator) UniformVector(low, high float64, n int) []float64 {
	if n <= 0 {
		return []float64{}
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = g.Uniform(low, high)
	}
	return out
}

// Bounded returns a uniform integer in [0, n) using bitmask rejection.
// It returns 0 without drawing when n is 0.
func (g *Generator) Bounded(n uint64) uint64 {
	if n == 0 {
		return 0
	}
	mask := uint64(1)<<bits.Len64(n-1) - 1
	for {
		if v := g.Uint64() & mask; v < n {
			return v
		}
	}
}

// Shuffle permutes n elements in place through swap (Fisher-Yates).
// Lengths 0 and 1 fall through the loop without drawing.
func (g *Generator) Shuffle(n int, swap func(i, j int)) {
	for i := n - 1; i > 0; i-- {
		j := int(g.Bounded(uint64(i + 1)))
		swap(i, j)
	}
}

// ShuffleInts shuffles s in place.
func (g *Generator) ShuffleInts(s []int) {
	g.Shuffle(len(s), func(i, j int) { s[i], s[j] = s[j], s[i] })
}

// Draws reports how many 64-bit words have been consumed.
func (g *Generator) Draws() uint64 {
	return g.draws
}
