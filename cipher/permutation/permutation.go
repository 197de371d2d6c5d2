// Package permutation builds the password-derived column permutation and
// its inverse.
package permutation

import (
	"errors"
	"fmt"
)

var (
	// ErrNegativeLength is returned when a permutation of negative length is requested.
	ErrNegativeLength = errors.New("permutation: negative length")

	// ErrNotBijection is returned when a sequence is not a permutation of [0, n).
	ErrNotBijection = errors.New("permutation: not a bijection")
)

// Shuffler is the subset of the generator the engine draws from.
type Shuffler interface {
	Shuffle(n int, swap func(i, j int))
}

// Permutation maps output position j to source index p[j].
type Permutation []int

// Identity returns [0, 1, ..., n-1].
func Identity(n int) Permutation {
	p := make(Permutation, n)
	for i := range p {
		p[i] = i
	}
	return p
}

// Generate returns the identity of length n shuffled by exactly one
// Shuffle call on g. Lengths 0 and 1 go through the same call.
func Generate(g Shuffler, n int) (Permutation, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: %d", ErrNegativeLength, n)
	}
	p := Identity(n)
	g.Shuffle(n, func(i, j int) { p[i], p[j] = p[j], p[i] })
	return p, nil
}

// Validate checks that p covers [0, len(p)) exactly once.
func Validate(p Permutation) error {
	seen := make([]bool, len(p))
	for i, v := range p {
		if v < 0 || v >= len(p) {
			return fmt.Errorf("%w: index %d holds %d, want [0, %d)", ErrNotBijection, i, v, len(p))
		}
		if seen[v] {
			return fmt.Errorf("%w: %d appears twice", ErrNotBijection, v)
		}
		seen[v] = true
	}
	return nil
}

// Invert returns inv such that inv[p[i]] == i.
func Invert(p Permutation) (Permutation, error) {
	if err := Validate(p); err != nil {
		return nil, err
	}
	inv := make(Permutation, len(p))
	for i, v := range p {
		inv[v] = i
	}
	return inv, nil
}

// IsIdentity reports whether p leaves every index in place.
func (p Permutation) IsIdentity() bool {
	for i, v := range p {
		if i != v {
			return false
		}
	}
	return true
}
