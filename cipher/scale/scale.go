// Package scale draws the per-row and per-column magnitude factors.
package scale

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

var (
	// ErrInvalidRange is returned for ranges that are not finite and strictly positive.
	ErrInvalidRange = errors.New("scale: invalid range")

	// ErrNegativeSize is returned when a negative vector length is requested.
	ErrNegativeSize = errors.New("scale: negative size")

	// ErrOutOfRange is returned when a factor falls outside its range.
	ErrOutOfRange = errors.New("scale: factor out of range")
)

// Default factor ranges.
var (
	DefaultFreqRange    = Range{Min: 0.2, Max: 1.3}
	DefaultTimeRange    = Range{Min: 0.2, Max: 29}
	DefaultElementRange = Range{Min: 0.5, Max: 1.5}
)

// Range bounds a family of scale factors.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Validate requires 0 < Min <= Max, both finite.
func (r Range) Validate() error {
	if math.IsNaN(r.Min) || math.IsNaN(r.Max) || math.IsInf(r.Min, 0) || math.IsInf(r.Max, 0) {
		return fmt.Errorf("%w: [%v, %v] is not finite", ErrInvalidRange, r.Min, r.Max)
	}
	if r.Min <= 0 || r.Max < r.Min {
		return fmt.Errorf("%w: [%v, %v]", ErrInvalidRange, r.Min, r.Max)
	}
	return nil
}

// Contains reports whether v lies in [Min, Max].
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// UniformSource is the subset of the generator the engine draws from.
type UniformSource interface {
	UniformVector(low, high float64, n int) []float64
}

// Scales holds one factor per frequency bin and one per time segment.
type Scales struct {
	Freq []float64 `json:"freq"`
	Time []float64 `json:"time"`
}

// Generate draws rows frequency factors, then cols time factors.
func Generate(g UniformSource, rows, cols int, freq, time Range) (*Scales, error) {
	if rows < 0 || cols < 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrNegativeSize, rows, cols)
	}
	if err := freq.Validate(); err != nil {
		return nil, fmt.Errorf("frequency: %w", err)
	}
	if err := time.Validate(); err != nil {
		return nil, fmt.Errorf("time: %w", err)
	}

	return &Scales{
		Freq: g.UniformVector(freq.Min, freq.Max, rows),
		Time: g.UniformVector(time.Min, time.Max, cols),
	}, nil
}

// At returns the combined factor for element (r, c).
func (s *Scales) At(r, c int) float64 {
	return s.Freq[r] * s.Time[c]
}

// Dims returns the shape the factors were drawn for.
func (s *Scales) Dims() (rows, cols int) {
	return len(s.Freq), len(s.Time)
}

// Validate checks every factor against its range.
func (s *Scales) Validate(freq, time Range) error {
	if err := checkVector("frequency", s.Freq, freq); err != nil {
		return err
	}
	return checkVector("time", s.Time, time)
}

// ElementMatrix draws rows*cols per-element factors in row-major order.
func ElementMatrix(g UniformSource, rows, cols int, r Range) ([]float64, error) {
	if rows < 0 || cols < 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrNegativeSize, rows, cols)
	}
	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("element: %w", err)
	}
	return g.UniformVector(r.Min, r.Max, rows*cols), nil
}

func checkVector(name string, v []float64, r Range) error {
	if len(v) == 0 {
		return nil
	}
	for i, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return fmt.Errorf("%w: %s[%d] is not finite", ErrOutOfRange, name, i)
		}
	}
	lo, hi := floats.Min(v), floats.Max(v)
	if !r.Contains(lo) || !r.Contains(hi) {
		return fmt.Errorf("%w: %s spans [%v, %v], want [%v, %v]", ErrOutOfRange, name, lo, hi, r.Min, r.Max)
	}
	return nil
}
