package windowing

import (
	"fmt"
	"math"
)

// Type names a window function
type Type string

const (
	TypeHann        Type = "hann"
	TypeHamming     Type = "hamming"
	TypeBlackman    Type = "blackman"
	TypeRectangular Type = "rectangular"
)

// Window holds precomputed coefficients for one window type and size.
// Periodic windows (symmetric == false) are the DFT-even form used for
// spectral analysis; symmetric windows are the filter-design form.
type Window struct {
	size         int
	coefficients []float64
}

// New creates a window of the given type and size
func New(kind Type, size int, symmetric bool) (*Window, error) {
	if size <= 0 {
		return nil, fmt.Errorf("window size must be positive, got %d", size)
	}

	gen, ok := generators[kind]
	if !ok {
		return nil, fmt.Errorf("unknown window type %q", kind)
	}

	w := &Window{
		size:         size,
		coefficients: make([]float64, size),
	}

	denominator := float64(size)
	if symmetric {
		denominator = float64(size - 1)
	}
	if size == 1 {
		// a single tap is always 1
		w.coefficients[0] = 1
		return w, nil
	}

	for i := range size {
		w.coefficients[i] = gen(2 * math.Pi * float64(i) / denominator)
	}
	return w, nil
}

var generators = map[Type]func(arg float64) float64{
	TypeHann: func(arg float64) float64 {
		return 0.5 * (1.0 - math.Cos(arg))
	},
	TypeHamming: func(arg float64) float64 {
		return 0.54 - 0.46*math.Cos(arg)
	},
	TypeBlackman: func(arg float64) float64 {
		return 0.42 - 0.5*math.Cos(arg) + 0.08*math.Cos(2*arg)
	},
	TypeRectangular: func(float64) float64 {
		return 1.0
	},
}

// ApplyInPlace applies the window to a signal in-place
func (w *Window) ApplyInPlace(signal []float64) error {
	if len(signal) != w.size {
		return fmt.Errorf("signal length (%d) doesn't match window size (%d)", len(signal), w.size)
	}

	for i := range w.size {
		signal[i] *= w.coefficients[i]
	}
	return nil
}

// Sum returns the sum of the coefficients (the STFT amplitude scale)
func (w *Window) Sum() float64 {
	total := 0.0
	for _, c := range w.coefficients {
		total += c
	}
	return total
}

// GetCoefficients returns a copy of the window coefficients
func (w *Window) GetCoefficients() []float64 {
	coeffs := make([]float64, len(w.coefficients))
	copy(coeffs, w.coefficients)
	return coeffs
}
