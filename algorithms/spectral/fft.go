package spectral

import (
	"github.com/mjibson/go-dsp/fft"
)

// FFT wraps mjibson/go-dsp. It has no state and is safe for concurrent use.
type FFT struct{}

// NewFFT creates a new FFT calculator
func NewFFT() *FFT {
	return &FFT{}
}

// Compute computes the full complex spectrum of a real signal.
// go-dsp handles all sizes, including non-power-of-2.
func (f *FFT) Compute(x []float64) []complex128 {
	if len(x) == 0 {
		return []complex128{}
	}

	return fft.FFTReal(x)
}

// ComputeInverse computes the inverse FFT, normalized by 1/N
func (f *FFT) ComputeInverse(x []complex128) []complex128 {
	if len(x) == 0 {
		return []complex128{}
	}

	return fft.IFFT(x)
}

// ComputeInverseReal computes inverse FFT and returns real part only
func (f *FFT) ComputeInverseReal(x []complex128) []float64 {
	if len(x) == 0 {
		return []float64{}
	}

	result := f.ComputeInverse(x)
	realResult := make([]float64, len(result))

	for i, val := range result {
		realResult[i] = real(val)
	}

	return realResult
}

// ComputeInverseOneSided inverts a one-sided spectrum of n/2+1 bins back to
// n real samples. The imaginary parts of the DC bin and, for even n, the
// Nyquist bin are ignored, matching numpy's irfft.
func (f *FFT) ComputeInverseOneSided(half []complex128, n int) []float64 {
	if n <= 0 || len(half) == 0 {
		return []float64{}
	}

	full := make([]complex128, n)
	bins := min(len(half), n/2+1)
	for k := range bins {
		full[k] = half[k]
	}
	full[0] = complex(real(full[0]), 0)

	for k := 1; k < bins; k++ {
		if n-k == k {
			full[k] = complex(real(full[k]), 0)
			continue
		}
		full[n-k] = complex(real(half[k]), -imag(half[k]))
	}

	return f.ComputeInverseReal(full)
}
