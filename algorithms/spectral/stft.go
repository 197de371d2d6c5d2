package spectral

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/RyanBlaney/sonido-crypt/algorithms/windowing"
	"github.com/RyanBlaney/sonido-crypt/logging"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrEmptySignal is returned when there are no samples to analyze.
	ErrEmptySignal = errors.New("spectral: empty signal")
	// ErrFraming is returned when a spectrum does not fit the STFT framing.
	ErrFraming = errors.New("spectral: spectrum does not match STFT framing")
)

// STFTConfig describes the framing of a short-time Fourier transform
type STFTConfig struct {
	WindowSize int            `json:"window_size"` // samples per segment (nperseg)
	Overlap    int            `json:"overlap"`     // samples shared by adjacent segments
	Window     windowing.Type `json:"window"`
}

// DefaultSTFTConfig returns SciPy's stft defaults: 1024-sample periodic Hann
// segments with 50% overlap.
func DefaultSTFTConfig() STFTConfig {
	return STFTConfig{
		WindowSize: 1024,
		Overlap:    512,
		Window:     windowing.TypeHann,
	}
}

// Validate checks the framing parameters
func (c STFTConfig) Validate() error {
	if c.WindowSize <= 0 {
		return fmt.Errorf("window size must be positive, got %d", c.WindowSize)
	}
	if c.Overlap < 0 || c.Overlap >= c.WindowSize {
		return fmt.Errorf("overlap must be in [0, %d), got %d", c.WindowSize, c.Overlap)
	}
	return nil
}

// HopSize returns the distance between segment starts
func (c STFTConfig) HopSize() int {
	return c.WindowSize - c.Overlap
}

// STFT computes and inverts short-time Fourier transforms with SciPy's
// framing: the signal is zero-padded by WindowSize/2 on both ends and then
// to a whole number of hops, and each segment spectrum is scaled by
// 1/sum(window).
type STFT struct {
	cfg    STFTConfig
	window *windowing.Window
	fft    *FFT
	logger logging.Logger
}

// STFTResult holds a one-sided complex spectrogram, frequency x time
type STFTResult struct {
	Spectrum       *mat.CDense `json:"-"`
	Frequencies    []float64   `json:"frequencies"` // Hz per row
	Times          []float64   `json:"times"`       // seconds per column
	SampleRate     int         `json:"sample_rate"`
	NumSamples     int         `json:"num_samples"` // length of the analyzed signal
	WindowSize     int         `json:"window_size"`
	HopSize        int         `json:"hop_size"`
	FreqResolution float64     `json:"freq_resolution"` // Hz/bin
	TimeResolution float64     `json:"time_resolution"` // seconds/frame
}

// Dims returns the spectrum shape as (frequency bins, time frames)
func (r *STFTResult) Dims() (int, int) {
	if r.Spectrum == nil || r.Spectrum.IsEmpty() {
		return 0, 0
	}
	return r.Spectrum.Dims()
}

// WithSpectrum returns a copy of r that carries spectrum instead, keeping
// the framing metadata. Used to invert a transformed spectrogram.
func (r *STFTResult) WithSpectrum(spectrum *mat.CDense) *STFTResult {
	out := *r
	out.Spectrum = spectrum
	return &out
}

// NewSTFT creates a new STFT calculator
func NewSTFT(cfg STFTConfig) (*STFT, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	window, err := windowing.New(cfg.Window, cfg.WindowSize, false)
	if err != nil {
		return nil, err
	}

	return &STFT{
		cfg:    cfg,
		window: window,
		fft:    NewFFT(),
		logger: logging.WithFields(logging.Fields{
			"component":   "stft",
			"window_size": cfg.WindowSize,
			"hop_size":    cfg.HopSize(),
		}),
	}, nil
}

// Config returns the framing configuration
func (s *STFT) Config() STFTConfig {
	return s.cfg
}

// Shape returns the (frequency bins, time frames) of the spectrum Compute
// produces for a signal of numSamples samples.
func (s *STFT) Shape(numSamples int) (int, int) {
	if numSamples <= 0 {
		return 0, 0
	}
	return s.cfg.WindowSize/2 + 1, s.numFrames(numSamples)
}

func (s *STFT) numFrames(numSamples int) int {
	return (s.paddedLength(numSamples)-s.cfg.WindowSize)/s.cfg.HopSize() + 1
}

// paddedLength is the signal length after boundary and hop padding
func (s *STFT) paddedLength(numSamples int) int {
	n := numSamples + 2*(s.cfg.WindowSize/2)
	hop := s.cfg.HopSize()
	if rem := (n - s.cfg.WindowSize) % hop; rem != 0 {
		n += hop - rem
	}
	return n
}

// Compute computes the STFT of signal with parallel processing over frames
func (s *STFT) Compute(signal []float64, sampleRate int) (*STFTResult, error) {
	if len(signal) == 0 {
		return nil, ErrEmptySignal
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}

	windowSize := s.cfg.WindowSize
	hopSize := s.cfg.HopSize()
	freqBins, numFrames := s.Shape(len(signal))

	padded := make([]float64, s.paddedLength(len(signal)))
	copy(padded[windowSize/2:], signal)

	spectrum := mat.NewCDense(freqBins, numFrames, nil)
	scale := complex(1/s.window.Sum(), 0)

	numWorkers := getOptimalWorkerCount(numFrames)
	jobs := make(chan int, numFrames)

	var wg sync.WaitGroup
	for range numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()

			// Reuse frame buffer for this worker
			frameBuffer := make([]float64, windowSize)

			for frameIdx := range jobs {
				start := frameIdx * hopSize
				copy(frameBuffer, padded[start:start+windowSize])

				// sizes always match, the window was built for this framing
				_ = s.window.ApplyInPlace(frameBuffer)

				fftResult := s.fft.Compute(frameBuffer)
				for k := range freqBins {
					spectrum.Set(k, frameIdx, fftResult[k]*scale)
				}
			}
		}()
	}

	for frameIdx := range numFrames {
		jobs <- frameIdx
	}
	close(jobs)
	wg.Wait()

	frequencies := make([]float64, freqBins)
	for k := range frequencies {
		frequencies[k] = float64(k) * float64(sampleRate) / float64(windowSize)
	}
	times := make([]float64, numFrames)
	for i := range times {
		times[i] = float64(i*hopSize) / float64(sampleRate)
	}

	s.logger.Debug("Computed STFT", logging.Fields{
		"samples":   len(signal),
		"freq_bins": freqBins,
		"frames":    numFrames,
		"workers":   numWorkers,
	})

	return &STFTResult{
		Spectrum:       spectrum,
		Frequencies:    frequencies,
		Times:          times,
		SampleRate:     sampleRate,
		NumSamples:     len(signal),
		WindowSize:     windowSize,
		HopSize:        hopSize,
		FreqResolution: float64(sampleRate) / float64(windowSize),
		TimeResolution: float64(hopSize) / float64(sampleRate),
	}, nil
}

// getOptimalWorkerCount determines the optimal number of workers based on workload
func getOptimalWorkerCount(numFrames int) int {
	numCPU := runtime.NumCPU()

	// For small workloads, don't over-parallelize
	if numFrames < 100 {
		return max(1, min(numCPU/2, numFrames))
	}

	if numFrames < 1000 {
		return min(numCPU, 8)
	}

	return numCPU
}
