package spectral

import (
	"fmt"
	"sync"

	"github.com/RyanBlaney/sonido-crypt/logging"
)

// Inverse reconstructs a signal from result by weighted overlap-add.
// Each segment is inverse transformed, rescaled by sum(window), multiplied
// by the window and summed; the sum is divided by the overlapped squared
// window wherever that exceeds 1e-10. The boundary padding is then removed
// and the output is trimmed to result.NumSamples when it is set.
//
// Any spectrum of the right height inverts. For a spectrum Compute did not
// produce the output is the least-squares signal, not a signal whose STFT
// equals the input.
func (s *STFT) Inverse(result *STFTResult) ([]float64, error) {
	if result == nil || result.Spectrum == nil || result.Spectrum.IsEmpty() {
		return nil, ErrEmptySignal
	}
	if result.WindowSize != 0 && result.WindowSize != s.cfg.WindowSize {
		return nil, fmt.Errorf("%w: window size %d, expected %d",
			ErrFraming, result.WindowSize, s.cfg.WindowSize)
	}
	if result.HopSize != 0 && result.HopSize != s.cfg.HopSize() {
		return nil, fmt.Errorf("%w: hop size %d, expected %d",
			ErrFraming, result.HopSize, s.cfg.HopSize())
	}

	windowSize := s.cfg.WindowSize
	hopSize := s.cfg.HopSize()
	freqBins, numFrames := result.Spectrum.Dims()
	if freqBins != windowSize/2+1 {
		return nil, fmt.Errorf("%w: %d frequency bins, expected %d",
			ErrFraming, freqBins, windowSize/2+1)
	}

	segments := s.inverseSegments(result, numFrames)

	outputLength := windowSize + (numFrames-1)*hopSize
	signal := make([]float64, outputLength)
	norm := make([]float64, outputLength)
	coefficients := s.window.GetCoefficients()

	for frameIdx, segment := range segments {
		start := frameIdx * hopSize
		for i, c := range coefficients {
			signal[start+i] += segment[i] * c
			norm[start+i] += c * c
		}
	}

	for i := range signal {
		if norm[i] > 1e-10 {
			signal[i] /= norm[i]
		}
	}

	boundary := windowSize / 2
	signal = signal[boundary : outputLength-boundary]
	if result.NumSamples > 0 && result.NumSamples < len(signal) {
		signal = signal[:result.NumSamples]
	}

	s.logger.Debug("Computed inverse STFT", logging.Fields{
		"frames":  numFrames,
		"samples": len(signal),
	})

	return signal, nil
}

// inverseSegments inverse transforms every frame in parallel. Segments are
// rescaled by sum(window) to undo Compute's amplitude scaling.
func (s *STFT) inverseSegments(result *STFTResult, numFrames int) [][]float64 {
	windowSize := s.cfg.WindowSize
	freqBins, _ := result.Spectrum.Dims()
	scale := s.window.Sum()

	segments := make([][]float64, numFrames)
	jobs := make(chan int, numFrames)

	var wg sync.WaitGroup
	for range getOptimalWorkerCount(numFrames) {
		wg.Add(1)
		go func() {
			defer wg.Done()

			column := make([]complex128, freqBins)
			for frameIdx := range jobs {
				for k := range freqBins {
					column[k] = result.Spectrum.At(k, frameIdx)
				}

				segment := s.fft.ComputeInverseOneSided(column, windowSize)
				for i := range segment {
					segment[i] *= scale
				}
				segments[frameIdx] = segment
			}
		}()
	}

	for frameIdx := range numFrames {
		jobs <- frameIdx
	}
	close(jobs)
	wg.Wait()

	return segments
}
