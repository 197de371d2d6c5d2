package spectral

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/RyanBlaney/sonido-crypt/algorithms/windowing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func testSignal(n int, seed uint64) []float64 {
	rng := rand.New(rand.NewPCG(seed, 7))
	signal := make([]float64, n)
	for i := range signal {
		signal[i] = 0.5*math.Sin(2*math.Pi*440*float64(i)/8000) + 0.1*(rng.Float64()-0.5)
	}
	return signal
}

func TestDefaultShape(t *testing.T) {
	stft, err := NewSTFT(DefaultSTFTConfig())
	require.NoError(t, err)

	rows, cols := stft.Shape(1000)
	assert.Equal(t, 513, rows)
	assert.Equal(t, 3, cols)

	result, err := stft.Compute(make([]float64, 1000), 8000)
	require.NoError(t, err)
	r, c := result.Dims()
	assert.Equal(t, rows, r)
	assert.Equal(t, cols, c)

	rows, cols = stft.Shape(0)
	assert.Zero(t, rows)
	assert.Zero(t, cols)
}

func TestComputeSmallFrames(t *testing.T) {
	stft, err := NewSTFT(STFTConfig{WindowSize: 4, Overlap: 2, Window: windowing.TypeHann})
	require.NoError(t, err)

	ones := []float64{1, 1, 1, 1, 1, 1, 1, 1, 1, 1}
	result, err := stft.Compute(ones, 4)
	require.NoError(t, err)

	rows, cols := result.Dims()
	require.Equal(t, 3, rows)
	require.Equal(t, 6, cols)

	// first frame straddles the leading zero padding
	assert.InDelta(t, 0.75, real(result.Spectrum.At(0, 0)), 1e-12)
	assert.InDelta(t, -0.5, real(result.Spectrum.At(1, 0)), 1e-12)
	assert.InDelta(t, 0.25, imag(result.Spectrum.At(1, 0)), 1e-12)
	assert.InDelta(t, 0.25, real(result.Spectrum.At(2, 0)), 1e-12)

	// second frame lies inside the signal
	assert.InDelta(t, 1.0, real(result.Spectrum.At(0, 1)), 1e-12)
	assert.InDelta(t, -0.5, real(result.Spectrum.At(1, 1)), 1e-12)
	assert.InDelta(t, 0.0, real(result.Spectrum.At(2, 1)), 1e-12)

	assert.Equal(t, []float64{0, 1, 2}, result.Frequencies)
	assert.InDeltaSlice(t, []float64{0, 0.5, 1, 1.5, 2, 2.5}, result.Times, 1e-12)
	assert.Equal(t, 10, result.NumSamples)
	assert.Equal(t, 2, result.HopSize)
}

func TestRoundTrip(t *testing.T) {
	configs := []STFTConfig{
		DefaultSTFTConfig(),
		{WindowSize: 256, Overlap: 192, Window: windowing.TypeHann},
		{WindowSize: 255, Overlap: 127, Window: windowing.TypeHamming},
		{WindowSize: 64, Overlap: 0, Window: windowing.TypeRectangular},
	}
	lengths := []int{1, 7, 1000, 4097}

	for _, cfg := range configs {
		stft, err := NewSTFT(cfg)
		require.NoError(t, err)

		for _, n := range lengths {
			signal := testSignal(n, uint64(n))

			result, err := stft.Compute(signal, 8000)
			require.NoError(t, err)

			restored, err := stft.Inverse(result)
			require.NoError(t, err)
			require.Len(t, restored, n)
			assert.InDeltaSlice(t, signal, restored, 1e-9, "window %d overlap %d length %d", cfg.WindowSize, cfg.Overlap, n)
		}
	}
}

func TestInverseOfModifiedSpectrum(t *testing.T) {
	stft, err := NewSTFT(STFTConfig{WindowSize: 128, Overlap: 64, Window: windowing.TypeHann})
	require.NoError(t, err)

	result, err := stft.Compute(testSignal(2000, 3), 8000)
	require.NoError(t, err)

	rows, cols := result.Dims()
	scaled := mat.NewCDense(rows, cols, nil)
	scaled.Copy(result.Spectrum)
	for i := range rows {
		for j := range cols {
			scaled.Set(i, j, 2*scaled.At(i, j))
		}
	}

	restored, err := stft.Inverse(result.WithSpectrum(scaled))
	require.NoError(t, err)
	require.Len(t, restored, 2000)

	original, err := stft.Inverse(result)
	require.NoError(t, err)
	for i := range restored {
		assert.InDelta(t, 2*original[i], restored[i], 1e-9)
	}
	assert.NotSame(t, result.Spectrum, scaled)
}

func TestComputeRejects(t *testing.T) {
	stft, err := NewSTFT(DefaultSTFTConfig())
	require.NoError(t, err)

	_, err = stft.Compute(nil, 8000)
	require.ErrorIs(t, err, ErrEmptySignal)

	_, err = stft.Compute([]float64{1}, 0)
	require.Error(t, err)
}

func TestInverseRejectsWrongFraming(t *testing.T) {
	stft, err := NewSTFT(STFTConfig{WindowSize: 8, Overlap: 4, Window: windowing.TypeHann})
	require.NoError(t, err)

	_, err = stft.Inverse(&STFTResult{Spectrum: mat.NewCDense(4, 3, nil)})
	require.ErrorIs(t, err, ErrFraming)

	_, err = stft.Inverse(&STFTResult{Spectrum: mat.NewCDense(5, 3, nil), WindowSize: 16})
	require.ErrorIs(t, err, ErrFraming)

	_, err = stft.Inverse(&STFTResult{Spectrum: mat.NewCDense(5, 3, nil), HopSize: 2})
	require.ErrorIs(t, err, ErrFraming)

	_, err = stft.Inverse(nil)
	require.ErrorIs(t, err, ErrEmptySignal)

	_, err = stft.Inverse(&STFTResult{Spectrum: &mat.CDense{}})
	require.ErrorIs(t, err, ErrEmptySignal)
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultSTFTConfig().Validate())
	assert.Equal(t, 512, DefaultSTFTConfig().HopSize())

	require.Error(t, STFTConfig{WindowSize: 0}.Validate())
	require.Error(t, STFTConfig{WindowSize: 16, Overlap: 16}.Validate())
	require.Error(t, STFTConfig{WindowSize: 16, Overlap: -1}.Validate())

	_, err := NewSTFT(STFTConfig{WindowSize: 16, Overlap: 8, Window: "triangle"})
	require.Error(t, err)
}

func TestWorkerCount(t *testing.T) {
	assert.Equal(t, 1, getOptimalWorkerCount(1))
	assert.GreaterOrEqual(t, getOptimalWorkerCount(50), 1)
	assert.LessOrEqual(t, getOptimalWorkerCount(500), 8)
}
