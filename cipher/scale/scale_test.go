package scale_test

import (
	"math"
	"testing"

	"github.com/RyanBlaney/sonido-crypt/cipher/keyderive"
	"github.com/RyanBlaney/sonido-crypt/cipher/prng"
	"github.com/RyanBlaney/sonido-crypt/cipher/scale"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGenerator(t *testing.T, password string) *prng.Generator {
	t.Helper()
	seed, err := keyderive.DeriveSeed(password)
	require.NoError(t, err)
	g, err := prng.New(seed)
	require.NoError(t, err)
	return g
}

func TestGeneratePinnedHello(t *testing.T) {
	s, err := scale.Generate(newGenerator(t, "hello"), 4, 5, scale.DefaultFreqRange, scale.DefaultTimeRange)
	require.NoError(t, err)

	wantFreq := []float64{1.2495884235834387, 0.6296326745552615, 0.39012966194517745, 0.27225536666728756}
	wantTime := []float64{23.52839383707218, 18.734713331139748, 19.835975136969104, 9.812724211382626, 10.891066399011082}
	require.Len(t, s.Freq, 4)
	require.Len(t, s.Time, 5)
	for i := range wantFreq {
		assert.InDelta(t, wantFreq[i], s.Freq[i], 1e-12)
	}
	for i := range wantTime {
		assert.InDelta(t, wantTime[i], s.Time[i], 1e-12)
	}

	rows, cols := s.Dims()
	assert.Equal(t, 4, rows)
	assert.Equal(t, 5, cols)
	assert.InDelta(t, s.Freq[1]*s.Time[3], s.At(1, 3), 1e-15)
}

func TestGenerateRanges(t *testing.T) {
	s, err := scale.Generate(newGenerator(t, "ranges"), 513, 900, scale.DefaultFreqRange, scale.DefaultTimeRange)
	require.NoError(t, err)
	require.NoError(t, s.Validate(scale.DefaultFreqRange, scale.DefaultTimeRange))
	for _, v := range s.Freq {
		require.True(t, scale.DefaultFreqRange.Contains(v))
	}
	for _, v := range s.Time {
		require.True(t, scale.DefaultTimeRange.Contains(v))
	}
}

func TestGenerateEmpty(t *testing.T) {
	g := newGenerator(t, "empty")
	s, err := scale.Generate(g, 0, 0, scale.DefaultFreqRange, scale.DefaultTimeRange)
	require.NoError(t, err)
	assert.Empty(t, s.Freq)
	assert.Empty(t, s.Time)
	assert.Zero(t, g.Draws())
	require.NoError(t, s.Validate(scale.DefaultFreqRange, scale.DefaultTimeRange))
}

func TestGenerateRejectsBadInput(t *testing.T) {
	g := newGenerator(t, "bad")

	_, err := scale.Generate(g, -1, 3, scale.DefaultFreqRange, scale.DefaultTimeRange)
	require.ErrorIs(t, err, scale.ErrNegativeSize)

	_, err = scale.Generate(g, 2, 3, scale.Range{Min: 0, Max: 1}, scale.DefaultTimeRange)
	require.ErrorIs(t, err, scale.ErrInvalidRange)

	_, err = scale.Generate(g, 2, 3, scale.DefaultFreqRange, scale.Range{Min: 2, Max: 1})
	require.ErrorIs(t, err, scale.ErrInvalidRange)

	_, err = scale.Generate(g, 2, 3, scale.Range{Min: 0.1, Max: math.Inf(1)}, scale.DefaultTimeRange)
	require.ErrorIs(t, err, scale.ErrInvalidRange)

	assert.Zero(t, g.Draws())
}

func TestValidateDetectsOutOfRange(t *testing.T) {
	s := &scale.Scales{Freq: []float64{0.5, 1.4}, Time: []float64{1}}
	require.ErrorIs(t, s.Validate(scale.DefaultFreqRange, scale.DefaultTimeRange), scale.ErrOutOfRange)

	s = &scale.Scales{Freq: []float64{0.5}, Time: []float64{math.NaN()}}
	require.ErrorIs(t, s.Validate(scale.DefaultFreqRange, scale.DefaultTimeRange), scale.ErrOutOfRange)
}

func TestGenerateSensitivity(t *testing.T) {
	a, err := scale.Generate(newGenerator(t, "hello"), 16, 16, scale.DefaultFreqRange, scale.DefaultTimeRange)
	require.NoError(t, err)
	b, err := scale.Generate(newGenerator(t, "hellO"), 16, 16, scale.DefaultFreqRange, scale.DefaultTimeRange)
	require.NoError(t, err)

	for i := range a.Freq {
		assert.NotEqual(t, a.Freq[i], b.Freq[i])
	}
	for i := range a.Time {
		assert.NotEqual(t, a.Time[i], b.Time[i])
	}
}

func TestElementMatrix(t *testing.T) {
	e, err := scale.ElementMatrix(newGenerator(t, "hello"), 4, 5, scale.DefaultElementRange)
	require.NoError(t, err)
	require.Len(t, e, 20)
	assert.InDelta(t, 1.4541712941667624, e[0], 1e-12)
	assert.InDelta(t, 0.8905751586866013, e[1], 1e-12)
	assert.InDelta(t, 1.462224048161516, e[19], 1e-12)
	for _, v := range e {
		assert.True(t, scale.DefaultElementRange.Contains(v))
	}

	_, err = scale.ElementMatrix(newGenerator(t, "hello"), 2, -1, scale.DefaultElementRange)
	require.ErrorIs(t, err, scale.ErrNegativeSize)
}
