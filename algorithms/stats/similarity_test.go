package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPearson(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5}

	assert.InDelta(t, 1.0, Pearson(x, []float64{2, 4, 6, 8, 10}), 1e-12)
	assert.InDelta(t, -1.0, Pearson(x, []float64{5, 4, 3, 2, 1}), 1e-12)
	assert.Zero(t, Pearson(x, []float64{1, 1, 1, 1, 1}))
	assert.Zero(t, Pearson(x, x[:3]))
	assert.Zero(t, Pearson([]float64{1}, []float64{1}))
}

func TestSNR(t *testing.T) {
	ref := []float64{1, -1, 1, -1}

	tests := []struct {
		name      string
		reference []float64
		test      []float64
		want      float64
	}{
		{"exact match", ref, ref, MaxSNR},
		// error power is 1% of signal power
		{"one percent error", ref, []float64{1.1, -0.9, 1.1, -0.9}, 20},
		{"silence reproduced", []float64{0, 0}, []float64{0, 0}, MaxSNR},
		{"noise over silence", []float64{0, 0}, []float64{1, 0}, -MaxSNR},
		{"clamped", []float64{1e-160, 0}, []float64{1, 0}, -MaxSNR},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim, err := Compare(tt.reference, tt.test)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, sim.SNR, 1e-9)
			assert.False(t, math.IsInf(sim.SNR, 0))
		})
	}
}

func TestCompare(t *testing.T) {
	ref := []float64{0.5, -0.25, 0.75, 0}
	test := []float64{0.5, -0.25, 0.5, 0}

	sim, err := Compare(ref, test)
	require.NoError(t, err)
	assert.InDelta(t, 0.25, sim.MaxAbsError, 1e-12)
	assert.InDelta(t, 0.0625/4, sim.MSE, 1e-12)
	assert.Greater(t, sim.Correlation, 0.9)
	assert.Greater(t, sim.SNR, 0.0)

	_, err = Compare(nil, nil)
	require.ErrorIs(t, err, ErrLengthMismatch)
	_, err = Compare(ref, ref[:2])
	require.ErrorIs(t, err, ErrLengthMismatch)
}
