package stats

import (
	"errors"
	"math"

	"github.com/RyanBlaney/sonido-crypt/algorithms/common"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ErrLengthMismatch is returned when compared signals differ in length.
var ErrLengthMismatch = errors.New("stats: signals must have the same non-zero length")

// MaxSNR bounds reported SNR values in dB. An exact match reports MaxSNR,
// any error against a silent reference reports -MaxSNR.
const MaxSNR = 300.0

// Similarity summarizes how close a test signal is to a reference
type Similarity struct {
	Correlation float64 `json:"correlation"`   // Pearson coefficient, 0 when undefined
	SNR         float64 `json:"snr_db"`        // reference power over error power, dB, within ±MaxSNR
	MSE         float64 `json:"mse"`           // mean squared error
	MaxAbsError float64 `json:"max_abs_error"` // largest sample difference
}

// Compare computes similarity metrics between reference and test
func Compare(reference, test []float64) (*Similarity, error) {
	if len(reference) != len(test) || len(reference) == 0 {
		return nil, ErrLengthMismatch
	}

	diff := make([]float64, len(reference))
	floats.SubTo(diff, test, reference)

	maxAbs := 0.0
	for _, d := range diff {
		maxAbs = math.Max(maxAbs, math.Abs(d))
	}

	return &Similarity{
		Correlation: Pearson(reference, test),
		SNR:         snr(reference, diff),
		MSE:         floats.Dot(diff, diff) / float64(len(diff)),
		MaxAbsError: maxAbs,
	}, nil
}

// Pearson returns the Pearson correlation coefficient of x and y.
// Constant or mismatched inputs have no defined correlation and yield 0.
func Pearson(x, y []float64) float64 {
	if len(x) != len(y) || len(x) < 2 {
		return 0
	}

	corr := stat.Correlation(x, y, nil)
	if math.IsNaN(corr) {
		return 0
	}
	return math.Max(-1, math.Min(1, corr))
}

func snr(reference, noise []float64) float64 {
	signalPower := floats.Dot(reference, reference)
	noisePower := floats.Dot(noise, noise)

	switch {
	case noisePower == 0:
		return MaxSNR
	case signalPower == 0:
		return -MaxSNR
	}
	return common.Clamp(10*math.Log10(signalPower/noisePower), -MaxSNR, MaxSNR)
}
