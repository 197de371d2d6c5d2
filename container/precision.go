package container

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/x448/float16"
)

// Precision is the on-disk float format of the payload
type Precision string

const (
	// PrecisionFloat64 stores values exactly.
	PrecisionFloat64 Precision = "float64"
	// PrecisionFloat32 halves the payload; decrypted audio keeps about 140 dB SNR.
	PrecisionFloat32 Precision = "float32"
	// PrecisionFloat16 quarters the payload and is only fit for previews.
	PrecisionFloat16 Precision = "float16"
)

type codec struct {
	size int
	put  func(b []byte, v float64) error
	get  func(b []byte) float64
}

func codecFor(p Precision) (codec, error) {
	switch p {
	case PrecisionFloat64:
		return codec{
			size: 8,
			put: func(b []byte, v float64) error {
				binary.LittleEndian.PutUint64(b, math.Float64bits(v))
				return nil
			},
			get: func(b []byte) float64 {
				return math.Float64frombits(binary.LittleEndian.Uint64(b))
			},
		}, nil
	case PrecisionFloat32:
		return codec{
			size: 4,
			put: func(b []byte, v float64) error {
				f := float32(v)
				if math.IsInf(float64(f), 0) && !math.IsInf(v, 0) {
					return ErrOverflow
				}
				binary.LittleEndian.PutUint32(b, math.Float32bits(f))
				return nil
			},
			get: func(b []byte) float64 {
				return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
			},
		}, nil
	case PrecisionFloat16:
		return codec{
			size: 2,
			put: func(b []byte, v float64) error {
				f := float16.Fromfloat32(float32(v))
				if f.IsInf(0) && !math.IsInf(v, 0) {
					return ErrOverflow
				}
				binary.LittleEndian.PutUint16(b, f.Bits())
				return nil
			},
			get: func(b []byte) float64 {
				return float64(float16.Frombits(binary.LittleEndian.Uint16(b)).Float32())
			},
		}, nil
	default:
		return codec{}, fmt.Errorf("unknown precision %q", p)
	}
}

// Validate reports whether p is a known precision
func (p Precision) Validate() error {
	_, err := codecFor(p)
	return err
}
