// Package render draws spectrograms as PNG images: magnitude in dB,
// normalized to the loudest bin, low frequencies at the bottom.
package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math/cmplx"
	"os"

	"github.com/RyanBlaney/sonido-crypt/algorithms/common"
	"gonum.org/v1/gonum/mat"
)

// ErrEmptySpectrogram is returned when there is nothing to draw.
var ErrEmptySpectrogram = errors.New("render: empty spectrogram")

// Config controls image size and color scaling
type Config struct {
	DynamicRange float64 `json:"dynamic_range_db"` // dB below the peak mapped to black
	Floor        float64 `json:"floor"`            // smallest magnitude before the dB conversion
	Width        int     `json:"width"`            // 0 means one pixel per frame
	Height       int     `json:"height"`           // 0 means one pixel per frequency bin
}

// DefaultConfig returns default render configuration
func DefaultConfig() *Config {
	return &Config{
		DynamicRange: 80,
		Floor:        1e-10,
	}
}

// Renderer turns complex spectrograms into images
type Renderer struct {
	config *Config
}

// New creates a renderer. A nil config uses DefaultConfig.
func New(config *Config) *Renderer {
	if config == nil {
		config = DefaultConfig()
	}
	return &Renderer{config: config}
}

// Image draws m (frequency x time) into an RGBA image
func (r *Renderer) Image(m *mat.CDense) (*image.RGBA, error) {
	if m == nil || m.IsEmpty() {
		return nil, ErrEmptySpectrogram
	}

	rows, cols := m.Dims()
	db := make([]float64, rows*cols)
	for i := range rows {
		for j := range cols {
			db[i*cols+j] = common.AmplitudeToDB(cmplx.Abs(m.At(i, j)), r.config.Floor)
		}
	}

	lo, hi := common.MinMax(db)
	if r.config.DynamicRange > 0 {
		lo = max(lo, hi-r.config.DynamicRange)
	}
	span := hi - lo

	width, height := cols, rows
	if r.config.Width > 0 {
		width = r.config.Width
	}
	if r.config.Height > 0 {
		height = r.config.Height
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := range width {
		j := x * cols / width
		for y := range height {
			// row 0 is DC, drawn at the bottom
			i := (height - 1 - y) * rows / height

			level := 0.0
			if span > 0 {
				level = common.Clamp((db[i*cols+j]-lo)/span, 0, 1)
			}
			img.SetRGBA(x, y, heat(level))
		}
	}

	return img, nil
}

// Encode writes m as a PNG to w
func (r *Renderer) Encode(w io.Writer, m *mat.CDense) error {
	img, err := r.Image(m)
	if err != nil {
		return err
	}
	return png.Encode(w, img)
}

// WriteFile writes m as a PNG file
func (r *Renderer) WriteFile(name string, m *mat.CDense) error {
	f, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("failed to create image file: %w", err)
	}

	if err := r.Encode(f, m); err != nil {
		f.Close()
		return err
	}

	if err := f.Close(); err != nil {
		return err
	}

	return nil
}

// heat maps [0, 1] through black, red, yellow and white
func heat(level float64) color.RGBA {
	channel := func(offset float64) uint8 {
		return uint8(255 * common.Clamp(3*level-offset, 0, 1))
	}
	return color.RGBA{R: channel(0), G: channel(1), B: channel(2), A: 255}
}
