package config

import (
	"errors"
	"fmt"

	"github.com/RyanBlaney/sonido-crypt/cipher/scale"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("config: invalid cipher config")

// Mode selects which transform the cipher applies.
type Mode string

const (
	// ModeScalePermute scales magnitudes by freq[r]*time[c], then permutes columns.
	ModeScalePermute Mode = "scale_permute"
	// ModePermuteOnly permutes columns and leaves magnitudes alone.
	ModePermuteOnly Mode = "permute_only"
	// ModeElementScale multiplies each magnitude by its own factor and does not permute.
	ModeElementScale Mode = "element_scale"
)

// DrawOrder fixes the order of draws from the generator. Encrypt and
// decrypt must use the same order.
type DrawOrder string

const (
	// DrawScalesFirst draws frequency factors, time factors, then the permutation.
	DrawScalesFirst DrawOrder = "scales_first"
	// DrawPermutationFirst draws the permutation, then frequency and time factors.
	DrawPermutationFirst DrawOrder = "permutation_first"
)

// Config holds everything that must match between encrypt and decrypt,
// plus the worker count used for the scaling pass.
type Config struct {
	Mode         Mode        `json:"mode"`
	DrawOrder    DrawOrder   `json:"draw_order"`
	FreqRange    scale.Range `json:"freq_range"`
	TimeRange    scale.Range `json:"time_range"`
	ElementRange scale.Range `json:"element_range"`

	// Workers bounds the goroutines used to scale rows; 0 picks from NumCPU
	Workers int `json:"workers,omitempty"`
}

// DefaultConfig returns scale-then-permute with scales drawn first.
func DefaultConfig() *Config {
	return &Config{
		Mode:         ModeScalePermute,
		DrawOrder:    DrawScalesFirst,
		FreqRange:    scale.DefaultFreqRange,
		TimeRange:    scale.DefaultTimeRange,
		ElementRange: scale.DefaultElementRange,
	}
}

// ConfigForMode returns the defaults with mode swapped in.
func ConfigForMode(mode Mode) *Config {
	cfg := DefaultConfig()
	cfg.Mode = mode
	return cfg
}

// Validate checks modes and ranges.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: nil", ErrInvalidConfig)
	}

	switch c.Mode {
	case ModeScalePermute, ModePermuteOnly, ModeElementScale:
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidConfig, c.Mode)
	}

	switch c.DrawOrder {
	case DrawScalesFirst, DrawPermutationFirst:
	default:
		return fmt.Errorf("%w: unknown draw order %q", ErrInvalidConfig, c.DrawOrder)
	}

	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must not be negative", ErrInvalidConfig)
	}

	switch c.Mode {
	case ModeScalePermute:
		if err := c.FreqRange.Validate(); err != nil {
			return fmt.Errorf("%w: freq_range: %w", ErrInvalidConfig, err)
		}
		if err := c.TimeRange.Validate(); err != nil {
			return fmt.Errorf("%w: time_range: %w", ErrInvalidConfig, err)
		}
	case ModeElementScale:
		if err := c.ElementRange.Validate(); err != nil {
			return fmt.Errorf("%w: element_range: %w", ErrInvalidConfig, err)
		}
	}

	return nil
}

// Scales reports whether the mode touches magnitudes.
func (c *Config) Scales() bool {
	return c.Mode == ModeScalePermute || c.Mode == ModeElementScale
}

// Permutes reports whether the mode reorders columns.
func (c *Config) Permutes() bool {
	return c.Mode == ModeScalePermute || c.Mode == ModePermuteOnly
}
