package cipher

import (
	"fmt"

	"github.com/RyanBlaney/sonido-crypt/cipher/config"
	"github.com/RyanBlaney/sonido-crypt/cipher/keyderive"
	"github.com/RyanBlaney/sonido-crypt/cipher/permutation"
	"github.com/RyanBlaney/sonido-crypt/cipher/prng"
	"github.com/RyanBlaney/sonido-crypt/cipher/scale"
)

// Shape is a spectrogram size: Rows frequency bins by Cols time segments.
type Shape struct {
	Rows int `json:"rows"`
	Cols int `json:"cols"`
}

func (s Shape) String() string {
	return fmt.Sprintf("%dx%d", s.Rows, s.Cols)
}

// Params are the password-derived values for one shape. Which fields are
// set depends on the mode: Scales for scale_permute, Elements for
// element_scale, Permutation for scale_permute and permute_only.
type Params struct {
	Seed        keyderive.Seed          `json:"-"`
	Shape       Shape                   `json:"shape"`
	Mode        config.Mode             `json:"mode"`
	DrawOrder   config.DrawOrder        `json:"draw_order"`
	Permutation permutation.Permutation `json:"permutation,omitempty"`
	Scales      *scale.Scales           `json:"scales,omitempty"`
	Elements    []float64               `json:"elements,omitempty"`
}

// DeriveParams derives the parameters for password and shape from a fresh
// generator, drawing in the order cfg fixes:
//
//	scale_permute + scales_first       freq[rows], time[cols], shuffle(cols)
//	scale_permute + permutation_first  shuffle(cols), freq[rows], time[cols]
//	permute_only                       shuffle(cols)
//	element_scale                      factors[rows*cols], row-major
func DeriveParams(password string, shape Shape, cfg *config.Config) (*Params, error) {
	seed, err := keyderive.DeriveSeed(password)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if shape.Rows < 0 || shape.Cols < 0 {
		return nil, fmt.Errorf("%w: negative shape %s", ErrShapeMismatch, shape)
	}

	g, err := prng.New(seed)
	if err != nil {
		return nil, err
	}

	p := &Params{
		Seed:      seed,
		Shape:     shape,
		Mode:      cfg.Mode,
		DrawOrder: cfg.DrawOrder,
	}

	drawScales := func() error {
		s, err := scale.Generate(g, shape.Rows, shape.Cols, cfg.FreqRange, cfg.TimeRange)
		if err != nil {
			return err
		}
		p.Scales = s
		return nil
	}
	drawPermutation := func() error {
		perm, err := permutation.Generate(g, shape.Cols)
		if err != nil {
			return err
		}
		p.Permutation = perm
		return nil
	}

	var steps []func() error
	switch cfg.Mode {
	case config.ModeScalePermute:
		if cfg.DrawOrder == config.DrawPermutationFirst {
			steps = []func() error{drawPermutation, drawScales}
		} else {
			steps = []func() error{drawScales, drawPermutation}
		}
	case config.ModePermuteOnly:
		steps = []func() error{drawPermutation}
	case config.ModeElementScale:
		steps = []func() error{func() error {
			e, err := scale.ElementMatrix(g, shape.Rows, shape.Cols, cfg.ElementRange)
			if err != nil {
				return err
			}
			p.Elements = e
			return nil
		}}
	}

	for _, step := range steps {
		if err := step(); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// factor returns the magnitude multiplier for element (r, c).
func (p *Params) factor(r, c int) float64 {
	switch {
	case p.Scales != nil:
		return p.Scales.At(r, c)
	case p.Elements != nil:
		return p.Elements[r*p.Shape.Cols+c]
	default:
		return 1
	}
}

func (p *Params) scales() bool {
	return p.Scales != nil || p.Elements != nil
}

func (p *Params) permutes() bool {
	return p.Permutation != nil
}

// check confirms the parameters were derived for shape and are internally consistent.
func (p *Params) check(shape Shape) error {
	if p.Shape != shape {
		return fmt.Errorf("%w: params derived for %s, matrix is %s", ErrShapeMismatch, p.Shape, shape)
	}
	if p.Permutation != nil {
		if len(p.Permutation) != shape.Cols {
			return fmt.Errorf("%w: permutation length %d for %d columns", ErrShapeMismatch, len(p.Permutation), shape.Cols)
		}
		if err := permutation.Validate(p.Permutation); err != nil {
			return err
		}
	}
	if p.Scales != nil {
		if rows, cols := p.Scales.Dims(); rows != shape.Rows || cols != shape.Cols {
			return fmt.Errorf("%w: scales drawn for %dx%d, matrix is %s", ErrShapeMismatch, rows, cols, shape)
		}
	}
	if p.Elements != nil && len(p.Elements) != shape.Rows*shape.Cols {
		return fmt.Errorf("%w: %d element factors for %s", ErrShapeMismatch, len(p.Elements), shape)
	}
	return nil
}
