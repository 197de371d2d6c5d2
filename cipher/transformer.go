package cipher

import (
	"fmt"
	"math"
	"runtime"
	"sync"

	"github.com/RyanBlaney/sonido-crypt/cipher/config"
	"github.com/RyanBlaney/sonido-crypt/cipher/permutation"
	"github.com/RyanBlaney/sonido-crypt/logging"
	"gonum.org/v1/gonum/mat"
)

// Transformer encrypts and decrypts spectrograms under one config.
// It holds no mutable state and is safe for concurrent use.
type Transformer struct {
	cfg    config.Config
	logger logging.Logger
}

// New creates a Transformer. A nil cfg uses config.DefaultConfig; a nil
// logger discards everything.
func New(cfg *config.Config, logger logging.Logger) (*Transformer, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = &logging.NoOpLogger{}
	}

	return &Transformer{
		cfg: *cfg,
		logger: logger.WithFields(logging.Fields{
			"component": "spectrogram_cipher",
			"mode":      string(cfg.Mode),
		}),
	}, nil
}

// Config returns a copy of the transformer's config.
func (t *Transformer) Config() config.Config {
	return t.cfg
}

// Params derives the parameters this transformer would use for password and shape.
func (t *Transformer) Params(password string, shape Shape) (*Params, error) {
	return DeriveParams(password, shape, &t.cfg)
}

// Encrypt scales magnitudes and permutes columns of m. Phase is kept.
// Output column j is scaled input column Permutation[j]. m is not modified.
func (t *Transformer) Encrypt(m *mat.CDense, password string) (*mat.CDense, error) {
	shape, err := t.prepare(m, password)
	if err != nil || isEmpty(m) {
		return emptyOr(err)
	}

	p, err := t.Params(password, shape)
	if err != nil {
		return nil, err
	}
	return t.EncryptWithParams(m, p)
}

// Decrypt rederives the parameters from password and m's shape and undoes
// Encrypt. A matrix whose shape differs from the encrypted one decrypts to
// garbage; use DecryptShape when the original shape is known.
func (t *Transformer) Decrypt(m *mat.CDense, password string) (*mat.CDense, error) {
	shape, err := t.prepare(m, password)
	if err != nil || isEmpty(m) {
		return emptyOr(err)
	}

	p, err := t.Params(password, shape)
	if err != nil {
		return nil, err
	}
	return t.DecryptWithParams(m, p)
}

// DecryptShape is Decrypt with an integrity check: it fails with
// ErrShapeMismatch when m is not expected in size.
func (t *Transformer) DecryptShape(m *mat.CDense, password string, expected Shape) (*mat.CDense, error) {
	if password == "" {
		return nil, ErrEmptyPassword
	}
	if m == nil {
		return nil, ErrNilMatrix
	}
	if got := dims(m); got != expected {
		t.logger.Warn("Refusing to decrypt spectrogram of unexpected shape", logging.Fields{
			"expected": expected.String(),
			"actual":   got.String(),
		})
		return nil, fmt.Errorf("%w: expected %s, got %s", ErrShapeMismatch, expected, got)
	}
	return t.Decrypt(m, password)
}

// EncryptWithParams applies precomputed parameters to m.
func (t *Transformer) EncryptWithParams(m *mat.CDense, p *Params) (*mat.CDense, error) {
	shape, err := t.checkInput(m, p)
	if err != nil || isEmpty(m) {
		return emptyOr(err)
	}

	t.logger.Debug("Encrypting spectrogram", logging.Fields{
		"rows": shape.Rows,
		"cols": shape.Cols,
	})

	out := m
	if p.scales() {
		out, err = t.scaleMagnitudes(out, p, false)
		if err != nil {
			return nil, err
		}
	}
	if p.permutes() && !p.Permutation.IsIdentity() {
		out = permuteColumns(out, p.Permutation)
	}
	if out == m {
		out = cloneCDense(m)
	}
	return out, nil
}

// DecryptWithParams undoes EncryptWithParams.
func (t *Transformer) DecryptWithParams(m *mat.CDense, p *Params) (*mat.CDense, error) {
	shape, err := t.checkInput(m, p)
	if err != nil || isEmpty(m) {
		return emptyOr(err)
	}

	t.logger.Debug("Decrypting spectrogram", logging.Fields{
		"rows": shape.Rows,
		"cols": shape.Cols,
	})

	out := m
	if p.permutes() && !p.Permutation.IsIdentity() {
		inv, err := permutation.Invert(p.Permutation)
		if err != nil {
			return nil, err
		}
		out = permuteColumns(out, inv)
	}
	if p.scales() {
		out, err = t.scaleMagnitudes(out, p, true)
		if err != nil {
			return nil, err
		}
	}
	if out == m {
		out = cloneCDense(m)
	}
	return out, nil
}

// prepare rejects an empty password before looking at the matrix.
func (t *Transformer) prepare(m *mat.CDense, password string) (Shape, error) {
	if password == "" {
		return Shape{}, ErrEmptyPassword
	}
	if m == nil {
		return Shape{}, ErrNilMatrix
	}
	return dims(m), nil
}

func (t *Transformer) checkInput(m *mat.CDense, p *Params) (Shape, error) {
	if m == nil {
		return Shape{}, ErrNilMatrix
	}
	if p == nil {
		return Shape{}, fmt.Errorf("cipher: nil params")
	}
	shape := dims(m)
	if err := p.check(shape); err != nil {
		return Shape{}, err
	}
	if err := checkFinite(m); err != nil {
		return Shape{}, err
	}
	return shape, nil
}

// scaleMagnitudes multiplies (or divides, when inverse) every magnitude by
// its factor. Rows are spread over a worker pool; the result is complete
// when the pool has drained.
func (t *Transformer) scaleMagnitudes(m *mat.CDense, p *Params, inverse bool) (*mat.CDense, error) {
	rows, cols := m.Dims()
	out := mat.NewCDense(rows, cols, nil)

	numWorkers := t.workerCount(rows)
	jobs := make(chan int, rows)
	errs := make(chan error, numWorkers)

	var wg sync.WaitGroup
	for range numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()

			var firstErr error
			for r := range jobs {
				if firstErr != nil {
					continue
				}
				for c := range cols {
					v := m.At(r, c)
					if inverse {
						v = divideMagnitude(v, p.factor(r, c))
					} else {
						v = scaleMagnitude(v, p.factor(r, c))
					}
					if !isFinite(v) {
						firstErr = fmt.Errorf("%w: element (%d, %d) after scaling", ErrNonFinite, r, c)
						break
					}
					out.Set(r, c, v)
				}
			}
			if firstErr != nil {
				errs <- firstErr
			}
		}()
	}

	for r := range rows {
		jobs <- r
	}
	close(jobs)
	wg.Wait()
	close(errs)

	if err := <-errs; err != nil {
		t.logger.Error(err, "Scaling produced a non-finite value")
		return nil, err
	}
	return out, nil
}

// workerCount mirrors the STFT frame pool: few workers for small inputs.
func (t *Transformer) workerCount(rows int) int {
	if t.cfg.Workers > 0 {
		return max(1, min(t.cfg.Workers, rows))
	}

	numCPU := runtime.NumCPU()
	switch {
	case rows < 64:
		return max(1, min(numCPU/2, rows))
	case rows < 1024:
		return min(numCPU, 8)
	default:
		return numCPU
	}
}

// scaleMagnitude returns v with its magnitude multiplied by f > 0 and its
// phase unchanged. Equal to cmplx.Rect(cmplx.Abs(v)*f, cmplx.Phase(v))
// without the round trip through polar form.
func scaleMagnitude(v complex128, f float64) complex128 {
	return complex(real(v)*f, imag(v)*f)
}

// divideMagnitude is the inverse of scaleMagnitude.
func divideMagnitude(v complex128, f float64) complex128 {
	return complex(real(v)/f, imag(v)/f)
}

// permuteColumns returns a matrix whose column j is m's column perm[j].
func permuteColumns(m *mat.CDense, perm permutation.Permutation) *mat.CDense {
	rows, cols := m.Dims()
	out := mat.NewCDense(rows, cols, nil)
	for j, src := range perm {
		for r := range rows {
			out.Set(r, j, m.At(r, src))
		}
	}
	return out
}

func checkFinite(m *mat.CDense) error {
	rows, cols := m.Dims()
	for r := range rows {
		for c := range cols {
			if !isFinite(m.At(r, c)) {
				return fmt.Errorf("%w: input element (%d, %d)", ErrNonFinite, r, c)
			}
		}
	}
	return nil
}

func isFinite(v complex128) bool {
	re, im := real(v), imag(v)
	return !math.IsNaN(re) && !math.IsNaN(im) && !math.IsInf(re, 0) && !math.IsInf(im, 0)
}

func dims(m *mat.CDense) Shape {
	if m.IsEmpty() {
		return Shape{}
	}
	r, c := m.Dims()
	return Shape{Rows: r, Cols: c}
}

func isEmpty(m *mat.CDense) bool {
	return m != nil && m.IsEmpty()
}

// emptyOr returns err, or an empty matrix when err is nil.
func emptyOr(err error) (*mat.CDense, error) {
	if err != nil {
		return nil, err
	}
	return &mat.CDense{}, nil
}

func cloneCDense(m *mat.CDense) *mat.CDense {
	if m.IsEmpty() {
		return &mat.CDense{}
	}
	r, c := m.Dims()
	out := mat.NewCDense(r, c, nil)
	out.Copy(m)
	return out
}
