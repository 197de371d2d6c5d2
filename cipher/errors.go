package cipher

import (
	"errors"

	"github.com/RyanBlaney/sonido-crypt/cipher/config"
	"github.com/RyanBlaney/sonido-crypt/cipher/keyderive"
)

var (
	// ErrEmptyPassword is returned before any matrix work when the password is empty.
	ErrEmptyPassword = keyderive.ErrEmptyPassword

	// ErrInvalidConfig is returned by New for a config that does not validate.
	ErrInvalidConfig = config.ErrInvalidConfig

	// ErrNilMatrix is returned when a nil matrix is passed in.
	ErrNilMatrix = errors.New("cipher: nil matrix")

	// ErrShapeMismatch is returned when the matrix shape differs from the
	// shape the parameters were derived for or the shape recorded at encrypt time.
	ErrShapeMismatch = errors.New("cipher: shape mismatch")

	// ErrNonFinite is returned when an input or computed element is NaN or Inf.
	ErrNonFinite = errors.New("cipher: non-finite value")
)
