// Package container stores a transformed spectrogram together with the
// framing metadata needed to turn it back into audio. The file carries no
// permutation, scale factors or seed: decrypting it needs the password.
//
// Layout:
//
//	magic    8 bytes  "SGCRYPT\x00"
//	length   uint32   little-endian size of the JSON header
//	header   JSON     Header
//	payload  rows*cols complex values, row-major, real then imaginary,
//	         little-endian in the header's precision
package container

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/RyanBlaney/sonido-crypt/algorithms/spectral"
	"github.com/RyanBlaney/sonido-crypt/cipher/config"
	"gonum.org/v1/gonum/mat"
)

// Version is the header version written by this package.
const Version = 1

const (
	maxHeaderSize = 1 << 20
	maxElements   = 1 << 28
)

var magic = [8]byte{'S', 'G', 'C', 'R', 'Y', 'P', 'T', 0}

var (
	// ErrBadMagic is returned when the input does not start with the container magic.
	ErrBadMagic = errors.New("container: not a spectrogram container")
	// ErrCorrupt is returned for truncated or inconsistent containers.
	ErrCorrupt = errors.New("container: corrupt container")
	// ErrUnsupportedVersion is returned for headers from a newer writer.
	ErrUnsupportedVersion = errors.New("container: unsupported version")
	// ErrOverflow is returned when a value cannot be stored in the chosen precision.
	ErrOverflow = errors.New("container: value out of range for precision")
)

// Header describes the stored spectrogram
type Header struct {
	Version    int                 `json:"version"`
	Rows       int                 `json:"rows"`
	Cols       int                 `json:"cols"`
	Precision  Precision           `json:"precision"`
	SampleRate int                 `json:"sample_rate"`
	NumSamples int                 `json:"num_samples"` // length of the analyzed signal
	STFT       spectral.STFTConfig `json:"stft"`
	Cipher     config.Config       `json:"cipher"`
	Created    time.Time           `json:"created"`
}

// File is a header plus its spectrum
type File struct {
	Header   Header
	Spectrum *mat.CDense
}

// Write serializes f to w. Header.Rows, Header.Cols and Header.Version are
// taken from the spectrum and this package; an empty precision means float64.
func Write(w io.Writer, f *File) error {
	if f == nil || f.Spectrum == nil || f.Spectrum.IsEmpty() {
		return fmt.Errorf("%w: empty spectrum", ErrCorrupt)
	}

	header := f.Header
	header.Version = Version
	header.Rows, header.Cols = f.Spectrum.Dims()
	if header.Precision == "" {
		header.Precision = PrecisionFloat64
	}
	codec, err := codecFor(header.Precision)
	if err != nil {
		return err
	}

	encoded, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to encode container header: %w", err)
	}
	if len(encoded) > maxHeaderSize {
		return fmt.Errorf("%w: header of %d bytes", ErrCorrupt, len(encoded))
	}

	bw := bufio.NewWriter(w)
	if _, err := bw.Write(magic[:]); err != nil {
		return fmt.Errorf("failed to write container magic: %w", err)
	}
	if err := binary.Write(bw, binary.LittleEndian, uint32(len(encoded))); err != nil {
		return fmt.Errorf("failed to write container header length: %w", err)
	}
	if _, err := bw.Write(encoded); err != nil {
		return fmt.Errorf("failed to write container header: %w", err)
	}

	row := make([]byte, header.Cols*2*codec.size)
	for i := range header.Rows {
		for j := range header.Cols {
			v := f.Spectrum.At(i, j)
			off := j * 2 * codec.size
			if err := codec.put(row[off:], real(v)); err != nil {
				return fmt.Errorf("%w: (%d, %d)", err, i, j)
			}
			if err := codec.put(row[off+codec.size:], imag(v)); err != nil {
				return fmt.Errorf("%w: (%d, %d)", err, i, j)
			}
		}
		if _, err := bw.Write(row); err != nil {
			return fmt.Errorf("failed to write container payload: %w", err)
		}
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write container: %w", err)
	}
	return nil
}

// checkFraming rejects headers whose STFT framing cannot have produced the
// stored shape. Column counts are left to the cipher's shape check.
func (h *Header) checkFraming() error {
	if err := h.STFT.Validate(); err != nil {
		return fmt.Errorf("%w: stft: %v", ErrCorrupt, err)
	}
	if h.STFT.WindowSize/2+1 != h.Rows {
		return fmt.Errorf("%w: window size %d gives %d bins, header has %d rows",
			ErrCorrupt, h.STFT.WindowSize, h.STFT.WindowSize/2+1, h.Rows)
	}
	if h.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate %d", ErrCorrupt, h.SampleRate)
	}
	// a signal of n samples always spans at least n/hop segments
	if h.NumSamples <= 0 || h.NumSamples > h.Cols*h.STFT.HopSize() {
		return fmt.Errorf("%w: %d samples for %d segments", ErrCorrupt, h.NumSamples, h.Cols)
	}
	return nil
}

// Read parses a container from r. Trailing bytes after the payload are
// treated as corruption, as is STFT framing that does not match the stored
// number of frequency bins.
func Read(r io.Reader) (*File, error) {
	br := bufio.NewReader(r)

	var got [8]byte
	if _, err := io.ReadFull(br, got[:]); err != nil {
		return nil, ErrBadMagic
	}
	if got != magic {
		return nil, ErrBadMagic
	}

	var length uint32
	if err := binary.Read(br, binary.LittleEndian, &length); err != nil {
		return nil, fmt.Errorf("%w: missing header length", ErrCorrupt)
	}
	if length == 0 || length > maxHeaderSize {
		return nil, fmt.Errorf("%w: header length %d", ErrCorrupt, length)
	}

	raw := make([]byte, length)
	if _, err := io.ReadFull(br, raw); err != nil {
		return nil, fmt.Errorf("%w: truncated header", ErrCorrupt)
	}

	var header Header
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&header); err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrCorrupt, err)
	}
	if header.Version != Version {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, header.Version)
	}
	if header.Rows <= 0 || header.Cols <= 0 || header.Rows > maxElements/header.Cols {
		return nil, fmt.Errorf("%w: shape %dx%d", ErrCorrupt, header.Rows, header.Cols)
	}
	codec, err := codecFor(header.Precision)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if err := header.checkFraming(); err != nil {
		return nil, err
	}

	data := make([]complex128, header.Rows*header.Cols)
	row := make([]byte, header.Cols*2*codec.size)
	for i := range header.Rows {
		if _, err := io.ReadFull(br, row); err != nil {
			return nil, fmt.Errorf("%w: truncated payload at row %d", ErrCorrupt, i)
		}
		for j := range header.Cols {
			off := j * 2 * codec.size
			data[i*header.Cols+j] = complex(codec.get(row[off:]), codec.get(row[off+codec.size:]))
		}
	}

	if _, err := br.ReadByte(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data", ErrCorrupt)
	}

	return &File{
		Header:   header,
		Spectrum: mat.NewCDense(header.Rows, header.Cols, data),
	}, nil
}

// WriteFile writes f to name, replacing any existing file
func WriteFile(name string, f *File) error {
	out, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("failed to create container: %w", err)
	}

	if err := Write(out, f); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// ReadFile reads a container from name
func ReadFile(name string) (*File, error) {
	in, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open container: %w", err)
	}
	defer in.Close()

	return Read(in)
}
