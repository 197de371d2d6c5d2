package transcode

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/RyanBlaney/sonido-crypt/logging"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// EncoderConfig holds encoder configuration
type EncoderConfig struct {
	BitDepth int `json:"bit_depth"` // 8, 16, 24 or 32 bit integer PCM
}

// DefaultEncoderConfig returns 16-bit PCM output
func DefaultEncoderConfig() *EncoderConfig {
	return &EncoderConfig{BitDepth: 16}
}

// Encoder writes integer PCM WAV files
type Encoder struct {
	config *EncoderConfig
}

// NewEncoder creates a new audio encoder
func NewEncoder(config *EncoderConfig) *Encoder {
	if config == nil {
		config = DefaultEncoderConfig()
	}
	return &Encoder{config: config}
}

// EncodeFile writes data to filename, replacing any existing file
func (e *Encoder) EncodeFile(filename string, data *AudioData) error {
	logger := logging.WithFields(logging.Fields{
		"component": "audio_encoder",
		"function":  "EncodeFile",
		"filename":  filename,
	})

	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create audio file: %w", err)
	}

	if err := e.Encode(f, data); err != nil {
		f.Close()
		logger.Error(err, "Failed to encode audio file")
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close audio file: %w", err)
	}

	logger.Debug("Audio encoded", logging.Fields{
		"sample_rate": data.SampleRate,
		"channels":    data.Channels,
		"frames":      data.NumFrames(),
	})
	return nil
}

// Encode writes data as a WAV stream to w. Samples outside [-1, 1] are clipped.
func (e *Encoder) Encode(w io.WriteSeeker, data *AudioData) error {
	if err := e.validate(data); err != nil {
		return err
	}

	bitDepth := e.config.BitDepth
	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: data.Channels,
			SampleRate:  data.SampleRate,
		},
		Data:           make([]int, len(data.PCM)),
		SourceBitDepth: bitDepth,
	}
	for i, v := range data.PCM {
		buf.Data[i] = floatToSample(v, bitDepth)
	}

	enc := wav.NewEncoder(w, data.SampleRate, bitDepth, data.Channels, wavFormatPCM)
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("failed to write wav data: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to finalize wav header: %w", err)
	}
	return nil
}

func (e *Encoder) validate(data *AudioData) error {
	switch e.config.BitDepth {
	case 8, 16, 24, 32:
	default:
		return fmt.Errorf("%w: %d bit output", ErrUnsupportedFormat, e.config.BitDepth)
	}
	if data == nil {
		return fmt.Errorf("no audio data")
	}
	if data.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %d", data.SampleRate)
	}
	if data.Channels <= 0 {
		return fmt.Errorf("channel count must be positive, got %d", data.Channels)
	}
	if len(data.PCM)%data.Channels != 0 {
		return fmt.Errorf("sample count %d is not a multiple of %d channels", len(data.PCM), data.Channels)
	}
	return nil
}

// floatToSample quantizes v to a signed integer sample, the inverse of
// sampleToFloat. NaN becomes silence.
func floatToSample(v float64, bitDepth int) int {
	if math.IsNaN(v) {
		v = 0
	}

	full := float64(int64(1) << (bitDepth - 1))
	q := math.Round(v * full)
	q = math.Max(-full, math.Min(full-1, q))

	if bitDepth == 8 {
		return int(q) + 128
	}
	return int(q)
}
