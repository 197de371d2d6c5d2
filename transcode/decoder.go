package transcode

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/RyanBlaney/sonido-crypt/algorithms/common"
	"github.com/RyanBlaney/sonido-crypt/logging"
	"github.com/go-audio/wav"
)

const (
	wavFormatPCM        = 1
	wavFormatIEEEFloat  = 3
	wavFormatExtensible = 0xFFFE
)

var (
	// ErrInvalidWAV is returned for input that is not a readable WAV file.
	ErrInvalidWAV = errors.New("transcode: invalid wav data")
	// ErrUnsupportedFormat is returned for WAV encodings the decoder cannot read.
	ErrUnsupportedFormat = errors.New("transcode: unsupported wav format")
)

// AudioData represents decoded audio data
type AudioData struct {
	PCM            []float64     `json:"-"` // samples in [-1, 1], interleaved when Channels > 1
	SampleRate     int           `json:"sample_rate"`
	Channels       int           `json:"channels"`
	SourceChannels int           `json:"source_channels"`
	BitDepth       int           `json:"bit_depth"`
	Duration       time.Duration `json:"duration"`
	Timestamp      time.Time     `json:"timestamp"`
}

// NumFrames returns the number of samples per channel
func (a *AudioData) NumFrames() int {
	if a.Channels <= 0 {
		return 0
	}
	return len(a.PCM) / a.Channels
}

// DecoderConfig holds decoder configuration
type DecoderConfig struct {
	DownmixToMono bool          `json:"downmix_to_mono"` // average all channels into one
	MaxDuration   time.Duration `json:"max_duration"`    // 0 means no limit
}

// DefaultDecoderConfig returns default decoder configuration
func DefaultDecoderConfig() *DecoderConfig {
	return &DecoderConfig{
		DownmixToMono: true,
		MaxDuration:   0,
	}
}

// Decoder reads PCM and IEEE float WAV files with go-audio/wav
type Decoder struct {
	config *DecoderConfig
}

// NewDecoder creates a new audio decoder
func NewDecoder(config *DecoderConfig) *Decoder {
	if config == nil {
		config = DefaultDecoderConfig()
	}
	return &Decoder{config: config}
}

// DecodeFile decodes a WAV file and returns normalized samples
func (d *Decoder) DecodeFile(filename string) (*AudioData, error) {
	logger := logging.WithFields(logging.Fields{
		"component": "audio_decoder",
		"function":  "DecodeFile",
		"filename":  filename,
	})

	logger.Debug("Starting audio file decode")

	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}
	defer f.Close()

	data, err := d.Decode(f)
	if err != nil {
		logger.Error(err, "Failed to decode audio file")
		return nil, err
	}

	logger.Debug("Audio decoded", logging.Fields{
		"sample_rate":     data.SampleRate,
		"source_channels": data.SourceChannels,
		"bit_depth":       data.BitDepth,
		"frames":          data.NumFrames(),
	})

	return data, nil
}

// Decode decodes WAV data from r
func (d *Decoder) Decode(r io.ReadSeeker) (*AudioData, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		if err := dec.Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidWAV, err)
		}
		return nil, ErrInvalidWAV
	}

	bitDepth := int(dec.BitDepth)
	format := dec.WavAudioFormat
	isFloat := format == wavFormatIEEEFloat
	switch {
	case format == wavFormatPCM || format == wavFormatExtensible:
	case isFloat && bitDepth == 32:
	default:
		return nil, fmt.Errorf("%w: format %d, %d bits", ErrUnsupportedFormat, format, bitDepth)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWAV, err)
	}

	channels := int(dec.NumChans)
	sampleRate := int(dec.SampleRate)
	if channels <= 0 || sampleRate <= 0 {
		return nil, fmt.Errorf("%w: %d channels at %d Hz", ErrInvalidWAV, channels, sampleRate)
	}

	samples := make([]float64, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = sampleToFloat(v, bitDepth, isFloat)
	}
	if !common.AllFinite(samples) {
		return nil, fmt.Errorf("%w: non-finite sample", ErrInvalidWAV)
	}

	// drop a trailing partial frame
	samples = samples[:len(samples)-len(samples)%channels]

	if d.config.MaxDuration > 0 {
		maxFrames := int(d.config.MaxDuration.Seconds() * float64(sampleRate))
		if maxFrames*channels < len(samples) {
			samples = samples[:maxFrames*channels]
		}
	}

	outChannels := channels
	if d.config.DownmixToMono && channels > 1 {
		samples = downmix(samples, channels)
		outChannels = 1
	}

	frames := len(samples) / outChannels
	return &AudioData{
		PCM:            samples,
		SampleRate:     sampleRate,
		Channels:       outChannels,
		SourceChannels: channels,
		BitDepth:       bitDepth,
		Duration:       time.Duration(float64(frames) / float64(sampleRate) * float64(time.Second)),
		Timestamp:      time.Now(),
	}, nil
}

// sampleToFloat maps a decoded integer sample to [-1, 1]. 8-bit WAV is
// unsigned; 32-bit float WAV arrives as the raw IEEE bit pattern.
func sampleToFloat(v, bitDepth int, isFloat bool) float64 {
	if isFloat {
		return float64(math.Float32frombits(uint32(int32(v))))
	}
	if bitDepth == 8 {
		return float64(v-128) / 128
	}
	return float64(v) / float64(int64(1)<<(bitDepth-1))
}

// downmix averages interleaved channels into one
func downmix(samples []float64, channels int) []float64 {
	frames := len(samples) / channels
	mono := make([]float64, frames)
	for i := range frames {
		mono[i] = common.Mean(samples[i*channels : (i+1)*channels])
	}
	return mono
}
