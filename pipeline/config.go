package pipeline

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/RyanBlaney/sonido-crypt/algorithms/spectral"
	cipherconfig "github.com/RyanBlaney/sonido-crypt/cipher/config"
	"github.com/RyanBlaney/sonido-crypt/container"
	"github.com/RyanBlaney/sonido-crypt/render"
	"github.com/RyanBlaney/sonido-crypt/transcode"
)

// Config holds configuration for every stage of the pipeline
type Config struct {
	STFT    spectral.STFTConfig      `json:"stft"`
	Cipher  *cipherconfig.Config     `json:"cipher"`
	Render  *render.Config           `json:"render"`
	Decoder *transcode.DecoderConfig `json:"decoder"`
	Encoder *transcode.EncoderConfig `json:"encoder"`

	// Precision of the spectrogram payload written by EncryptFile
	Precision container.Precision `json:"precision"`

	OutputDir       string `json:"output_dir"`
	TimestampLayout string `json:"timestamp_layout"` // suffix of Analyze outputs

	// NormalizeEncrypted scales the encrypted audio down to a 0.99 peak
	// instead of letting the WAV encoder clip it
	NormalizeEncrypted bool `json:"normalize_encrypted"`
}

// DefaultConfig returns default pipeline configuration
func DefaultConfig() *Config {
	return &Config{
		STFT:               spectral.DefaultSTFTConfig(),
		Cipher:             cipherconfig.DefaultConfig(),
		Render:             render.DefaultConfig(),
		Decoder:            transcode.DefaultDecoderConfig(),
		Encoder:            transcode.DefaultEncoderConfig(),
		Precision:          container.PrecisionFloat64,
		OutputDir:          "output",
		TimestampLayout:    "20060102-150405",
		NormalizeEncrypted: true,
	}
}

// LoadConfig reads a JSON config file. Fields the file leaves out keep
// their defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every stage's configuration
func (c *Config) Validate() error {
	if err := c.STFT.Validate(); err != nil {
		return fmt.Errorf("stft: %w", err)
	}
	if err := c.Cipher.Validate(); err != nil {
		return err
	}
	if err := c.Precision.Validate(); err != nil {
		return fmt.Errorf("precision: %w", err)
	}
	if c.Render == nil || c.Decoder == nil || c.Encoder == nil {
		return fmt.Errorf("render, decoder and encoder configs are required")
	}
	if c.OutputDir == "" {
		return fmt.Errorf("output directory is required")
	}
	if c.TimestampLayout == "" {
		return fmt.Errorf("timestamp layout is required")
	}
	return nil
}
