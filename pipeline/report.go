package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/cmplx"
	"time"

	"github.com/RyanBlaney/sonido-crypt/algorithms/stats"
	"github.com/RyanBlaney/sonido-crypt/cipher"
	cipherconfig "github.com/RyanBlaney/sonido-crypt/cipher/config"
	"github.com/RyanBlaney/sonido-crypt/transcode"
	"gonum.org/v1/gonum/mat"
)

// Outputs lists the files one run produced
type Outputs struct {
	OriginalImage  string `json:"original_image,omitempty"`
	OriginalAudio  string `json:"original_audio,omitempty"`
	EncryptedImage string `json:"encrypted_image,omitempty"`
	EncryptedAudio string `json:"encrypted_audio,omitempty"`
	DecryptedImage string `json:"decrypted_image,omitempty"`
	DecryptedAudio string `json:"decrypted_audio,omitempty"`
	Container      string `json:"container,omitempty"`
}

// Files returns the non-empty output paths in a stable order
func (o Outputs) Files() []string {
	var files []string
	for _, f := range []string{
		o.OriginalImage, o.OriginalAudio,
		o.EncryptedImage, o.EncryptedAudio,
		o.DecryptedImage, o.DecryptedAudio,
		o.Container,
	} {
		if f != "" {
			files = append(files, f)
		}
	}
	return files
}

// Report describes one pipeline run
type Report struct {
	ID         string                 `json:"id"`
	Input      string                 `json:"input"`
	Timestamp  time.Time              `json:"timestamp"`
	SampleRate int                    `json:"sample_rate"`
	NumSamples int                    `json:"num_samples"`
	Duration   time.Duration          `json:"duration"`
	Shape      cipher.Shape           `json:"shape"`
	Mode       cipherconfig.Mode      `json:"mode"`
	DrawOrder  cipherconfig.DrawOrder `json:"draw_order"`
	Outputs    Outputs                `json:"outputs"`

	// Encrypted compares the encrypted audio with the original,
	// Decrypted the decrypted audio with the original.
	Encrypted *stats.Similarity `json:"encrypted,omitempty"`
	Decrypted *stats.Similarity `json:"decrypted,omitempty"`

	SpectrumError float64 `json:"spectrum_error,omitempty"` // largest |decrypted - original| over all bins
	EncryptedGain float64 `json:"encrypted_gain,omitempty"` // applied before writing the encrypted audio
}

func newReport(input string, audio *transcode.AudioData, shape cipher.Shape, cfg cipherconfig.Config) *Report {
	return &Report{
		ID:         generateID(input, audio),
		Input:      input,
		Timestamp:  time.Now(),
		SampleRate: audio.SampleRate,
		NumSamples: len(audio.PCM),
		Duration:   calculateDuration(len(audio.PCM), audio.SampleRate),
		Shape:      shape,
		Mode:       cfg.Mode,
		DrawOrder:  cfg.DrawOrder,
	}
}

func calculateDuration(samples, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	seconds := float64(samples) / float64(sampleRate)
	return time.Duration(seconds * float64(time.Second))
}

func generateID(input string, audio *transcode.AudioData) string {
	hasher := sha256.New()
	fmt.Fprintf(hasher, "%d_%s_%d_%d",
		time.Now().UnixNano(),
		input,
		len(audio.PCM),
		audio.SampleRate)
	return hex.EncodeToString(hasher.Sum(nil))[:16]
}

// maxAbsDiff returns the largest element-wise distance between a and b,
// which must have the same shape
func maxAbsDiff(a, b *mat.CDense) float64 {
	rows, cols := a.Dims()
	worst := 0.0
	for i := range rows {
		for j := range cols {
			worst = max(worst, cmplx.Abs(a.At(i, j)-b.At(i, j)))
		}
	}
	return worst
}
