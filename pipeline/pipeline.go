// Package pipeline runs the spectrogram cipher end to end: WAV in, STFT,
// encrypt or decrypt, inverse STFT, WAV, PNG and container files out.
package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/RyanBlaney/sonido-crypt/algorithms/common"
	"github.com/RyanBlaney/sonido-crypt/algorithms/spectral"
	"github.com/RyanBlaney/sonido-crypt/algorithms/stats"
	"github.com/RyanBlaney/sonido-crypt/cipher"
	"github.com/RyanBlaney/sonido-crypt/container"
	"github.com/RyanBlaney/sonido-crypt/logging"
	"github.com/RyanBlaney/sonido-crypt/render"
	"github.com/RyanBlaney/sonido-crypt/transcode"
	"gonum.org/v1/gonum/mat"
)

// encryptedPeak is the peak NormalizeEncrypted scales the encrypted audio to
const encryptedPeak = 0.99

// Stage names a step of a pipeline operation
type Stage string

const (
	StageDecode     Stage = "decode"
	StageRead       Stage = "read"
	StageSTFT       Stage = "stft"
	StageEncrypt    Stage = "encrypt"
	StageDecrypt    Stage = "decrypt"
	StageSynthesize Stage = "istft"
	StageWrite      Stage = "write"
)

// Stages reported by each operation, in order
var (
	AnalyzeStages = []Stage{StageDecode, StageSTFT, StageEncrypt, StageDecrypt, StageSynthesize, StageWrite}
	EncryptStages = []Stage{StageDecode, StageSTFT, StageEncrypt, StageWrite}
	DecryptStages = []Stage{StageRead, StageDecrypt, StageSynthesize, StageWrite}
)

// Observer is called after each completed stage
type Observer func(stage Stage)

// Pipeline wires decoder, STFT, cipher, renderer and encoder together
type Pipeline struct {
	config   *Config
	stft     *spectral.STFT
	cipher   *cipher.Transformer
	renderer *render.Renderer
	decoder  *transcode.Decoder
	encoder  *transcode.Encoder
	observer Observer
	logger   logging.Logger
}

// New creates a pipeline. A nil config uses DefaultConfig.
func New(config *Config) (*Pipeline, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	stft, err := spectral.NewSTFT(config.STFT)
	if err != nil {
		return nil, err
	}

	logger := logging.WithFields(logging.Fields{
		"component": "pipeline",
	})

	transformer, err := cipher.New(config.Cipher, logger)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		config:   config,
		stft:     stft,
		cipher:   transformer,
		renderer: render.New(config.Render),
		decoder:  transcode.NewDecoder(config.Decoder),
		encoder:  transcode.NewEncoder(config.Encoder),
		logger:   logger,
	}, nil
}

// SetObserver registers fn to be told about completed stages
func (p *Pipeline) SetObserver(fn Observer) {
	p.observer = fn
}

func (p *Pipeline) done(stage Stage) {
	if p.observer != nil {
		p.observer(stage)
	}
}

// Analyze runs the full demonstration on one WAV file: it saves the
// original, encrypted and decrypted spectrograms as PNG and the matching
// audio as WAV under OutputDir, each name carrying a timestamp, and reports
// how far the encrypted audio is from the original and how close the
// decrypted audio comes back.
func (p *Pipeline) Analyze(input, password string) (*Report, error) {
	if password == "" {
		return nil, cipher.ErrEmptyPassword
	}

	logger := p.logger.WithFields(logging.Fields{
		"function": "Analyze",
		"input":    input,
	})
	logger.Debug("Starting analysis")

	audio, err := p.decoder.DecodeFile(input)
	if err != nil {
		return nil, err
	}
	p.done(StageDecode)

	result, err := p.stft.Compute(audio.PCM, audio.SampleRate)
	if err != nil {
		return nil, err
	}
	shape := spectrumShape(result.Spectrum)
	p.done(StageSTFT)

	encrypted, err := p.cipher.Encrypt(result.Spectrum, password)
	if err != nil {
		logger.Error(err, "Failed to encrypt spectrogram")
		return nil, err
	}
	p.done(StageEncrypt)

	decrypted, err := p.cipher.DecryptShape(encrypted, password, shape)
	if err != nil {
		logger.Error(err, "Failed to decrypt spectrogram")
		return nil, err
	}
	p.done(StageDecrypt)

	encryptedPCM, err := p.stft.Inverse(result.WithSpectrum(encrypted))
	if err != nil {
		return nil, err
	}
	decryptedPCM, err := p.stft.Inverse(result.WithSpectrum(decrypted))
	if err != nil {
		return nil, err
	}
	p.done(StageSynthesize)

	report := newReport(input, audio, shape, p.cipher.Config())
	report.SpectrumError = maxAbsDiff(result.Spectrum, decrypted)

	if report.Encrypted, err = stats.Compare(audio.PCM, encryptedPCM); err != nil {
		return nil, err
	}
	if report.Decrypted, err = stats.Compare(audio.PCM, decryptedPCM); err != nil {
		return nil, err
	}

	report.EncryptedGain = 1
	if peak := common.Peak(encryptedPCM); p.config.NormalizeEncrypted && peak > encryptedPeak {
		report.EncryptedGain = encryptedPeak / peak
		for i := range encryptedPCM {
			encryptedPCM[i] *= report.EncryptedGain
		}
	}

	if err := os.MkdirAll(p.config.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	report.Outputs = p.outputPaths(report.Timestamp)
	out := report.Outputs

	err = runAll(
		func() error { return p.renderer.WriteFile(out.OriginalImage, result.Spectrum) },
		func() error { return p.renderer.WriteFile(out.EncryptedImage, encrypted) },
		func() error { return p.renderer.WriteFile(out.DecryptedImage, decrypted) },
		func() error { return p.writeAudio(out.OriginalAudio, audio.PCM, audio.SampleRate) },
		func() error { return p.writeAudio(out.EncryptedAudio, encryptedPCM, audio.SampleRate) },
		func() error { return p.writeAudio(out.DecryptedAudio, decryptedPCM, audio.SampleRate) },
	)
	if err != nil {
		logger.Error(err, "Failed to write outputs")
		return nil, err
	}
	p.done(StageWrite)

	logger.Info("Analysis complete", logging.Fields{
		"report_id":     report.ID,
		"shape":         shape.String(),
		"decrypted_snr": report.Decrypted.SNR,
		"files":         len(out.Files()),
	})

	return report, nil
}

// EncryptFile encrypts the spectrogram of a WAV file and stores it in a
// container together with the framing needed to synthesize it again.
func (p *Pipeline) EncryptFile(input, output, password string) (*Report, error) {
	if password == "" {
		return nil, cipher.ErrEmptyPassword
	}

	logger := p.logger.WithFields(logging.Fields{
		"function": "EncryptFile",
		"input":    input,
		"output":   output,
	})

	audio, err := p.decoder.DecodeFile(input)
	if err != nil {
		return nil, err
	}
	p.done(StageDecode)

	result, err := p.stft.Compute(audio.PCM, audio.SampleRate)
	if err != nil {
		return nil, err
	}
	p.done(StageSTFT)

	encrypted, err := p.cipher.Encrypt(result.Spectrum, password)
	if err != nil {
		logger.Error(err, "Failed to encrypt spectrogram")
		return nil, err
	}
	p.done(StageEncrypt)

	cfg := p.cipher.Config()
	report := newReport(input, audio, spectrumShape(encrypted), cfg)

	file := &container.File{
		Header: container.Header{
			Precision:  p.config.Precision,
			SampleRate: audio.SampleRate,
			NumSamples: len(audio.PCM),
			STFT:       p.stft.Config(),
			Cipher:     cfg,
			Created:    report.Timestamp,
		},
		Spectrum: encrypted,
	}
	if err := container.WriteFile(output, file); err != nil {
		logger.Error(err, "Failed to write container")
		return nil, err
	}
	report.Outputs.Container = output
	p.done(StageWrite)

	logger.Info("Spectrogram encrypted", logging.Fields{
		"report_id": report.ID,
		"shape":     report.Shape.String(),
	})

	return report, nil
}

// DecryptFile decrypts a container written by EncryptFile and writes the
// recovered audio as WAV. The stored spectrum must have the shape its
// framing metadata implies, otherwise cipher.ErrShapeMismatch is returned
// and nothing is written. The container's own STFT and cipher settings are
// used, not the pipeline's.
func (p *Pipeline) DecryptFile(input, output, password string) (*Report, error) {
	if password == "" {
		return nil, cipher.ErrEmptyPassword
	}

	logger := p.logger.WithFields(logging.Fields{
		"function": "DecryptFile",
		"input":    input,
		"output":   output,
	})

	file, err := container.ReadFile(input)
	if err != nil {
		return nil, err
	}
	header := file.Header
	p.done(StageRead)

	stft, err := spectral.NewSTFT(header.STFT)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", container.ErrCorrupt, err)
	}

	cfg := header.Cipher
	cfg.Workers = p.config.Cipher.Workers
	transformer, err := cipher.New(&cfg, p.logger)
	if err != nil {
		return nil, err
	}

	rows, cols := stft.Shape(header.NumSamples)
	expected := cipher.Shape{Rows: rows, Cols: cols}

	decrypted, err := transformer.DecryptShape(file.Spectrum, password, expected)
	if err != nil {
		logger.Error(err, "Failed to decrypt spectrogram")
		return nil, err
	}
	p.done(StageDecrypt)

	pcm, err := stft.Inverse(&spectral.STFTResult{
		Spectrum:   decrypted,
		SampleRate: header.SampleRate,
		NumSamples: header.NumSamples,
		WindowSize: header.STFT.WindowSize,
		HopSize:    header.STFT.HopSize(),
	})
	if err != nil {
		return nil, err
	}
	p.done(StageSynthesize)

	if err := p.writeAudio(output, pcm, header.SampleRate); err != nil {
		logger.Error(err, "Failed to write audio")
		return nil, err
	}
	p.done(StageWrite)

	report := &Report{
		Input:      input,
		Timestamp:  time.Now(),
		SampleRate: header.SampleRate,
		NumSamples: len(pcm),
		Duration:   calculateDuration(len(pcm), header.SampleRate),
		Shape:      expected,
		Mode:       cfg.Mode,
		DrawOrder:  cfg.DrawOrder,
		Outputs:    Outputs{DecryptedAudio: output},
	}
	report.ID = generateID(input, &transcode.AudioData{PCM: pcm, SampleRate: header.SampleRate})

	logger.Info("Spectrogram decrypted", logging.Fields{
		"report_id": report.ID,
		"shape":     expected.String(),
	})

	return report, nil
}

// outputPaths names Analyze's files the way the upload service did:
// <kind>_<spectrogram|audio>_<timestamp>
func (p *Pipeline) outputPaths(at time.Time) Outputs {
	stamp := at.Format(p.config.TimestampLayout)
	path := func(kind, ext string) string {
		return filepath.Join(p.config.OutputDir, fmt.Sprintf("%s_%s.%s", kind, stamp, ext))
	}

	return Outputs{
		OriginalImage:  path("original_spectrogram", "png"),
		OriginalAudio:  path("original_audio", "wav"),
		EncryptedImage: path("encrypted_spectrogram", "png"),
		EncryptedAudio: path("encrypted_audio", "wav"),
		DecryptedImage: path("decrypted_spectrogram", "png"),
		DecryptedAudio: path("decrypted_audio", "wav"),
	}
}

func (p *Pipeline) writeAudio(path string, pcm []float64, sampleRate int) error {
	return p.encoder.EncodeFile(path, &transcode.AudioData{
		PCM:        pcm,
		SampleRate: sampleRate,
		Channels:   1,
	})
}

func spectrumShape(m *mat.CDense) cipher.Shape {
	rows, cols := m.Dims()
	return cipher.Shape{Rows: rows, Cols: cols}
}

// runAll runs tasks concurrently and joins their errors
func runAll(tasks ...func() error) error {
	errs := make([]error, len(tasks))

	var wg sync.WaitGroup
	for i, task := range tasks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = task()
		}()
	}
	wg.Wait()

	return errors.Join(errs...)
}
