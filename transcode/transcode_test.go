package transcode

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sine(n, sampleRate int, freq, amp float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = amp * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
	}
	return out
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	for _, bitDepth := range []int{8, 16, 24, 32} {
		path := filepath.Join(t.TempDir(), "tone.wav")
		original := &AudioData{PCM: sine(4000, 8000, 440, 0.8), SampleRate: 8000, Channels: 1}

		require.NoError(t, NewEncoder(&EncoderConfig{BitDepth: bitDepth}).EncodeFile(path, original))

		decoded, err := NewDecoder(nil).DecodeFile(path)
		require.NoError(t, err)

		assert.Equal(t, 8000, decoded.SampleRate)
		assert.Equal(t, 1, decoded.Channels)
		assert.Equal(t, bitDepth, decoded.BitDepth)
		assert.Equal(t, 500*time.Millisecond, decoded.Duration)
		require.Len(t, decoded.PCM, len(original.PCM))

		step := 1 / float64(int64(1)<<(bitDepth-1))
		assert.InDeltaSlice(t, original.PCM, decoded.PCM, step, "bit depth %d", bitDepth)
	}
}

func TestEncodeClips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loud.wav")
	data := &AudioData{PCM: []float64{1.5, -1.5, 1, -1, math.NaN()}, SampleRate: 8000, Channels: 1}

	require.NoError(t, NewEncoder(nil).EncodeFile(path, data))

	decoded, err := NewDecoder(nil).DecodeFile(path)
	require.NoError(t, err)
	assert.Equal(t, []float64{32767.0 / 32768, -1, 32767.0 / 32768, -1, 0}, decoded.PCM)
}

func TestDecodeDownmixesToMono(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stereo.wav")
	stereo := &AudioData{
		PCM:        []float64{0.5, -0.25, 0.5, -0.25, 0.25, 0.25},
		SampleRate: 8000,
		Channels:   2,
	}
	require.NoError(t, NewEncoder(nil).EncodeFile(path, stereo))

	mono, err := NewDecoder(nil).DecodeFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, mono.Channels)
	assert.Equal(t, 2, mono.SourceChannels)
	assert.InDeltaSlice(t, []float64{0.125, 0.125, 0.25}, mono.PCM, 1e-9)

	kept, err := NewDecoder(&DecoderConfig{DownmixToMono: false}).DecodeFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, kept.Channels)
	assert.Equal(t, 3, kept.NumFrames())
	assert.InDeltaSlice(t, stereo.PCM, kept.PCM, 1e-9)
}

func TestDecodeMaxDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "long.wav")
	data := &AudioData{PCM: sine(8000, 8000, 100, 0.5), SampleRate: 8000, Channels: 1}
	require.NoError(t, NewEncoder(nil).EncodeFile(path, data))

	decoded, err := NewDecoder(&DecoderConfig{DownmixToMono: true, MaxDuration: 250 * time.Millisecond}).DecodeFile(path)
	require.NoError(t, err)
	assert.Len(t, decoded.PCM, 2000)
}

// writeFloatWAV writes values as a mono 32-bit IEEE float WAV
func writeFloatWAV(t *testing.T, values []float32) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "float.wav")

	f, err := os.Create(path)
	require.NoError(t, err)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: 16000},
		SourceBitDepth: 32,
	}
	for _, v := range values {
		buf.Data = append(buf.Data, int(int32(math.Float32bits(v))))
	}
	enc := wav.NewEncoder(f, 16000, 32, 1, wavFormatIEEEFloat)
	require.NoError(t, enc.Write(buf))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())
	return path
}

func TestDecodeFloatWAV(t *testing.T) {
	path := writeFloatWAV(t, []float32{0.25, -0.5, 0.125, 1.25})

	decoded, err := NewDecoder(nil).DecodeFile(path)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.25, -0.5, 0.125, 1.25}, decoded.PCM)
}

func TestDecodeRejectsNonFiniteFloatWAV(t *testing.T) {
	for _, bad := range []float32{float32(math.NaN()), float32(math.Inf(1))} {
		path := writeFloatWAV(t, []float32{0.25, bad, 0.5})

		_, err := NewDecoder(nil).DecodeFile(path)
		require.ErrorIs(t, err, ErrInvalidWAV)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "noise.wav")
	require.NoError(t, os.WriteFile(path, []byte("definitely not a riff file"), 0o644))

	_, err := NewDecoder(nil).DecodeFile(path)
	require.ErrorIs(t, err, ErrInvalidWAV)

	_, err = NewDecoder(nil).DecodeFile(filepath.Join(t.TempDir(), "missing.wav"))
	require.Error(t, err)
}

func TestEncoderValidation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.wav")

	err := NewEncoder(&EncoderConfig{BitDepth: 12}).EncodeFile(path, &AudioData{PCM: []float64{0}, SampleRate: 8000, Channels: 1})
	require.ErrorIs(t, err, ErrUnsupportedFormat)

	require.Error(t, NewEncoder(nil).EncodeFile(path, nil))
	require.Error(t, NewEncoder(nil).EncodeFile(path, &AudioData{PCM: []float64{0}, Channels: 1}))
	require.Error(t, NewEncoder(nil).EncodeFile(path, &AudioData{PCM: []float64{0, 0, 0}, SampleRate: 8000, Channels: 2}))
}
