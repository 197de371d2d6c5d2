package main

import (
	"bytes"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/RyanBlaney/sonido-crypt/transcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParams(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"params", "-password", "hello", "-rows", "4", "-cols", "5"}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	var out struct {
		Seed        string `json:"seed"`
		Permutation []int  `json:"permutation"`
		Scales      struct {
			Freq []float64 `json:"freq"`
			Time []float64 `json:"time"`
		} `json:"scales"`
	}
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &out))
	assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", out.Seed)
	assert.Equal(t, []int{1, 2, 0, 3, 4}, out.Permutation)
	assert.Len(t, out.Scales.Freq, 4)
	assert.Len(t, out.Scales.Time, 5)
}

func TestParamsPasswordFromEnv(t *testing.T) {
	t.Setenv(passwordEnv, "hello")

	var stdout, stderr bytes.Buffer
	require.Equal(t, 0, run([]string{"params", "-rows", "4", "-cols", "5"}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "2cf24dba")
}

func TestMissingPassword(t *testing.T) {
	t.Setenv(passwordEnv, "")

	var stdout, stderr bytes.Buffer
	assert.Equal(t, 1, run([]string{"params", "-rows", "4", "-cols", "5"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "password")
}

func TestUsageErrors(t *testing.T) {
	var stdout, stderr bytes.Buffer

	assert.Equal(t, 2, run(nil, &stdout, &stderr))
	assert.Equal(t, 2, run([]string{"shred"}, &stdout, &stderr))
	assert.Equal(t, 2, run([]string{"encrypt", "-password", "x", "only-one.wav"}, &stdout, &stderr))
	assert.Equal(t, 2, run([]string{"analyze", "-no-such-flag"}, &stdout, &stderr))
	assert.Equal(t, 0, run([]string{"help"}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "sonido-crypt analyze")
}

func TestEncryptDecryptCommands(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "tone.wav")
	sealed := filepath.Join(dir, "tone.sgc")
	restored := filepath.Join(dir, "restored.wav")

	pcm := make([]float64, 6000)
	for i := range pcm {
		pcm[i] = 0.3 * math.Sin(2*math.Pi*330*float64(i)/8000)
	}
	require.NoError(t, transcode.NewEncoder(nil).EncodeFile(input, &transcode.AudioData{
		PCM: pcm, SampleRate: 8000, Channels: 1,
	}))

	var stdout, stderr bytes.Buffer
	code := run([]string{"encrypt", "-quiet", "-password", "pw", input, sealed}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	code = run([]string{"decrypt", "-password", "pw", sealed, restored}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	original, err := transcode.NewDecoder(nil).DecodeFile(input)
	require.NoError(t, err)
	decrypted, err := transcode.NewDecoder(nil).DecodeFile(restored)
	require.NoError(t, err)
	assert.InDeltaSlice(t, original.PCM, decrypted.PCM, 2.0/32768)
}

func TestAnalyzeCommand(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "tone.wav")
	out := filepath.Join(dir, "out")
	configPath := filepath.Join(dir, "config.json")

	pcm := make([]float64, 3000)
	for i := range pcm {
		pcm[i] = 0.25 * math.Sin(2*math.Pi*500*float64(i)/8000)
	}
	require.NoError(t, transcode.NewEncoder(nil).EncodeFile(input, &transcode.AudioData{
		PCM: pcm, SampleRate: 8000, Channels: 1,
	}))
	require.NoError(t, os.WriteFile(configPath, []byte(`{"stft": {"window_size": 256, "overlap": 128, "window": "hann"}}`), 0o644))

	var stdout, stderr bytes.Buffer
	code := run([]string{"analyze", "-quiet", "-config", configPath, "-out", out, "-password", "pw", input}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	var report struct {
		Outputs map[string]string `json:"outputs"`
		Shape   struct {
			Rows int `json:"rows"`
		} `json:"shape"`
	}
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &report))
	assert.Equal(t, 129, report.Shape.Rows)
	assert.Len(t, report.Outputs, 6)
	for _, f := range report.Outputs {
		assert.FileExists(t, f)
	}
}
