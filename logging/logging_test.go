package logging_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/RyanBlaney/sonido-crypt/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]logging.Level{
		"debug":   logging.DebugLevel,
		"INFO":    logging.InfoLevel,
		"":        logging.InfoLevel,
		"warning": logging.WarnLevel,
		" error ": logging.ErrorLevel,
		"fatal":   logging.FatalLevel,
	}
	for name, want := range cases {
		got, err := logging.ParseLevel(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := logging.ParseLevel("loud")
	require.Error(t, err)
}

func TestDefaultLoggerRouting(t *testing.T) {
	var out, errOut bytes.Buffer
	l := logging.NewDefaultLoggerWithWriters(&out, &errOut)

	l.Debug("hidden")
	l.Info("visible", logging.Fields{"rows": 4})
	l.Warn("careful")
	l.Error(errors.New("boom"), "failed", logging.Fields{"b": 2, "a": 1})

	assert.NotContains(t, out.String(), "hidden")
	assert.Contains(t, out.String(), "[INFO] visible rows=4")
	assert.Contains(t, errOut.String(), "[WARN] careful")
	assert.Contains(t, errOut.String(), "[ERROR] failed: boom a=1 b=2")

	l.SetLevel(logging.DebugLevel)
	l.Debug("now shown")
	assert.Contains(t, out.String(), "[DEBUG] now shown")
}

func TestFatalDoesNotExitWithWriters(t *testing.T) {
	var out, errOut bytes.Buffer
	l := logging.NewDefaultLoggerWithWriters(&out, &errOut)
	l.Fatal(errors.New("bad"), "fatal path")
	assert.Contains(t, errOut.String(), "[FATAL] fatal path: bad")
}

func TestWithFieldsDoesNotLeak(t *testing.T) {
	var out bytes.Buffer
	base := logging.NewDefaultLoggerWithWriters(&out, &out)
	child := base.WithFields(logging.Fields{"component": "cipher"})

	child.Info("child")
	base.Info("base")

	lines := bytes.Split(bytes.TrimSpace(out.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)
	assert.Contains(t, string(lines[0]), "component=cipher")
	assert.NotContains(t, string(lines[1]), "component=cipher")
}

func TestContextFields(t *testing.T) {
	ctx := logging.ContextWithFields(context.Background(), logging.Fields{"run": "a"})
	ctx = logging.ContextWithFields(ctx, logging.Fields{"file": "x.wav"})

	fields, ok := logging.FieldsFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, logging.Fields{"run": "a", "file": "x.wav"}, fields)

	var out bytes.Buffer
	l := logging.NewDefaultLoggerWithWriters(&out, &out)
	l.WithContext(ctx).Info("with context")
	assert.Contains(t, out.String(), "file=x.wav run=a")

	_, ok = logging.FieldsFromContext(context.Background())
	assert.False(t, ok)
}

func TestGlobalLoggerNilBecomesNoOp(t *testing.T) {
	prev := logging.GetGlobalLogger()
	t.Cleanup(func() { logging.SetGlobalLogger(prev) })

	logging.SetGlobalLogger(nil)
	_, ok := logging.GetGlobalLogger().(*logging.NoOpLogger)
	assert.True(t, ok)
	logging.Info("dropped")
}
