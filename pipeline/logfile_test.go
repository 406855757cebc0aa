package pipeline

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenLogFile_Appends(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")

	for _, line := range []string{"first\n", "second\n"} {
		f, err := OpenLogFile(dir)
		require.NoError(t, err)
		_, err = f.WriteString(line)
		require.NoError(t, err)
		require.NoError(t, f.Close())
	}

	data, err := os.ReadFile(filepath.Join(dir, LogFileName))
	require.NoError(t, err)
	assert.Equal(t, "first\nsecond\n", string(data))
}

func TestTeeHandler(t *testing.T) {
	var quiet, verbose bytes.Buffer
	logger := slog.New(TeeHandler{
		slog.NewTextHandler(&quiet, &slog.HandlerOptions{Level: slog.LevelError}),
		slog.NewTextHandler(&verbose, &slog.HandlerOptions{Level: slog.LevelInfo}),
	}).With("component", "pipeline")

	logger.Info("initial phase done", "chunks", 4)
	logger.Error("phase failed")

	assert.NotContains(t, quiet.String(), "initial phase done")
	assert.Contains(t, quiet.String(), "phase failed")
	assert.Contains(t, verbose.String(), "initial phase done")
	assert.Contains(t, verbose.String(), "component=pipeline")
	assert.Contains(t, verbose.String(), "chunks=4")
	assert.Contains(t, verbose.String(), "phase failed")
}
