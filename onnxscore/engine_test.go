// Package onnxscore_test covers the paths that do not require the
// native runtime: configuration checks, file resolution, and the
// initialization guard. Session behavior needs real model files and
// the shared library, which tests do not assume.
package onnxscore_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tdtbeam/onnxscore"
)

// fakeModels writes three placeholder files so path checks pass; no
// session is ever created against them.
func fakeModels(t *testing.T) onnxscore.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := onnxscore.Config{
		EncoderPath: filepath.Join(dir, "encoder.onnx"),
		DecoderPath: filepath.Join(dir, "decoder.onnx"),
		JointPath:   filepath.Join(dir, "joint.onnx"),
	}
	for _, p := range []string{cfg.EncoderPath, cfg.DecoderPath, cfg.JointPath} {
		require.NoError(t, os.WriteFile(p, []byte("placeholder"), 0o644))
	}
	return cfg
}

func TestNewEngine_RejectsBadGeometry(t *testing.T) {
	_, err := onnxscore.NewEngine(onnxscore.Config{PredLayers: -1})
	require.Error(t, err)
	assert.ErrorIs(t, err, onnxscore.ErrConfig)
}

func TestNewEngine_MissingModelFile(t *testing.T) {
	cfg := fakeModels(t)
	require.NoError(t, os.Remove(cfg.DecoderPath))

	_, err := onnxscore.NewEngine(cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, onnxscore.ErrModelNotFound)
	assert.ErrorContains(t, err, "decoder.onnx")
}

func TestNewEngine_RequiresRuntime(t *testing.T) {
	// The native library is never loaded under test; construction must
	// stop at the initialization guard.
	cfg := fakeModels(t)

	_, err := onnxscore.NewEngine(cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, onnxscore.ErrNotInitialized)
}

func TestInspect_MissingModelFile(t *testing.T) {
	_, err := onnxscore.Inspect(filepath.Join(t.TempDir(), "absent.onnx"))
	require.Error(t, err)
	assert.ErrorIs(t, err, onnxscore.ErrModelNotFound)
}

func TestInspect_RequiresRuntime(t *testing.T) {
	cfg := fakeModels(t)

	_, err := onnxscore.Inspect(cfg.EncoderPath)
	require.Error(t, err)
	assert.ErrorIs(t, err, onnxscore.ErrNotInitialized)
}
