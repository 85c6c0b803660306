package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "maes", cfg.Search.Type)
	assert.Equal(t, 4, cfg.Search.BeamSize)
	assert.True(t, cfg.Search.ScoreNorm)
	assert.True(t, cfg.Search.ReturnBest)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, cfg.Models.Durations)
	assert.Equal(t, "subword", cfg.LM.Encoding)
	assert.Equal(t, 100, cfg.LM.TokenOffset)
	assert.Empty(t, cfg.Models.Encoder, "model paths must come from the file")
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "tdtdecode.toml")

	cfg := Default()
	cfg.Models.Encoder = "/models/encoder.onnx"
	cfg.Models.VocabSize = 512
	cfg.Search.Type = "default"
	cfg.Search.BeamSize = 8
	cfg.LM.Path = "/models/lm.arpa"
	cfg.LM.Alpha = 0.5

	require.NoError(t, Save(cfg, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.toml")
	body := "[search]\nbeam_size = 16\n\n[models]\nencoder = \"enc.onnx\"\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 16, cfg.Search.BeamSize)
	assert.Equal(t, "enc.onnx", cfg.Models.Encoder)
	// Untouched keys keep their defaults.
	assert.Equal(t, "maes", cfg.Search.Type)
	assert.Equal(t, 2.3, cfg.Search.MAESExpansionGamma)
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadRejectsMalformedTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.toml")
	require.NoError(t, os.WriteFile(path, []byte("[search\nbeam_size="), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse")
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TDTDECODE_LOG_LEVEL", "debug")
	t.Setenv("TDTDECODE_LOG_FORMAT", "json")
	t.Setenv("TDTDECODE_LM_PATH", "/lm/web.arpa")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "/lm/web.arpa", cfg.LM.Path)
}
