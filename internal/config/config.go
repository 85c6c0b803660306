// Package config defines the tdtdecode configuration file and its
// loading rules: defaults first, then the TOML file, then a small set
// of TDTDECODE_* environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"tdtbeam/beam"
	"tdtbeam/ngram"
	"tdtbeam/onnxscore"
)

// Config is the full tdtdecode configuration. Zero values are never
// used directly; callers go through Default or Load.
type Config struct {
	Models struct {
		Encoder        string `toml:"encoder"`
		Decoder        string `toml:"decoder"`
		Joint          string `toml:"joint"`
		RuntimeLibrary string `toml:"runtime_library"`
		PredLayers     int    `toml:"pred_layers"`
		PredHidden     int    `toml:"pred_hidden"`
		IntraOpThreads int    `toml:"intra_op_threads"`
		VocabSize      int    `toml:"vocab_size"`
		VocabPath      string `toml:"vocab_path"`
		Durations      []int  `toml:"durations"`
	} `toml:"models"`

	Search struct {
		Type               string  `toml:"type"`
		BeamSize           int     `toml:"beam_size"`
		ScoreNorm          bool    `toml:"score_norm"`
		ReturnBest         bool    `toml:"return_best"`
		Temperature        float64 `toml:"temperature"`
		MAESNumSteps       int     `toml:"maes_num_steps"`
		MAESPrefixAlpha    int     `toml:"maes_prefix_alpha"`
		MAESExpansionBeta  int     `toml:"maes_expansion_beta"`
		MAESExpansionGamma float64 `toml:"maes_expansion_gamma"`
	} `toml:"search"`

	// LM is inactive until Path is set.
	LM struct {
		Path        string  `toml:"path"`
		Alpha       float64 `toml:"alpha"`
		Encoding    string  `toml:"encoding"`
		TokenOffset int     `toml:"token_offset"`
	} `toml:"lm"`

	Logging struct {
		Level  string `toml:"level"`
		Format string `toml:"format"`
		Path   string `toml:"path"`
	} `toml:"logging"`
}

// Default returns a configuration with every knob at its package
// default. Model paths are left empty and must come from the file.
func Default() *Config {
	cfg := &Config{}

	cfg.Models.PredLayers = onnxscore.DefaultPredLayers
	cfg.Models.PredHidden = onnxscore.DefaultPredHidden
	cfg.Models.VocabSize = 1024
	cfg.Models.Durations = []int{0, 1, 2, 3, 4}

	cfg.Search.Type = beam.SearchMAES.String()
	cfg.Search.BeamSize = beam.DefaultBeamSize
	cfg.Search.ScoreNorm = true
	cfg.Search.ReturnBest = true
	cfg.Search.Temperature = beam.DefaultSoftmaxTemperature
	cfg.Search.MAESNumSteps = beam.DefaultMAESNumSteps
	cfg.Search.MAESPrefixAlpha = beam.DefaultMAESPrefixAlpha
	cfg.Search.MAESExpansionBeta = beam.DefaultMAESExpansionBeta
	cfg.Search.MAESExpansionGamma = beam.DefaultMAESExpansionGamma

	cfg.LM.Alpha = beam.DefaultLMAlpha
	cfg.LM.Encoding = ngram.EncodeSubword.String()
	cfg.LM.TokenOffset = ngram.DefaultTokenOffset

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "console"

	return cfg
}

// Load reads the TOML file at path over the defaults. An empty path
// yields the defaults untouched; a missing file is an error. Environment
// overrides are applied last either way.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		applyEnvOverrides(cfg)
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// Save writes cfg as TOML, creating parent directories as needed.
func Save(cfg *Config, path string) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TDTDECODE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("TDTDECODE_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("TDTDECODE_RUNTIME_LIBRARY"); v != "" {
		cfg.Models.RuntimeLibrary = v
	}
	if v := os.Getenv("TDTDECODE_LM_PATH"); v != "" {
		cfg.LM.Path = v
	}
}
