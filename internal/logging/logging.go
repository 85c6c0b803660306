// Package logging configures the process-wide zerolog logger from the
// [logging] section of the configuration file.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"tdtbeam/internal/config"
)

// Configure builds a logger from cfg and installs it as the zerolog
// global. Console output goes to stderr so decode results on stdout
// stay clean; a non-empty logging path adds a rotating file sink.
// Unknown level names fall back to info.
func Configure(cfg *config.Config) (zerolog.Logger, error) {
	level := zerolog.InfoLevel
	if name := strings.ToLower(cfg.Logging.Level); name != "" {
		if parsed, err := zerolog.ParseLevel(name); err == nil {
			level = parsed
		}
	}

	var sink io.Writer = os.Stderr
	if strings.ToLower(cfg.Logging.Format) != "json" {
		sink = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	}

	if cfg.Logging.Path != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Logging.Path), 0o755); err != nil {
			return zerolog.Logger{}, err
		}
		rotator := &lumberjack.Logger{
			Filename:   cfg.Logging.Path,
			MaxSize:    20, // MB
			MaxBackups: 3,
			MaxAge:     30, // days
		}
		sink = io.MultiWriter(sink, rotator)
	}

	logger := zerolog.New(sink).Level(level).With().Timestamp().Logger()
	log.Logger = logger
	return logger, nil
}
