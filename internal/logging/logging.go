package logging

import (
	"io"
	"os"
	"strings"

	"github.com/riosinforma/apiserver/config"
	"github.com/sirupsen/logrus"
)

// New builds the process logger: JSON in production (or LOG_FORMAT=json),
// text otherwise, with the level taken from LOG_LEVEL or forced to debug by
// DEBUG=true.
func New(cfg config.Config) *logrus.Logger {
	return newLogger(cfg, os.Stderr)
}

func newLogger(cfg config.Config, out io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)

	format := strings.ToLower(strings.TrimSpace(cfg.LogFormat))
	if format == "json" || (format == "" && cfg.IsProduction()) {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	level, err := logrus.ParseLevel(strings.TrimSpace(cfg.LogLevel))
	if err != nil {
		level = logrus.InfoLevel
	}
	if cfg.Debug {
		level = logrus.DebugLevel
	}
	logger.SetLevel(level)

	return logger
}

// Discard returns a logger that drops everything, for tests and one-shot
// commands that report through their own output.
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
