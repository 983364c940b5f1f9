package logger

import (
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/1cbyc/view0x-sub000/internal/config"
)

// New creates a named hclog.Logger from the configuration. The
// ANALYZER_LOG_LEVEL environment variable overrides the config level.
func New(cfg config.Config, name string) hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:       name,
		Level:      level(cfg),
		JSONFormat: cfg.Logger.JSONFormat,
		Output:     os.Stderr,
	})
}

func level(cfg config.Config) hclog.Level {
	s := cfg.Logger.Level
	if env := os.Getenv("ANALYZER_LOG_LEVEL"); env != "" {
		s = env
	}
	switch strings.ToLower(s) {
	case "trace":
		return hclog.Trace
	case "debug":
		return hclog.Debug
	case "warn":
		return hclog.Warn
	case "error":
		return hclog.Error
	default:
		return hclog.Info
	}
}
