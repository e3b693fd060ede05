package app

import (
	"io"
	"log/slog"
	"os"
)

// NewLogger returns a configured slog.Logger based on configuration.
func NewLogger(cfg *Config) *slog.Logger {
	return newLogger(os.Stdout, cfg)
}

func newLogger(w io.Writer, cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{AddSource: true, Level: slog.LevelDebug}
	if cfg.IsProduction() {
		opts.Level = slog.LevelInfo
	}
	var handler slog.Handler
	if cfg != nil && cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	env := "development"
	if cfg != nil && cfg.AppEnv != "" {
		env = cfg.AppEnv
	}
	return slog.New(handler).With(slog.String("service", "backoffice"), slog.String("env", env))
}
