package main

import (
	"io"
	"log/slog"

	"github.com/iudanet/gophcollab/internal/config"
)

// newLogger создает корневой логгер по настройкам log.*
func newLogger(w io.Writer, cfg config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
