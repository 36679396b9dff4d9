package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"darksingularity/internal/config"
)

// newLogger builds the command logger. "auto" picks a text handler when w
// is a terminal and JSON otherwise.
func newLogger(cfg config.LogConfig, w *os.File) (*slog.Logger, error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	return slog.New(logHandler(cfg.Format, w, isTerminal(w), &slog.HandlerOptions{Level: level})), nil
}

func logHandler(format string, w io.Writer, terminal bool, opts *slog.HandlerOptions) slog.Handler {
	switch strings.ToLower(format) {
	case "text":
		return slog.NewTextHandler(w, opts)
	case "json":
		return slog.NewJSONHandler(w, opts)
	}
	if terminal {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}

func isTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
