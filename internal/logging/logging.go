// Package logging configures the process-wide slog logger. Log lines go to
// stderr and a per-run file; stdout is reserved for the machine-readable
// progress protocol and must never receive log output.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Setup builds the run logger. A file named after the start timestamp is
// created under dir; if the directory cannot be prepared the logger falls
// back to stderr alone rather than failing the run.
func Setup(dir, level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}

	w := io.Writer(os.Stderr)
	if dir != "" {
		if f, err := openRunFile(dir); err == nil {
			w = io.MultiWriter(os.Stderr, f)
		} else {
			fmt.Fprintf(os.Stderr, "log file unavailable, logging to stderr only: %v\n", err)
		}
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

func openRunFile(dir string) (*os.File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	name := fmt.Sprintf("rewildid_%s.log", time.Now().Format("20060102_150405"))
	return os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}
