// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package logging installs the process-wide slog logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/ffutop/modbus-serial/internal/config"
)

// Level maps a configured level name to a slog level; unknown names mean info.
func Level(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// Setup makes a text handler the default logger. It writes to cfg.File, or
// stdout when the file is empty, "-" or cannot be opened. The returned
// closer releases the file.
func Setup(cfg config.LogConfig) io.Closer {
	opts := &slog.HandlerOptions{
		Level: Level(cfg.Level),
	}

	var out io.WriteCloser = nopCloser{os.Stdout}
	if cfg.File != "" && cfg.File != "-" {
		f, err := os.OpenFile(cfg.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			fmt.Printf("Failed to open log file, falling back to stdout: %v\n", err)
		} else {
			out = f
		}
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(out, opts)))
	return out
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
