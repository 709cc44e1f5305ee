// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package imagecomp

import (
	"log/slog"

	"github.com/gogpu/imagecomp/internal/logging"
)

// SetLogger installs a logger for the whole module. By default all
// logging is disabled (silent). Pass nil to restore the default.
//
// The logger is shared process-wide and safe to swap concurrently.
//
// Example:
//
//	imagecomp.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))
func SetLogger(l *slog.Logger) {
	logging.Set(l)
}

// Logger returns the current logger.
func Logger() *slog.Logger {
	return logging.L()
}
