// SPDX-License-Identifier: MPL-2.0

package host

import (
	"io"
	"os"

	"toolhost-cli/internal/config"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewLogger builds the application logger. It writes to w and, when
// cfg.File is set, also to a size-rotated log file. The returned closer
// releases the file.
func NewLogger(w io.Writer, cfg config.LogConfig, verbose bool) (*log.Logger, io.Closer, error) {
	level := log.InfoLevel
	if cfg.Level != "" {
		parsed, err := log.ParseLevel(string(cfg.Level))
		if err != nil {
			return nil, nil, err
		}
		level = parsed
	}
	if verbose {
		level = log.DebugLevel
	}

	if w == nil {
		w = os.Stderr
	}
	var closer io.Closer = nopCloser{}
	if cfg.File != "" {
		rotating := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}
		w = io.MultiWriter(w, rotating)
		closer = rotating
	}

	logger := log.NewWithOptions(w, log.Options{
		Prefix:          config.AppName,
		Level:           level,
		ReportTimestamp: verbose,
	})
	return logger, closer, nil
}
