// Package logging builds the process logger: a log/slog front end rendered by
// charmbracelet/log.
package logging

import (
	"io"
	"log/slog"
	"time"

	"github.com/charmbracelet/log"
)

// New returns a logger writing to w. Debug lowers the level to debug and adds
// the caller location to each line.
func New(debug bool, w io.Writer) *slog.Logger {
	level := log.InfoLevel
	if debug {
		level = log.DebugLevel
	}
	h := log.NewWithOptions(w, log.Options{
		Level:           level,
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
		ReportCaller:    debug,
	})
	return slog.New(h)
}

// Init sets the logger from New as the slog default, so the standard log
// package routes through it as well.
func Init(debug bool, w io.Writer) *slog.Logger {
	logger := New(debug, w)
	slog.SetDefault(logger)
	return logger
}
