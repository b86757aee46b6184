package main

import (
	"io"

	"github.com/charmbracelet/log"

	"github.com/ZebulonRouseFrantzich/maaup/internal/installer"
)

// newLogger creates the CLI logger. verbose wins over quiet.
func newLogger(w io.Writer, verbose, quiet bool) *log.Logger {
	level := log.InfoLevel
	switch {
	case verbose:
		level = log.DebugLevel
	case quiet:
		level = log.ErrorLevel
	}
	return log.NewWithOptions(w, log.Options{
		Prefix:          "maaup",
		Level:           level,
		ReportTimestamp: false,
	})
}

// logAdapter exposes a charm logger as an installer.Logger.
type logAdapter struct {
	l *log.Logger
}

var _ installer.Logger = logAdapter{}

func (a logAdapter) Debug(msg string, keysAndValues ...interface{}) { a.l.Debug(msg, keysAndValues...) }
func (a logAdapter) Info(msg string, keysAndValues ...interface{})  { a.l.Info(msg, keysAndValues...) }
func (a logAdapter) Warn(msg string, keysAndValues ...interface{})  { a.l.Warn(msg, keysAndValues...) }
func (a logAdapter) Error(msg string, keysAndValues ...interface{}) { a.l.Error(msg, keysAndValues...) }
