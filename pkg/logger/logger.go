// Package logger builds the logrus loggers shared by the CLI, data sources and engine.
package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// New returns a text logger on stderr at Info, or Debug when debug is set.
func New(debug bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	logger.SetLevel(logrus.InfoLevel)
	if debug {
		logger.SetLevel(logrus.DebugLevel)
	}
	return logger
}

// NewJSON writes JSON lines to w, for run logs kept next to exported results.
func NewJSON(w io.Writer, debug bool) *logrus.Logger {
	logger := New(debug)
	logger.SetOutput(w)
	logger.SetFormatter(&logrus.JSONFormatter{})
	return logger
}

// Discard drops everything; used where output would interfere with interactive prompts.
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
