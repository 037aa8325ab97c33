package core

import (
	"io"
	"log"
)

// Logger interface for raytracer logging
type Logger interface {
	Printf(format string, args ...interface{})
}

// StdLogger writes through a standard library log.Logger
type StdLogger struct {
	logger *log.Logger
}

// NewStdLogger creates a logger writing to w with the given prefix
func NewStdLogger(w io.Writer, prefix string) *StdLogger {
	return &StdLogger{logger: log.New(w, prefix, log.LstdFlags)}
}

// Printf implements Logger
func (l *StdLogger) Printf(format string, args ...interface{}) {
	l.logger.Printf(format, args...)
}

// NopLogger discards everything
type NopLogger struct{}

// Printf implements Logger
func (NopLogger) Printf(string, ...interface{}) {}
