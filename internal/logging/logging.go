// Package logging builds the process loggers.
//
// Every component takes a *log.Logger. New returns a factory for them that
// writes to stderr when verbose and to a size-rotated file when a log file is
// configured.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation limits for the log file.
const (
	MaxSizeMB  = 10
	MaxBackups = 3
	MaxAgeDays = 28
)

// Options configure the loggers.
type Options struct {
	// File enables file logging when non-empty.
	File string

	// Verbose sends logs to stderr. When false and File is empty, logs are
	// discarded.
	Verbose bool

	// Stderr overrides os.Stderr, for tests.
	Stderr io.Writer
}

// Factory hands out per-component loggers sharing one output.
type Factory struct {
	out  io.Writer
	file *lumberjack.Logger
}

// New creates a Factory. The caller must Close it.
func New(opts Options) (*Factory, error) {
	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	var writers []io.Writer
	if opts.Verbose {
		writers = append(writers, stderr)
	}

	f := &Factory{}
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		f.file = &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    MaxSizeMB,
			MaxBackups: MaxBackups,
			MaxAge:     MaxAgeDays,
			Compress:   true,
		}
		writers = append(writers, f.file)
	}

	switch len(writers) {
	case 0:
		f.out = io.Discard
	case 1:
		f.out = writers[0]
	default:
		f.out = io.MultiWriter(writers...)
	}
	return f, nil
}

// Logger returns a logger with the bracketed component prefix, e.g. "[sync] ".
func (f *Factory) Logger(component string) *log.Logger {
	return log.New(f.out, "["+component+"] ", log.LstdFlags)
}

// Writer returns the shared output.
func (f *Factory) Writer() io.Writer {
	return f.out
}

// Close closes the log file, if any.
func (f *Factory) Close() error {
	if f.file == nil {
		return nil
	}
	return f.file.Close()
}
