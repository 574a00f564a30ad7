// Package jlog is a thin wrapper around the standard log package for
// plain status output, gated by verbose/quiet flags instead of a
// structured logging dependency.
package jlog

import (
	"log"
	"os"
)

// Logger gates status/verbose output behind Verbose and Quiet flags.
type Logger struct {
	std     *log.Logger
	Verbose bool
	Quiet   bool
}

// New returns a Logger writing to stderr with no timestamp prefix,
// matching the CLI-tool convention of plain status lines.
func New() *Logger {
	return &Logger{std: log.New(os.Stderr, "", 0)}
}

// Status prints unless Quiet is set and Verbose is not.
func (l *Logger) Status(format string, args ...any) {
	if l.Quiet && !l.Verbose {
		return
	}
	l.std.Printf(format, args...)
}

// Verbosef prints only when Verbose is set.
func (l *Logger) Verbosef(format string, args ...any) {
	if !l.Verbose {
		return
	}
	l.std.Printf(format, args...)
}

// Errorf always prints, regardless of Quiet/Verbose.
func (l *Logger) Errorf(format string, args ...any) {
	l.std.Printf(format, args...)
}
