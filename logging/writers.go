//
// (C) Copyright 2025 Intel Corporation.
//
// SPDX-License-Identifier: BSD-2-Clause-Patent
//

package logging

import (
	"fmt"
	"io"
	"log"
	"os"
)

const (
	logOutputDepth = 3
	emptyLogFlags  = 0
	debugLogFlags  = log.Lmicroseconds | log.Lshortfile
	infoLogFlags   = log.LstdFlags
	errorLogFlags  = log.LstdFlags
)

type baseLogger struct {
	log *log.Logger
}

func (bl *baseLogger) output(msg string) {
	if err := bl.log.Output(logOutputDepth, msg); err != nil {
		fmt.Fprintf(os.Stderr, "logger output failed: %s\n", err)
	}
}

// DefaultDebugLogger implements the DebugLogger interface.
type DefaultDebugLogger struct {
	baseLogger
}

// NewDebugLogger returns a DebugLogger configured for outputting
// debugging messages.
func NewDebugLogger(dest io.Writer) *DefaultDebugLogger {
	return &DefaultDebugLogger{
		baseLogger{log: log.New(dest, "DEBUG ", debugLogFlags)},
	}
}

// Debugf emits a formatted debug message.
func (l *DefaultDebugLogger) Debugf(format string, args ...interface{}) {
	l.output(fmt.Sprintf(format, args...))
}

// DefaultInfoLogger implements the InfoLogger interface.
type DefaultInfoLogger struct {
	baseLogger
}

// NewInfoLogger returns an InfoLogger configured for outputting
// informational messages with standard formatting (e.g. to stderr,
// logfile, etc.)
func NewInfoLogger(prefix string, dest io.Writer) *DefaultInfoLogger {
	if prefix != "" {
		prefix += " "
	}
	return &DefaultInfoLogger{
		baseLogger{log: log.New(dest, prefix+"INFO ", infoLogFlags)},
	}
}

// NewCommandLineInfoLogger returns an InfoLogger configured
// for outputting unadorned informational messages (i.e. no
// timestamps, source info, etc); typically used for CLI
// utility logging.
func NewCommandLineInfoLogger(dest io.Writer) *DefaultInfoLogger {
	return &DefaultInfoLogger{
		baseLogger{log: log.New(dest, "", emptyLogFlags)},
	}
}

// Infof emits a formatted informational message.
func (l *DefaultInfoLogger) Infof(format string, args ...interface{}) {
	l.output(fmt.Sprintf(format, args...))
}

// DefaultErrorLogger implements the ErrorLogger interface.
type DefaultErrorLogger struct {
	baseLogger
}

// NewErrorLogger returns an ErrorLogger configured for outputting
// error messages with standard formatting.
func NewErrorLogger(prefix string, dest io.Writer) *DefaultErrorLogger {
	if prefix != "" {
		prefix += " "
	}
	return &DefaultErrorLogger{
		baseLogger{log: log.New(dest, prefix+"ERROR ", errorLogFlags)},
	}
}

// NewCommandLineErrorLogger returns an ErrorLogger configured
// for outputting unadorned error messages; typically used for
// CLI utility logging.
func NewCommandLineErrorLogger(dest io.Writer) *DefaultErrorLogger {
	return &DefaultErrorLogger{
		baseLogger{log: log.New(dest, "ERROR: ", emptyLogFlags)},
	}
}

// Errorf emits a formatted error message.
func (l *DefaultErrorLogger) Errorf(format string, args ...interface{}) {
	l.output(fmt.Sprintf(format, args...))
}
