// Package logger provides levelled logging for docsearch.
// By default only errors are printed; --verbose enables debug output so users
// can follow artifact loading, token map construction and query execution.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Level is a logging threshold.
type Level int

// Available levels, from most to least verbose.
const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the tag printed in front of messages.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "?"
	}
}

var (
	mu         sync.RWMutex
	level                = LevelError
	output     io.Writer = os.Stderr
	timestamps bool
)

// SetVerbose enables or disables verbose (debug) logging.
func SetVerbose(v bool) {
	if v {
		SetLevel(LevelDebug)
		return
	}
	SetLevel(LevelError)
}

// IsVerbose returns true if debug messages are printed.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return level <= LevelDebug
}

// SetLevel sets the minimum level that is printed.
func SetLevel(l Level) {
	mu.Lock()
	defer mu.Unlock()
	level = l
}

// SetOutput sets the output writer.
// Defaults to os.Stderr. Useful for testing and for the TUI, which owns the terminal.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// SetTimestamps prefixes every line with the wall clock time.
// Long-running commands (mcp serve, worker) turn this on.
func SetTimestamps(v bool) {
	mu.Lock()
	defer mu.Unlock()
	timestamps = v
}

func logf(l Level, format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if l < level {
		return
	}
	prefix := "[" + l.String() + "] "
	if timestamps {
		prefix = time.Now().Format("15:04:05.000") + " " + prefix
	}
	fmt.Fprintf(output, prefix+format+"\n", args...)
}

// Debug prints a message if verbose mode is enabled.
func Debug(format string, args ...any) {
	logf(LevelDebug, format, args...)
}

// Info prints an informational message.
func Info(format string, args ...any) {
	logf(LevelInfo, format, args...)
}

// Warn prints a warning message.
func Warn(format string, args ...any) {
	logf(LevelWarn, format, args...)
}

// Error prints an error message. Errors are printed at every level.
func Error(format string, args ...any) {
	logf(LevelError, format, args...)
}

// Section prints a section header if verbose mode is enabled.
func Section(name string) {
	mu.RLock()
	defer mu.RUnlock()
	if level <= LevelDebug {
		fmt.Fprintf(output, "\n=== %s ===\n", name)
	}
}
