// Package logger provides leveled logging for the classtow CLI. Messages go
// to stderr; the --verbose flag enables debug output.
package logger

import (
	"io"
	"os"

	charmlog "github.com/charmbracelet/log"
)

var std = charmlog.NewWithOptions(os.Stderr, charmlog.Options{
	ReportTimestamp: true,
	Level:           charmlog.InfoLevel,
})

// SetVerbose enables or disables debug logging.
func SetVerbose(v bool) {
	if v {
		std.SetLevel(charmlog.DebugLevel)
	} else {
		std.SetLevel(charmlog.InfoLevel)
	}
}

// IsVerbose returns true if debug logging is enabled.
func IsVerbose() bool {
	return std.GetLevel() <= charmlog.DebugLevel
}

// SetOutput sets the log output writer. Useful for testing.
func SetOutput(w io.Writer) {
	std.SetOutput(w)
}

// Debug logs a formatted debug message.
func Debug(format string, args ...any) {
	std.Debugf(format, args...)
}

// Info logs a formatted informational message.
func Info(format string, args ...any) {
	std.Infof(format, args...)
}

// Warn logs a formatted warning.
func Warn(format string, args ...any) {
	std.Warnf(format, args...)
}

// Error logs a formatted error message.
func Error(format string, args ...any) {
	std.Errorf(format, args...)
}
