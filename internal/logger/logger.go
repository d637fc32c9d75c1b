// Package logger provides the process-wide structured logger. Library code
// logs driver traffic through Device sub-loggers so every line names the
// node it came from.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

var Logger *log.Logger

func init() {
	Logger = log.NewWithOptions(os.Stderr, log.Options{
		Prefix: "cedardisp",
	})

	// LOG_LEVEL is only a default; a bad value must not stop the program
	if err := SetLevel(os.Getenv("LOG_LEVEL")); err != nil {
		Logger.Warn("ignoring LOG_LEVEL", "err", err)
	}
}

// SetLevel applies a level name (debug, info, warn, error). Empty means
// info. Debug also stamps lines with the time, which helps when lining
// log output up with driver traces.
func SetLevel(name string) error {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = "info"
	}
	if name == "warning" {
		name = "warn"
	}
	lvl, err := log.ParseLevel(name)
	if err != nil {
		return fmt.Errorf("log level %q: %w", name, err)
	}
	Logger.SetLevel(lvl)
	Logger.SetReportTimestamp(lvl == log.DebugLevel)
	return nil
}

// SetOutput redirects the logger, mostly for tests.
func SetOutput(w io.Writer) {
	Logger.SetOutput(w)
}

// Device returns a sub-logger tagged with a device node path.
func Device(node string) *log.Logger {
	return Logger.With("dev", node)
}

// Convenience functions for common operations
func Info(msg interface{}, keyvals ...interface{}) {
	Logger.Info(msg, keyvals...)
}

func Debug(msg interface{}, keyvals ...interface{}) {
	Logger.Debug(msg, keyvals...)
}

func Warn(msg interface{}, keyvals ...interface{}) {
	Logger.Warn(msg, keyvals...)
}

func Error(msg interface{}, keyvals ...interface{}) {
	Logger.Error(msg, keyvals...)
}

func Infof(format string, args ...interface{}) {
	Logger.Infof(format, args...)
}

func Debugf(format string, args ...interface{}) {
	Logger.Debugf(format, args...)
}

func Warnf(format string, args ...interface{}) {
	Logger.Warnf(format, args...)
}

func Errorf(format string, args ...interface{}) {
	Logger.Errorf(format, args...)
}
