// Package logger provides process-wide structured logging for newsdigest.
//
// Messages go through a single log/slog logger writing text records to
// stderr. Warnings are always emitted; debug and info messages appear only
// when verbose mode is enabled via the --verbose flag.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
)

var (
	mu      sync.RWMutex
	verbose bool
	level   = new(slog.LevelVar)
	out     = &swapWriter{w: os.Stderr}
	base    = slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
)

func init() {
	level.Set(slog.LevelWarn)
}

// swapWriter lets SetOutput redirect a logger that services already hold.
type swapWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *swapWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

func (s *swapWriter) set(w io.Writer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.w = w
}

// Logger returns the shared structured logger.
func Logger() *slog.Logger {
	return base
}

// With returns the shared logger annotated with a component name.
func With(component string) *slog.Logger {
	return base.With(slog.String("component", component))
}

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
	if v {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelWarn)
	}
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the output writer for logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	out.set(w)
}

// Debug logs a formatted message at debug level.
func Debug(format string, args ...any) {
	base.Debug(fmt.Sprintf(format, args...))
}

// Section logs a pipeline section marker at debug level.
func Section(name string) {
	base.Debug("section", slog.String("name", name))
}

// Info logs a formatted message at info level.
func Info(format string, args ...any) {
	base.Info(fmt.Sprintf(format, args...))
}

// Warn logs a formatted message at warn level.
func Warn(format string, args ...any) {
	base.Warn(fmt.Sprintf(format, args...))
}
