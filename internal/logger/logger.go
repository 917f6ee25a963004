// Package logger holds the process-wide structured logger. The terminal is
// owned by the TUI, so records go to a file.
package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

var (
	Log *slog.Logger

	mu   sync.Mutex
	file *os.File
)

// ParseLevel maps "debug", "info", "warn" and "error" to a slog level.
// Anything else is Info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Init points the global logger at path. When the file cannot be opened
// records are discarded.
func Init(level, path string) error {
	mu.Lock()
	defer mu.Unlock()

	closeLocked()

	var w io.Writer = io.Discard
	var openErr error
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			openErr = err
		} else if f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600); err != nil {
			openErr = err
		} else {
			file = f
			w = f
		}
	}

	Log = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)}))
	return openErr
}

// InitWriter points the global logger at w. Used by tests and the ask
// command's --verbose flag.
func InitWriter(level string, w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	closeLocked()
	Log = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)}))
}

// Close flushes and releases the log file.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	closeLocked()
}

func closeLocked() {
	if file != nil {
		_ = file.Sync()
		_ = file.Close()
		file = nil
	}
}

// Debug logs with slog-style key/value pairs.
func Debug(msg string, args ...any) {
	if Log == nil {
		return
	}
	Log.Debug(msg, args...)
}

// Info logs with slog-style key/value pairs.
func Info(msg string, args ...any) {
	if Log == nil {
		return
	}
	Log.Info(msg, args...)
}

// Warn logs with slog-style key/value pairs.
func Warn(msg string, args ...any) {
	if Log == nil {
		return
	}
	Log.Warn(msg, args...)
}

// Error logs with slog-style key/value pairs.
func Error(msg string, args ...any) {
	if Log == nil {
		return
	}
	Log.Error(msg, args...)
}
