package logger

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// LogLevel represents the severity of a log message
type LogLevel int

const (
	// LevelDebug is for verbose debugging information
	LevelDebug LogLevel = iota
	// LevelInfo is for general operational information
	LevelInfo
	// LevelWarn is for warning conditions
	LevelWarn
	// LevelError is for error conditions
	LevelError
)

func (l LogLevel) toSlogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var (
	slogLogger   *slog.Logger
	levelVar     = new(slog.LevelVar)
	logFile      *os.File
	mu           sync.Mutex
	once         sync.Once
	logPath      string
	initDone     bool
	currentLevel LogLevel = LevelInfo
)

// DefaultLogPath is the log file for the TUI process. The TUI owns the
// terminal, so nothing is ever written to stdout or stderr.
var DefaultLogPath = filepath.Join(os.TempDir(), "parley-debug.log")

// ServeLogPath is the log file for `parley serve`.
var ServeLogPath = filepath.Join(os.TempDir(), "parley-serve.log")

// SetLevel sets the minimum log level to output
func SetLevel(level LogLevel) {
	mu.Lock()
	defer mu.Unlock()
	currentLevel = level
	levelVar.Set(level.toSlogLevel())
}

// SetDebug enables debug level logging
func SetDebug(enabled bool) {
	if enabled {
		SetLevel(LevelDebug)
	} else {
		SetLevel(LevelInfo)
	}
}

// Init initializes the logger with a custom path. Call it before logging.
// If not called, DefaultLogPath is used on first use.
func Init(path string) error {
	mu.Lock()
	defer mu.Unlock()

	if initDone {
		return nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", path, err)
	}
	install(path, f)
	return nil
}

func install(path string, f *os.File) {
	logPath = path
	logFile = f
	levelVar.Set(currentLevel.toSlogLevel())
	handler := slog.NewTextHandler(f, &slog.HandlerOptions{Level: levelVar})
	slogLogger = slog.New(handler)
	initDone = true

	slogLogger.Info("Logger initialized", "path", path)
}

func ensureInit() {
	if initDone {
		return
	}
	once.Do(func() {
		f, err := os.OpenFile(DefaultLogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			// Print to stderr since we can't log
			fmt.Fprintf(os.Stderr, "Warning: failed to open log file %s: %v\n", DefaultLogPath, err)
			return
		}
		install(DefaultLogPath, f)
	})
}

// Path returns the file the logger writes to, or "" before initialization.
func Path() string {
	mu.Lock()
	defer mu.Unlock()
	return logPath
}

func logWithLevel(level slog.Level, format string, args ...interface{}) {
	mu.Lock()
	defer mu.Unlock()

	ensureInit()

	if slogLogger == nil {
		return
	}
	if !slogLogger.Enabled(context.Background(), level) {
		return
	}

	slogLogger.Log(context.Background(), level, fmt.Sprintf(format, args...))
}

// Debug writes a debug message to the log file (only if level is LevelDebug)
func Debug(format string, args ...interface{}) {
	logWithLevel(slog.LevelDebug, format, args...)
}

// Warn writes a warning message to the log file
func Warn(format string, args ...interface{}) {
	logWithLevel(slog.LevelWarn, format, args...)
}

// Close closes the log file
func Close() {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
	slogLogger = nil
}

// Reset resets the logger state, allowing reinitialization.
// This is primarily for testing purposes.
func Reset() {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
	initDone = false
	once = sync.Once{}
	logPath = ""
	slogLogger = nil
	currentLevel = LevelInfo
	levelVar = new(slog.LevelVar)
}

// ClearLogs removes the parley log files from the temp directory.
func ClearLogs() (int, error) {
	count := 0
	for _, p := range []string{DefaultLogPath, ServeLogPath} {
		if err := os.Remove(p); err == nil {
			count++
		} else if !os.IsNotExist(err) {
			return count, err
		}
	}
	return count, nil
}

func with(attr slog.Attr) *slog.Logger {
	mu.Lock()
	defer mu.Unlock()

	ensureInit()

	if slogLogger == nil {
		return slog.Default()
	}
	return slogLogger.With(attr)
}

// ComponentLogger returns a slog.Logger with the component attribute pre-attached.
//
// Example:
//
//	log := logger.ComponentLogger("Relay")
//	log.Info("client connected", "remote", addr)
func ComponentLogger(component string) *slog.Logger {
	return with(slog.String("component", component))
}

// WithChat returns a slog.Logger with the chat ID pre-attached.
func WithChat(chatID string) *slog.Logger {
	return with(slog.String("chatID", chatID))
}
