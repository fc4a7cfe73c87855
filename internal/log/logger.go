package log

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"assistantsproxy/internal/core"
)

// LogLevel defines the severity level for log messages.
type LogLevel int

// Log level constants.
const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

var levelPrefixes = map[LogLevel]string{
	DEBUG: "[DEBUG] ",
	INFO:  "[INFO] ",
	WARN:  "[WARN] ",
	ERROR: "[ERROR] ",
	FATAL: "[FATAL] ",
}

// bootstrap reports problems that happen before the app logger exists.
var bootstrap = log.New(os.Stderr, "", log.LstdFlags)

// ParseLevel maps a LOG_LEVEL value to a LogLevel, defaulting to INFO.
func ParseLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DEBUG
	case "warn", "warning":
		return WARN
	case "error":
		return ERROR
	default:
		return INFO
	}
}

// AppLogger is the application logger implementation.
type AppLogger struct {
	logger     *log.Logger
	level      LogLevel
	fileHandle *os.File
	mu         sync.RWMutex
}

// NewAppLoggerWithConfig creates a logger writing to output at the given minimum level.
func NewAppLoggerWithConfig(output io.Writer, level LogLevel) *AppLogger {
	return &AppLogger{
		logger: log.New(output, "", log.LstdFlags),
		level:  level,
	}
}

func (l *AppLogger) logf(level LogLevel, format string, args ...any) {
	if l == nil || level < l.level {
		return
	}
	l.logger.Printf(levelPrefixes[level]+format, args...)
}

// Debug logs a message at DEBUG level.
func (l *AppLogger) Debug(format string, args ...any) {
	l.logf(DEBUG, format, args...)
}

// Info logs a message at INFO level.
func (l *AppLogger) Info(format string, args ...any) {
	l.logf(INFO, format, args...)
}

// Warn logs a message at WARN level.
func (l *AppLogger) Warn(format string, args ...any) {
	l.logf(WARN, format, args...)
}

// Error logs a message at ERROR level.
func (l *AppLogger) Error(format string, args ...any) {
	l.logf(ERROR, format, args...)
}

// Fatal logs a message at FATAL level and terminates the process.
func (l *AppLogger) Fatal(format string, args ...any) {
	if l != nil {
		l.logger.Fatalf(levelPrefixes[FATAL]+format, args...)
	}
	bootstrap.Fatalf(levelPrefixes[FATAL]+format, args...)
}

// Close safely closes log file handle.
func (l *AppLogger) Close() error {
	if l == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.fileHandle != nil {
		err := l.fileHandle.Close()
		l.fileHandle = nil
		return err
	}
	return nil
}

// containsPathTraversal reports whether path climbs out of its starting directory.
func containsPathTraversal(path string) bool {
	if path == "" {
		return false
	}
	normalized := strings.ReplaceAll(path, "\\", "/")
	for _, part := range strings.Split(normalized, "/") {
		if part == ".." {
			return true
		}
	}
	return false
}

// createFileOutput opens LOG_FILE for appending, falling back to stdout on any problem.
func createFileOutput() (io.Writer, *os.File) {
	logFile := os.Getenv("LOG_FILE")
	if logFile == "" {
		return os.Stdout, nil
	}

	if len(logFile) > core.MaxLogFilePathLength {
		bootstrap.Print("[WARN] LOG_FILE path too long, falling back to stdout")
		return os.Stdout, nil
	}

	if containsPathTraversal(logFile) {
		bootstrap.Print("[WARN] LOG_FILE contains path traversal, falling back to stdout")
		return os.Stdout, nil
	}

	//nolint:gosec // G304: path from env var, validated above
	file, err := os.OpenFile(filepath.Clean(logFile), os.O_CREATE|os.O_WRONLY|os.O_APPEND, core.FilePermissionReadWrite)
	if err != nil {
		bootstrap.Printf("[WARN] Failed to open LOG_FILE '%s': %v, falling back to stdout", logFile, err)
		return os.Stdout, nil
	}

	return io.MultiWriter(os.Stdout, file), file
}

// IsDebug returns whether the app is running in debug mode.
func IsDebug() bool {
	return os.Getenv("GIN_MODE") == "debug" || ParseLevel(os.Getenv("LOG_LEVEL")) == DEBUG
}

// CreateLogger creates a logger instance (for dependency injection).
func CreateLogger() core.Logger {
	level := ParseLevel(os.Getenv("LOG_LEVEL"))
	if IsDebug() {
		level = DEBUG
	}
	output, fileHandle := createFileOutput()

	return &AppLogger{
		logger:     log.New(output, "", log.LstdFlags),
		level:      level,
		fileHandle: fileHandle,
	}
}
