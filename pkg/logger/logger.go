package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Level represents the severity of a log message.
type Level int

const (
	// DEBUG level for detailed debugging information
	DEBUG Level = iota
	// INFO level for general informational messages
	INFO
	// WARN level for warning messages
	WARN
	// ERROR level for error messages
	ERROR
)

// String returns the string representation of the level.
func (l Level) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel parses a string to a Level. Unknown strings map to INFO.
func ParseLevel(level string) Level {
	switch level {
	case "DEBUG", "debug":
		return DEBUG
	case "WARN", "warn":
		return WARN
	case "ERROR", "error":
		return ERROR
	default:
		return INFO
	}
}

// Logger is a thread-safe leveled logger writing to console and
// optionally a file.
type Logger struct {
	mu      sync.Mutex
	level   Level
	prefix  string
	console io.Writer
	file    io.Writer
}

// Config contains logger configuration.
type Config struct {
	Level    Level  // Minimum level to output
	Prefix   string // Prefix for all log messages
	FilePath string // Path to log file (empty = console only)
}

// New creates a logger from the given configuration.
func New(cfg Config) (*Logger, error) {
	l := &Logger{
		level:   cfg.Level,
		prefix:  cfg.Prefix,
		console: os.Stderr,
	}

	if cfg.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		file, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		l.file = file
	}

	return l, nil
}

// NewDefault creates a console-only logger at INFO level.
func NewDefault() *Logger {
	l, _ := New(Config{Level: INFO, Prefix: "[vcce] "})
	return l
}

// SetLevel sets the minimum level.
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// SetConsole redirects console output. Used by tests.
func (l *Logger) SetConsole(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.console = w
}

// Close closes the log file if one is open.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if closer, ok := l.file.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func (l *Logger) log(level Level, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level < l.level {
		return
	}

	msg := fmt.Sprintf(format, args...)
	line := fmt.Sprintf("%s%s [%s] %s\n", l.prefix, time.Now().Format("2006-01-02 15:04:05"), level, msg)

	if l.console != nil {
		l.console.Write([]byte(line))
	}
	if l.file != nil {
		l.file.Write([]byte(line))
	}
}

// Debug logs a debug message.
func (l *Logger) Debug(format string, args ...any) { l.log(DEBUG, format, args...) }

// Info logs an info message.
func (l *Logger) Info(format string, args ...any) { l.log(INFO, format, args...) }

// Warn logs a warning message.
func (l *Logger) Warn(format string, args ...any) { l.log(WARN, format, args...) }

// Error logs an error message.
func (l *Logger) Error(format string, args ...any) { l.log(ERROR, format, args...) }
