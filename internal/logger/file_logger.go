package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// LogLevel represents different types of log entries
type LogLevel string

const (
	LogLevelInfo    LogLevel = "INFO"
	LogLevelWarning LogLevel = "WARN"
	LogLevelError   LogLevel = "ERROR"
	LogLevelTrade   LogLevel = "TRADE"
	LogLevelStatus  LogLevel = "STATUS"
)

// Custom slog levels for trade and status lines, both above INFO
const (
	levelTrade  = slog.LevelInfo + 1
	levelStatus = slog.LevelInfo + 2
)

// Config controls where log lines go and how the log file rotates
type Config struct {
	Dir        string
	Name       string
	Level      string
	Console    bool
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// DefaultConfig returns a logger config writing logs/<name>.log and the console
func DefaultConfig(name string) Config {
	return Config{
		Dir:        "logs",
		Name:       name,
		Level:      "info",
		Console:    true,
		MaxSizeMB:  50,
		MaxBackups: 5,
		MaxAgeDays: 30,
	}
}

// Logger is a levelled logger for backtest runs
type Logger struct {
	name    string
	logger  *slog.Logger
	rotator *lumberjack.Logger
	logPath string
	mu      sync.Mutex
}

// NewLogger creates a logger writing to a rotating file and optionally stdout
func NewLogger(cfg Config) (*Logger, error) {
	if cfg.Name == "" {
		cfg.Name = "leaps"
	}
	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	logPath := filepath.Join(cfg.Dir, cfg.Name+".log")
	rotator := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
	}

	var out io.Writer = rotator
	if cfg.Console {
		out = io.MultiWriter(os.Stdout, rotator)
	}

	l := &Logger{
		name:    cfg.Name,
		logger:  slog.New(newHandler(out, parseLevel(cfg.Level))),
		rotator: rotator,
		logPath: logPath,
	}
	l.writeSessionHeader()
	return l, nil
}

// NewWithWriter creates a logger that writes text lines to w
func NewWithWriter(w io.Writer, name string) *Logger {
	return &Logger{
		name:   name,
		logger: slog.New(newHandler(w, slog.LevelInfo)),
	}
}

// Discard returns a logger that drops everything
func Discard() *Logger {
	return NewWithWriter(io.Discard, "discard")
}

func newHandler(w io.Writer, level slog.Level) slog.Handler {
	return slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			switch a.Key {
			case slog.TimeKey:
				a.Value = slog.StringValue(a.Value.Time().Format("2006-01-02 15:04:05"))
			case slog.LevelKey:
				if lvl, ok := a.Value.Any().(slog.Level); ok {
					a.Value = slog.StringValue(string(levelName(lvl)))
				}
			}
			return a
		},
	})
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
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

func levelName(lvl slog.Level) LogLevel {
	switch lvl {
	case levelTrade:
		return LogLevelTrade
	case levelStatus:
		return LogLevelStatus
	case slog.LevelWarn:
		return LogLevelWarning
	case slog.LevelError:
		return LogLevelError
	default:
		return LogLevelInfo
	}
}

func slogLevel(level LogLevel) slog.Level {
	switch level {
	case LogLevelTrade:
		return levelTrade
	case LogLevelStatus:
		return levelStatus
	case LogLevelWarning:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// writeSessionHeader writes a session start header to the log
func (l *Logger) writeSessionHeader() {
	l.Status("🚀 LEAPS BACKTEST SESSION STARTED (%s, log %s)", l.name, l.logPath)
}

// Log writes a formatted log entry with the specified level
func (l *Logger) Log(level LogLevel, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.logger.Log(context.Background(), slogLevel(level), fmt.Sprintf(format, args...))
}

// Info logs an info message
func (l *Logger) Info(format string, args ...interface{}) {
	l.Log(LogLevelInfo, format, args...)
}

// Warning logs a warning message
func (l *Logger) Warning(format string, args ...interface{}) {
	l.Log(LogLevelWarning, format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.Log(LogLevelError, format, args...)
}

// Trade logs a simulated trade or signal
func (l *Logger) Trade(format string, args ...interface{}) {
	l.Log(LogLevelTrade, format, args...)
}

// Status logs run progress
func (l *Logger) Status(format string, args ...interface{}) {
	l.Log(LogLevelStatus, format, args...)
}

// With returns a logger that adds the given key/value pairs to every line
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		name:    l.name,
		logger:  l.logger.With(args...),
		rotator: l.rotator,
		logPath: l.logPath,
	}
}

// LogRunSummary logs the headline numbers of a finished run
func (l *Logger) LogRunSummary(runID string, totalReturn, maxDrawdown float64, trades, signals int, elapsed time.Duration) {
	l.Status("✅ Run %s finished in %s: return %.2f%%, max drawdown %.2f%%, %d trades, %d signals",
		runID, elapsed.Round(time.Millisecond), totalReturn*100, maxDrawdown*100, trades, signals)
}

// LogError logs error with context
func (l *Logger) LogError(context string, err error) {
	l.Error("%s: %v", context, err)
}

// Close writes a session footer and closes the log file
func (l *Logger) Close() error {
	if l.rotator == nil {
		return nil
	}
	l.Status("🛑 LEAPS BACKTEST SESSION ENDED")
	return l.rotator.Close()
}

// GetLogPath returns the current log file path
func (l *Logger) GetLogPath() string {
	return l.logPath
}
