package common

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/dthrottle/spy-leaps-monitor/internal/logger"
	"github.com/dthrottle/spy-leaps-monitor/pkg/storage"
)

const (
	DefaultDataRoot   = "data"
	DefaultSQLitePath = "data/leaps.db"
)

// LoadEnvFile loads environment variables from a file. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("could not load environment file %s: %w", path, err)
	}
	return nil
}

// EnvFileFromArgs finds -env/--env in args before flags are parsed, so the
// file can seed flag defaults
func EnvFileFromArgs(args []string) string {
	for i, arg := range args {
		name := strings.TrimLeft(arg, "-")
		if name == arg {
			continue
		}
		if value, ok := strings.CutPrefix(name, "env="); ok {
			return value
		}
		if name == "env" && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ".env"
}

// GetEnvWithDefault gets an environment variable with a default value
func GetEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// NewLogger creates the process logger from the common flags
func NewLogger(name string, f *CommonFlags) (*logger.Logger, error) {
	cfg := logger.DefaultConfig(name)
	cfg.Dir = *f.LogDir
	cfg.Level = *f.LogLevel
	return logger.NewLogger(cfg)
}

// OpenStore opens the run store named by the common flags, creating the
// sqlite directory when needed
func OpenStore(f *CommonFlags, log *logger.Logger) (*storage.Store, error) {
	if *f.DBDriver == storage.DriverSQLite {
		if dir := parentDir(*f.DBDSN); dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
			}
		}
	}
	return storage.Open(*f.DBDriver, *f.DBDSN, log)
}

func parentDir(dsn string) string {
	if dsn == "" || dsn == ":memory:" || strings.HasPrefix(dsn, "file:") {
		return ""
	}
	if i := strings.LastIndexAny(dsn, `/\`); i > 0 {
		return dsn[:i]
	}
	return ""
}
