package common

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/dthrottle/spy-leaps-monitor/pkg/storage"
	"github.com/dthrottle/spy-leaps-monitor/pkg/types"
)

// CommonFlags contains flags shared by the backtest CLI and the API server
type CommonFlags struct {
	// Environment and configuration
	EnvFile    *string
	ConfigFile *string
	DataRoot   *string

	// Storage
	DBDriver *string
	DBDSN    *string

	// Logging
	LogDir   *string
	LogLevel *string

	// Help and version
	Version *bool
	Help    *bool
}

// RegisterCommonFlags registers common flags with the default flag set.
// Storage defaults come from LEAPS_DB_DRIVER and LEAPS_DB_DSN, so call it after LoadEnvFile.
func RegisterCommonFlags() *CommonFlags {
	return &CommonFlags{
		EnvFile:    flag.String("env", ".env", "Environment file path"),
		ConfigFile: flag.String("config", "", "Strategy config file (JSON, YAML or TOML)"),
		DataRoot:   flag.String("data-root", GetEnvWithDefault("LEAPS_DATA_ROOT", DefaultDataRoot), "Directory holding {SYMBOL}.csv files"),

		DBDriver: flag.String("db-driver", GetEnvWithDefault("LEAPS_DB_DRIVER", storage.DriverSQLite), "Database driver (sqlite, postgres)"),
		DBDSN:    flag.String("db-dsn", GetEnvWithDefault("LEAPS_DB_DSN", DefaultSQLitePath), "Database DSN (file path for sqlite)"),

		LogDir:   flag.String("log-dir", "logs", "Log directory"),
		LogLevel: flag.String("log-level", GetEnvWithDefault("LEAPS_LOG_LEVEL", "info"), "Log level (debug, info, warn, error)"),

		Version: flag.Bool("version", false, "Show version information"),
		Help:    flag.Bool("help", false, "Show help information"),
	}
}

// Validate checks the common flags
func (f *CommonFlags) Validate(v *FlagValidator) *FlagValidator {
	return v.
		ValidateChoice("db-driver", *f.DBDriver, []string{storage.DriverSQLite, storage.DriverPostgres}).
		ValidateChoice("log-level", strings.ToLower(*f.LogLevel), []string{"debug", "info", "warn", "error"}).
		ValidateFile("config", *f.ConfigFile, false)
}

// FlagValidator collects flag validation errors
type FlagValidator struct {
	errors []string
}

// NewFlagValidator creates a new flag validator
func NewFlagValidator() *FlagValidator {
	return &FlagValidator{
		errors: make([]string, 0),
	}
}

// ValidateInt validates an int flag value
func (v *FlagValidator) ValidateInt(name string, value int, min, max int) *FlagValidator {
	if value < min || value > max {
		v.errors = append(v.errors, fmt.Sprintf("%s must be between %d and %d, got: %d", name, min, max, value))
	}
	return v
}

// ValidateChoice validates that a string is one of the allowed choices
func (v *FlagValidator) ValidateChoice(name, value string, choices []string) *FlagValidator {
	for _, choice := range choices {
		if value == choice {
			return v
		}
	}
	v.errors = append(v.errors, fmt.Sprintf("%s must be one of [%s], got: %s", name, strings.Join(choices, ", "), value))
	return v
}

// ValidateFile validates that a file exists
func (v *FlagValidator) ValidateFile(name, path string, required bool) *FlagValidator {
	if path == "" {
		if required {
			v.errors = append(v.errors, fmt.Sprintf("%s is required", name))
		}
		return v
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		v.errors = append(v.errors, fmt.Sprintf("%s file does not exist: %s", name, path))
	}
	return v
}

// ValidateDate validates a YYYY-MM-DD flag value; empty is allowed
func (v *FlagValidator) ValidateDate(name, value string) *FlagValidator {
	if value == "" {
		return v
	}
	if _, err := types.ParseDate(value); err != nil {
		v.errors = append(v.errors, fmt.Sprintf("%s must be YYYY-MM-DD, got: %s", name, value))
	}
	return v
}

// AddError adds a custom validation error
func (v *FlagValidator) AddError(message string) *FlagValidator {
	v.errors = append(v.errors, message)
	return v
}

// HasErrors returns true if there are validation errors
func (v *FlagValidator) HasErrors() bool {
	return len(v.errors) > 0
}

// GetError returns a formatted error message with all validation errors
func (v *FlagValidator) GetError() error {
	if len(v.errors) == 0 {
		return nil
	}

	if len(v.errors) == 1 {
		return fmt.Errorf("validation error: %s", v.errors[0])
	}

	return fmt.Errorf("validation errors:\n  - %s", strings.Join(v.errors, "\n  - "))
}
