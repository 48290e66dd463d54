package data

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/dthrottle/spy-leaps-monitor/internal/logger"
)

// DefaultFileLocator implements FileLocator for standard file system operations
type DefaultFileLocator struct {
	log *logger.Logger
}

// NewDefaultFileLocator creates a new default file locator
func NewDefaultFileLocator(log *logger.Logger) *DefaultFileLocator {
	if log == nil {
		log = logger.Discard()
	}
	return &DefaultFileLocator{log: log}
}

// FileSymbol turns a ticker into a file-system friendly name: ^VIX -> VIX
func FileSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimLeft(strings.TrimSpace(symbol), "^"))
}

// FindDataFile attempts to locate the daily CSV of symbol.
// Checked in order: {root}/{SYM}.csv, {root}/{sym}.csv, {root}/yahoo/{SYM}/daily.csv.
// Returns empty string if no file is found
func (f *DefaultFileLocator) FindDataFile(dataRoot, symbol string) string {
	sym := FileSymbol(symbol)
	candidates := []string{
		filepath.Join(dataRoot, sym+".csv"),
		filepath.Join(dataRoot, strings.ToLower(sym)+".csv"),
		filepath.Join(dataRoot, "yahoo", sym, "daily.csv"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	f.log.Warning("⚠️ No data file found for %s in: %s", symbol, strings.Join(candidates, ", "))
	return ""
}
