package reporting

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultPathManager implements path management functionality
type DefaultPathManager struct{}

// NewDefaultPathManager creates a new path manager
func NewDefaultPathManager() *DefaultPathManager {
	return &DefaultPathManager{}
}

// GetDefaultOutputDir returns results/<SYMBOL>_<runID>
func (p *DefaultPathManager) GetDefaultOutputDir(symbol, runID string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	s = strings.TrimPrefix(s, "^")
	id := strings.TrimSpace(runID)
	if s == "" {
		s = "UNKNOWN"
	}
	if id == "" {
		id = "unknown"
	}

	return filepath.Join("results", fmt.Sprintf("%s_%s", s, id))
}

// EnsureDirectoryExists creates the parent directory of path if it doesn't exist
func (p *DefaultPathManager) EnsureDirectoryExists(path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		return os.MkdirAll(dir, 0755)
	}
	return nil
}

// DefaultOutputDir is a package-level convenience function
func DefaultOutputDir(symbol, runID string) string {
	return NewDefaultPathManager().GetDefaultOutputDir(symbol, runID)
}
