package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables that override config keys,
// e.g. LEAPS_WEEKLY_AMOUNT=2500
const EnvPrefix = "LEAPS"

// StrategyConfigManager implements Manager on top of viper
type StrategyConfigManager struct {
	validator Validator
}

// NewStrategyConfigManager creates a new configuration manager
func NewStrategyConfigManager() *StrategyConfigManager {
	return &StrategyConfigManager{
		validator: NewStrategyValidator(),
	}
}

// LoadConfig loads configuration from an optional file (JSON, YAML or TOML),
// layered over the defaults and under LEAPS_* environment variables
func (m *StrategyConfigManager) LoadConfig(path string) (StrategyConfig, error) {
	return m.LoadConfigWithOverrides(path, nil)
}

// LoadConfigWithOverrides loads like LoadConfig, then applies explicit
// key/value overrides (for example from command line flags) before validation
func (m *StrategyConfigManager) LoadConfigWithOverrides(path string, overrides map[string]interface{}) (StrategyConfig, error) {
	v := m.newViper()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return StrategyConfig{}, fmt.Errorf("could not read config file %s: %w", path, err)
		}
	}
	for key, value := range overrides {
		v.Set(key, value)
	}

	var cfg StrategyConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return StrategyConfig{}, fmt.Errorf("could not decode config: %w", err)
	}

	if err := m.ValidateConfig(cfg); err != nil {
		return StrategyConfig{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// newViper returns a viper instance seeded with every default so that
// environment overrides apply to all keys
func (m *StrategyConfigManager) newViper() *viper.Viper {
	v := viper.New()
	for key, value := range NewDefaultStrategyConfig().ToMap() {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// ValidateConfig validates a configuration using the validator
func (m *StrategyConfigManager) ValidateConfig(cfg StrategyConfig) error {
	return m.validator.Validate(cfg)
}

// SaveConfig saves configuration to a JSON file
func (m *StrategyConfigManager) SaveConfig(cfg StrategyConfig, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return os.WriteFile(path, data, 0644)
}
