package config

// Validator interface for configuration validation
type Validator interface {
	Validate(cfg StrategyConfig) error
}

// Manager handles loading, validation and saving of strategy configurations
type Manager interface {
	// LoadConfig loads a configuration file over the defaults and applies environment overrides
	LoadConfig(path string) (StrategyConfig, error)

	// ValidateConfig validates a configuration
	ValidateConfig(cfg StrategyConfig) error

	// SaveConfig saves configuration to file
	SaveConfig(cfg StrategyConfig, path string) error
}
