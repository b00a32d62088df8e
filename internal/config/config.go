package config

import (
	"os"
	"strconv"
	"strings"

	"goviper/domain/activity"
	"goviper/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Engine     EngineConfig
	Pleiotropy activity.PleiotropyOptions
	Database   DatabaseConfig
	Server     ServerConfig
	LogLevel   string
}

// EngineConfig holds the defaults for an activity run
type EngineConfig struct {
	MinSize         float64
	AdaptiveSize    bool
	FilterGenes     bool
	Workers         int
	Seed            int64
	MultiRegWeight  float64
	SignatureMethod activity.SignatureMethod
	Bootstraps      int
}

// DatabaseConfig holds database connection settings. An empty URL disables
// persistence.
type DatabaseConfig struct {
	URL string
}

// Enabled reports whether a database is configured.
func (d DatabaseConfig) Enabled() bool { return d.URL != "" }

// ServerConfig holds web server settings
type ServerConfig struct {
	Port    string
	GinMode string
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Engine:     loadEngineConfig(),
		Pleiotropy: loadPleiotropyConfig(),
		Database:   DatabaseConfig{URL: os.Getenv("DATABASE_URL")},
		Server:     loadServerConfig(),
		LogLevel:   getEnvOrDefault("LOG_LEVEL", "INFO"),
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

// Options converts the configuration into default run options.
func (c *Config) Options() activity.Options {
	opts := activity.DefaultOptions()
	opts.MinSize = c.Engine.MinSize
	opts.AdaptiveSize = c.Engine.AdaptiveSize
	opts.FilterGenes = c.Engine.FilterGenes
	opts.MultiRegWeight = c.Engine.MultiRegWeight
	opts.Method = c.Engine.SignatureMethod
	opts.PleiotropyOptions = c.Pleiotropy
	opts.Bootstraps = c.Engine.Bootstraps
	opts.Workers = c.Engine.Workers
	opts.Seed = c.Engine.Seed
	return opts
}

func loadEngineConfig() EngineConfig {
	defaults := activity.DefaultOptions()
	return EngineConfig{
		MinSize:         getEnvFloatOrDefault("VIPER_MIN_SIZE", defaults.MinSize),
		AdaptiveSize:    getEnvBoolOrDefault("VIPER_ADAPTIVE_SIZE", defaults.AdaptiveSize),
		FilterGenes:     getEnvBoolOrDefault("VIPER_FILTER_GENES", defaults.FilterGenes),
		Workers:         getEnvIntOrDefault("VIPER_WORKERS", defaults.Workers),
		Seed:            int64(getEnvIntOrDefault("VIPER_SEED", int(defaults.Seed))),
		MultiRegWeight:  getEnvFloatOrDefault("VIPER_MVWS", defaults.MultiRegWeight),
		SignatureMethod: activity.SignatureMethod(strings.ToLower(getEnvOrDefault("VIPER_SIGNATURE_METHOD", string(activity.SignatureNone)))),
		Bootstraps:      getEnvIntOrDefault("VIPER_BOOTSTRAPS", defaults.Bootstraps),
	}
}

func loadPleiotropyConfig() activity.PleiotropyOptions {
	defaults := activity.DefaultPleiotropyOptions()
	return activity.PleiotropyOptions{
		Regulators: getEnvFloatOrDefault("VIPER_PLEIOTROPY_REGULATORS", defaults.Regulators),
		Shadow:     getEnvFloatOrDefault("VIPER_PLEIOTROPY_SHADOW", defaults.Shadow),
		Targets:    getEnvIntOrDefault("VIPER_PLEIOTROPY_TARGETS", defaults.Targets),
		Penalty:    getEnvFloatOrDefault("VIPER_PLEIOTROPY_PENALTY", defaults.Penalty),
		Method:     activity.ShadowMethod(strings.ToLower(getEnvOrDefault("VIPER_PLEIOTROPY_METHOD", string(defaults.Method)))),
	}
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Port:    getEnvOrDefault("PORT", "8080"),
		GinMode: getEnvOrDefault("GIN_MODE", "release"),
	}
}

func validateConfig(config *Config) error {
	e := config.Engine
	if e.MinSize < 0 {
		return errors.ConfigInvalid("VIPER_MIN_SIZE must not be negative")
	}
	if e.Workers < 1 {
		return errors.ConfigInvalid("VIPER_WORKERS must be at least 1")
	}
	if e.MultiRegWeight < 0 {
		return errors.ConfigInvalid("VIPER_MVWS must not be negative")
	}
	if e.Bootstraps < 0 {
		return errors.ConfigInvalid("VIPER_BOOTSTRAPS must not be negative")
	}
	switch e.SignatureMethod {
	case activity.SignatureNone, activity.SignatureScale, activity.SignatureMAD,
		activity.SignatureRank, activity.SignatureTTest:
	default:
		return errors.ConfigInvalid("unknown VIPER_SIGNATURE_METHOD " + string(e.SignatureMethod))
	}

	p := config.Pleiotropy
	if p.Regulators <= 0 {
		return errors.ConfigInvalid("VIPER_PLEIOTROPY_REGULATORS must be positive")
	}
	if p.Shadow <= 0 || p.Shadow > 1 {
		return errors.ConfigInvalid("VIPER_PLEIOTROPY_SHADOW must be in (0, 1]")
	}
	if p.Targets < 0 {
		return errors.ConfigInvalid("VIPER_PLEIOTROPY_TARGETS must not be negative")
	}
	if p.Penalty < 0 || p.Penalty > 100 {
		return errors.ConfigInvalid("VIPER_PLEIOTROPY_PENALTY is a percentage in [0, 100]")
	}
	if p.Method != activity.ShadowAbsolute && p.Method != activity.ShadowAdaptive {
		return errors.ConfigInvalid("unknown VIPER_PLEIOTROPY_METHOD " + string(p.Method))
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
