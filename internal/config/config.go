package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete planforge configuration
type Config struct {
	Planner   PlannerConfig   `mapstructure:"planner"`
	Generator GeneratorConfig `mapstructure:"generator"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// PlannerConfig controls the orchestration pipeline
type PlannerConfig struct {
	// MaxIterations bounds the refinement loop (default: 3, 0 disables refinement)
	MaxIterations int `mapstructure:"max_iterations"`
	// ConsistencyThreshold is the validation score at which refinement stops
	// early, in [0, 1] (default: 0.8)
	ConsistencyThreshold float64 `mapstructure:"consistency_threshold"`
	// GroupByCategory keeps same-category tasks adjacent in the execution
	// order where dependencies allow (default: true)
	GroupByCategory bool `mapstructure:"group_by_category"`
	// MaxParallel is the maximum number of tasks run concurrently within one
	// batch, 0 = unbounded (default: 3)
	MaxParallel int `mapstructure:"max_parallel"`
	// CacheSize is the number of generation results memoized across runs,
	// 0 disables the cache (default: 32)
	CacheSize int `mapstructure:"cache_size"`
}

// GeneratorConfig controls the plan generation backend
type GeneratorConfig struct {
	// Backend selects the generation backend
	// Options: "command", "offline"
	Backend string `mapstructure:"backend"`
	// Command is the external generator executable for the command backend
	Command string `mapstructure:"command"`
	// Args are extra arguments passed to the generator command
	Args []string `mapstructure:"args"`
	// TimeoutSeconds bounds a single generator invocation, 0 = no timeout
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// LoggingConfig controls structured log output
type LoggingConfig struct {
	// Enabled turns file logging on or off
	Enabled bool `mapstructure:"enabled"`
	// Level is the minimum log level
	// Options: "debug", "info", "warn", "error"
	Level string `mapstructure:"level"`
	// Dir is the directory log files are written to; empty means stderr
	Dir string `mapstructure:"dir"`
	// MaxSizeMB is the size at which a log file rotates (default: 10)
	MaxSizeMB int `mapstructure:"max_size_mb"`
	// MaxBackups is the number of rotated log files kept (default: 3)
	MaxBackups int `mapstructure:"max_backups"`
}

// Timeout returns the generator timeout as a time.Duration (0 means no timeout)
func (g *GeneratorConfig) Timeout() time.Duration {
	return time.Duration(g.TimeoutSeconds) * time.Second
}

// Default returns a Config populated with default values
func Default() *Config {
	return &Config{
		Planner: PlannerConfig{
			MaxIterations:        3,
			ConsistencyThreshold: 0.8,
			GroupByCategory:      true,
			MaxParallel:          3,
			CacheSize:            32,
		},
		Generator: GeneratorConfig{
			Backend:        "offline",
			Command:        "",
			TimeoutSeconds: 300,
		},
		Logging: LoggingConfig{
			Enabled:    true,
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Planner defaults
	viper.SetDefault("planner.max_iterations", defaults.Planner.MaxIterations)
	viper.SetDefault("planner.consistency_threshold", defaults.Planner.ConsistencyThreshold)
	viper.SetDefault("planner.group_by_category", defaults.Planner.GroupByCategory)
	viper.SetDefault("planner.max_parallel", defaults.Planner.MaxParallel)
	viper.SetDefault("planner.cache_size", defaults.Planner.CacheSize)

	// Generator defaults
	viper.SetDefault("generator.backend", defaults.Generator.Backend)
	viper.SetDefault("generator.command", defaults.Generator.Command)
	viper.SetDefault("generator.args", defaults.Generator.Args)
	viper.SetDefault("generator.timeout_seconds", defaults.Generator.TimeoutSeconds)

	// Logging defaults
	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.dir", defaults.Logging.Dir)
	viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling fails
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "planforge")
	}
	// Fall back to ~/.config/planforge
	home, err := os.UserHomeDir()
	if err != nil {
		return ".planforge"
	}
	return filepath.Join(home, ".config", "planforge")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// ValidBackends returns the list of valid generator backend values
func ValidBackends() []string {
	return []string{"command", "offline"}
}

// IsValidBackend checks if the given backend is valid
func IsValidBackend(backend string) bool {
	for _, valid := range ValidBackends() {
		if backend == valid {
			return true
		}
	}
	return false
}
