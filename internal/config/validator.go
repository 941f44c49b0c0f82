package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "planner.max_iterations")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validatePlanner()...)
	errors = append(errors, c.validateGenerator()...)
	errors = append(errors, c.validateLogging()...)

	return errors
}

// validatePlanner validates the PlannerConfig
func (c *Config) validatePlanner() []ValidationError {
	var errors []ValidationError

	if c.Planner.MaxIterations < 0 {
		errors = append(errors, ValidationError{
			Field:   "planner.max_iterations",
			Value:   c.Planner.MaxIterations,
			Message: "must be non-negative",
		})
	}
	if c.Planner.MaxIterations > 100 {
		errors = append(errors, ValidationError{
			Field:   "planner.max_iterations",
			Value:   c.Planner.MaxIterations,
			Message: "must be at most 100",
		})
	}

	if c.Planner.ConsistencyThreshold < 0 || c.Planner.ConsistencyThreshold > 1 {
		errors = append(errors, ValidationError{
			Field:   "planner.consistency_threshold",
			Value:   c.Planner.ConsistencyThreshold,
			Message: "must be between 0 and 1",
		})
	}

	if c.Planner.MaxParallel < 0 {
		errors = append(errors, ValidationError{
			Field:   "planner.max_parallel",
			Value:   c.Planner.MaxParallel,
			Message: "must be non-negative (0 = unbounded)",
		})
	}

	if c.Planner.CacheSize < 0 {
		errors = append(errors, ValidationError{
			Field:   "planner.cache_size",
			Value:   c.Planner.CacheSize,
			Message: "must be non-negative (0 = disabled)",
		})
	}

	return errors
}

// validateGenerator validates the GeneratorConfig
func (c *Config) validateGenerator() []ValidationError {
	var errors []ValidationError

	if c.Generator.Backend != "" && !IsValidBackend(c.Generator.Backend) {
		errors = append(errors, ValidationError{
			Field:   "generator.backend",
			Value:   c.Generator.Backend,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidBackends(), ", ")),
		})
	}

	if c.Generator.Backend == "command" && strings.TrimSpace(c.Generator.Command) == "" {
		errors = append(errors, ValidationError{
			Field:   "generator.command",
			Value:   c.Generator.Command,
			Message: "required when generator.backend is 'command'",
		})
	}

	if c.Generator.TimeoutSeconds < 0 {
		errors = append(errors, ValidationError{
			Field:   "generator.timeout_seconds",
			Value:   c.Generator.TimeoutSeconds,
			Message: "must be non-negative (0 = no timeout)",
		})
	}

	return errors
}

// validateLogging validates the LoggingConfig
func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	if c.Logging.MaxSizeMB < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: "must be non-negative (0 = no rotation)",
		})
	}

	if c.Logging.MaxBackups < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_backups",
			Value:   c.Logging.MaxBackups,
			Message: "must be non-negative",
		})
	}

	return errors
}
