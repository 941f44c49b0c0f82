// Package logging provides structured logging for planforge runs.
//
// This package wraps Go's log/slog to provide JSON-formatted logs with
// context propagation support for debugging and post-hoc analysis of
// planning runs.
//
// # Features
//
//   - JSON-formatted structured logging via slog
//   - Configurable log levels (DEBUG, INFO, WARN, ERROR)
//   - Context propagation (run ID, component, phase, iteration)
//   - Log rotation with configurable size limits
//   - Optional gzip compression for rotated logs
//
// # Thread Safety
//
// All types in this package are safe for concurrent use. The [Logger] type
// uses Go's slog internally which is designed for concurrent access. The
// [RotatingWriter] type uses a mutex to protect file operations during
// rotation. Child loggers created via With* methods share the underlying
// writer safely.
//
// # Basic Usage
//
// Create a logger for a run directory:
//
//	logger, err := logging.NewLogger("/path/to/run", "INFO")
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	// Log messages at various levels
//	logger.Debug("detailed info", "key", "value")
//	logger.Info("operation completed", "duration_ms", 150)
//	logger.Warn("potential issue", "threshold", 100)
//	logger.Error("operation failed", "error", err.Error())
//
// # Context Propagation
//
// Create child loggers with persistent context attributes:
//
//	runLogger := logger.WithRun("run-abc123")
//	validatorLogger := runLogger.WithComponent("validator")
//	phaseLogger := validatorLogger.WithPhase("validate")
//
//	// All logs from phaseLogger will include run_id, component, and phase
//	phaseLogger.Info("rule passed", "rule", "task_integrity")
//
// Output:
//
//	{"time":"...","level":"INFO","msg":"rule passed","run_id":"run-abc123","component":"validator","phase":"validate","rule":"task_integrity"}
//
// # Log Rotation
//
// For long-running watch sessions, use log rotation to prevent unbounded
// growth:
//
//	config := logging.RotationConfig{
//	    MaxSizeMB:  10,    // Rotate when file exceeds 10MB
//	    MaxBackups: 3,     // Keep 3 backup files
//	    Compress:   true,  // Gzip compress rotated files
//	}
//
//	logger, err := logging.NewLoggerWithRotation("/path/to/run", "INFO", config)
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
// Rotated files are named: planforge.log.1, planforge.log.2, etc., where .1
// is the most recent backup. When compression is enabled, rotated files
// become planforge.log.1.gz, etc.
//
// # Testing
//
// For testing, use [NopLogger] to discard all log output:
//
//	func TestSomething(t *testing.T) {
//	    logger := logging.NopLogger()
//	    // Use logger in tests without creating files
//	}
//
// # Log Levels
//
// The package defines four log levels:
//
//   - [LevelDebug]: Detailed information for debugging
//   - [LevelInfo]: General operational information (default)
//   - [LevelWarn]: Warning conditions that may need attention
//   - [LevelError]: Error conditions that affect functionality
//
// Use [ValidLevels] to get the list of valid level strings, and [ParseLevel]
// to normalize user-provided level strings.
//
// # Configuration
//
// The logging system is typically configured via planforge's config file:
//
//	logging:
//	  enabled: true
//	  level: info
//	  dir: /path/to/logs
//	  max_size_mb: 10
//	  max_backups: 3
package logging
