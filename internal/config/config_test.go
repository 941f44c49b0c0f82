package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg == nil {
		t.Fatal("Default() returned nil")
	}

	// Verify default planner config
	if cfg.Planner.MaxIterations != 3 {
		t.Errorf("Planner.MaxIterations = %d, want 3", cfg.Planner.MaxIterations)
	}
	if cfg.Planner.ConsistencyThreshold != 0.8 {
		t.Errorf("Planner.ConsistencyThreshold = %v, want 0.8", cfg.Planner.ConsistencyThreshold)
	}
	if !cfg.Planner.GroupByCategory {
		t.Error("Planner.GroupByCategory should be true by default")
	}
	if cfg.Planner.MaxParallel != 3 {
		t.Errorf("Planner.MaxParallel = %d, want 3", cfg.Planner.MaxParallel)
	}
	if cfg.Planner.CacheSize != 32 {
		t.Errorf("Planner.CacheSize = %d, want 32", cfg.Planner.CacheSize)
	}

	// Verify default generator config
	if cfg.Generator.Backend != "offline" {
		t.Errorf("Generator.Backend = %q, want %q", cfg.Generator.Backend, "offline")
	}
	if cfg.Generator.TimeoutSeconds != 300 {
		t.Errorf("Generator.TimeoutSeconds = %d, want 300", cfg.Generator.TimeoutSeconds)
	}

	// Verify default logging config
	if !cfg.Logging.Enabled {
		t.Error("Logging.Enabled should be true by default")
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "info")
	}
	if cfg.Logging.MaxSizeMB != 10 {
		t.Errorf("Logging.MaxSizeMB = %d, want 10", cfg.Logging.MaxSizeMB)
	}
}

func TestDefaultIsValid(t *testing.T) {
	if errs := Default().Validate(); len(errs) > 0 {
		t.Errorf("default config fails validation: %v", ValidationErrors(errs))
	}
}

func TestGeneratorTimeout(t *testing.T) {
	g := GeneratorConfig{TimeoutSeconds: 90}
	if g.Timeout() != 90*time.Second {
		t.Errorf("Timeout() = %v, want 90s", g.Timeout())
	}
	g.TimeoutSeconds = 0
	if g.Timeout() != 0 {
		t.Errorf("Timeout() = %v, want 0", g.Timeout())
	}
}

func TestSetDefaultsAndLoad(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	SetDefaults()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := Default()
	if cfg.Planner.MaxIterations != want.Planner.MaxIterations {
		t.Errorf("MaxIterations = %d, want %d", cfg.Planner.MaxIterations, want.Planner.MaxIterations)
	}
	if cfg.Generator.Backend != want.Generator.Backend {
		t.Errorf("Backend = %q, want %q", cfg.Generator.Backend, want.Generator.Backend)
	}
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	SetDefaults()
	viper.Set("planner.consistency_threshold", 1.5)

	if _, err := Load(); err == nil {
		t.Fatal("expected validation error for threshold 1.5")
	}
}

func TestGet_FallsBackToDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	SetDefaults()
	viper.Set("planner.max_iterations", -1)

	cfg := Get()
	if cfg.Planner.MaxIterations != Default().Planner.MaxIterations {
		t.Errorf("Get() did not fall back to defaults: %+v", cfg.Planner)
	}
}

func TestConfigDir_RespectsXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg-test")
	if got := ConfigDir(); got != filepath.Join("/tmp/xdg-test", "planforge") {
		t.Errorf("ConfigDir() = %q", got)
	}
}

func TestConfigDir_DefaultsToHomeConfig(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "")
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	if got := ConfigDir(); got != filepath.Join(home, ".config", "planforge") {
		t.Errorf("ConfigDir() = %q", got)
	}
}

func TestConfigFile(t *testing.T) {
	if !strings.HasSuffix(ConfigFile(), "config.yaml") {
		t.Errorf("ConfigFile() = %q", ConfigFile())
	}
}

func TestIsValidBackend(t *testing.T) {
	for _, backend := range ValidBackends() {
		if !IsValidBackend(backend) {
			t.Errorf("IsValidBackend(%q) = false", backend)
		}
	}
	if IsValidBackend("telepathy") {
		t.Error("IsValidBackend(telepathy) = true")
	}
}
