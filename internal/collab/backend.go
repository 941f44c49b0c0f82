// Package collab implements the plan generation backends that feed the
// planner: an external command backend that shells out to a generator
// process, and a deterministic offline backend for air-gapped use and tests.
// Both satisfy planner.TaskGenerator and planner.Refiner.
package collab

import (
	"fmt"
	"strings"

	"github.com/planforge/planforge/internal/config"
	"github.com/planforge/planforge/internal/logging"
	"github.com/planforge/planforge/internal/planner"
)

// BackendName identifies a supported generation backend.
type BackendName string

const (
	BackendCommand BackendName = "command"
	BackendOffline BackendName = "offline"
)

// Backend generates and refines project plans.
type Backend interface {
	planner.TaskGenerator
	planner.Refiner

	Name() BackendName
	DisplayName() string
}

// ErrUnknownBackend is returned when the configured backend is unsupported.
var ErrUnknownBackend = fmt.Errorf("unknown generator backend")

// NewFromConfig builds a Backend from configuration.
func NewFromConfig(cfg *config.Config, logger *logging.Logger) (Backend, error) {
	if cfg == nil {
		return nil, fmt.Errorf("missing config")
	}
	if logger == nil {
		logger = logging.NopLogger()
	}

	switch strings.ToLower(cfg.Generator.Backend) {
	case string(BackendOffline), "":
		return NewOfflineBackend(logger), nil
	case string(BackendCommand):
		return NewCommandBackend(cfg.Generator, logger), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, cfg.Generator.Backend)
	}
}
