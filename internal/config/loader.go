// loader.go implements the configuration loading lifecycle.
//
// The loading sequence is:
//  1. Enforce UTC timezone to prevent drift bugs.
//  2. Load .env file via godotenv (non-fatal if absent).
//  3. Use envconfig to process struct tags and populate the Config struct.
//  4. Validate the struct using go-playground/validator.
//  5. Validate cross-field semantics (date range, cycle hours).
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/rhellums/gfs-pull/internal/types"
)

// validCycles is the fixed enumerated set of GFS initialization hours.
var validCycles = map[string]struct{}{
	"00": {},
	"06": {},
	"12": {},
	"18": {},
}

// Load reads, populates and validates the pipeline configuration from the
// environment. Any failure here is fatal to the process: it occurs before the
// orchestrator starts and the caller should abort with a clear message.
func Load() (*Config, error) {
	// Enforce UTC. Every date in the pipeline is a UTC calendar date and the
	// GFS cycle hours are Zulu times.
	time.Local = time.UTC

	// Load a .env file if present. godotenv does NOT override variables that
	// are already set in the environment.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, types.NewAppError(types.ErrCodeConfigInvalid,
			"failed to process environment configuration", err)
	}

	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, types.NewAppError(types.ErrCodeConfigInvalid,
			"configuration validation failed", err)
	}

	// Cross-field checks that struct tags cannot express.
	if _, _, err := cfg.DateRange(); err != nil {
		return nil, err
	}
	cycles := cfg.CycleList()
	if len(cycles) == 0 {
		return nil, types.NewAppError(types.ErrCodeConfigInvalid,
			"CYCLES must name at least one initialization hour", nil)
	}
	for _, cycle := range cycles {
		if _, ok := validCycles[cycle]; !ok {
			return nil, types.NewAppError(types.ErrCodeConfigInvalid,
				fmt.Sprintf("invalid cycle %q: must be one of 00, 06, 12, 18", cycle), nil)
		}
	}

	return &cfg, nil
}
