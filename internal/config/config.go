// Package config defines the configuration surface for the GFS retrieval
// pipeline. Configuration is loaded once at process startup and is immutable
// thereafter. It follows 12-Factor App principles by strictly separating code
// from configuration.
//
// Values are resolved via a priority chain:
//
//	OS Environment (Highest) -> Dotenv File -> Struct Defaults (Lowest)
//
// Any missing required value or invalid format aborts startup immediately
// (fail fast): a malformed date range must never reach the orchestrator.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rhellums/gfs-pull/internal/types"
)

// Config is the top-level configuration struct for the pipeline.
// It is populated once during process initialization and never modified.
type Config struct {
	// Run window
	StartDate string `envconfig:"START_DATE" validate:"required,len=8,numeric"`
	EndDate   string `envconfig:"END_DATE" validate:"required,len=8,numeric"`

	// Model selection
	Cycles      string `envconfig:"CYCLES" default:"00,06,12,18"`
	Resolution  string `envconfig:"RESOLUTION" default:"1p00" validate:"oneof=0p25 0p50 1p00"`
	MaxLeadHour int    `envconfig:"MAX_LEAD_HOUR" default:"384" validate:"min=0,max=384"`

	// Extraction behavior
	NABounds          bool   `envconfig:"NA_BOUNDS" default:"true"`
	Cleanup           bool   `envconfig:"CLEANUP" default:"true"`
	CompressArtifacts bool   `envconfig:"COMPRESS_ARTIFACTS" default:"false"`
	DataDir           string `envconfig:"DATA_DIR" default:"data"`

	// Collaborators
	Bucket     string `envconfig:"GRIB_BUCKET" default:"noaa-gfs-bdp-pds"`
	Wgrib2Path string `envconfig:"WGRIB2_PATH" default:"wgrib2"`

	// Timeouts for the two blocking collaborator calls. Zero disables the
	// deadline entirely.
	DownloadTimeout time.Duration `envconfig:"DOWNLOAD_TIMEOUT" default:"5m"`
	DecodeTimeout   time.Duration `envconfig:"DECODE_TIMEOUT" default:"2m"`

	// AWS
	Region      string `envconfig:"AWS_REGION" default:"us-east-1"`
	EndpointURL string `envconfig:"AWS_ENDPOINT_URL"` // MinIO support in local dev; empty in prod

	// Optional sinks (disabled when empty/false)
	CompletionsQueueURL string `envconfig:"SQS_COMPLETIONS" validate:"omitempty,url"`
	MetricsEnabled      bool   `envconfig:"METRICS_ENABLED" default:"false"`
	DatabaseURL         string `envconfig:"DATABASE_URL" validate:"omitempty,url"`

	// Logging
	LogLevel string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
}

// DateRange parses the configured start and end dates and returns them as UTC
// midnights. It fails if either date is malformed or the range is inverted.
func (c *Config) DateRange() (start, end time.Time, err error) {
	start, err = time.ParseInLocation(types.DateLayout, c.StartDate, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, types.NewAppError(types.ErrCodeConfigInvalid,
			fmt.Sprintf("invalid START_DATE %q", c.StartDate), err)
	}
	end, err = time.ParseInLocation(types.DateLayout, c.EndDate, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, types.NewAppError(types.ErrCodeConfigInvalid,
			fmt.Sprintf("invalid END_DATE %q", c.EndDate), err)
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, types.NewAppError(types.ErrCodeConfigInvalid,
			fmt.Sprintf("END_DATE %s precedes START_DATE %s", c.EndDate, c.StartDate), nil)
	}
	return start, end, nil
}

// CycleList splits the comma-separated cycle configuration, preserving order.
// Whitespace around entries is trimmed and empty entries are skipped.
func (c *Config) CycleList() []string {
	var cycles []string
	for _, part := range strings.Split(c.Cycles, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			cycles = append(cycles, trimmed)
		}
	}
	return cycles
}

// Bounds returns the configured cropping window, or nil for full-grid mode.
func (c *Config) Bounds() *types.GeoBounds {
	if !c.NABounds {
		return nil
	}
	b := types.NorthAmericaBounds()
	return &b
}
