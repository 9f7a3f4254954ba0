package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rhellums/gfs-pull/internal/artifact"
	"github.com/rhellums/gfs-pull/internal/grib"
	"github.com/rhellums/gfs-pull/internal/types"
)

// VariableResult reports the outcome of extracting one catalog slot from one
// grid file. Err is nil on success; ArtifactPath is set only on success.
type VariableResult struct {
	Slot         VariableSlot
	Variable     string
	ArtifactPath string
	Err          error
}

// Extractor selects one catalog variable from an open grid source, optionally
// crops it, and persists it as an artifact. Every failure is caught, logged
// with the full identifying context, and reported in the result; nothing
// propagates to sibling extractions.
type Extractor struct {
	writer *artifact.Writer
	bounds *types.GeoBounds // nil means full-grid mode, no cropping
	logger *slog.Logger
}

// NewExtractor creates an Extractor writing through writer. bounds selects
// the cropping window; nil disables cropping entirely.
func NewExtractor(writer *artifact.Writer, bounds *types.GeoBounds, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{writer: writer, bounds: bounds, logger: logger}
}

// Extract runs the full select → crop → persist sequence for one slot.
// It never returns an error to the caller: the unit observes completion, and
// the result carries success or failure per variable.
func (e *Extractor) Extract(ctx context.Context, src grib.GridSource, key types.RetrievalKey, gridFileBase string, slot VariableSlot) VariableResult {
	res := VariableResult{Slot: slot}

	desc, err := Describe(slot)
	if err != nil {
		res.Variable = fmt.Sprintf("slot_%d", slot)
		return e.fail(ctx, key, res, err)
	}
	res.Variable = desc.OutputName

	fields, err := src.Select(ctx, desc.Predicate)
	if err != nil {
		return e.fail(ctx, key, res, err)
	}
	if len(fields) == 0 {
		return e.fail(ctx, key, res, types.NewAppError(types.ErrCodeFieldNotFound,
			fmt.Sprintf("no field matches %q level %d", desc.Predicate.Name, desc.Predicate.Level), nil))
	}
	field := fields[0]

	grid := field.Values()
	if e.bounds != nil {
		lats, lons := field.LatLons()
		grid, err = Crop(grid, lats, lons, *e.bounds)
		if err != nil {
			return e.fail(ctx, key, res, err)
		}
	}

	path, err := e.writer.Write(key.Date, gridFileBase, desc.OutputName, grid)
	if err != nil {
		return e.fail(ctx, key, res, err)
	}

	res.ArtifactPath = path
	rows, cols := grid.Dims()
	e.logger.DebugContext(ctx, "variable extracted",
		append(key.LogArgs(), "variable", desc.OutputName, "shape", fmt.Sprintf("%dx%d", rows, cols), "artifact", path)...)
	return res
}

// fail records the failure on the result and logs it with enough context to
// locate the failing (date, cycle, lead hour, variable) combination.
func (e *Extractor) fail(ctx context.Context, key types.RetrievalKey, res VariableResult, err error) VariableResult {
	res.Err = err
	e.logger.ErrorContext(ctx, "variable extraction failed",
		append(key.LogArgs(), "variable", res.Variable, "error", err)...)
	return res
}
