package db

import (
	"context"
	"time"

	"github.com/rhellums/gfs-pull/internal/pipeline"
	"github.com/rhellums/gfs-pull/internal/types"
)

// RunHistoryRepository records run and unit outcomes in the run_history and
// unit_history tables for operational visibility. It implements both
// pipeline.RunSink and pipeline.UnitSink.
//
// Schema:
//
//	run_history  (run_id TEXT PK, start_date DATE, end_date DATE,
//	              started_at TIMESTAMPTZ, finished_at TIMESTAMPTZ,
//	              status TEXT, units INT, download_failures INT,
//	              variable_failures INT, artifacts_written INT)
//	unit_history (id BIGSERIAL PK, run_id TEXT REFERENCES run_history,
//	              date DATE, cycle TEXT, lead_hour TEXT, downloaded BOOL,
//	              variables_ok INT, failed_variables TEXT[], cleaned BOOL,
//	              recorded_at TIMESTAMPTZ)
type RunHistoryRepository struct {
	db DBTX
}

// NewRunHistoryRepository creates a RunHistoryRepository backed by the given
// database connection (pool or transaction).
func NewRunHistoryRepository(db DBTX) *RunHistoryRepository {
	return &RunHistoryRepository{db: db}
}

// StartRun inserts the run row with status 'running'. Re-running with the
// same run ID is not expected; run IDs are fresh UUIDs per orchestrator run.
func (r *RunHistoryRepository) StartRun(ctx context.Context, runID string, start, end time.Time) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO run_history (run_id, start_date, end_date, started_at, status)
		 VALUES ($1, $2, $3, NOW(), 'running')`,
		runID,
		start,
		end,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to insert run history entry", err)
	}
	return nil
}

// RecordUnit appends one unit_history row for a completed retrieval unit.
func (r *RunHistoryRepository) RecordUnit(ctx context.Context, runID string, res pipeline.UnitResult) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO unit_history
		   (run_id, date, cycle, lead_hour, downloaded, variables_ok, failed_variables, cleaned, recorded_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())`,
		runID,
		res.Key.Date,
		res.Key.Cycle,
		res.Key.Lead.String(),
		res.DownloadErr == nil,
		len(res.ArtifactPaths()),
		res.FailedVariables(),
		res.Cleaned,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to insert unit history entry", err)
	}
	return nil
}

// FinishRun closes the run row with the final counters. The status is
// 'success' when every unit completed with every variable extracted, and
// 'partial' otherwise. The pipeline never treats partial failure as fatal,
// but the history row preserves the distinction.
func (r *RunHistoryRepository) FinishRun(ctx context.Context, runID string, summary pipeline.RunSummary) error {
	status := "success"
	if summary.DownloadFailures > 0 || summary.VariableFailures > 0 || summary.CleanupFailures > 0 {
		status = "partial"
	}

	_, err := r.db.Exec(ctx,
		`UPDATE run_history
		 SET finished_at = NOW(),
		     status = $2,
		     units = $3,
		     download_failures = $4,
		     variable_failures = $5,
		     artifacts_written = $6
		 WHERE run_id = $1`,
		runID,
		status,
		summary.Units,
		summary.DownloadFailures,
		summary.VariableFailures,
		summary.ArtifactsWritten,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to finish run history entry", err)
	}
	return nil
}
