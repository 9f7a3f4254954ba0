package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/rhellums/gfs-pull/internal/types"
)

// UnitRunner processes one retrieval key to completion. It is implemented by
// *Unit and mocked in tests.
type UnitRunner interface {
	Run(ctx context.Context, key types.RetrievalKey) UnitResult
}

// UnitSink observes completed units. Sinks never influence pipeline control
// flow: a sink error is logged and the run continues.
type UnitSink interface {
	RecordUnit(ctx context.Context, runID string, res UnitResult) error
}

// RunSink observes run boundaries, for sinks that keep per-run state
// (the Postgres run history).
type RunSink interface {
	StartRun(ctx context.Context, runID string, start, end time.Time) error
	FinishRun(ctx context.Context, runID string, summary RunSummary) error
}

// RunSummary aggregates the outcome of one orchestrator run. The process
// exits zero even when units failed, since the run-level contract is to
// continue past failures; the summary is the machine-readable record of
// partial failure.
type RunSummary struct {
	RunID            string
	Units            int
	DownloadFailures int
	VariableFailures int
	ArtifactsWritten int
	CleanupFailures  int
	StartedAt        time.Time
	FinishedAt       time.Time
}

// Orchestrator drives the outer iteration: dates ascending, cycles in the
// order configured, lead hours ascending. Units run strictly one at a time;
// the only concurrency in the pipeline is the per-variable fan-out inside a
// unit.
type Orchestrator struct {
	runner   UnitRunner
	cycles   []string
	leads    []types.LeadHour
	sinks    []UnitSink
	runSinks []RunSink
	logger   *slog.Logger
}

// NewOrchestrator creates an Orchestrator. cycles and leads define the inner
// iteration; sinks and runSinks may be empty.
func NewOrchestrator(runner UnitRunner, cycles []string, leads []types.LeadHour, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		runner: runner,
		cycles: cycles,
		leads:  leads,
		logger: logger,
	}
}

// AddUnitSink registers a sink notified after every completed unit.
func (o *Orchestrator) AddUnitSink(s UnitSink) {
	o.sinks = append(o.sinks, s)
}

// AddRunSink registers a sink notified at run start and finish.
func (o *Orchestrator) AddRunSink(s RunSink) {
	o.runSinks = append(o.runSinks, s)
}

// Run iterates every (date, cycle, lead hour) combination from start to end
// (inclusive calendar dates, UTC) and processes one retrieval unit per
// combination, synchronously and in deterministic order. Unit failures of any
// kind are logged and the run continues; Run returns an error only when the
// context is canceled mid-run.
func (o *Orchestrator) Run(ctx context.Context, start, end time.Time) (RunSummary, error) {
	summary := RunSummary{
		RunID:     uuid.New().String(),
		StartedAt: time.Now().UTC(),
	}

	o.logger.InfoContext(ctx, "starting run",
		"run_id", summary.RunID,
		"start_date", start.Format(types.DateLayout),
		"end_date", end.Format(types.DateLayout),
		"cycles", o.cycles,
		"lead_hours", len(o.leads),
	)
	for _, s := range o.runSinks {
		if err := s.StartRun(ctx, summary.RunID, start, end); err != nil {
			o.logger.WarnContext(ctx, "run sink start failed", "run_id", summary.RunID, "error", err)
		}
	}

	var runErr error

loop:
	for date := start; !date.After(end); date = date.AddDate(0, 0, 1) {
		for _, cycle := range o.cycles {
			for _, lead := range o.leads {
				if err := ctx.Err(); err != nil {
					runErr = err
					break loop
				}

				key := types.RetrievalKey{
					ForecastCycle: types.ForecastCycle{Date: date, Cycle: cycle},
					Lead:          lead,
				}

				res := o.runner.Run(ctx, key)
				o.observe(ctx, summary.RunID, res)
				o.tally(&summary, res)
			}
		}
	}

	summary.FinishedAt = time.Now().UTC()
	for _, s := range o.runSinks {
		if err := s.FinishRun(ctx, summary.RunID, summary); err != nil {
			o.logger.WarnContext(ctx, "run sink finish failed", "run_id", summary.RunID, "error", err)
		}
	}

	o.logger.InfoContext(ctx, "ending run",
		"run_id", summary.RunID,
		"start_date", start.Format(types.DateLayout),
		"end_date", end.Format(types.DateLayout),
		"units", summary.Units,
		"download_failures", summary.DownloadFailures,
		"variable_failures", summary.VariableFailures,
		"artifacts_written", summary.ArtifactsWritten,
	)
	return summary, runErr
}

// observe emits the per-unit summary line and feeds every registered sink.
func (o *Orchestrator) observe(ctx context.Context, runID string, res UnitResult) {
	switch {
	case res.DownloadErr != nil:
		// Already logged with full context by the unit; the run moves on.
	case res.OpenErr != nil:
		// Likewise.
	default:
		o.logger.InfoContext(ctx, "unit complete",
			append(res.Key.LogArgs(),
				"variables_ok", len(res.ArtifactPaths()),
				"variables_failed", res.FailedVariables(),
				"cleaned", res.Cleaned,
			)...)
	}

	for _, s := range o.sinks {
		if err := s.RecordUnit(ctx, runID, res); err != nil {
			o.logger.WarnContext(ctx, "unit sink failed",
				append(res.Key.LogArgs(), "error", err)...)
		}
	}
}

func (o *Orchestrator) tally(summary *RunSummary, res UnitResult) {
	summary.Units++
	if res.DownloadErr != nil {
		summary.DownloadFailures++
		return
	}
	if res.OpenErr != nil {
		// Every catalog variable was lost to one decode failure.
		summary.VariableFailures += NumVariableSlots
	}
	summary.VariableFailures += len(res.FailedVariables())
	summary.ArtifactsWritten += len(res.ArtifactPaths())
	if res.CleanupErr != nil {
		summary.CleanupFailures++
	}
}
