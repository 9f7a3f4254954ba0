package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rhellums/gfs-pull/internal/grib"
	"github.com/rhellums/gfs-pull/internal/storage"
	"github.com/rhellums/gfs-pull/internal/types"
)

// UnitResult reports the complete outcome of one retrieval unit. Exactly one
// of the failure fields is set for a unit that never reached extraction:
// DownloadErr when the transfer failed (terminal, no extraction attempted),
// OpenErr when the downloaded file could not be opened as a grid source.
// Variables holds the per-slot outcomes of the extraction fan-out.
type UnitResult struct {
	Key         types.RetrievalKey
	DownloadErr error
	OpenErr     error
	Variables   []VariableResult
	Cleaned     bool
	CleanupErr  error
}

// ArtifactPaths returns the artifacts written by successful extractions, in
// slot order.
func (r UnitResult) ArtifactPaths() []string {
	var paths []string
	for _, v := range r.Variables {
		if v.Err == nil {
			paths = append(paths, v.ArtifactPath)
		}
	}
	return paths
}

// FailedVariables returns the output names of extractions that failed.
func (r UnitResult) FailedVariables() []string {
	var failed []string
	for _, v := range r.Variables {
		if v.Err != nil {
			failed = append(failed, v.Variable)
		}
	}
	return failed
}

// Unit executes one retrieval unit: download the remote grid file, fan out
// one extraction per catalog slot against the opened source, wait for all of
// them, then delete the transient file if cleanup is enabled. The transient
// file is owned exclusively by the unit from creation to deletion.
type Unit struct {
	store         storage.ObjectStore
	opener        grib.Opener
	extractor     *Extractor
	bucket        string
	resolution    string
	workRoot      string
	cleanup       bool
	decodeTimeout time.Duration
	logger        *slog.Logger
}

// UnitConfig holds the collaborators and settings for constructing a Unit.
type UnitConfig struct {
	Store         storage.ObjectStore
	Opener        grib.Opener
	Extractor     *Extractor
	Bucket        string
	Resolution    string
	WorkRoot      string // transient grid files live under WorkRoot/<YYYYMMDD>/
	Cleanup       bool
	DecodeTimeout time.Duration // bounds opening the grid source; zero disables
	Logger        *slog.Logger
}

// NewUnit creates a Unit from its configuration.
func NewUnit(cfg UnitConfig) *Unit {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Unit{
		store:         cfg.Store,
		opener:        cfg.Opener,
		extractor:     cfg.Extractor,
		bucket:        cfg.Bucket,
		resolution:    cfg.Resolution,
		workRoot:      cfg.WorkRoot,
		cleanup:       cfg.Cleanup,
		decodeTimeout: cfg.DecodeTimeout,
		logger:        logger,
	}
}

// LocalPath returns where the transient grid file for key is written.
func (u *Unit) LocalPath(key types.RetrievalKey) string {
	return filepath.Join(u.workRoot, key.DateString(), key.FileName(u.resolution))
}

// Run processes one retrieval key to completion. A download failure is
// terminal for the unit and reported in the result; the caller decides
// whether the run continues (it does). Extraction failures never abort
// sibling extractions, and cleanup honors the configured flag regardless of
// per-variable outcomes.
func (u *Unit) Run(ctx context.Context, key types.RetrievalKey) UnitResult {
	res := UnitResult{Key: key}

	localPath := u.LocalPath(key)
	objectKey := key.ObjectKey(u.resolution)

	u.logger.InfoContext(ctx, "downloading grid file", key.LogArgs()...)
	if err := u.store.Download(ctx, u.bucket, objectKey, localPath); err != nil {
		res.DownloadErr = err
		u.logger.ErrorContext(ctx, "grid file download failed",
			append(key.LogArgs(), "bucket", u.bucket, "object_key", objectKey, "error", err)...)
		return res
	}

	src, err := u.openSource(ctx, localPath)
	if err != nil {
		res.OpenErr = err
		u.logger.ErrorContext(ctx, "grid file unreadable",
			append(key.LogArgs(), "path", localPath, "error", err)...)
		// The file downloaded; its lifecycle contract still applies.
		u.finish(ctx, key, localPath, &res)
		return res
	}

	res.Variables = u.extractAll(ctx, src, key)
	if err := src.Close(); err != nil {
		u.logger.WarnContext(ctx, "closing grid source failed",
			append(key.LogArgs(), "error", err)...)
	}

	u.finish(ctx, key, localPath, &res)
	return res
}

// openSource opens the downloaded file as a decoded grid source, applying the
// configured decode deadline.
func (u *Unit) openSource(ctx context.Context, localPath string) (grib.GridSource, error) {
	if u.decodeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, u.decodeTimeout)
		defer cancel()
	}
	return u.opener.Open(ctx, localPath)
}

// extractAll launches one extraction per catalog slot concurrently and blocks
// until every one has completed. There is no short-circuit on first failure
// and no cancellation of siblings: the barrier is unconditional. Each
// goroutine writes to its own slice index, so no lock is needed.
func (u *Unit) extractAll(ctx context.Context, src grib.GridSource, key types.RetrievalKey) []VariableResult {
	gridFileBase := key.FileName(u.resolution)
	results := make([]VariableResult, NumVariableSlots)

	var g errgroup.Group
	for slot := 0; slot < NumVariableSlots; slot++ {
		g.Go(func() error {
			results[slot] = u.extractor.Extract(ctx, src, key, gridFileBase, VariableSlot(slot))
			// Extraction failures are isolated and already reported; never
			// propagate them into the group.
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// finish applies the transient file's end-of-unit lifecycle: delete and log
// when cleanup is enabled, leave in place otherwise.
func (u *Unit) finish(ctx context.Context, key types.RetrievalKey, localPath string, res *UnitResult) {
	if !u.cleanup {
		return
	}
	if err := os.Remove(localPath); err != nil {
		res.CleanupErr = types.NewAppError(types.ErrCodeCleanupFailed,
			fmt.Sprintf("deleting %s", localPath), err)
		u.logger.ErrorContext(ctx, "transient grid file cleanup failed",
			append(key.LogArgs(), "path", localPath, "error", err)...)
		return
	}
	res.Cleaned = true
	u.logger.InfoContext(ctx, "deleted processed grid file",
		append(key.LogArgs(), "path", localPath)...)
}
