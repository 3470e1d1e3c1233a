package organizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tracksync/internal/catalog"
	"tracksync/internal/fileutil"
	"tracksync/internal/logging"
	"tracksync/internal/progress"
	"tracksync/internal/services"
)

// ExecProgress is delivered before each non-KEEP action runs.
type ExecProgress struct {
	Total   int    `json:"total"`
	Current int    `json:"current"`
	Action  Action `json:"action"`
}

// ExecResult summarizes an applied plan. Failed actions are listed in
// Errors; the remaining actions still run.
type ExecResult struct {
	Success     bool          `json:"success"`
	Moved       int           `json:"moved"`
	Deleted     int           `json:"deleted"`
	RemovedDirs int           `json:"removedDirs"`
	Errors      []string      `json:"errors"`
	Duration    time.Duration `json:"duration"`
}

// Executor applies plans to the filesystem and the catalog.
type Executor struct {
	catalog  *catalog.Catalog
	resolver *catalog.PathResolver
	logger   *slog.Logger

	copyFile func(src, dst string) error
}

// NewExecutor builds an executor writing through cat. Catalog paths are
// derived from local paths with resolver.
func NewExecutor(cat *catalog.Catalog, resolver *catalog.PathResolver, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Executor{
		catalog:  cat,
		resolver: resolver,
		logger:   logging.NewComponentLogger(logger, "organizer"),
		copyFile: fileutil.CopyFile,
	}
}

// Start runs Execute in the background and exposes its progress as a
// pull-based stream.
func (e *Executor) Start(ctx context.Context, plan *Plan) *progress.Stream[ExecProgress, ExecResult] {
	return progress.Start(ctx, func(ctx context.Context, emit func(ExecProgress)) (ExecResult, error) {
		return e.Execute(ctx, plan, emit)
	})
}

// Execute runs the plan's DELETE and MOVE actions strictly in order, then
// removes directories left empty under the plan's library root. A malformed
// plan or cancellation is returned as an error; everything else is recorded
// per action in the result.
func (e *Executor) Execute(ctx context.Context, plan *Plan, onProgress func(ExecProgress)) (ExecResult, error) {
	started := time.Now()
	var result ExecResult
	if err := plan.Validate(); err != nil {
		return result, err
	}
	logger := logging.WithContext(ctx, e.logger).With(
		logging.String(logging.FieldOperation, "organize_apply"),
		logging.String("library_root", plan.LibraryRoot),
	)

	pending := make([]Action, 0, len(plan.Actions))
	for _, action := range plan.Actions {
		if action.Type != ActionKeep {
			pending = append(pending, action)
		}
	}
	logger.Info("applying organize plan",
		logging.String(logging.FieldEventType, "plan_apply_started"),
		logging.Int("actions", len(pending)),
	)
	sampler := logging.NewProgressSampler(5)
	for i, action := range pending {
		if err := ctx.Err(); err != nil {
			result.Duration = time.Since(started)
			return result, err
		}
		if onProgress != nil {
			onProgress(ExecProgress{Total: len(pending), Current: i + 1, Action: action})
		}
		var err error
		switch action.Type {
		case ActionDelete:
			err = e.delete(ctx, action)
			if err == nil {
				result.Deleted++
			}
		case ActionMove:
			err = e.move(ctx, action)
			if err == nil {
				result.Moved++
			}
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
				result.Duration = time.Since(started)
				return result, ctxErr
			}
			msg := fmt.Sprintf("%s %s: %v", action.Type, filepath.Base(action.SourcePath), err)
			result.Errors = append(result.Errors, msg)
			logging.WarnWithContext(logger, "organize action failed", "organize_action_failed",
				logging.String("action", string(action.Type)),
				logging.Path(action.SourcePath),
				logging.TrackID(action.TrackID),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, actionHint(err)),
				logging.String(logging.FieldImpact, "file left in its previous state"),
			)
		}
		if sampler.ShouldLog(i+1, len(pending)) {
			logger.Info("organize progress",
				logging.Int("current", i+1),
				logging.Int("total", len(pending)),
			)
		}
	}

	removed, sweepErrs := removeEmptyDirs(ctx, plan.LibraryRoot)
	result.RemovedDirs = removed
	for _, err := range sweepErrs {
		logging.WarnWithContext(logger, "empty directory sweep incomplete", "empty_dir_sweep_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove leftover empty folders manually"),
			logging.String(logging.FieldImpact, "empty folders may remain in the library"),
		)
	}

	result.Success = len(result.Errors) == 0
	result.Duration = time.Since(started)
	logger.Info("organize plan applied",
		logging.String(logging.FieldEventType, "plan_apply_completed"),
		logging.Int("moved", result.Moved),
		logging.Int("deleted", result.Deleted),
		logging.Int("removed_dirs", result.RemovedDirs),
		logging.Int("errors", len(result.Errors)),
		logging.Duration("duration", result.Duration),
	)
	return result, nil
}

// delete unlinks a duplicate and drops its catalog row. A file that is
// already gone still has its row removed so re-running a plan is harmless.
func (e *Executor) delete(ctx context.Context, action Action) error {
	exists, err := fileutil.Exists(action.SourcePath)
	if err != nil {
		return fmt.Errorf("check source: %w", err)
	}
	if exists {
		if err := os.Remove(action.SourcePath); err != nil {
			return fmt.Errorf("remove file: %w", err)
		}
	}
	removed, err := e.catalog.DeleteTrackByPath(ctx, e.resolver.ToCatalogPath(action.SourcePath))
	if err != nil {
		return fmt.Errorf("remove catalog row: %w", err)
	}
	if !removed && action.TrackID != "" {
		if err := e.catalog.DeleteTrack(ctx, action.TrackID); err != nil && !errors.Is(err, services.ErrNotFound) {
			return fmt.Errorf("remove catalog row: %w", err)
		}
	}
	return nil
}

// move copies the source to its target, verifies the copy by size, removes
// the source, and repoints the catalog row. A failed verification leaves
// both files in place and the catalog untouched.
func (e *Executor) move(ctx context.Context, action Action) error {
	src, dst := action.SourcePath, action.TargetPath
	srcInfo, err := os.Stat(src)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return services.Wrap(services.ErrNotFound, "organizer", "move", "source no longer exists", err)
		}
		return fmt.Errorf("stat source: %w", err)
	}

	if dstInfo, err := os.Stat(dst); err == nil {
		// Hard links share an inode too; only a case-only rename of the same
		// entry may proceed.
		if !os.SameFile(srcInfo, dstInfo) || !strings.EqualFold(src, dst) {
			return services.Wrap(services.ErrValidation, "organizer", "move",
				"destination already exists: "+dst, nil)
		}
		if err := os.Rename(src, dst); err != nil {
			return fmt.Errorf("rename in place: %w", err)
		}
		return e.afterMove(ctx, action)
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat destination: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create destination directory: %w", err)
	}
	if err := e.copyFile(src, dst); err != nil {
		return fmt.Errorf("copy: %w", err)
	}
	dstSize, err := fileutil.Size(dst)
	if err != nil {
		return services.Wrap(services.ErrCopyVerification, "organizer", "move", "stat copy", err)
	}
	if dstSize != srcInfo.Size() {
		return services.Wrap(services.ErrCopyVerification, "organizer", "move",
			fmt.Sprintf("size mismatch: source %d bytes, destination %d bytes", srcInfo.Size(), dstSize), nil)
	}
	if err := os.Remove(src); err != nil {
		return fmt.Errorf("remove source after copy: %w", err)
	}
	return e.afterMove(ctx, action)
}

// afterMove repoints the catalog once the file sits at its target. A failure
// here leaves the catalog pointing at a path that no longer exists until the
// next incremental scan.
func (e *Executor) afterMove(ctx context.Context, action Action) error {
	err := e.repoint(ctx, action)
	if err != nil {
		logging.ErrorWithContext(e.logger, "file moved but catalog not updated", "organize_repoint_failed",
			logging.Path(action.TargetPath),
			logging.TrackID(action.TrackID),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "run an incremental scan to reconcile the catalog"),
		)
	}
	return err
}

// repoint moves the catalog row, or this device's override when the row's
// stored path belongs to another device's layout.
func (e *Executor) repoint(ctx context.Context, action Action) error {
	id := action.TrackID
	if id == "" {
		track, err := e.catalog.GetTrackByPath(ctx, e.resolver.ToCatalogPath(action.SourcePath))
		if err != nil {
			return fmt.Errorf("look up catalog row: %w", err)
		}
		if track == nil {
			e.logger.Debug("moved file has no catalog row", logging.Path(action.SourcePath))
			return nil
		}
		id = track.ID
	}
	override, err := e.resolver.HasOverride(ctx, id)
	if err != nil {
		return fmt.Errorf("check device path: %w", err)
	}
	if override {
		if err := e.resolver.SavePathMapping(ctx, id, action.TargetPath); err != nil {
			return fmt.Errorf("update device path: %w", err)
		}
		return nil
	}
	if err := e.catalog.UpdateTrackPath(ctx, id, e.resolver.ToCatalogPath(action.TargetPath)); err != nil {
		return fmt.Errorf("update catalog path: %w", err)
	}
	return nil
}
