package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"tracksync/internal/catalog"
	"tracksync/internal/config"
	"tracksync/internal/logging"
	"tracksync/internal/metadata"
	"tracksync/internal/progress"
	"tracksync/internal/textutil"
)

// Progress is the snapshot delivered after each processed file.
type Progress struct {
	TotalFiles     int      `json:"totalFiles"`
	ProcessedFiles int      `json:"processedFiles"`
	CurrentFile    string   `json:"currentFile"`
	Errors         []string `json:"errors"`
}

// Result summarizes a finished scan. Per-file failures are listed in Errors
// and never abort the scan.
type Result struct {
	TotalFiles     int           `json:"totalFiles"`
	ProcessedFiles int           `json:"processedFiles"`
	Added          int           `json:"added"`
	Updated        int           `json:"updated"`
	Skipped        int           `json:"skipped"`
	Removed        int           `json:"removed"`
	Errors         []string      `json:"errors"`
	Duration       time.Duration `json:"duration"`
}

// Extractor reads metadata for one file.
type Extractor interface {
	Extract(ctx context.Context, path string) (*metadata.TrackMetadata, error)
}

// Options tunes a Scanner.
type Options struct {
	// MaxOpenFiles bounds how many files are extracted and hashed at once.
	MaxOpenFiles int
	Logger       *slog.Logger
}

// OptionsFromConfig derives scanner options from configuration.
func OptionsFromConfig(cfg *config.Config, logger *slog.Logger) Options {
	return Options{MaxOpenFiles: cfg.Scanner.MaxOpenFiles, Logger: logger}
}

// Scanner reconciles a library directory with the catalog.
type Scanner struct {
	catalog   *catalog.Catalog
	resolver  *catalog.PathResolver
	extractor Extractor
	maxOpen   int
	logger    *slog.Logger
}

// New builds a scanner writing through cat. Paths are stored in the form
// produced by resolver.
func New(cat *catalog.Catalog, resolver *catalog.PathResolver, extractor Extractor, opts Options) *Scanner {
	maxOpen := opts.MaxOpenFiles
	if maxOpen <= 0 {
		maxOpen = 1
	}
	return &Scanner{
		catalog:   cat,
		resolver:  resolver,
		extractor: extractor,
		maxOpen:   maxOpen,
		logger:    logging.NewComponentLogger(opts.Logger, "scanner"),
	}
}

// StartScan runs ScanLibrary in the background and exposes its progress as a
// pull-based stream.
func (s *Scanner) StartScan(ctx context.Context, root string, forceRefresh bool) *progress.Stream[Progress, Result] {
	return progress.Start(ctx, func(ctx context.Context, emit func(Progress)) (Result, error) {
		return s.ScanLibrary(ctx, root, forceRefresh, emit)
	})
}

// StartIncremental runs IncrementalScan in the background and exposes its
// progress as a pull-based stream.
func (s *Scanner) StartIncremental(ctx context.Context, root string) *progress.Stream[Progress, Result] {
	return progress.Start(ctx, func(ctx context.Context, emit func(Progress)) (Result, error) {
		return s.IncrementalScan(ctx, root, emit)
	})
}

// ScanLibrary processes every supported file under root. A file is skipped
// only when forceRefresh is false and its catalog row records the same
// modification time. The returned error is non-nil only on cancellation.
func (s *Scanner) ScanLibrary(ctx context.Context, root string, forceRefresh bool, onProgress func(Progress)) (Result, error) {
	started := time.Now()
	root = filepath.Clean(root)
	logger := s.logger.With(logging.String(logging.FieldOperation, "scan"))
	logger.Info("library scan started",
		logging.String(logging.FieldEventType, "scan_started"),
		logging.Path(root),
		logging.Bool("force_refresh", forceRefresh),
	)

	var result Result
	walked, err := walkLibrary(ctx, root)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, ctxErr
		}
		result.Errors = append(result.Errors, fmt.Sprintf("failed to read directory: %s: %v", root, err))
		return s.finish(logger, result, started), nil
	}
	result.Errors = append(result.Errors, walked.errors...)
	result.TotalFiles = len(walked.files)
	idx, err := s.loadIndex(ctx)
	if err != nil {
		return result, err
	}
	s.recordMusicRoot(ctx)

	err = s.process(ctx, walked.files, idx, !forceRefresh, &result, onProgress, logger)
	if err != nil {
		return result, err
	}
	return s.finish(logger, result, started), nil
}

// IncrementalScan adds files the catalog does not know and removes rows
// under root whose files no longer exist. Files present in both are left
// untouched, even if they changed on disk.
func (s *Scanner) IncrementalScan(ctx context.Context, root string, onProgress func(Progress)) (Result, error) {
	started := time.Now()
	root = filepath.Clean(root)
	logger := s.logger.With(logging.String(logging.FieldOperation, "incremental_scan"))
	logger.Info("incremental scan started",
		logging.String(logging.FieldEventType, "scan_started"),
		logging.Path(root),
	)

	var result Result
	idx, err := s.loadIndex(ctx)
	if err != nil {
		return result, err
	}

	walked, err := walkLibrary(ctx, root)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, ctxErr
		}
		result.Errors = append(result.Errors, fmt.Sprintf("failed to read directory: %s: %v", root, err))
		return s.finish(logger, result, started), nil
	}
	result.Errors = append(result.Errors, walked.errors...)
	result.TotalFiles = len(walked.files)
	s.recordMusicRoot(ctx)

	found := make(map[string]struct{}, len(walked.files))
	var fresh []string
	for _, path := range walked.files {
		found[textutil.NormalizePath(path)] = struct{}{}
		if idx.knows(path) {
			result.Skipped++
			continue
		}
		fresh = append(fresh, path)
	}

	if err := s.process(ctx, fresh, idx, false, &result, onProgress, logger); err != nil {
		return result, err
	}

	for _, track := range idx.tracks {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		local := idx.local[track.ID]
		if !within(root, local) {
			continue
		}
		if _, ok := found[textutil.NormalizePath(local)]; ok {
			continue
		}
		if _, err := os.Lstat(local); !errors.Is(err, os.ErrNotExist) {
			// Present but not listed (unreadable directory, unsupported
			// type) or not checkable: keep the row.
			continue
		}
		if err := s.catalog.DeleteTrack(ctx, track.ID); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("failed to remove: %s: %v", local, err))
			continue
		}
		result.Removed++
		logger.Debug("removed missing track",
			logging.TrackID(track.ID),
			logging.Path(local),
		)
	}
	return s.finish(logger, result, started), nil
}

type extraction struct {
	path        string
	catalogPath string
	meta        *metadata.TrackMetadata
	skipped     bool
	shadowed    bool
	err         error
}

// process extracts files on the worker pool and commits results in order.
func (s *Scanner) process(ctx context.Context, files []string, idx *libraryIndex, skipUnchanged bool, result *Result, onProgress func(Progress), logger *slog.Logger) error {
	if len(files) == 0 {
		return ctx.Err()
	}
	slots := make([]chan extraction, len(files))
	for i := range slots {
		slots[i] = make(chan extraction, 1)
	}

	workCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	group, groupCtx := errgroup.WithContext(workCtx)
	group.SetLimit(s.maxOpen)

	dispatched := make(chan struct{})
	go func() {
		defer close(dispatched)
		for i, path := range files {
			if groupCtx.Err() != nil {
				return
			}
			group.Go(func() error {
				slots[i] <- s.extract(groupCtx, path, idx, skipUnchanged)
				return nil
			})
		}
	}()
	defer func() {
		cancel()
		<-dispatched
		_ = group.Wait()
	}()

	sampler := logging.NewProgressSampler(5)
	total := len(files)
	for i, path := range files {
		var item extraction
		select {
		case item = <-slots[i]:
		case <-ctx.Done():
			return ctx.Err()
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		s.commit(ctx, item, result, logger)
		result.ProcessedFiles++

		if onProgress != nil {
			onProgress(Progress{
				TotalFiles:     total,
				ProcessedFiles: i + 1,
				CurrentFile:    path,
				Errors:         append([]string(nil), result.Errors...),
			})
		}
		if sampler.ShouldLog(i+1, total) {
			logger.Info("scan progress",
				logging.String(logging.FieldEventType, "scan_progress"),
				logging.Int("processed", i+1),
				logging.Int("total", total),
			)
		}
	}
	return nil
}

// extract reads one file. Rows are keyed by the catalog path of the track
// the file belongs to, which for an overridden track is its stored path and
// not one derived from the file's location.
func (s *Scanner) extract(ctx context.Context, path string, idx *libraryIndex, skipUnchanged bool) extraction {
	entry := idx.lookup(s.resolver, path)
	item := extraction{path: path, catalogPath: entry.catalogPath, shadowed: entry.shadowed}
	if entry.shadowed {
		return item
	}
	if skipUnchanged && entry.existing != nil {
		info, err := os.Stat(path)
		if err != nil {
			item.err = err
			return item
		}
		if entry.existing.LastModified == info.ModTime().UnixMilli() {
			item.skipped = true
			return item
		}
	}
	item.meta, item.err = s.extractor.Extract(ctx, path)
	return item
}

func (s *Scanner) commit(ctx context.Context, item extraction, result *Result, logger *slog.Logger) {
	switch {
	case item.err != nil:
		result.Errors = append(result.Errors, fmt.Sprintf("failed to process: %s: %v", item.path, item.err))
		logging.WarnWithContext(logger, "file not cataloged", "scan_file_failed",
			logging.Path(item.path),
			logging.Error(item.err),
			logging.String(logging.FieldErrorHint, "check that the file is readable"),
			logging.String(logging.FieldImpact, "file is missing from the catalog until the next scan"),
		)
		return
	case item.shadowed:
		result.Skipped++
		logger.Info("file left uncataloged",
			logging.String(logging.FieldEventType, "scan_file_shadowed"),
			logging.Path(item.path),
			logging.String("reason", "its catalog path belongs to a track this device keeps elsewhere"),
		)
		return
	case item.skipped:
		result.Skipped++
		return
	}

	track := trackFromMetadata(item.meta, item.catalogPath)
	inserted, err := s.catalog.InsertOrReplaceTrack(ctx, &track)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("failed to process: %s: %v", item.path, err))
		logging.WarnWithContext(logger, "catalog write failed", "scan_write_failed",
			logging.Path(item.path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "retry the scan once other tracksync processes finish"),
			logging.String(logging.FieldImpact, "file is missing from the catalog until the next scan"),
		)
		return
	}
	if inserted {
		result.Added++
	} else {
		result.Updated++
	}
	logger.Debug("track cataloged",
		logging.TrackID(track.ID),
		logging.Path(item.path),
		logging.Bool("inserted", inserted),
	)
}

func (s *Scanner) recordMusicRoot(ctx context.Context) {
	root := s.resolver.Root()
	if root == "" {
		return
	}
	current, ok, err := s.catalog.GetMetadata(ctx, catalog.MetaMusicRootPath)
	if err == nil && ok && current == root {
		return
	}
	if err := s.catalog.SetMetadata(ctx, catalog.MetaMusicRootPath, root); err != nil {
		logging.WarnWithContext(s.logger, "music root not recorded", "metadata_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "other devices cannot see this device's music root"),
		)
	}
}

func (s *Scanner) finish(logger *slog.Logger, result Result, started time.Time) Result {
	result.Duration = time.Since(started)
	logger.Info("scan completed",
		logging.String(logging.FieldEventType, "scan_completed"),
		logging.Int("total", result.TotalFiles),
		logging.Int("processed", result.ProcessedFiles),
		logging.Int("added", result.Added),
		logging.Int("updated", result.Updated),
		logging.Int("skipped", result.Skipped),
		logging.Int("removed", result.Removed),
		logging.Int("errors", len(result.Errors)),
		logging.Duration("duration", result.Duration),
	)
	return result
}

func trackFromMetadata(meta *metadata.TrackMetadata, catalogPath string) catalog.Track {
	size := meta.FileSizeBytes
	return catalog.Track{
		FilePath:        catalogPath,
		FileHash:        meta.FileHash,
		Artist:          meta.Artist,
		AlbumArtist:     meta.AlbumArtist,
		Title:           meta.Title,
		Album:           meta.Album,
		TrackNo:         meta.TrackNo,
		BPM:             meta.BPM,
		DurationSeconds: meta.DurationSeconds,
		FileSizeBytes:   &size,
		BitrateKbps:     meta.BitrateKbps,
		Format:          meta.Format,
		LastModified:    meta.LastModified,
	}
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
