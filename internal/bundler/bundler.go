// =============================================================================
// DFR Chargeback Bundler - Batch Processor
// =============================================================================
//
// This module contains the batch pipeline. It selects the DFR extracts that
// arrived since the last successful run, turns each one into a submission
// bundle, delivers the bundle to every sink and finally advances the run
// cursor.
//
// BATCH PIPELINE:
//   1. Take the run lock
//   2. Read the run cursor
//   3. List and select new source files
//   4. Process each file in listing order (see processFile)
//   5. Write the batch summary workbook (optional)
//   6. Advance the run cursor
//
// FAILURE MODEL:
//   Any error in steps 2-6 aborts the batch. Files already delivered stay
//   delivered, but the cursor is not advanced, so the next run selects the
//   same files again.
//
// =============================================================================

package bundler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ginjaninja78/dfr-chargeback-bundler/internal/config"
	"github.com/ginjaninja78/dfr-chargeback-bundler/internal/cursor"
	"github.com/ginjaninja78/dfr-chargeback-bundler/internal/dfrparser"
	"github.com/ginjaninja78/dfr-chargeback-bundler/internal/indexwriter"
	"github.com/ginjaninja78/dfr-chargeback-bundler/internal/logger"
	"github.com/ginjaninja78/dfr-chargeback-bundler/internal/report"
	"github.com/ginjaninja78/dfr-chargeback-bundler/internal/runlock"
	"github.com/ginjaninja78/dfr-chargeback-bundler/internal/runlog"
	"github.com/ginjaninja78/dfr-chargeback-bundler/internal/store"
	"github.com/ginjaninja78/dfr-chargeback-bundler/internal/types"
	"github.com/ginjaninja78/dfr-chargeback-bundler/internal/validation"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrTemplate is returned when the attachment template cannot be fetched.
	ErrTemplate = errors.New("template fetch failed")

	// ErrArchive is returned when a bundle cannot be assembled or written.
	ErrArchive = errors.New("archive write failed")

	// ErrUpload is returned when a sink rejects a composite artifact.
	ErrUpload = errors.New("upload failed")
)

// =============================================================================
// OPTIONS
// =============================================================================

// Options change how a single batch runs.
type Options struct {
	// DryRun builds every artifact but skips uploads, audit logs, the
	// summary workbook and the cursor.
	DryRun bool

	// File processes one named source object instead of the cursor
	// selection. The cursor is neither read nor advanced.
	File string

	// KeepDir, when set, receives a copy of every artifact produced.
	KeepDir string
}

// =============================================================================
// PROCESSOR
// =============================================================================

// Processor runs bundler batches.
type Processor struct {
	cfg     *config.Config
	stores  *store.Stores
	lock    runlock.Lock
	log     *logger.Logger
	parser  *dfrparser.Parser
	filter  *dfrparser.Filter
	encoder *indexwriter.Encoder
	cursor  *cursor.Cursor
	audit   *runlog.Writer
	loc     *time.Location
	now     func() time.Time
}

// New creates a processor.
//
// PARAMETERS:
//   - cfg: The validated configuration.
//   - stores: The opened source, state and sink stores.
//   - lock: The run lock. Nil means no locking.
//   - log: The logger. Nil means the package default.
//
// RETURNS:
//   - The processor.
//   - An error if the filter threshold or timezone cannot be parsed.
func New(cfg *config.Config, stores *store.Stores, lock runlock.Lock, log *logger.Logger) (*Processor, error) {
	if lock == nil {
		lock = runlock.None{}
	}
	if log == nil {
		log = logger.Default()
	}

	filter, err := dfrparser.NewFilter(cfg.Filter)
	if err != nil {
		return nil, err
	}

	loc, err := cfg.Processing.Location()
	if err != nil {
		return nil, fmt.Errorf("invalid timezone: %w", err)
	}

	return &Processor{
		cfg:     cfg,
		stores:  stores,
		lock:    lock,
		log:     log,
		parser:  dfrparser.New(cfg.Filter, cfg.Processing.MalformedLines),
		filter:  filter,
		encoder: indexwriter.NewEncoder(cfg.Submission),
		cursor:  cursor.New(stores.State, cfg.State.CursorObject, log),
		audit:   runlog.NewWriter(stores.State, cfg.State.LogsPrefix, cfg.Processing.AuditMode),
		loc:     loc,
		now:     time.Now,
	}, nil
}

// SetClock replaces the wall clock. Tests use it to pin artifact names.
func (p *Processor) SetClock(now func() time.Time) {
	p.now = now
}

func (p *Processor) clock() time.Time {
	return p.now().In(p.loc)
}

// =============================================================================
// BATCH
// =============================================================================

// Run executes one batch.
//
// RETURNS:
//   - The batch result. It is always populated; Status is StatusError when
//     the batch failed.
//   - The error that failed the batch, or nil. runlock.ErrLocked means the
//     batch never started.
func (p *Processor) Run(ctx context.Context, opts Options) (types.BatchResult, error) {
	runID := uuid.NewString()
	log := p.log.With("run_id", runID)
	result := types.BatchResult{RunID: runID}

	start := time.Now()
	log.Info("batch started", "dry_run", opts.DryRun, "file", opts.File)

	err := runlock.With(ctx, p.lock, log, func() error {
		return p.runBatch(ctx, opts, log, &result)
	})

	if err != nil {
		result.Status = types.StatusError
		result.Message = err.Error()
		log.Error("batch failed", "error", err, "processed_files", len(result.Files))
		return result, err
	}

	result.Status = types.StatusSuccess
	log.Info("batch finished", "processed_files", result.ProcessedFiles, "duration", time.Since(start).String())
	return result, nil
}

func (p *Processor) runBatch(ctx context.Context, opts Options, log *logger.Logger, result *types.BatchResult) error {
	// =========================================================================
	// STEP 1: CHECK SUBMISSION IDENTITY
	// =========================================================================
	// A company id or password that does not fit the fixed-width layout
	// would corrupt every bundle of the batch.

	if err := validation.ValidateSubmission(p.cfg.Submission).Err(); err != nil {
		return err
	}

	// =========================================================================
	// STEP 2: SELECT SOURCE FILES
	// =========================================================================

	selected, err := p.selectFiles(ctx, opts, log)
	if err != nil {
		return err
	}
	result.ProcessedFiles = len(selected)
	log.Info("source files selected", "count", len(selected))

	// =========================================================================
	// STEP 3: PROCESS FILES
	// =========================================================================
	// Files are processed one at a time in listing order. The first failure
	// aborts the rest of the batch.

	for i, obj := range selected {
		if i > 0 {
			if err := pace(ctx, p.cfg.Processing.Pacing()); err != nil {
				return err
			}
		}

		fr, err := p.processFile(ctx, obj, opts, log.With("file", obj.Name))
		result.Files = append(result.Files, fr)
		if err != nil {
			return fmt.Errorf("%s: %w", obj.Name, err)
		}
	}

	if opts.DryRun {
		log.Info("dry run, skipping report and cursor")
		return nil
	}

	// =========================================================================
	// STEP 4: SUMMARY WORKBOOK
	// =========================================================================

	if p.cfg.Processing.SummaryReport {
		name, err := report.Write(ctx, p.stores.State, p.cfg.State.LogsPrefix, p.clock(), *result)
		if err != nil {
			return err
		}
		log.Info("summary workbook written", "object", name)
	}

	// =========================================================================
	// STEP 5: ADVANCE CURSOR
	// =========================================================================

	if opts.File != "" {
		return nil
	}
	return p.cursor.Write(ctx, p.now())
}

// selectFiles returns the source objects of this batch.
func (p *Processor) selectFiles(ctx context.Context, opts Options, log *logger.Logger) ([]types.SourceObject, error) {
	if opts.File != "" {
		return []types.SourceObject{{Name: opts.File}}, nil
	}

	since := p.cursor.Read(ctx)
	log.Debug("cursor read", "since", since.Format(cursor.Layout))

	listed, err := p.stores.Source.List(ctx, p.cfg.Source.Prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list source files: %w", err)
	}

	return cursor.Select(listed, p.cfg.Source.NameFilter, since), nil
}

// pace waits d between two files, returning early if ctx is cancelled.
func pace(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
