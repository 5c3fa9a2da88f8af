package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"sglxpipe/internal/config"
	"sglxpipe/internal/fileutil"
	"sglxpipe/internal/ledger"
	"sglxpipe/internal/logging"
	"sglxpipe/internal/runlog"
	"sglxpipe/internal/runspec"
	"sglxpipe/internal/services"
	"sglxpipe/internal/sglx"
)

// ErrLocked is returned when another invocation holds the state directory lock.
var ErrLocked = errors.New("another sglxpipe invocation is running")

// ModuleRunner executes one processing module.
type ModuleRunner interface {
	RunModule(ctx context.Context, module, inputJSON, outputJSON string) error
	CommandLine(module, inputJSON, outputJSON string) string
}

// StageLedger persists stage executions. *ledger.Ledger satisfies it.
type StageLedger interface {
	Begin(ctx context.Context, entry ledger.Entry) (int64, error)
	Finish(ctx context.Context, id int64, status ledger.Status, stageErr error) error
	Skip(ctx context.Context, entry ledger.Entry) error
	Succeeded(ctx context.Context, session, stage, digest string) (bool, error)
}

// Options controls a single invocation.
type Options struct {
	// DryRun writes every record and logs every command without executing anything.
	DryRun bool
	// Resume skips stages whose session, stage and record digest already succeeded.
	Resume bool
	// Only restricts the batch to the named runs.
	Only []string
}

// Summary reports what an invocation did.
type Summary struct {
	PipelineID string
	Runs       int
	Sessions   int
	Executed   int
	Skipped    int
	Planned    int
}

// Runner sequences stages for a run table.
type Runner struct {
	cfg     *config.Config
	modules ModuleRunner
	ledger  StageLedger
	logger  *slog.Logger
	now     func() time.Time
	newID   func() string
	finder  func(dir, name, gate, probe string) (int, int, error)
}

// New constructs a runner. store may be nil to disable the ledger.
func New(cfg *config.Config, modules ModuleRunner, store StageLedger, logger *slog.Logger) (*Runner, error) {
	if cfg == nil || modules == nil {
		return nil, errors.New("pipeline requires config and module runner")
	}
	return &Runner{
		cfg:     cfg,
		modules: modules,
		ledger:  store,
		logger:  logging.NewComponentLogger(logger, "pipeline"),
		now:     time.Now,
		newID:   uuid.NewString,
		finder:  sglx.TriggerBounds,
	}, nil
}

// Run processes every run of table in order.
func (r *Runner) Run(ctx context.Context, table runspec.Table, opts Options) (Summary, error) {
	selected, err := table.Filter(opts.Only)
	if err != nil {
		return Summary{}, err
	}
	if err := selected.Validate(r.cfg); err != nil {
		return Summary{}, err
	}
	if err := r.cfg.EnsureDirectories(); err != nil {
		return Summary{}, services.Wrap(services.ErrConfiguration, "pipeline", "prepare", "create output directories", err)
	}

	lock := flock.New(r.cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return Summary{}, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return Summary{}, fmt.Errorf("%w (lock %s)", ErrLocked, r.cfg.LockPath())
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			r.logger.Warn("failed to release lock", logging.Error(err))
		}
	}()

	summary := Summary{PipelineID: r.newID()}
	ctx = services.WithPipelineID(ctx, summary.PipelineID)
	logger := logging.WithContext(ctx, r.logger)
	logger.Info("pipeline started",
		logging.String(logging.FieldEventType, "pipeline_start"),
		logging.Int("runs", len(selected.Runs)),
		logging.Bool("dry_run", opts.DryRun),
		logging.Bool("resume", opts.Resume),
	)

	if !opts.DryRun {
		r.removeToolLogs(ctx)
		if err := runlog.Prepare(r.cfg.RunLogPath(), r.cfg.RunLog.Mode); err != nil {
			return summary, services.Wrap(services.ErrConfiguration, "pipeline", "prepare", "prepare run log", err)
		}
	}

	for _, run := range selected.Runs {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if err := r.processRun(ctx, run, opts, &summary); err != nil {
			logging.ErrorWithContext(logger, "pipeline stopped", "pipeline_failure",
				logging.String("failed_run", run.RunName()),
				logging.String("error_kind", services.Kind(err)),
				logging.Error(err),
			)
			return summary, err
		}
		summary.Runs++
	}

	logger.Info("pipeline completed",
		logging.String(logging.FieldEventType, "pipeline_complete"),
		logging.Int("runs", summary.Runs),
		logging.Int("sessions", summary.Sessions),
		logging.Int("executed", summary.Executed),
		logging.Int("skipped", summary.Skipped),
	)
	return summary, nil
}

func (r *Runner) removeToolLogs(ctx context.Context) {
	logger := logging.WithContext(ctx, r.logger)
	for _, path := range sglx.ToolLogs(r.cfg.Paths.WorkDir, r.cfg.CatGT.Enabled, r.cfg.TPrime.Enabled) {
		if err := fileutil.RemoveIfExists(path); err != nil {
			logging.WarnWithContext(logger, "could not remove stale tool log", "tool_log_cleanup_failed",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "remove the file manually before the next run"),
				logging.String(logging.FieldImpact, "gfix values may include entries from an earlier batch"),
			)
		}
	}
}
