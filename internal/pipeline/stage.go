package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"sglxpipe/internal/ledger"
	"sglxpipe/internal/logging"
	"sglxpipe/internal/services"
)

type stageCall struct {
	run     string
	session string
	module  string
	input   string
	output  string
	digest  string
	skipped bool
}

// runStage executes one module, recording it in the ledger. With resume
// enabled a stage that already succeeded with the same record digest is skipped.
func (r *Runner) runStage(ctx context.Context, step *stageCall, opts Options, summary *Summary) error {
	ctx = services.WithStage(ctx, step.module)
	logger := logging.WithContext(ctx, r.logger)
	command := r.modules.CommandLine(step.module, step.input, step.output)

	if opts.DryRun {
		summary.Planned++
		logger.Info("stage planned",
			logging.String(logging.FieldEventType, "stage_planned"),
			logging.String("session", step.session),
			logging.String("command", command),
		)
		return nil
	}

	entry := ledger.Entry{
		PipelineID: summary.PipelineID,
		Run:        step.run,
		Session:    step.session,
		Stage:      step.module,
		Digest:     step.digest,
		Command:    command,
	}

	if opts.Resume && r.ledger != nil {
		done, err := r.ledger.Succeeded(ctx, step.session, step.module, step.digest)
		if err != nil {
			return services.Wrap(services.ErrTransient, step.module, "resume check", step.session, err)
		}
		if done {
			if err := r.ledger.Skip(ctx, entry); err != nil {
				logger.Warn("failed to record skipped stage", logging.Error(err))
			}
			step.skipped = true
			summary.Skipped++
			logger.Info("stage skipped",
				logging.String(logging.FieldEventType, "stage_skipped"),
				logging.String("session", step.session),
				logging.String("reason", "already succeeded with identical record"),
			)
			return nil
		}
	}

	var id int64
	if r.ledger != nil {
		var err error
		if id, err = r.ledger.Begin(ctx, entry); err != nil {
			return services.Wrap(services.ErrTransient, step.module, "ledger begin", step.session, err)
		}
	}

	logger.Info("stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("session", step.session),
		logging.String("input_json", step.input),
		logging.String("command", command),
	)
	started := time.Now()

	if err := r.modules.RunModule(ctx, step.module, step.input, step.output); err != nil {
		details := services.Details(err)
		if r.ledger != nil {
			if finishErr := r.ledger.Finish(context.WithoutCancel(ctx), id, ledger.StatusFailed, err); finishErr != nil {
				logger.Error("failed to persist stage failure", logging.Error(finishErr))
			}
		}
		logging.ErrorWithContext(logger, "stage failed", "stage_failure",
			logging.String("session", step.session),
			logging.String("error_kind", details.Kind),
			logging.String("error_message", strings.TrimSpace(details.Message)),
			logging.Duration("elapsed", time.Since(started)),
			logging.String(logging.FieldErrorHint, "inspect the module output above and the tool logs in the work directory"),
		)
		return fmt.Errorf("%s %s: %w", step.session, step.module, err)
	}

	if r.ledger != nil {
		if err := r.ledger.Finish(ctx, id, ledger.StatusSucceeded, nil); err != nil {
			return services.Wrap(services.ErrTransient, step.module, "ledger finish", step.session, err)
		}
	}
	summary.Executed++
	logger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String("session", step.session),
		logging.Duration("elapsed", time.Since(started)),
	)
	return nil
}
