package pipeline

import (
	"context"
	"errors"
	"path/filepath"

	"sglxpipe/internal/fileutil"
	"sglxpipe/internal/logging"
	"sglxpipe/internal/params"
	"sglxpipe/internal/plan"
	"sglxpipe/internal/runlog"
	"sglxpipe/internal/runspec"
	"sglxpipe/internal/services"
	"sglxpipe/internal/sglx"
)

func (r *Runner) processRun(ctx context.Context, run runspec.Run, opts Options, summary *Summary) error {
	rp, err := plan.Build(r.cfg, run, r.finder)
	if err != nil {
		return err
	}
	ctx = services.WithRun(ctx, rp.RunName)
	logger := logging.WithContext(ctx, r.logger)
	logger.Info("run started",
		logging.String(logging.FieldEventType, "run_start"),
		logging.String("triggers", rp.Triggers.String()),
		logging.Int("probes", len(rp.Probes)),
	)

	var runCatGT *stageCall
	if rp.CatGT != nil {
		c := rp.CatGT
		digest, err := params.Write(c.Input, c.Record)
		if err != nil {
			return services.Wrap(services.ErrConfiguration, plan.CatGTModule, "write record", c.Session, err)
		}
		runCatGT = &stageCall{
			run:     rp.RunName,
			session: c.Session,
			module:  plan.CatGTModule,
			input:   c.Input,
			output:  c.Output,
			digest:  digest,
		}
		if err := r.runStage(ctx, runCatGT, opts, summary); err != nil {
			return err
		}
	}

	for i := range rp.Probes {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.processProbe(ctx, rp, &rp.Probes[i], runCatGT, opts, summary); err != nil {
			return err
		}
		summary.Sessions++
	}

	if rp.TPrime != nil {
		tp := rp.TPrime
		digest, err := params.Write(tp.Input, tp.Record)
		if err != nil {
			return services.Wrap(services.ErrConfiguration, plan.TPrimeModule, "write record", tp.Session, err)
		}
		if err := r.runStage(ctx, &stageCall{
			run:     rp.RunName,
			session: tp.Session,
			module:  plan.TPrimeModule,
			input:   tp.Input,
			output:  tp.Output,
			digest:  digest,
		}, opts, summary); err != nil {
			return err
		}
	}

	logger.Info("run completed", logging.String(logging.FieldEventType, "run_complete"))
	return nil
}

// processProbe runs the per-probe stages. runCatGT is the run-level CatGT
// stage when one call covers every probe; it is nil in per-probe mode.
func (r *Runner) processProbe(ctx context.Context, rp plan.RunPlan, pp *plan.ProbePlan, runCatGT *stageCall, opts Options, summary *Summary) error {
	ctx = services.WithProbe(ctx, pp.Probe)
	logger := logging.WithContext(ctx, r.logger)

	gfix := 0.0
	var outputs []runlog.ModuleOutput
	switch {
	case runCatGT != nil:
		outputs = append(outputs, runlog.ModuleOutput{Name: plan.CatGTModule, Path: runCatGT.output})
		gfix = r.gfixEdits(ctx, rp.RunName, pp, runCatGT.skipped, opts.DryRun)
	case pp.CatGTInput != "":
		digest, err := params.Write(pp.CatGTInput, pp.CatGT)
		if err != nil {
			return services.Wrap(services.ErrConfiguration, plan.CatGTModule, "write record", pp.Session, err)
		}
		step := &stageCall{
			run:     rp.RunName,
			session: pp.Session,
			module:  plan.CatGTModule,
			input:   pp.CatGTInput,
			output:  pp.CatGTOutput,
			digest:  digest,
		}
		if err := r.runStage(ctx, step, opts, summary); err != nil {
			return err
		}
		outputs = append(outputs, runlog.ModuleOutput{Name: plan.CatGTModule, Path: pp.CatGTOutput})
		gfix = r.gfixEdits(ctx, rp.RunName, pp, step.skipped, opts.DryRun)
	}

	pp.Module.CatGTGfixEdits = gfix
	digest, err := params.Write(pp.ModuleInput, pp.Module)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "modules", "write record", pp.Session, err)
	}
	if !opts.DryRun {
		if err := copyRecord(pp); err != nil {
			logging.WarnWithContext(logger, "could not copy module record into data folder", "record_copy_failed",
				logging.String("destination", pp.RecordCopy),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check that CatGT produced the probe folder"),
				logging.String(logging.FieldImpact, "the data folder lacks a record of the sorter parameters"),
			)
		}
	}

	for _, module := range pp.Modules {
		if err := r.runStage(ctx, &stageCall{
			run:     rp.RunName,
			session: pp.Session,
			module:  module.Name,
			input:   pp.ModuleInput,
			output:  module.Output,
			digest:  digest,
		}, opts, summary); err != nil {
			return err
		}
		outputs = append(outputs, runlog.ModuleOutput{Name: module.Name, Path: module.Output})
	}

	if opts.DryRun {
		return nil
	}
	entry := runlog.Entry{
		Timestamp:  r.now(),
		PipelineID: summary.PipelineID,
		Session:    pp.Session,
		Run:        rp.RunName,
		Gate:       rp.Run.Gate,
		Triggers:   rp.Triggers.String(),
		Probe:      pp.Probe,
		Region:     pp.Region,
		GfixEdits:  gfix,
		Modules:    r.cfg.Postprocess.Modules,
		Outputs:    outputs,
	}
	if err := runlog.Append(r.cfg.RunLogPath(), entry); err != nil {
		return services.Wrap(services.ErrTransient, "run log", "append", pp.Session, err)
	}
	logger.Info("probe session completed",
		logging.String(logging.FieldEventType, "session_complete"),
		logging.String("session", pp.Session),
		logging.Float64("gfix_edits_per_sec", gfix),
	)
	return nil
}

// gfixEdits reads the probe's gfix edit rate from CatGT.log. When CatGT did
// not run (skipped on resume, or a dry run) the log does not hold a current
// value, so the module record already on disk supplies it. A dry run without
// a previous record leaves the rate at zero.
func (r *Runner) gfixEdits(ctx context.Context, runName string, pp *plan.ProbePlan, catgtSkipped, dryRun bool) float64 {
	logger := logging.WithContext(ctx, r.logger)
	if catgtSkipped || dryRun {
		if previous, err := params.ReadModuleRecord(pp.ModuleInput); err == nil {
			return previous.CatGTGfixEdits
		}
		if dryRun {
			return 0
		}
	}
	logPath := filepath.Join(r.cfg.Paths.WorkDir, sglx.CatGTLog)
	edits, err := sglx.ParseGfixEdits(logPath, runName, []string{pp.Probe})
	if err != nil {
		logging.WarnWithContext(logger, "could not read gfix edits", "gfix_parse_failed",
			logging.String("catgt_log", logPath),
			logging.Error(err),
			logging.String(logging.FieldImpact, "gfix edits recorded as zero"),
		)
	}
	return edits[pp.Probe]
}

func copyRecord(pp *plan.ProbePlan) error {
	if pp.RecordCopy == "" {
		return errors.New("no record destination")
	}
	return fileutil.CopyFileVerified(pp.ModuleInput, pp.RecordCopy)
}
