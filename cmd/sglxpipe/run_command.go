package main

import (
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"sglxpipe/internal/ledger"
	"sglxpipe/internal/logging"
	"sglxpipe/internal/pipeline"
	"sglxpipe/internal/preflight"
	"sglxpipe/internal/runspec"
	"sglxpipe/internal/services"
	"sglxpipe/internal/services/ecephys"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var runsPath string
	var only []string
	var dryRun bool
	var resume bool
	var skipChecks bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process every run of a run table",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			table, err := runspec.LoadTable(strings.TrimSpace(runsPath))
			if err != nil {
				return fmt.Errorf("load run table: %w", err)
			}

			if !dryRun && !skipChecks {
				if failed := preflight.Failed(preflight.RunAll(cmd.Context(), cfg)); len(failed) > 0 {
					return fmt.Errorf("preflight failed: %s: %w", preflight.Summary(failed), services.ErrConfiguration)
				}
			}

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			store, err := ledger.Open(cfg)
			if err != nil {
				return fmt.Errorf("open ledger: %w", err)
			}
			defer store.Close()

			modules, err := ecephys.New(cfg, ecephys.WithLogger(logger))
			if err != nil {
				return err
			}
			runner, err := pipeline.New(cfg, modules, store, logger)
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			summary, err := runner.Run(runCtx, table, pipeline.Options{
				DryRun: dryRun,
				Resume: resume,
				Only:   only,
			})
			printRunSummary(cmd, summary, dryRun)
			if errors.Is(err, pipeline.ErrLocked) {
				return fmt.Errorf("%w; wait for it to finish or remove a stale lock", err)
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&runsPath, "runs", "r", "", "Run table (.toml, .yaml or .yml)")
	cmd.Flags().StringArrayVar(&only, "only", nil, "Process only the named run (<name> or <name>_g<gate>); repeatable")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Write configuration records and log commands without executing")
	cmd.Flags().BoolVar(&resume, "resume", false, "Skip stages that already succeeded with identical parameters")
	cmd.Flags().BoolVar(&skipChecks, "skip-checks", false, "Start without the directory and toolchain preflight")
	_ = cmd.MarkFlagRequired("runs")
	return cmd
}

func printRunSummary(cmd *cobra.Command, summary pipeline.Summary, dryRun bool) {
	if summary.PipelineID == "" {
		return
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Pipeline %s\n", summary.PipelineID)
	fmt.Fprintf(out, "Runs completed: %d\n", summary.Runs)
	fmt.Fprintf(out, "Sessions: %d\n", summary.Sessions)
	if dryRun {
		fmt.Fprintf(out, "Stages planned: %d\n", summary.Planned)
		return
	}
	fmt.Fprintf(out, "Stages executed: %d\n", summary.Executed)
	fmt.Fprintf(out, "Stages skipped: %d\n", summary.Skipped)
}
