package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"sglxpipe/internal/plan"
	"sglxpipe/internal/runspec"
)

func newPlanCommand(ctx *commandContext) *cobra.Command {
	var runsPath string
	var only []string

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the sessions, stages and records a run table expands to",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			table, err := runspec.LoadTable(strings.TrimSpace(runsPath))
			if err != nil {
				return fmt.Errorf("load run table: %w", err)
			}
			selected, err := table.Filter(only)
			if err != nil {
				return err
			}
			if err := selected.Validate(cfg); err != nil {
				return err
			}

			var rows [][]string
			for _, run := range selected.Runs {
				runPlan, err := plan.Build(cfg, run, nil)
				if err != nil {
					return err
				}
				rows = append(rows, planRows(runPlan)...)
			}
			fmt.Fprint(cmd.OutOrStdout(), renderTable(
				[]string{"Session", "Region", "Triggers", "Stages", "Record"},
				rows,
				2,
			))
			return nil
		},
	}

	cmd.Flags().StringVarP(&runsPath, "runs", "r", "", "Run table (.toml, .yaml or .yml)")
	cmd.Flags().StringArrayVar(&only, "only", nil, "Show only the named run (<name> or <name>_g<gate>); repeatable")
	_ = cmd.MarkFlagRequired("runs")
	return cmd
}

func planRows(runPlan plan.RunPlan) [][]string {
	triggers := runPlan.Triggers.String()
	rows := make([][]string, 0, len(runPlan.Probes)+2)
	if runPlan.CatGT != nil {
		rows = append(rows, []string{
			runPlan.CatGT.Session,
			"",
			triggers,
			plan.CatGTModule,
			filepath.Base(runPlan.CatGT.Input),
		})
	}
	for _, probe := range runPlan.Probes {
		stages := make([]string, 0, len(probe.Modules)+1)
		if probe.CatGTInput != "" {
			stages = append(stages, plan.CatGTModule)
		}
		for _, module := range probe.Modules {
			stages = append(stages, module.Name)
		}
		rows = append(rows, []string{
			probe.Session,
			probe.Region,
			triggers,
			strings.Join(stages, " > "),
			filepath.Base(probe.ModuleInput),
		})
	}
	if runPlan.TPrime != nil {
		rows = append(rows, []string{
			runPlan.TPrime.Session,
			"",
			triggers,
			plan.TPrimeModule,
			filepath.Base(runPlan.TPrime.Input),
		})
	}
	return rows
}
