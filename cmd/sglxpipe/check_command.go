package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"sglxpipe/internal/preflight"
	"sglxpipe/internal/services"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify directories and the processing toolchain",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			lines := sectionHeader("Configuration", colorize)
			source := ctx.configPath
			if !ctx.configSeen {
				source += " (not found, defaults used)"
			}
			lines = append(lines,
				statusLine("Config file", stateInfo, source, colorize),
				statusLine("CatGT", stateInfo, yesNo(cfg.CatGT.Enabled), colorize),
				statusLine("TPrime", stateInfo, yesNo(cfg.TPrime.Enabled), colorize),
				statusLine("Modules", stateInfo, strings.Join(cfg.Postprocess.Modules, ", "), colorize),
				"",
			)
			lines = append(lines, sectionHeader("Preflight", colorize)...)

			results := preflight.RunAll(cmd.Context(), cfg)
			for _, result := range results {
				kind := statePass
				if !result.Passed {
					kind = stateFail
				}
				lines = append(lines, statusLine(result.Name, kind, result.Detail, colorize))
			}
			fmt.Fprintln(out, strings.Join(lines, "\n"))

			if failed := preflight.Failed(results); len(failed) > 0 {
				return fmt.Errorf("%d preflight check(s) failed: %w", len(failed), services.ErrConfiguration)
			}
			return nil
		},
	}
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
