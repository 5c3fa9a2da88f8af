package main

import (
	"fmt"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"sglxpipe/internal/config"
	"sglxpipe/internal/logs"
	"sglxpipe/internal/sglx"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool

	cmd := &cobra.Command{
		Use:       "logs [app|catgt|tprime|cwaves]",
		Short:     "Show the application log or a tool log",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"app", "catgt", "tprime", "cwaves"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			source := "app"
			if len(args) == 1 {
				source = args[0]
			}
			path, err := logPath(cfg, source)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !follow {
				chunk, err := logs.Tail(path, lines)
				if err != nil {
					return err
				}
				if len(chunk.Lines) == 0 {
					fmt.Fprintf(out, "No log lines in %s\n", path)
					return nil
				}
				fmt.Fprintln(out, strings.Join(chunk.Lines, "\n"))
				return nil
			}

			followCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return logs.Follow(followCtx, path, lines, func(line string) {
				fmt.Fprintln(out, line)
			})
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 40, "Number of trailing lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines until interrupted")
	return cmd
}

func logPath(cfg *config.Config, source string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(source)) {
	case "app":
		return cfg.LogPath(), nil
	case "catgt":
		return filepath.Join(cfg.Paths.WorkDir, sglx.CatGTLog), nil
	case "tprime":
		return filepath.Join(cfg.Paths.WorkDir, sglx.TPrimeLog), nil
	case "cwaves":
		return filepath.Join(cfg.Paths.WorkDir, sglx.CWavesLog), nil
	default:
		return "", fmt.Errorf("unknown log %q (want app, catgt, tprime or cwaves)", source)
	}
}
