package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"sglxpipe/internal/ledger"
)

type historyRow struct {
	ID         int64   `json:"id"`
	PipelineID string  `json:"pipeline_id"`
	Session    string  `json:"session"`
	Stage      string  `json:"stage"`
	Status     string  `json:"status"`
	StartedAt  string  `json:"started_at"`
	Seconds    float64 `json:"seconds"`
	Command    string  `json:"command,omitempty"`
	Error      string  `json:"error,omitempty"`
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent stage executions from the ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := ledger.Open(cfg)
			if err != nil {
				return fmt.Errorf("open ledger: %w", err)
			}
			defer store.Close()

			runs, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if jsonOut {
				rows := make([]historyRow, 0, len(runs))
				for _, run := range runs {
					rows = append(rows, toHistoryRow(run))
				}
				return writeJSON(cmd, rows)
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No stage executions recorded")
				return nil
			}
			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				rows = append(rows, []string{
					strconv.FormatInt(run.ID, 10),
					shortID(run.PipelineID),
					run.Session,
					run.Stage,
					string(run.Status),
					run.StartedAt.Local().Format("2006-01-02 15:04:05"),
					formatDuration(run),
					truncate(run.Error, 60),
				})
			}
			fmt.Fprint(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Pipeline", "Session", "Stage", "Status", "Started", "Duration", "Error"},
				rows,
				0, 6,
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Number of executions to show")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func toHistoryRow(run ledger.StageRun) historyRow {
	return historyRow{
		ID:         run.ID,
		PipelineID: run.PipelineID,
		Session:    run.Session,
		Stage:      run.Stage,
		Status:     string(run.Status),
		StartedAt:  run.StartedAt.UTC().Format(time.RFC3339),
		Seconds:    run.Duration().Seconds(),
		Command:    run.Command,
		Error:      run.Error,
	}
}

func formatDuration(run ledger.StageRun) string {
	switch run.Status {
	case ledger.StatusRunning:
		return "running"
	case ledger.StatusSkipped:
		return "-"
	}
	return run.Duration().Round(time.Second).String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(value string, limit int) string {
	value = strings.Join(strings.Fields(value), " ")
	if len(value) <= limit {
		return value
	}
	return value[:limit-3] + "..."
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
