package preflight

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"sglxpipe/internal/config"
	"sglxpipe/internal/deps"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the directory checks and dependency checks for cfg.
// Output directories that do not exist yet pass when their parent is writable.
// The interpreter import probe runs alongside the directory checks.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var (
		directories []Result
		statuses    []deps.Status
		group       errgroup.Group
	)
	group.Go(func() error {
		directories = []Result{
			CheckReadableDirectory("Raw data directory", cfg.Paths.RawDir),
			CheckCreatableDirectory("Destination directory", cfg.Paths.DestDir),
			CheckCreatableDirectory("Record directory", cfg.Paths.JSONDir),
			CheckCreatableDirectory("State directory", cfg.Paths.StateDir),
			CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir),
		}
		return nil
	})
	group.Go(func() error {
		statuses = CheckSystemDeps(ctx, cfg)
		return nil
	})
	_ = group.Wait()

	results := directories
	for _, status := range statuses {
		detail := status.Command
		if !status.Available {
			detail = status.Detail
		}
		results = append(results, Result{Name: status.Name, Passed: status.Available, Detail: detail})
	}
	return results
}

// Failed returns the checks that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}

// Summary renders failed checks as one line each.
func Summary(results []Result) string {
	lines := make([]string, 0, len(results))
	for _, r := range results {
		lines = append(lines, fmt.Sprintf("%s: %s", r.Name, r.Detail))
	}
	return strings.Join(lines, "; ")
}
