// Package deps reports whether the external programs the pipeline launches
// are installed.
package deps

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"sglxpipe/internal/config"
)

// Requirement names an external program and the configured command for it.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency. Command holds the
// resolved path once the program was found.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Requirements lists the binaries the configuration needs.
func Requirements(cfg *config.Config) []Requirement {
	return []Requirement{{
		Name:        "Python",
		Command:     cfg.Tools.Python,
		Description: "Interpreter running the processing modules",
	}}
}

// Check resolves every required binary and, once the interpreter is found,
// verifies that it can import the module package.
func Check(ctx context.Context, cfg *config.Config) []Status {
	statuses := CheckBinaries(Requirements(cfg))
	if python := statuses[0]; python.Available {
		statuses = append(statuses, CheckModulePackage(ctx, python.Command, cfg.Tools.ModulePackage))
	}
	return statuses
}

// CheckBinaries looks up each requirement on PATH.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, len(requirements))
	for i, req := range requirements {
		results[i] = checkBinary(req)
	}
	return results
}

func checkBinary(req Requirement) Status {
	status := Status{
		Name:        req.Name,
		Command:     strings.TrimSpace(req.Command),
		Description: strings.TrimSpace(req.Description),
		Optional:    req.Optional,
	}
	if status.Command == "" {
		status.Detail = "command not configured"
		return status
	}
	resolved, err := exec.LookPath(status.Command)
	if err != nil {
		status.Detail = fmt.Sprintf("binary %q not found", status.Command)
		return status
	}
	status.Command = resolved
	status.Available = true
	return status
}
