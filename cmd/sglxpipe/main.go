package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"sglxpipe/internal/pipeline"
	"sglxpipe/internal/services"
)

// Exit codes beyond the generic failure.
const (
	exitFailure = 1
	exitInput   = 2
	exitLocked  = 3
	exitStage   = 4
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, pipeline.ErrLocked):
		return exitLocked
	case errors.Is(err, services.ErrValidation),
		errors.Is(err, services.ErrConfiguration),
		errors.Is(err, services.ErrNotFound):
		return exitInput
	case errors.Is(err, services.ErrExternalTool),
		errors.Is(err, services.ErrTimeout):
		return exitStage
	default:
		return exitFailure
	}
}
