package services

import "context"

type contextKey string

const (
	pipelineIDKey contextKey = "pipeline_id"
	runKey        contextKey = "run"
	probeKey      contextKey = "probe"
	stageKey      contextKey = "stage"
)

// WithPipelineID annotates context with the identifier of one orchestrator invocation.
func WithPipelineID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, pipelineIDKey, id)
}

// PipelineIDFromContext extracts the pipeline identifier if present.
func PipelineIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(pipelineIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithRun annotates context with the undecorated run name.
func WithRun(ctx context.Context, run string) context.Context {
	if run == "" {
		return ctx
	}
	return context.WithValue(ctx, runKey, run)
}

// RunFromContext returns the run name if present.
func RunFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithProbe annotates context with the probe index being processed.
func WithProbe(ctx context.Context, probe string) context.Context {
	if probe == "" {
		return ctx
	}
	return context.WithValue(ctx, probeKey, probe)
}

// ProbeFromContext returns the probe index if present.
func ProbeFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(probeKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithStage annotates context with the pipeline stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageKey, stage)
}

// StageFromContext returns the stage name if present.
func StageFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(stageKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}
