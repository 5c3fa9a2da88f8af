package services_test

import (
	"context"
	"testing"

	"sglxpipe/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithPipelineID(ctx, "pipe-1")
	ctx = services.WithRun(ctx, "SC064_042721")
	ctx = services.WithProbe(ctx, "2")
	ctx = services.WithStage(ctx, "catGT_helper")

	if id, ok := services.PipelineIDFromContext(ctx); !ok || id != "pipe-1" {
		t.Fatalf("unexpected pipeline id: %v %v", id, ok)
	}
	if run, ok := services.RunFromContext(ctx); !ok || run != "SC064_042721" {
		t.Fatalf("unexpected run: %v %v", run, ok)
	}
	if probe, ok := services.ProbeFromContext(ctx); !ok || probe != "2" {
		t.Fatalf("unexpected probe: %v %v", probe, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "catGT_helper" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStage(ctx, "")
	ctx = services.WithProbe(ctx, "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected no stage value")
	}
	if _, ok := services.ProbeFromContext(ctx); ok {
		t.Fatal("expected no probe value")
	}
}
