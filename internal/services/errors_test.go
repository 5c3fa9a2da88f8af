package services_test

import (
	"errors"
	"strings"
	"testing"

	"sglxpipe/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "kilosort_helper", "run", "exit status 1", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"kilosort_helper", "run", "exit status 1"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected fallback detail, got %q", err.Error())
	}
}

func TestDetailsKind(t *testing.T) {
	cases := map[string]error{
		"validation":    services.Wrap(services.ErrValidation, "runspec", "parse", "bad probe", nil),
		"timeout":       services.Wrap(services.ErrTimeout, "tPrime_helper", "run", "", nil),
		"external_tool": services.Wrap(services.ErrExternalTool, "catGT_helper", "run", "", nil),
		"transient":     errors.New("plain"),
	}
	for want, err := range cases {
		if got := services.Details(err).Kind; got != want {
			t.Fatalf("Details(%v).Kind = %q, want %q", err, got, want)
		}
	}
	if got := services.Details(nil); got.Kind != "" || got.Message != "" {
		t.Fatalf("expected empty details for nil, got %+v", got)
	}
}
