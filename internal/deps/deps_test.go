package deps

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"testing"

	"sglxpipe/internal/config"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Empty", Command: " "},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available || results[0].Detail != "" {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("expected missing binary to be unavailable with detail, got %#v", results[1])
	}
	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}
	if results[2].Detail != "command not configured" {
		t.Fatalf("unexpected detail: %q", results[2].Detail)
	}
}

func TestRequirementsUsesConfiguredPython(t *testing.T) {
	cfg := config.Default()
	cfg.Tools.Python = "/opt/env/bin/python3"
	reqs := Requirements(&cfg)
	if len(reqs) != 1 || reqs[0].Command != "/opt/env/bin/python3" {
		t.Fatalf("unexpected requirements: %#v", reqs)
	}
}

func writeInterpreter(t *testing.T, exitCode int, stderr string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("stub interpreter is a shell script")
	}
	path := filepath.Join(t.TempDir(), "python")
	script := "#!/bin/sh\n"
	if stderr != "" {
		script += "echo '" + stderr + "' 1>&2\n"
	}
	script += "exit " + strconv.Itoa(exitCode) + "\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCheckModulePackage(t *testing.T) {
	ok := CheckModulePackage(context.Background(), writeInterpreter(t, 0, ""), "ecephys_spike_sorting.modules")
	if !ok.Available || ok.Command != "ecephys_spike_sorting" {
		t.Fatalf("expected importable package, got %#v", ok)
	}

	missing := CheckModulePackage(context.Background(), writeInterpreter(t, 1, "ModuleNotFoundError: No module named ecephys_spike_sorting"), "ecephys_spike_sorting.modules")
	if missing.Available {
		t.Fatal("expected import failure")
	}
	if !strings.Contains(missing.Detail, "ModuleNotFoundError") {
		t.Fatalf("detail should carry the import error: %q", missing.Detail)
	}

	if got := CheckModulePackage(context.Background(), "python", ""); got.Available || got.Detail == "" {
		t.Fatalf("empty package should be reported: %#v", got)
	}
}

func TestCheckSkipsImportWithoutInterpreter(t *testing.T) {
	cfg := config.Default()
	cfg.Tools.Python = "clearly-not-a-python"
	statuses := Check(context.Background(), &cfg)
	if len(statuses) != 1 || statuses[0].Available {
		t.Fatalf("expected only the missing interpreter, got %#v", statuses)
	}
}

func TestCheckProbesModulePackage(t *testing.T) {
	cfg := config.Default()
	cfg.Tools.Python = writeInterpreter(t, 0, "")
	statuses := Check(context.Background(), &cfg)
	if len(statuses) != 2 {
		t.Fatalf("expected interpreter and package statuses, got %#v", statuses)
	}
	if statuses[0].Command != cfg.Tools.Python || !statuses[1].Available {
		t.Fatalf("unexpected statuses: %#v", statuses)
	}
}
