package runspec

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"sglxpipe/internal/config"
	"sglxpipe/internal/services"
)

func defaultRegions(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	return &cfg
}

func TestRunValidate(t *testing.T) {
	known := defaultRegions(t)
	valid := Run{Name: "SC064_042721", Gate: "0", Triggers: "0,0", Probes: "0:2", Regions: []string{"cortex", "Thalamus", "midbrain"}}
	if err := valid.Validate(known); err != nil {
		t.Fatalf("valid run rejected: %v", err)
	}

	tests := map[string]Run{
		"missing name":    {Gate: "0", Triggers: "0,0", Probes: "0"},
		"name with slash": {Name: "a/b", Gate: "0", Triggers: "0,0", Probes: "0"},
		"negative gate":   {Name: "r", Gate: "-1", Triggers: "0,0", Probes: "0"},
		"bad gate":        {Name: "r", Gate: "g0", Triggers: "0,0", Probes: "0"},
		"bad triggers":    {Name: "r", Gate: "0", Triggers: "3,1", Probes: "0"},
		"bad probes":      {Name: "r", Gate: "0", Triggers: "0,0", Probes: "x"},
		"region count":    {Name: "r", Gate: "0", Triggers: "0,0", Probes: "0:1", Regions: []string{"cortex"}},
		"unknown region":  {Name: "r", Gate: "0", Triggers: "0,0", Probes: "0", Regions: []string{"hippocampus"}},
	}
	for name, run := range tests {
		err := run.Validate(known)
		if err == nil {
			t.Errorf("%s: expected validation error", name)
			continue
		}
		if !errors.Is(err, services.ErrValidation) {
			t.Errorf("%s: expected ErrValidation, got %v", name, err)
		}
	}
}

func TestProbeRegionsDefaultsAndFolds(t *testing.T) {
	run := Run{Name: "r", Probes: "0,1"}
	got, err := run.ProbeRegions([]string{"0", "1"})
	if err != nil {
		t.Fatalf("ProbeRegions: %v", err)
	}
	if diff := cmp.Diff([]string{"default", "default"}, got); diff != "" {
		t.Fatalf("default regions mismatch (-want +got):\n%s", diff)
	}

	run.Regions = []string{" CORTEX ", "Striatum"}
	got, err = run.ProbeRegions([]string{"0", "1"})
	if err != nil {
		t.Fatalf("ProbeRegions: %v", err)
	}
	if diff := cmp.Diff([]string{"cortex", "striatum"}, got); diff != "" {
		t.Fatalf("folded regions mismatch (-want +got):\n%s", diff)
	}
}

func TestTableValidateRejectsDuplicatesAndEmpty(t *testing.T) {
	known := defaultRegions(t)
	if err := (Table{}).Validate(known); err == nil {
		t.Fatal("expected error for empty table")
	}
	run := Run{Name: "r", Gate: "0", Triggers: "0,0", Probes: "0"}
	if err := (Table{Runs: []Run{run, run}}).Validate(known); err == nil {
		t.Fatal("expected duplicate run error")
	}
	other := run
	other.Gate = "1"
	if err := (Table{Runs: []Run{run, other}}).Validate(known); err != nil {
		t.Fatalf("different gates should be allowed: %v", err)
	}
}

func TestTableFilter(t *testing.T) {
	table := Table{Runs: []Run{{Name: "a"}, {Name: "b"}, {Name: "c"}}}
	got, err := table.Filter([]string{"c", "a"})
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	if len(got.Runs) != 2 || got.Runs[0].Name != "a" || got.Runs[1].Name != "c" {
		t.Fatalf("unexpected filter result: %+v", got.Runs)
	}
	if _, err := table.Filter([]string{"z"}); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	all, err := table.Filter(nil)
	if err != nil || len(all.Runs) != 3 {
		t.Fatalf("empty filter should keep all runs: %v %+v", err, all)
	}
}

func TestTableFilterAcceptsGatedName(t *testing.T) {
	table := Table{Runs: []Run{
		{Name: "SC064_042721", Gate: "0"},
		{Name: "SC064_042721", Gate: "1"},
		{Name: "SC064_042821", Gate: "0"},
	}}
	got, err := table.Filter([]string{"SC064_042721_g1"})
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	if len(got.Runs) != 1 || got.Runs[0].Gate != "1" {
		t.Fatalf("gated name should select one gate: %+v", got.Runs)
	}

	got, err = table.Filter([]string{"SC064_042821", "SC064_042821_g0"})
	if err != nil {
		t.Fatalf("Filter with both forms: %v", err)
	}
	if len(got.Runs) != 1 {
		t.Fatalf("run listed in both forms should appear once: %+v", got.Runs)
	}

	if _, err := table.Filter([]string{"SC064_042721_g7"}); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown gate, got %v", err)
	}
}

func TestLoadTableTOMLAndYAML(t *testing.T) {
	dir := t.TempDir()
	want := Table{Runs: []Run{
		{Name: "SC064_042721", Gate: "0", Triggers: "0,0", Probes: "0:1", Regions: []string{"cortex", "thalamus"}},
		{Name: "SC064_042821", Gate: "0", Triggers: "start,end", Probes: "0"},
	}}

	tomlPath := filepath.Join(dir, "runs.toml")
	tomlBody := `[[run]]
name = "SC064_042721"
gate = "0"
triggers = "0,0"
probes = "0:1"
regions = ["cortex", "thalamus"]

[[run]]
name = "SC064_042821"
gate = "0"
triggers = "start,end"
probes = "0"
`
	if err := os.WriteFile(tomlPath, []byte(tomlBody), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := LoadTable(tomlPath)
	if err != nil {
		t.Fatalf("LoadTable toml: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("toml table mismatch (-want +got):\n%s", diff)
	}

	yamlPath := filepath.Join(dir, "runs.yaml")
	yamlBody := `runs:
  - name: SC064_042721
    gate: "0"
    triggers: "0,0"
    probes: "0:1"
    regions: [cortex, thalamus]
  - name: SC064_042821
    gate: "0"
    triggers: start,end
    probes: "0"
`
	if err := os.WriteFile(yamlPath, []byte(yamlBody), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err = LoadTable(yamlPath)
	if err != nil {
		t.Fatalf("LoadTable yaml: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("yaml table mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadTableErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := LoadTable(filepath.Join(dir, "missing.toml")); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	bad := filepath.Join(dir, "runs.json")
	if err := os.WriteFile(bad, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadTable(bad); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation for extension, got %v", err)
	}
	unknown := filepath.Join(dir, "runs.toml")
	if err := os.WriteFile(unknown, []byte("[[run]]\nname = \"a\"\nprobe = \"0\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadTable(unknown); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation for unknown key, got %v", err)
	}
}
