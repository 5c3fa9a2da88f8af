package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"sglxpipe/internal/config"
	"sglxpipe/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	runsPath   string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, opts...)
	base := testsupport.BaseDir(cfg)
	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)

	runsPath := filepath.Join(base, "runs.toml")
	writeRunTable(t, runsPath, `
[[run]]
name = "SC064_042721"
gate = "0"
triggers = "0,0"
probes = "0"
regions = ["cortex"]
`)

	return &cliTestEnv{cfg: cfg, configPath: configPath, runsPath: runsPath}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	modules := make([]string, 0, len(cfg.Postprocess.Modules))
	for _, module := range cfg.Postprocess.Modules {
		modules = append(modules, fmt.Sprintf("%q", module))
	}
	content := fmt.Sprintf(
		"[paths]\nraw_dir = %q\ndest_dir = %q\njson_dir = %q\nstate_dir = %q\nwork_dir = %q\n\n"+
			"[tools]\npython = %q\n\n"+
			"[postprocess]\nmodules = [%s]\n\n"+
			"[logging]\nformat = \"json\"\nlevel = \"warn\"\n",
		cfg.Paths.RawDir,
		cfg.Paths.DestDir,
		cfg.Paths.JSONDir,
		cfg.Paths.StateDir,
		cfg.Paths.WorkDir,
		cfg.Tools.Python,
		strings.Join(modules, ", "),
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func writeRunTable(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(strings.TrimLeft(content, "\n")), 0o644); err != nil {
		t.Fatalf("write run table: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected output to contain %q, got:\n%s", substr, output)
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
