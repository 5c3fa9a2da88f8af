package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"sglxpipe/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.RawDir = filepath.Join(base, "raw")
	cfgVal.Paths.DestDir = filepath.Join(base, "dest")
	cfgVal.Paths.JSONDir = filepath.Join(base, "json")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.WorkDir = filepath.Join(base, "work")
	for _, dir := range []string{cfgVal.Paths.RawDir, cfgVal.Paths.WorkDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithModules overrides the post-processing module list.
func WithModules(modules ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Postprocess.Modules = append([]string(nil), modules...)
	}
}

// WithStubPython writes a fake interpreter that records each invoked module in
// BaseDir/calls.txt, writes an output record with an execution time, and emits
// a gfix line into CatGT.log for catGT_helper. Modules named in failModules
// exit with status 3.
func WithStubPython(failModules ...string) ConfigOption {
	return func(b *configBuilder) {
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		calls := filepath.Join(b.baseDir, "calls.txt")
		var fail strings.Builder
		for _, module := range failModules {
			fmt.Fprintf(&fail, "  *.%s) exit 3 ;;\n", module)
		}
		script := fmt.Sprintf(`#!/bin/sh
module=""
in=""
out=""
while [ $# -gt 0 ]; do
  case "$1" in
    -c) exit 0 ;;
    -m) module="$2"; shift 2 ;;
    --input_json) in="$2"; shift 2 ;;
    --output_json) out="$2"; shift 2 ;;
    *) shift ;;
  esac
done
echo "${module##*.}" >> %q
case "$module" in
%s  *) ;;
esac
case "$module" in
  *.catGT_helper)
    run=$(sed -n 's/.*"run_name": "\([^"]*\)".*/\1/p' "$in")
    gate=$(sed -n 's/.*"gate_string": "\([^"]*\)".*/\1/p' "$in")
    prb=$(sed -n 's/.*"probe_string": "\([^"]*\)".*/\1/p' "$in")
    echo "[Thd 1] ${run}_g${gate} Gfix prb ${prb} edits/sec 0.5" >> CatGT.log
    ;;
esac
printf '{"execution_time": 1.5}\n' > "$out"
echo "finished ${module##*.}"
`, calls, fail.String())
		target := filepath.Join(binDir, "python")
		if err := os.WriteFile(target, []byte(script), 0o755); err != nil {
			b.t.Fatalf("write stub python: %v", err)
		}
		b.cfg.Tools.Python = target
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}

// Calls returns the module names recorded by the stub interpreter, in call order.
func Calls(t testing.TB, cfg *config.Config) []string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(BaseDir(cfg), "calls.txt"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		t.Fatalf("read calls: %v", err)
	}
	return strings.Fields(string(data))
}
