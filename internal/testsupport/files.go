package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"sglxpipe/internal/config"
	"sglxpipe/internal/sglx"
)

// WriteFile fills the target path with the requested number of bytes using a
// simple repeating pattern. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	buf := make([]byte, size)
	for i := range buf {
		buf[i] = 0x42
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WriteRawTriggers lays out raw AP binaries and metadata for the given
// triggers in the probe folder of a run.
func WriteRawTriggers(t testing.TB, cfg *config.Config, name, gate, probe string, triggers ...int) string {
	t.Helper()
	dir := sglx.RawProbeDir(cfg.Paths.RawDir, name, gate, probe)
	for _, trigger := range triggers {
		WriteFile(t, filepath.Join(dir, sglx.RawBinary(name, gate, probe, trigger)), 16)
		WriteFile(t, filepath.Join(dir, sglx.RawMeta(name, gate, probe, trigger)), 1)
	}
	return dir
}
