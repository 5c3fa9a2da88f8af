package testsupport

import (
	"testing"

	"sglxpipe/internal/config"
	"sglxpipe/internal/ledger"
)

// MustOpenLedger opens the stage ledger for tests and registers cleanup.
func MustOpenLedger(t testing.TB, cfg *config.Config) *ledger.Ledger {
	t.Helper()
	l, err := ledger.Open(cfg)
	if err != nil {
		t.Fatalf("ledger.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = l.Close()
	})
	return l
}
