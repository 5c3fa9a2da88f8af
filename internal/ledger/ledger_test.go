package ledger

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"sglxpipe/internal/config"
)

func openTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := OpenPath(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestBeginFinishAndSucceeded(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()
	entry := Entry{PipelineID: "p1", Run: "SC_g0", Session: "SC_imec0", Stage: "kilosort_helper", Digest: "abc", Command: "python -m x"}

	id, err := l.Begin(ctx, entry)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	ok, err := l.Succeeded(ctx, "SC_imec0", "kilosort_helper", "abc")
	if err != nil || ok {
		t.Fatalf("running stage should not count as succeeded: ok=%v err=%v", ok, err)
	}
	if err := l.Finish(ctx, id, StatusSucceeded, nil); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	ok, err = l.Succeeded(ctx, "SC_imec0", "kilosort_helper", "abc")
	if err != nil || !ok {
		t.Fatalf("expected succeeded: ok=%v err=%v", ok, err)
	}
	ok, err = l.Succeeded(ctx, "SC_imec0", "kilosort_helper", "changed")
	if err != nil || ok {
		t.Fatalf("different digest must not match: ok=%v err=%v", ok, err)
	}
}

func TestFinishFailedStoresError(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()
	base := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
	tick := 0
	l.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	id, err := l.Begin(ctx, Entry{PipelineID: "p", Session: "s", Stage: "catGT_helper", Digest: "d"})
	if err != nil {
		t.Fatal(err)
	}
	if err := l.Finish(ctx, id, StatusFailed, errors.New("exit status 2")); err != nil {
		t.Fatal(err)
	}
	runs, err := l.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	run := runs[0]
	if run.Status != StatusFailed || run.Error != "exit status 2" {
		t.Fatalf("unexpected run: %+v", run)
	}
	if run.Duration() != time.Minute {
		t.Fatalf("duration = %s", run.Duration())
	}
	if run.Command != "" {
		t.Fatalf("command = %q", run.Command)
	}
}

func TestFinishRejectsInvalidStatusAndUnknownRow(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()
	if err := l.Finish(ctx, 1, StatusRunning, nil); err == nil {
		t.Fatal("expected error for non-terminal status")
	}
	if err := l.Finish(ctx, 42, StatusSucceeded, nil); err == nil {
		t.Fatal("expected error for unknown row")
	}
}

func TestRecentOrderAndSkip(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()
	for _, stage := range []string{"a", "b", "c"} {
		if err := l.Skip(ctx, Entry{PipelineID: "p", Session: "s", Stage: stage, Digest: "d"}); err != nil {
			t.Fatalf("Skip %s: %v", stage, err)
		}
	}
	runs, err := l.Recent(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 || runs[0].Stage != "c" || runs[1].Stage != "b" {
		t.Fatalf("unexpected order: %+v", runs)
	}
	if runs[0].Status != StatusSkipped || runs[0].FinishedAt == nil {
		t.Fatalf("skip should be terminal: %+v", runs[0])
	}
	ok, err := l.Succeeded(ctx, "s", "a", "d")
	if err != nil || ok {
		t.Fatalf("skipped stage must not count as succeeded: ok=%v err=%v", ok, err)
	}
}

func TestReopenKeepsHistoryAndChecksVersion(t *testing.T) {
	cfg := config.Default()
	base := t.TempDir()
	cfg.Paths.DestDir = filepath.Join(base, "dest")
	cfg.Paths.JSONDir = filepath.Join(base, "json")
	cfg.Paths.StateDir = filepath.Join(base, "state")

	l, err := Open(&cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	ctx := context.Background()
	id, err := l.Begin(ctx, Entry{PipelineID: "p", Session: "s", Stage: "x", Digest: "d"})
	if err != nil {
		t.Fatal(err)
	}
	if err := l.Finish(ctx, id, StatusSucceeded, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := l.db.Exec("UPDATE schema_version SET version = 99"); err != nil {
		t.Fatal(err)
	}
	_ = l.Close()

	if _, err := Open(&cfg); !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}
