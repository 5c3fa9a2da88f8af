package ecephys

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"testing"
	"time"
)

func TestCommandExecutorStreamsBothPipes(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires /bin/sh")
	}
	dir := t.TempDir()
	var lines []string
	err := commandExecutor{}.Run(context.Background(), dir, "/bin/sh",
		[]string{"-c", "echo out; echo err 1>&2; pwd > where.txt"},
		func(line string) { lines = append(lines, line) })
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	sort.Strings(lines)
	if len(lines) != 2 || lines[0] != "err" || lines[1] != "out" {
		t.Fatalf("lines = %v", lines)
	}
	if _, err := os.Stat(filepath.Join(dir, "where.txt")); err != nil {
		t.Fatalf("command did not run in dir: %v", err)
	}
}

func TestCommandExecutorReportsExitStatus(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires /bin/sh")
	}
	err := commandExecutor{}.Run(context.Background(), "", "/bin/sh", []string{"-c", "exit 3"}, nil)
	if err == nil {
		t.Fatal("expected non-zero exit error")
	}
}

func TestCommandExecutorTimeoutKillsChildren(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires /bin/sh")
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	start := time.Now()
	err := commandExecutor{}.Run(ctx, t.TempDir(), "/bin/sh", []string{"-c", "sleep 8 & sleep 8"}, nil)
	if err == nil {
		t.Fatal("expected error from killed command")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("timeout waited for background child: %s", elapsed)
	}
}

func TestCommandExecutorDoesNotWaitForDetachedChild(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires /bin/sh")
	}
	var lines []string
	start := time.Now()
	err := commandExecutor{}.Run(context.Background(), t.TempDir(), "/bin/sh",
		[]string{"-c", "sleep 8 & echo done"},
		func(line string) { lines = append(lines, line) })
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("successful command waited for background child: %s", elapsed)
	}
	if len(lines) != 1 || lines[0] != "done" {
		t.Fatalf("lines = %v", lines)
	}
}
