package history

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestCommitAndLog(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	tracker, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "data.json"), []byte(`{"frames":{}}`), 0644); err != nil {
		t.Fatal(err)
	}
	if err := tracker.Commit(ctx, "frame created: f-2026-08-29-abc123"); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "data.json"), []byte(`{"frames":{"f":1}}`), 0644); err != nil {
		t.Fatal(err)
	}
	if err := tracker.Commit(ctx, "frame updated: f-2026-08-29-abc123"); err != nil {
		t.Fatalf("Commit() second error = %v", err)
	}

	entries, err := tracker.Log(ctx, 10)
	if err != nil {
		t.Fatalf("Log() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
	if entries[0].Message != "frame updated: f-2026-08-29-abc123" {
		t.Errorf("newest entry = %q", entries[0].Message)
	}
}

func TestCommit_CleanWorktreeIsNoop(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	tracker, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "data.json"), []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := tracker.Commit(ctx, "initial"); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	// Nothing changed: committing again must not error.
	if err := tracker.Commit(ctx, "no changes"); err != nil {
		t.Errorf("Commit() on clean worktree error = %v", err)
	}
}

func TestOpen_ReopensExistingRepo(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	first, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	os.WriteFile(filepath.Join(dir, "data.json"), []byte("{}"), 0644)
	first.Commit(ctx, "initial")

	second, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() reopen error = %v", err)
	}
	entries, err := second.Log(ctx, 0)
	if err != nil {
		t.Fatalf("Log() error = %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("len(entries) = %d, want 1 after reopen", len(entries))
	}
}

func TestLog_EmptyRepo(t *testing.T) {
	tracker, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	entries, err := tracker.Log(context.Background(), 10)
	if err != nil {
		t.Fatalf("Log() on empty repo error = %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("len(entries) = %d, want 0", len(entries))
	}
}
