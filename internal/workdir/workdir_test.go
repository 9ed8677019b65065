package workdir_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"nascam/internal/logging"
	"nascam/internal/testsupport"
	"nascam/internal/workdir"
)

func TestListSkipsLockFileAndReportsUsage(t *testing.T) {
	dir := t.TempDir()
	lock, err := workdir.AcquireShared(context.Background(), dir)
	if err != nil {
		t.Fatalf("AcquireShared returned error: %v", err)
	}
	defer lock.Release()

	testsupport.WriteBytes(t, filepath.Join(dir, "b", "x.png"), make([]byte, 10))
	testsupport.WriteBytes(t, filepath.Join(dir, "a", "y.png"), make([]byte, 4))
	testsupport.WriteBytes(t, filepath.Join(dir, "a", "z.png"), make([]byte, 6))

	dirs, err := workdir.List(dir)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(dirs) != 2 || dirs[0].Name != "a" || dirs[1].Name != "b" {
		t.Fatalf("unexpected listing %+v", dirs)
	}
	if dirs[0].Files != 2 || dirs[0].Size != 10 {
		t.Fatalf("unexpected usage for a: %+v", dirs[0])
	}
}

func TestListMissingDirectory(t *testing.T) {
	dirs, err := workdir.List(filepath.Join(t.TempDir(), "missing"))
	if err != nil || dirs != nil {
		t.Fatalf("expected empty listing, got %v, %v", dirs, err)
	}
}

func TestCleanStaleRemovesOldDirectories(t *testing.T) {
	dir := t.TempDir()
	oldDir := filepath.Join(dir, "old")
	newDir := filepath.Join(dir, "new")
	testsupport.WriteBytes(t, filepath.Join(oldDir, "f.png"), []byte("x"))
	testsupport.WriteBytes(t, filepath.Join(newDir, "f.png"), []byte("x"))
	past := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(oldDir, past, past); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	result := workdir.CleanStale(context.Background(), dir, 24*time.Hour, logging.NewNop())
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors: %+v", result.Errors)
	}
	if len(result.Removed) != 1 || result.Removed[0] != oldDir {
		t.Fatalf("expected only %s removed, got %v", oldDir, result.Removed)
	}
	if _, err := os.Stat(newDir); err != nil {
		t.Fatalf("recent directory removed: %v", err)
	}
}

func TestCleanStaleZeroAgeRemovesEverything(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteBytes(t, filepath.Join(dir, "one", "f.png"), []byte("x"))
	testsupport.WriteBytes(t, filepath.Join(dir, "two", "f.png"), []byte("x"))

	result := workdir.CleanStale(context.Background(), dir, 0, logging.NewNop())
	if len(result.Removed) != 2 {
		t.Fatalf("expected two removals, got %v", result.Removed)
	}
}

func TestExclusiveLockBlockedByReader(t *testing.T) {
	dir := t.TempDir()
	shared, err := workdir.AcquireShared(context.Background(), dir)
	if err != nil {
		t.Fatalf("AcquireShared returned error: %v", err)
	}

	if _, err := workdir.AcquireExclusive(dir); !errors.Is(err, workdir.ErrBusy) {
		t.Fatalf("expected ErrBusy while shared lock held, got %v", err)
	}

	if err := shared.Release(); err != nil {
		t.Fatalf("Release returned error: %v", err)
	}
	exclusive, err := workdir.AcquireExclusive(dir)
	if err != nil {
		t.Fatalf("AcquireExclusive after release returned error: %v", err)
	}
	defer exclusive.Release()
	if exclusive.Dir() != dir {
		t.Fatalf("unexpected lock dir %q", exclusive.Dir())
	}
}

func TestSharedLockWaitsForContext(t *testing.T) {
	dir := t.TempDir()
	exclusive, err := workdir.AcquireExclusive(dir)
	if err != nil {
		t.Fatalf("AcquireExclusive returned error: %v", err)
	}
	defer exclusive.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
	defer cancel()
	if _, err := workdir.AcquireShared(ctx, dir); err == nil {
		t.Fatal("expected shared lock to fail while exclusive lock held")
	}
}
