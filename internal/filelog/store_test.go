package filelog

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func strPtr(s string) *string { return &s }

func TestSnapshotName(t *testing.T) {
	at := time.Date(2026, 10, 19, 8, 7, 6, 0, time.Local)

	tests := []struct {
		path    string
		content string
		want    string
	}{
		// md5("hello") = 5d41402abc4b2a76b9719d911017c592
		{"/w/main.go", "hello", "20261019_080706_5d41402a.go"},
		{"/w/Makefile", "hello", "20261019_080706_5d41402a.txt"},
	}
	for _, tt := range tests {
		if got := SnapshotName(tt.path, tt.content, at); got != tt.want {
			t.Errorf("SnapshotName(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestStore_RecordWithSnapshot(t *testing.T) {
	store := setupTestStore(t)
	store.BeginRun("write the readme")

	entry, err := store.Add("/w/README.md", strPtr("# Title"), OpWrite)
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if entry.Snapshot == "" {
		t.Fatal("Add() with content should produce a snapshot")
	}
	data, err := os.ReadFile(filepath.Join(store.SnapshotsDir(), entry.Snapshot))
	if err != nil || string(data) != "# Title" {
		t.Errorf("snapshot content = %q, %v", data, err)
	}
	if entry.RunID != 1 || entry.RunLabel != "write the readme" {
		t.Errorf("run = %d %q", entry.RunID, entry.RunLabel)
	}

	path, ok := store.FindPathForSnapshot(entry.Snapshot)
	if !ok || path != "/w/README.md" {
		t.Errorf("FindPathForSnapshot() = %q, %v", path, ok)
	}
	if _, ok := store.FindPathForSnapshot("missing.txt"); ok {
		t.Error("FindPathForSnapshot(missing) = true")
	}
}

func TestStore_RecordWithoutSnapshot(t *testing.T) {
	store := setupTestStore(t)

	if err := store.Record("/w/gone.txt", nil, OpDelete); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	entries, err := store.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(entries) != 1 || entries[0].Snapshot != "" || entries[0].Op != OpDelete {
		t.Errorf("entries = %+v", entries)
	}
}

func TestStore_CountAndRecent(t *testing.T) {
	store := setupTestStore(t)
	if store.Count() != 0 {
		t.Errorf("Count() = %d, want 0", store.Count())
	}

	for _, p := range []string{"/a", "/b", "/c", "/d"} {
		if err := store.Record(p, nil, OpEdit); err != nil {
			t.Fatal(err)
		}
	}
	if store.Count() != 4 {
		t.Errorf("Count() = %d, want 4", store.Count())
	}

	got := store.RecentPaths(2)
	if len(got) != 2 || got[0] != "/c" || got[1] != "/d" {
		t.Errorf("RecentPaths(2) = %v, want [/c /d]", got)
	}
}

func TestStore_BeginRunResumesNumbering(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	store.BeginRun("one")
	store.BeginRun("two")
	_ = store.Record("/x", nil, OpWrite)
	_ = store.Close()

	reopened, err := NewStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()

	if id := reopened.BeginRun("three"); id != 3 {
		t.Errorf("BeginRun() after reopen = %d, want 3", id)
	}
	entries, _ := reopened.ListRun(2)
	if len(entries) != 1 || entries[0].RunLabel != "two" {
		t.Errorf("ListRun(2) = %+v", entries)
	}
}

func TestStore_CleanupSnapshots(t *testing.T) {
	store := setupTestStore(t)

	old, _ := store.Add("/w/old.go", strPtr("old"), OpWrite)
	fresh, _ := store.Add("/w/new.go", strPtr("new"), OpWrite)

	past := time.Now().Add(-10 * 24 * time.Hour)
	if err := os.Chtimes(filepath.Join(store.SnapshotsDir(), old.Snapshot), past, past); err != nil {
		t.Fatal(err)
	}

	removed, err := store.CleanupSnapshots(7 * 24 * time.Hour)
	if err != nil {
		t.Fatalf("CleanupSnapshots() error = %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}

	entries, _ := store.List()
	if len(entries) != 2 {
		t.Fatalf("entries should be kept, got %d", len(entries))
	}
	if entries[0].Snapshot != "" {
		t.Errorf("old snapshot reference = %q, want cleared", entries[0].Snapshot)
	}
	if entries[1].Snapshot != fresh.Snapshot {
		t.Errorf("fresh snapshot reference = %q, want %q", entries[1].Snapshot, fresh.Snapshot)
	}
	if _, err := os.Stat(filepath.Join(store.SnapshotsDir(), fresh.Snapshot)); err != nil {
		t.Errorf("fresh snapshot removed: %v", err)
	}
}

func TestStore_Clear(t *testing.T) {
	store := setupTestStore(t)
	store.BeginRun("x")
	_, _ = store.Add("/w/a.txt", strPtr("a"), OpWrite)

	if err := store.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if store.Count() != 0 {
		t.Errorf("Count() after Clear() = %d", store.Count())
	}
	if _, err := os.Stat(store.SnapshotsDir()); !os.IsNotExist(err) {
		t.Errorf("snapshots dir still present: %v", err)
	}
	if id := store.BeginRun("y"); id != 1 {
		t.Errorf("BeginRun() after Clear() = %d, want 1", id)
	}
}
