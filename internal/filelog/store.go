// Package filelog records files modified by agent tools, with content
// snapshots so earlier versions can be viewed or restored.
//
// store.go - SQLite-backed modification history
//
// This file contains:
// - Store, the modification table and the snapshots directory
// - Run grouping (BeginRun) so one request's edits can be listed together
// - Snapshot retention (CleanupSnapshots)

package filelog

import (
	"crypto/md5"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/xmin-02/sumone/internal/logger"
)

// Operations stored in the op column
const (
	OpWrite    = "write"
	OpEdit     = "edit"
	OpDelete   = "delete"
	OpRollback = "rollback"
)

// TimestampFormat is the local-time layout of Entry.Timestamp
const TimestampFormat = "2006-01-02T15:04:05"

// maxRunLabel caps the stored run label
const maxRunLabel = 100

// Entry is one recorded modification
type Entry struct {
	ID        string `json:"id"`
	Path      string `json:"path"`
	Timestamp string `json:"ts"`
	Snapshot  string `json:"snapshot,omitempty"`
	Op        string `json:"op"`
	RunID     int64  `json:"run_id"`
	RunLabel  string `json:"run_label"`
}

// Store persists modification entries and snapshot files
type Store struct {
	db           *sql.DB
	snapshotsDir string
	now          func() time.Time

	mu       sync.Mutex
	runID    int64
	runLabel string
}

// NewStore opens (or creates) the modification database under dataDir
func NewStore(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "modified_files.db")
	db, err := sql.Open("sqlite", dbPath+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{
		db:           db,
		snapshotsDir: filepath.Join(dataDir, "snapshots"),
		now:          time.Now,
	}
	if err := store.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS modified_files (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		path TEXT NOT NULL,
		ts TEXT NOT NULL,
		snapshot TEXT,
		op TEXT NOT NULL DEFAULT 'write',
		run_id INTEGER NOT NULL DEFAULT 0,
		run_label TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_modified_files_snapshot ON modified_files(snapshot);
	CREATE INDEX IF NOT EXISTS idx_modified_files_run ON modified_files(run_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// SnapshotsDir returns where snapshot files are written
func (s *Store) SnapshotsDir() string {
	return s.snapshotsDir
}

// BeginRun starts a new run group labelled with the request text. Numbering
// continues from the highest run id already stored.
func (s *Store) BeginRun(label string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.runID == 0 {
		var maxID sql.NullInt64
		if err := s.db.QueryRow(`SELECT MAX(run_id) FROM modified_files`).Scan(&maxID); err != nil {
			logger.Error("Failed to read max run id: %v", err)
		}
		s.runID = maxID.Int64
	}
	s.runID++
	s.runLabel = truncate(label, maxRunLabel)
	return s.runID
}

// CurrentRun returns the active run id and label
func (s *Store) CurrentRun() (int64, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runID, s.runLabel
}

// Record stores a modification of path. Non-nil content is also written as
// a snapshot file.
func (s *Store) Record(path string, content *string, op string) error {
	_, err := s.Add(path, content, op)
	return err
}

// Add is Record returning the stored entry. A failed snapshot write still
// records the modification, without a snapshot.
func (s *Store) Add(path string, content *string, op string) (*Entry, error) {
	if op == "" {
		op = OpWrite
	}
	now := s.now()
	runID, runLabel := s.CurrentRun()

	entry := &Entry{
		ID:        "mod_" + uuid.New().String()[:8],
		Path:      path,
		Timestamp: now.Format(TimestampFormat),
		Op:        op,
		RunID:     runID,
		RunLabel:  runLabel,
	}

	if content != nil {
		name, err := s.writeSnapshot(path, *content, now)
		if err != nil {
			logger.Error("Failed to save snapshot for %s: %v", path, err)
		} else {
			entry.Snapshot = name
		}
	}

	_, err := s.db.Exec(`
		INSERT INTO modified_files (id, path, ts, snapshot, op, run_id, run_label)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Path, entry.Timestamp, nullString(entry.Snapshot),
		entry.Op, entry.RunID, entry.RunLabel,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert modification: %w", err)
	}
	return entry, nil
}

// SnapshotName returns the snapshot file name for content written at t:
// <YYYYmmdd_HHMMSS>_<md5 prefix><ext>, ext defaulting to .txt
func SnapshotName(path, content string, t time.Time) string {
	ext := filepath.Ext(path)
	if ext == "" {
		ext = ".txt"
	}
	sum := md5.Sum([]byte(content))
	return t.Format("20060102_150405") + "_" + hex.EncodeToString(sum[:])[:8] + ext
}

func (s *Store) writeSnapshot(path, content string, now time.Time) (string, error) {
	if err := os.MkdirAll(s.snapshotsDir, 0o755); err != nil {
		return "", err
	}
	name := SnapshotName(path, content, now)
	if err := os.WriteFile(filepath.Join(s.snapshotsDir, name), []byte(content), 0o644); err != nil {
		return "", err
	}
	return name, nil
}

// Count returns the number of recorded modifications
func (s *Store) Count() int {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM modified_files`).Scan(&n); err != nil {
		logger.Error("Failed to count modifications: %v", err)
		return 0
	}
	return n
}

// Recent returns the last n entries in recording order
func (s *Store) Recent(n int) ([]Entry, error) {
	rows, err := s.db.Query(`
		SELECT id, path, ts, snapshot, op, run_id, run_label FROM (
			SELECT * FROM modified_files ORDER BY seq DESC LIMIT ?
		) ORDER BY seq ASC`, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query modifications: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// RecentPaths returns the paths of the last n entries
func (s *Store) RecentPaths(n int) []string {
	entries, err := s.Recent(n)
	if err != nil {
		logger.Error("Failed to list recent modifications: %v", err)
		return nil
	}
	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		paths = append(paths, e.Path)
	}
	return paths
}

// List returns every entry in recording order
func (s *Store) List() ([]Entry, error) {
	rows, err := s.db.Query(`
		SELECT id, path, ts, snapshot, op, run_id, run_label
		FROM modified_files ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query modifications: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// ListRun returns the entries recorded during one run
func (s *Store) ListRun(runID int64) ([]Entry, error) {
	rows, err := s.db.Query(`
		SELECT id, path, ts, snapshot, op, run_id, run_label
		FROM modified_files WHERE run_id = ? ORDER BY seq ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query run %d: %w", runID, err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// FindPathForSnapshot returns the original path a snapshot was taken of
func (s *Store) FindPathForSnapshot(snapshot string) (string, bool) {
	var path string
	err := s.db.QueryRow(`SELECT path FROM modified_files WHERE snapshot = ? LIMIT 1`, snapshot).Scan(&path)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			logger.Error("Failed to look up snapshot %s: %v", snapshot, err)
		}
		return "", false
	}
	return path, true
}

// Clear deletes every entry and all snapshot files
func (s *Store) Clear() error {
	if _, err := s.db.Exec(`DELETE FROM modified_files`); err != nil {
		return fmt.Errorf("failed to clear modifications: %w", err)
	}
	s.mu.Lock()
	s.runID = 0
	s.runLabel = ""
	s.mu.Unlock()

	if err := os.RemoveAll(s.snapshotsDir); err != nil {
		return fmt.Errorf("failed to remove snapshots: %w", err)
	}
	return nil
}

// CleanupSnapshots removes snapshot files older than ttl. Entries are kept
// with their snapshot reference cleared. Returns how many files were removed.
func (s *Store) CleanupSnapshots(ttl time.Duration) (int, error) {
	rows, err := s.db.Query(`SELECT DISTINCT snapshot FROM modified_files WHERE snapshot IS NOT NULL`)
	if err != nil {
		return 0, fmt.Errorf("failed to query snapshots: %w", err)
	}
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return 0, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		names = append(names, name)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	cutoff := s.now().Add(-ttl)
	removed := 0
	for _, name := range names {
		full := filepath.Join(s.snapshotsDir, name)
		info, err := os.Stat(full)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			logger.Error("Failed to stat snapshot %s: %v", name, err)
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(full); err != nil {
			logger.Error("Failed to remove old snapshot %s: %v", name, err)
			continue
		}
		if _, err := s.db.Exec(`UPDATE modified_files SET snapshot = NULL WHERE snapshot = ?`, name); err != nil {
			return removed, fmt.Errorf("failed to clear snapshot reference: %w", err)
		}
		removed++
		logger.Info("Cleaned up old snapshot: %s", name)
	}
	return removed, nil
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var (
			e        Entry
			snapshot sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.Path, &e.Timestamp, &snapshot, &e.Op, &e.RunID, &e.RunLabel); err != nil {
			return nil, fmt.Errorf("failed to scan modification: %w", err)
		}
		e.Snapshot = snapshot.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
