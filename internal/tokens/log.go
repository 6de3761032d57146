// Package tokens records per-run token usage across all providers.
//
// log.go - Append-only JSONL usage log
//
// This file contains:
// - Record, one line of the log
// - Log, which appends under an advisory file lock and reads back leniently
//
// Several bot processes may share one data directory, so appends are
// serialized with a lock on a sidecar file next to the log.

package tokens

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
)

// TimestampFormat is the local-time layout of Record.Timestamp
const TimestampFormat = "2006-01-02T15:04:05"

// Record is one usage entry
type Record struct {
	Timestamp string   `json:"ts"`
	Provider  string   `json:"provider"`
	Model     string   `json:"model"`
	In        int      `json:"in"`
	Out       int      `json:"out"`
	Cached    int      `json:"cached"`
	Cost      *float64 `json:"cost"`
	Session   string   `json:"session"`
}

// FormatTimestamp renders t the way records store it
func FormatTimestamp(t time.Time) string {
	return t.Format(TimestampFormat)
}

// Log is a JSONL usage log at Path
type Log struct {
	path string
}

// NewLog creates a log writing to path
func NewLog(path string) *Log {
	return &Log{path: path}
}

// Path returns the log file location
func (l *Log) Path() string {
	return l.path
}

// Append writes rec as one JSON line. Records without tokens are skipped.
func (l *Log) Append(rec Record) error {
	if rec.In == 0 && rec.Out == 0 {
		return nil
	}
	if rec.Timestamp == "" {
		rec.Timestamp = FormatTimestamp(time.Now())
	}

	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal token record: %w", err)
	}
	line = append(line, '\n')

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("failed to create token log dir: %w", err)
	}

	// Open before locking so the file is created with our mode; the lock
	// is taken on the log itself.
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open token log: %w", err)
	}
	defer f.Close()

	lock := flock.New(l.path)
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("failed to lock token log: %w", err)
	}
	defer func() { _ = lock.Unlock() }()

	if _, err := f.Write(line); err != nil {
		return fmt.Errorf("failed to write token log: %w", err)
	}
	return nil
}

// ReadAll returns every well-formed record; malformed lines are skipped
func (l *Log) ReadAll() ([]Record, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open token log: %w", err)
	}
	defer f.Close()

	var records []Record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var rec Record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return records, fmt.Errorf("failed to read token log: %w", err)
	}
	return records, nil
}
