package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/xmin-02/sumone/internal/validation"
)

// Store keeps one JSON summary file per session id under Dir
type Store struct {
	dir   string
	locks lockMap
}

// NewStore creates a store rooted at dir
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the directory summaries are stored in
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) path(sessionID string) string {
	return filepath.Join(s.dir, sessionID+".json")
}

// Load reads the summary for sessionID. A missing summary returns nil, nil.
func (s *Store) Load(sessionID string) (*Summary, error) {
	if err := validation.ValidateSessionID(sessionID); err != nil {
		return nil, err
	}
	s.locks.Lock(sessionID)
	defer s.locks.Unlock(sessionID)
	return s.load(sessionID)
}

func (s *Store) load(sessionID string) (*Summary, error) {
	data, err := os.ReadFile(s.path(sessionID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read session %s: %w", sessionID, err)
	}

	var summary Summary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, fmt.Errorf("failed to parse session %s: %w", sessionID, err)
	}
	return &summary, nil
}

// Append adds one exchange to the summary, creating it when missing.
// Injected context is stripped from the user text before it is stored.
func (s *Store) Append(sessionID string, req AppendRequest) error {
	if err := validation.ValidateSessionID(sessionID); err != nil {
		return err
	}
	s.locks.Lock(sessionID)
	defer s.locks.Unlock(sessionID)

	summary, err := s.load(sessionID)
	if err != nil || summary == nil {
		// A corrupt summary is replaced rather than blocking the conversation
		summary = &Summary{}
	}
	summary.Provider = req.Provider
	summary.Model = req.Model

	user := req.User
	if _, after, found := strings.Cut(user, CurrentRequestMarker); found {
		user = after
	}
	at := req.At
	if at.IsZero() {
		at = time.Now()
	}
	files := req.Files
	if files == nil {
		files = []string{}
	}

	summary.Exchanges = append(summary.Exchanges, Exchange{
		User:          truncate(user, MaxUserChars),
		Output:        truncate(req.Output, MaxOutputChars),
		FilesModified: files,
		Timestamp:     at.Format(TimestampFormat),
	})
	summary.Exchanges = summary.Recent(MaxExchanges)

	return s.save(sessionID, summary)
}

// save writes the summary atomically
func (s *Store) save(sessionID string, summary *Summary) error {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create sessions dir: %w", err)
	}

	path := s.path(sessionID)
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	return os.Rename(tmpPath, path)
}

// Delete removes the summary for sessionID
func (s *Store) Delete(sessionID string) error {
	if err := validation.ValidateSessionID(sessionID); err != nil {
		return err
	}
	s.locks.Lock(sessionID)
	err := os.Remove(s.path(sessionID))
	s.locks.Unlock(sessionID)
	s.locks.Delete(sessionID)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Info describes one stored summary for listings
type Info struct {
	ID        string
	Provider  string
	Model     string
	Exchanges int
	Preview   string
	Modified  time.Time
}

// List returns up to limit summaries, most recently modified first
func (s *Store) List(limit int) ([]Info, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	var infos []Info
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			continue
		}
		id := strings.TrimSuffix(name, ".json")
		summary, err := s.Load(id)
		if err != nil || summary == nil {
			continue
		}
		info := Info{
			ID:        id,
			Provider:  summary.Provider,
			Model:     summary.Model,
			Exchanges: len(summary.Exchanges),
			Modified:  fi.ModTime(),
		}
		if len(summary.Exchanges) > 0 {
			info.Preview = truncate(summary.Exchanges[0].User, 80)
		}
		infos = append(infos, info)
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Modified.After(infos[j].Modified)
	})
	if limit > 0 && len(infos) > limit {
		infos = infos[:limit]
	}
	return infos, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
