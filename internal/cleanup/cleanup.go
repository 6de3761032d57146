// Package cleanup provides background housekeeping for the data directory.
package cleanup

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/xmin-02/sumone/internal/logger"
)

// SnapshotStore removes snapshot files older than a TTL
type SnapshotStore interface {
	CleanupSnapshots(ttl time.Duration) (int, error)
}

// Cleaner runs snapshot retention and temp-file cleanup on a cron schedule.
type Cleaner struct {
	dataDir     string
	schedule    string
	snapshotTTL time.Duration
	tmpMaxAge   time.Duration
	snapshots   SnapshotStore

	mu   sync.Mutex
	cron *cron.Cron
}

// Config holds cleanup configuration.
type Config struct {
	DataDir     string
	Schedule    string        // Cron spec, descriptors such as @hourly allowed
	SnapshotTTL time.Duration // How long to keep file snapshots
	TmpMaxAge   time.Duration // Age after which orphaned .tmp files are removed
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(dataDir string) Config {
	return Config{
		DataDir:     dataDir,
		Schedule:    "@hourly",
		SnapshotTTL: 7 * 24 * time.Hour,
		TmpMaxAge:   1 * time.Hour,
	}
}

// cronParser accepts standard 5-field specs and @descriptors
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// New creates a new Cleaner with the given configuration.
func New(cfg Config, snapshots SnapshotStore) (*Cleaner, error) {
	defaults := DefaultConfig(cfg.DataDir)
	if cfg.Schedule == "" {
		cfg.Schedule = defaults.Schedule
	}
	if cfg.SnapshotTTL <= 0 {
		cfg.SnapshotTTL = defaults.SnapshotTTL
	}
	if cfg.TmpMaxAge <= 0 {
		cfg.TmpMaxAge = defaults.TmpMaxAge
	}
	if _, err := cronParser.Parse(cfg.Schedule); err != nil {
		return nil, fmt.Errorf("invalid cleanup schedule %q: %w", cfg.Schedule, err)
	}
	return &Cleaner{
		dataDir:     cfg.DataDir,
		schedule:    cfg.Schedule,
		snapshotTTL: cfg.SnapshotTTL,
		tmpMaxAge:   cfg.TmpMaxAge,
		snapshots:   snapshots,
	}, nil
}

// Start runs one cleanup immediately and schedules the rest.
func (c *Cleaner) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cron != nil {
		return nil
	}

	sched := cron.New(cron.WithParser(cronParser))
	if _, err := sched.AddFunc(c.schedule, c.RunOnce); err != nil {
		return fmt.Errorf("failed to schedule cleanup: %w", err)
	}

	// Run immediately on start
	c.RunOnce()

	sched.Start()
	c.cron = sched
	logger.Printf("🧹 Cleanup started (schedule=%s, snapshot ttl=%v)", c.schedule, c.snapshotTTL)
	return nil
}

// Stop halts the schedule and waits for a running cleanup to finish.
func (c *Cleaner) Stop() {
	c.mu.Lock()
	sched := c.cron
	c.cron = nil
	c.mu.Unlock()

	if sched != nil {
		<-sched.Stop().Done()
		logger.Println("🧹 Cleanup stopped")
	}
}

// RunOnce performs all cleanup tasks.
func (c *Cleaner) RunOnce() {
	c.cleanupSnapshots()
	c.cleanupTmpFiles()
}

func (c *Cleaner) cleanupSnapshots() {
	if c.snapshots == nil {
		return
	}
	removed, err := c.snapshots.CleanupSnapshots(c.snapshotTTL)
	if err != nil {
		logger.Printf("⚠️  Snapshot cleanup error: %v", err)
	}
	if removed > 0 {
		logger.Printf("🧹 Snapshot cleanup removed %d files (TTL=%v)", removed, c.snapshotTTL)
	}
}

// cleanupTmpFiles removes .tmp files left behind by interrupted atomic writes.
func (c *Cleaner) cleanupTmpFiles() {
	if c.dataDir == "" {
		return
	}
	cutoff := time.Now().Add(-c.tmpMaxAge)
	var removed int

	err := filepath.Walk(c.dataDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip errors
		}
		if !info.IsDir() && strings.HasSuffix(info.Name(), ".tmp") && info.ModTime().Before(cutoff) {
			if err := os.Remove(path); err == nil {
				removed++
			}
		}
		return nil
	})

	if err != nil {
		logger.Printf("⚠️  Cleanup walk error: %v", err)
	}
	if removed > 0 {
		logger.Printf("🧹 Removed %d orphaned .tmp files", removed)
	}
}
