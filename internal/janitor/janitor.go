// Package janitor sweeps the downloads directory for orphaned files.
// Pipelines remove their own output on success and failure, but a crashed
// process or a kill during an upload leaves files behind; anything older
// than the retention window is safe to delete.
package janitor

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/vidgrab/vidgrab/internal/config"
	"github.com/vidgrab/vidgrab/internal/logging"
)

// Janitor periodically removes stale files from a directory.
type Janitor struct {
	dir      string
	interval time.Duration
	maxAge   time.Duration
	log      *logging.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a janitor for the downloads directory.
func New(cfg config.JanitorConfig, dir string, log *logging.Logger) *Janitor {
	ctx, cancel := context.WithCancel(context.Background())

	return &Janitor{
		dir:      dir,
		interval: cfg.Interval,
		maxAge:   cfg.MaxAge,
		log:      log,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start begins the sweep loop.
func (j *Janitor) Start() {
	go j.sweepLoop()
	j.log.WithField("dir", j.dir).Info("janitor started")
}

// Stop stops the sweep loop.
func (j *Janitor) Stop() {
	j.cancel()
}

func (j *Janitor) sweepLoop() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-j.ctx.Done():
			return
		case <-ticker.C:
			j.Sweep()
		}
	}
}

// Sweep removes every regular file in the directory older than maxAge.
// Removal failures are logged and skipped; the next sweep retries.
func (j *Janitor) Sweep() int {
	entries, err := os.ReadDir(j.dir)
	if err != nil {
		j.log.WithError(err).Warn("janitor failed to read downloads dir")
		return 0
	}

	cutoff := time.Now().Add(-j.maxAge)
	removed := 0

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}

		path := filepath.Join(j.dir, entry.Name())
		if err := os.Remove(path); err != nil {
			j.log.WithError(err).WithField("file", path).Warn("janitor failed to remove orphan")
			continue
		}

		j.log.WithField("file", path).WithField("age", time.Since(info.ModTime()).String()).Info("removed orphaned download file")
		removed++
	}

	return removed
}
