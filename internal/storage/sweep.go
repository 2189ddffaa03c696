package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"video-captioner/internal/filesystem"
	"video-captioner/internal/logging"
	"video-captioner/internal/metrics"
)

// SweepResult summarizes one retention pass.
type SweepResult struct {
	Removed    int
	FreedBytes int64
	Failed     int
}

// Sweep removes regular files last modified before now-maxAge. Temp files
// and held paths are skipped. With dryRun set it only reports what would be
// removed. A non-positive maxAge removes nothing.
func (a *Area) Sweep(maxAge time.Duration, now time.Time, dryRun bool) (SweepResult, error) {
	var result SweepResult
	if maxAge <= 0 {
		return result, nil
	}

	start := time.Now()
	entries, err := os.ReadDir(a.root)
	filesystem.ObserveOperation("readdir", time.Since(start).Seconds(), err)
	if err != nil {
		return result, fmt.Errorf("failed to read storage directory: %w", err)
	}

	cutoff := now.Add(-maxAge)
	for _, entry := range entries {
		if !entry.Type().IsRegular() || isTempName(entry.Name()) {
			continue
		}
		path := filepath.Join(a.root, entry.Name())
		info, err := entry.Info()
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				logging.Warn("failed to get info for %s: %v", entry.Name(), err)
			}
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}

		if dryRun {
			if a.InUse(path) {
				continue
			}
			logging.Info("Would remove %s (%d bytes, modified %s)", entry.Name(), info.Size(), info.ModTime().Format(time.RFC3339))
			result.Removed++
			result.FreedBytes += info.Size()
			continue
		}

		held, err := a.removeUnlessHeld(path)
		if held {
			logging.Debug("Skipping expired file %s, in use", entry.Name())
			continue
		}
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				logging.Warn("failed to remove expired file %s: %v", path, err)
				result.Failed++
			}
			continue
		}
		logging.Debug("Removed expired file %s", entry.Name())
		result.Removed++
		result.FreedBytes += info.Size()
	}

	return result, nil
}

// Sweeper runs Sweep on a fixed interval until stopped.
type Sweeper struct {
	area     *Area
	maxAge   time.Duration
	interval time.Duration
	now      func() time.Time
	stopChan chan struct{}
	doneChan chan struct{}
}

// NewSweeper creates a sweeper for area. It does nothing until Start.
func NewSweeper(area *Area, maxAge, interval time.Duration) *Sweeper {
	return &Sweeper{
		area:     area,
		maxAge:   maxAge,
		interval: interval,
		now:      time.Now,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
}

// Start launches the sweep loop in the background.
func (s *Sweeper) Start() {
	go s.loop()
}

// Stop ends the sweep loop and waits for an in-progress pass to finish.
func (s *Sweeper) Stop() {
	close(s.stopChan)
	<-s.doneChan
}

func (s *Sweeper) loop() {
	defer close(s.doneChan)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.RunOnce()
		case <-s.stopChan:
			return
		}
	}
}

// RunOnce performs a single sweep and records the result.
func (s *Sweeper) RunOnce() SweepResult {
	result, err := s.area.Sweep(s.maxAge, s.now(), false)
	if err != nil {
		logging.Error("Retention sweep failed: %v", err)
		return result
	}

	metrics.StorageSweepRemovedFiles.Add(float64(result.Removed))
	metrics.StorageSweepRemovedBytes.Add(float64(result.FreedBytes))
	metrics.StorageSweepLastTimestamp.Set(float64(s.now().Unix()))

	if result.Removed > 0 || result.Failed > 0 {
		logging.Info("Retention sweep: removed %d files, freed %d bytes, %d failures",
			result.Removed, result.FreedBytes, result.Failed)
	}
	return result
}
