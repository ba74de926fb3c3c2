package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/satangel2222/tg-mtproto-uploader/internal/domain"
)

// scratchPattern matches the temp files the fetcher creates.
const scratchPattern = "relay-*"

// Janitor periodically removes crash-leftover scratch files and prunes relay
// records past the retention window. During normal operation every scratch
// file is removed by its owning request; the janitor only catches what a
// crash or kill left behind.
type Janitor struct {
	repo    domain.UploadRepository
	config  *domain.HistoryConfig
	tempDir string
	logger  *zap.Logger

	mu       sync.RWMutex
	running  bool
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewJanitor creates a new janitor
func NewJanitor(repo domain.UploadRepository, config *domain.HistoryConfig, tempDir string, logger *zap.Logger) *Janitor {
	return &Janitor{
		repo:     repo,
		config:   config,
		tempDir:  tempDir,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Start starts the background sweep loop
func (j *Janitor) Start(ctx context.Context) error {
	j.mu.Lock()
	if j.running {
		j.mu.Unlock()
		return fmt.Errorf("janitor already running")
	}
	j.running = true
	j.mu.Unlock()

	j.wg.Add(1)
	go j.run(ctx)

	return nil
}

// Stop stops the sweep loop and waits for it to exit
func (j *Janitor) Stop() error {
	j.mu.Lock()
	if !j.running {
		j.mu.Unlock()
		return fmt.Errorf("janitor not running")
	}
	j.running = false
	j.mu.Unlock()

	close(j.stopChan)
	j.wg.Wait()

	return nil
}

// IsRunning returns whether the janitor is running
func (j *Janitor) IsRunning() bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.running
}

func (j *Janitor) run(ctx context.Context) {
	defer j.wg.Done()

	ticker := time.NewTicker(j.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-j.stopChan:
			return
		case <-ticker.C:
			j.sweepScratch()
			j.pruneHistory()
		}
	}
}

// sweepScratch removes scratch files older than the configured age.
func (j *Janitor) sweepScratch() {
	matches, err := filepath.Glob(filepath.Join(j.tempDir, scratchPattern))
	if err != nil {
		j.logger.Error("scratch sweep failed", zap.Error(err))
		return
	}

	cutoff := time.Now().Add(-j.config.TempMaxAge)
	removed := 0
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(path); err == nil {
				removed++
			}
		}
	}

	if removed > 0 {
		j.logger.Info("removed stale scratch files", zap.Int("count", removed))
	}
}

// pruneHistory deletes terminal relay records past the retention window.
func (j *Janitor) pruneHistory() {
	cutoff := time.Now().Add(-j.config.Retention)
	pruned, err := j.repo.DeleteOlderThan(cutoff)
	if err != nil {
		j.logger.Error("history prune failed", zap.Error(err))
		return
	}
	if pruned > 0 {
		j.logger.Info("pruned relay history", zap.Int64("count", pruned))
	}
}
