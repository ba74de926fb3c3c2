package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satangel2222/tg-mtproto-uploader/internal/domain"
	"github.com/satangel2222/tg-mtproto-uploader/pkg/logger"
)

func janitorConfig() *domain.HistoryConfig {
	return &domain.HistoryConfig{
		Retention:     24 * time.Hour,
		SweepInterval: 10 * time.Minute,
		TempMaxAge:    time.Hour,
	}
}

func writeScratch(t *testing.T, dir, name string, age time.Duration) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("leftover"), 0o644))
	if age > 0 {
		old := time.Now().Add(-age)
		require.NoError(t, os.Chtimes(path, old, old))
	}
	return path
}

func TestJanitor_SweepScratch(t *testing.T) {
	dir := t.TempDir()
	stale := writeScratch(t, dir, "relay-old123.mp4", 2*time.Hour)
	fresh := writeScratch(t, dir, "relay-new456.mp4", 0)
	unrelated := writeScratch(t, dir, "other.txt", 2*time.Hour)

	j := NewJanitor(newMockRepo(), janitorConfig(), dir, logger.NewDefault())
	j.sweepScratch()

	_, err := os.Stat(stale)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(fresh)
	assert.NoError(t, err)
	// Files outside the scratch naming scheme are never touched.
	_, err = os.Stat(unrelated)
	assert.NoError(t, err)
}

func TestJanitor_PruneHistory(t *testing.T) {
	repo := newMockRepo()

	old := domain.NewUpload(&domain.UploadRequest{ChatID: "1", SourceURL: "https://example.com/a.mp4", Kind: domain.KindVideo})
	old.MarkCompleted(1)
	old.CreatedAt = time.Now().Add(-48 * time.Hour)
	require.NoError(t, repo.Create(old))

	fresh := domain.NewUpload(&domain.UploadRequest{ChatID: "2", SourceURL: "https://example.com/b.mp4", Kind: domain.KindVideo})
	fresh.MarkCompleted(2)
	require.NoError(t, repo.Create(fresh))

	j := NewJanitor(repo, janitorConfig(), t.TempDir(), logger.NewDefault())
	j.pruneHistory()

	count, err := repo.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	_, err = repo.FindByID(fresh.ID)
	assert.NoError(t, err)
}

func TestJanitor_StartStop(t *testing.T) {
	j := NewJanitor(newMockRepo(), janitorConfig(), t.TempDir(), logger.NewDefault())

	assert.False(t, j.IsRunning())

	require.NoError(t, j.Start(context.Background()))
	assert.True(t, j.IsRunning())

	// Starting twice is an error.
	assert.Error(t, j.Start(context.Background()))

	require.NoError(t, j.Stop())
	assert.False(t, j.IsRunning())

	// Stopping twice is an error too.
	assert.Error(t, j.Stop())
}
