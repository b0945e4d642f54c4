package janitor

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vidgrab/vidgrab/internal/config"
	"github.com/vidgrab/vidgrab/internal/logging"
)

func newTestJanitor(t *testing.T, dir string, maxAge time.Duration) *Janitor {
	t.Helper()
	log, err := logging.NewDefaultLogger()
	require.NoError(t, err)

	return New(config.JanitorConfig{Interval: time.Minute, MaxAge: maxAge}, dir, log)
}

func TestSweep_RemovesOnlyStaleFiles(t *testing.T) {
	dir := t.TempDir()

	stale := filepath.Join(dir, "stale.mp4")
	require.NoError(t, os.WriteFile(stale, []byte("x"), 0644))
	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))

	fresh := filepath.Join(dir, "fresh.mp4")
	require.NoError(t, os.WriteFile(fresh, []byte("x"), 0644))

	j := newTestJanitor(t, dir, time.Hour)
	removed := j.Sweep()

	assert.Equal(t, 1, removed)
	_, err := os.Stat(stale)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(fresh)
	assert.NoError(t, err)
}

func TestSweep_SkipsDirectories(t *testing.T) {
	dir := t.TempDir()

	sub := filepath.Join(dir, "partial")
	require.NoError(t, os.Mkdir(sub, 0755))
	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(sub, old, old))

	j := newTestJanitor(t, dir, time.Hour)
	assert.Zero(t, j.Sweep())

	_, err := os.Stat(sub)
	assert.NoError(t, err)
}

func TestSweep_MissingDir(t *testing.T) {
	j := newTestJanitor(t, filepath.Join(t.TempDir(), "nope"), time.Hour)
	assert.Zero(t, j.Sweep())
}
