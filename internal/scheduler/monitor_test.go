package scheduler

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dco-creatives/internal/logging"
)

func TestSweepRemovesStaleRuns(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "4411-1700000000000")
	fresh := filepath.Join(dir, "4412-1700000999999")
	require.NoError(t, os.MkdirAll(filepath.Join(old, "frames-1080x1080"), 0o755))
	require.NoError(t, os.MkdirAll(fresh, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "leftover.mp4"), []byte("x"), 0o644))

	past := time.Now().Add(-8 * time.Hour)
	require.NoError(t, os.Chtimes(old, past, past))
	require.NoError(t, os.Chtimes(filepath.Join(dir, "leftover.mp4"), past, past))

	j := NewTempJanitor(dir, time.Hour, 6*time.Hour, logging.Nop())
	removed, err := j.Sweep()
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.NoDirExists(t, old)
	assert.DirExists(t, fresh)
}

func TestSweepMissingDir(t *testing.T) {
	j := NewTempJanitor(filepath.Join(t.TempDir(), "absent"), time.Hour, time.Hour, logging.Nop())
	removed, err := j.Sweep()
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestStartStop(t *testing.T) {
	dir := t.TempDir()
	stale := filepath.Join(dir, "run")
	require.NoError(t, os.Mkdir(stale, 0o755))
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(stale, past, past))

	j := NewTempJanitor(dir, time.Hour, time.Minute, logging.Nop())
	j.Start(t.Context())
	assert.Eventually(t, func() bool {
		_, err := os.Stat(stale)
		return os.IsNotExist(err)
	}, time.Second, 10*time.Millisecond)
	j.Stop()
	j.Stop()
}
