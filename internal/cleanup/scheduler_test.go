package cleanup

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aquainfra/mitgcm-ogc-backend/internal/results"
)

func stageArtifact(t *testing.T, store *results.LocalStore, name string, age time.Duration) {
	t.Helper()

	_, _, err := store.Put(context.Background(), name, strings.NewReader("data"))
	require.NoError(t, err)

	if age > 0 {
		path, err := store.Path(name)
		require.NoError(t, err)
		old := time.Now().Add(-age)
		require.NoError(t, os.Chtimes(path, old, old))
	}
}

func TestRunOnceRemovesExpiredArtifacts(t *testing.T) {
	store, err := results.NewLocalStore(t.TempDir(), "http://example.com/downloads")
	require.NoError(t, err)

	stageArtifact(t, store, "old.nc", 48*time.Hour)
	stageArtifact(t, store, "older.txt", 7*24*time.Hour)
	stageArtifact(t, store, "fresh.nc", 0)

	s := NewScheduler(store, 24*time.Hour, "0 0 * * * *")
	assert.Equal(t, 2, s.RunOnce())

	entries, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "fresh.nc", entries[0].Name)
}

func TestRunOnceEmptyDir(t *testing.T) {
	store, err := results.NewLocalStore(t.TempDir(), "http://example.com/downloads")
	require.NoError(t, err)

	s := NewScheduler(store, time.Hour, "0 0 * * * *")
	assert.Equal(t, 0, s.RunOnce())
}

func TestStartAndStop(t *testing.T) {
	store, err := results.NewLocalStore(t.TempDir(), "http://example.com/downloads")
	require.NoError(t, err)

	// Every second, so the schedule itself is exercised.
	s := NewScheduler(store, time.Hour, "* * * * * *")
	s.Start()
	s.Stop()
}
