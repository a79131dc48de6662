package runner

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeProgram drops a fake model binary (a shell script) into dir.
func writeProgram(t *testing.T, dir, name, script string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755))
}

func TestRunSuccess(t *testing.T) {
	binDir := t.TempDir()
	workDir := t.TempDir()
	writeProgram(t, binDir, DefaultProgram, "pwd\necho model output\n")

	res, err := Run(context.Background(), Options{BinaryDir: binDir, WorkDir: workDir})
	require.NoError(t, err)

	assert.Equal(t, 0, res.ExitCode)
	assert.Contains(t, res.Stdout, "model output")
	// The model must be started from the run directory; it resolves its
	// input files relative to it.
	assert.Contains(t, res.Stdout, workDir)
	assert.Empty(t, res.Stderr)
	assert.Greater(t, res.Duration, time.Duration(0))
}

func TestRunNonzeroExit(t *testing.T) {
	binDir := t.TempDir()
	writeProgram(t, binDir, DefaultProgram, "echo partial >&1\necho broken >&2\nexit 3\n")

	res, err := Run(context.Background(), Options{BinaryDir: binDir, WorkDir: t.TempDir()})
	require.Error(t, err)
	require.NotNil(t, res)

	assert.Equal(t, 3, res.ExitCode)
	assert.Contains(t, res.Stdout, "partial")
	assert.Contains(t, res.Stderr, "broken")
	assert.Contains(t, err.Error(), "exited with code 3")
}

func TestRunMissingBinary(t *testing.T) {
	res, err := Run(context.Background(), Options{BinaryDir: t.TempDir(), WorkDir: t.TempDir()})
	require.Error(t, err)
	require.NotNil(t, res)
	assert.Equal(t, -1, res.ExitCode)
}

func TestRunCancelled(t *testing.T) {
	binDir := t.TempDir()
	writeProgram(t, binDir, DefaultProgram, "sleep 30\n")

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := Run(ctx, Options{BinaryDir: binDir, WorkDir: t.TempDir()})
	require.Error(t, err)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestRunRequiresDirs(t *testing.T) {
	_, err := Run(context.Background(), Options{})
	assert.Error(t, err)
}
