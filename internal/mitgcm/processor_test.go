package mitgcm

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/ctessum/cdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aquainfra/mitgcm-ogc-backend/config"
	"github.com/aquainfra/mitgcm-ogc-backend/internal/mitgcm/runner"
	"github.com/aquainfra/mitgcm-ogc-backend/internal/ogcprocesses/domain"
	"github.com/aquainfra/mitgcm-ogc-backend/internal/ogcprocesses/process"
	"github.com/aquainfra/mitgcm-ogc-backend/internal/results"
)

const backupNamelist = ` &PARM01
 viscAh=5.E3,
 &

 &PARM03
 deltaT=1200.,
 endTime=12000.,
 &
`

// memStore keeps staged artifacts in memory.
type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{objects: make(map[string][]byte)}
}

func (s *memStore) Put(_ context.Context, name string, r io.Reader) (string, int64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[name] = data
	return "http://example.com/downloads/" + name, int64(len(data)), nil
}

func (s *memStore) Remove(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, name)
	return nil
}

func (s *memStore) List(_ context.Context) ([]results.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := make([]results.Entry, 0, len(s.objects))
	for name, data := range s.objects {
		entries = append(entries, results.Entry{Name: name, Size: int64(len(data))})
	}
	return entries, nil
}

// newTestEnv lays out the directory structure a deployed model needs,
// with the model binary replaced by the given shell script.
func newTestEnv(t *testing.T, script string) (*config.ProcessConfig, *memStore) {
	t.Helper()

	root := t.TempDir()
	cfg := &config.ProcessConfig{
		DownloadDir: filepath.Join(root, "downloads"),
		DownloadURL: "http://example.com/downloads/",
		InputPath:   filepath.Join(root, "input"),
		BuildDir:    filepath.Join(root, "build"),
		RunDir:      filepath.Join(root, "run"),
		DataBackup:  filepath.Join(root, "run", "data_backup"),
		MncDir:      filepath.Join(root, "run", "mnc_test_0001"),
	}
	for _, d := range []string{cfg.DownloadDir, cfg.InputPath, cfg.BuildDir, cfg.RunDir, cfg.MncDir} {
		require.NoError(t, os.MkdirAll(d, 0o755))
	}

	require.NoError(t, os.WriteFile(cfg.DataBackup, []byte(backupNamelist), 0o644))
	bin := filepath.Join(cfg.BuildDir, runner.DefaultProgram)
	require.NoError(t, os.WriteFile(bin, []byte(script), 0o755))

	return cfg, newMemStore()
}

// writeTile fabricates a single-tile mnc output file covering a 2x2 domain.
func writeTile(t *testing.T, path string) {
	t.Helper()

	h := cdf.NewHeader([]string{"Y", "X"}, []int{2, 2})
	h.AddVariable("Depth", []string{"Y", "X"}, []float32{0})
	for name, val := range map[string]int32{
		"tile_number": 1, "sNx": 2, "sNy": 2, "Nx": 2, "Ny": 2,
	} {
		h.AddAttribute("", name, []int32{val})
	}
	h.Define()
	require.Empty(t, h.Check())

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	cf, err := cdf.Create(f, h)
	require.NoError(t, err)
	w := cf.Writer("Depth", []int{0, 0}, []int{2, 2})
	_, err = w.Write([]float32{1, 2, 3, 4})
	require.NoError(t, err)
}

func TestExecuteSuccess(t *testing.T) {
	cfg, store := newTestEnv(t, "#!/bin/sh\necho 'model run complete'\n")
	writeTile(t, filepath.Join(cfg.MncDir, "grid.t001.nc"))
	writeTile(t, filepath.Join(cfg.MncDir, "state.0000000000.t001.nc"))

	p := NewBaroclinicGyreProcessor(cfg, store)
	res, err := p.Execute(context.Background(), "job-1", map[string]string{
		"endTime": "24000",
		"deltaT":  "2400",
	})
	require.NoError(t, err)

	assert.Equal(t, "Job finished, here are the links to your results.", res.Message)
	for _, out := range []string{"grid", "state", "stdout"} {
		assert.Contains(t, res.Outputs, out)
	}
	assert.Equal(t,
		"http://example.com/downloads/outputs-stdout-mitgcm-baroclinic-gyre-job-1.txt",
		res.Outputs["stdout"].Href)
	assert.Contains(t, store.objects, "outputs-grid-mitgcm-baroclinic-gyre-job-1.nc")
	assert.Contains(t, store.objects, "outputs-state-mitgcm-baroclinic-gyre-job-1.nc")
	assert.Greater(t, res.OutputBytes, int64(0))

	// Each staged artifact is reported by name and size.
	require.Len(t, res.Files, 3)
	var total int64
	names := make([]string, 0, len(res.Files))
	for _, f := range res.Files {
		assert.Greater(t, f.Size, int64(0))
		names = append(names, f.Name)
		total += f.Size
	}
	assert.ElementsMatch(t, []string{
		"outputs-stdout-mitgcm-baroclinic-gyre-job-1.txt",
		"outputs-grid-mitgcm-baroclinic-gyre-job-1.nc",
		"outputs-state-mitgcm-baroclinic-gyre-job-1.nc",
	}, names)
	assert.Equal(t, res.OutputBytes, total)

	// The live namelist was rewritten from the backup.
	data, err := os.ReadFile(filepath.Join(cfg.RunDir, "data"))
	require.NoError(t, err)
	assert.Contains(t, string(data), " endTime=24000.,")
	assert.Contains(t, string(data), " deltaT=2400.,")
	assert.Contains(t, string(data), " viscAh=5000.,")

	// The forcing files were regenerated.
	for _, name := range []string{"bathy.bin", "windx_cosy.bin", "SST_relax.bin"} {
		_, err := os.Stat(filepath.Join(cfg.InputPath, name))
		assert.NoError(t, err, name)
	}

	// The model log carries the script's output.
	assert.Contains(t, string(store.objects["outputs-stdout-mitgcm-baroclinic-gyre-job-1.txt"]),
		"model run complete")
}

func TestExecuteModelFailure(t *testing.T) {
	cfg, store := newTestEnv(t, "#!/bin/sh\necho 'blew up'\necho 'NaN detected' >&2\nexit 7\n")

	p := NewBaroclinicGyreProcessor(cfg, store)
	_, err := p.Execute(context.Background(), "job-2", nil)
	require.Error(t, err)

	var exitErr *process.ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 7, exitErr.Code)
	assert.Contains(t, exitErr.Stderr, "NaN detected")

	// The model log is staged even when the run fails.
	log, ok := store.objects["outputs-stdout-mitgcm-baroclinic-gyre-job-2.txt"]
	require.True(t, ok)
	assert.Contains(t, string(log), "blew up")
}

func TestExecuteInvalidInputs(t *testing.T) {
	cfg, store := newTestEnv(t, "#!/bin/sh\n")
	p := NewBaroclinicGyreProcessor(cfg, store)

	cases := map[string]map[string]string{
		"non-numeric deltaT": {"deltaT": "abc"},
		"zero deltaT":        {"deltaT": "0"},
		"negative endTime":   {"endTime": "-100"},
		"non-numeric tauMax": {"tauMax": "strong"},
		"Tmax below Tmin":    {"Tmin": "20", "Tmax": "10"},
	}
	for name, inputs := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := p.Execute(context.Background(), "job-3", inputs)
			assert.ErrorIs(t, err, domain.ErrInvalidParameter)
		})
	}

	assert.Empty(t, store.objects, "nothing should be staged for rejected inputs")
}

func TestExecuteNoTiles(t *testing.T) {
	cfg, store := newTestEnv(t, "#!/bin/sh\necho ok\n")

	p := NewBaroclinicGyreProcessor(cfg, store)
	_, err := p.Execute(context.Background(), "job-4", nil)
	assert.ErrorContains(t, err, "no grid/state tile files")

	assert.Contains(t, store.objects, "outputs-stdout-mitgcm-baroclinic-gyre-job-4.txt")
}

func TestDescribe(t *testing.T) {
	cfg, store := newTestEnv(t, "#!/bin/sh\n")
	p := NewBaroclinicGyreProcessor(cfg, store)

	desc := p.Describe()
	assert.Equal(t, ProcessID, desc.ID)
	assert.ElementsMatch(t, []string{"sync-execute", "async-execute"}, desc.JobControlOptions)
	for _, in := range []string{"endTime", "deltaT", "viscAh", "tauMax", "Tmin", "Tmax"} {
		assert.Contains(t, desc.Inputs, in)
	}
	for _, out := range []string{"grid", "state", "stdout"} {
		assert.Contains(t, desc.Outputs, out)
	}
}
