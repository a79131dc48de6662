package results

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore writes artifacts into the configured download directory.
// The directory is served by the API under /downloads, or by any static
// file server pointed at it; hrefs are built from the download base URL.
type LocalStore struct {
	dir     string
	baseURL string
}

// NewLocalStore creates a LocalStore. It verifies up front that dir is
// writable so a misconfigured deployment fails at startup, not at the
// end of an hour-long model run.
func NewLocalStore(dir, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("results: create download dir %s: %w", dir, err)
	}

	probe := filepath.Join(dir, ".write-probe")
	if err := os.WriteFile(probe, nil, 0o644); err != nil {
		return nil, fmt.Errorf("results: download dir %s is not writable: %w", dir, err)
	}
	os.Remove(probe)

	return &LocalStore{
		dir:     dir,
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

// Dir returns the directory artifacts are staged in.
func (s *LocalStore) Dir() string { return s.dir }

func (s *LocalStore) Put(ctx context.Context, name string, r io.Reader) (string, int64, error) {
	path, err := s.safePath(name)
	if err != nil {
		return "", 0, err
	}

	f, err := os.Create(path)
	if err != nil {
		return "", 0, fmt.Errorf("results: create %s: %w", path, err)
	}

	n, err := io.Copy(f, r)
	if err != nil {
		f.Close()
		os.Remove(path)
		return "", 0, fmt.Errorf("results: write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", 0, fmt.Errorf("results: close %s: %w", path, err)
	}

	return s.baseURL + "/" + name, n, nil
}

// PutFile stages an already-written file (e.g. a glued NetCDF that was
// assembled directly in the download dir) and returns its href and size.
func (s *LocalStore) PutFile(name string) (string, int64, error) {
	path, err := s.safePath(name)
	if err != nil {
		return "", 0, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", 0, fmt.Errorf("results: stat %s: %w", path, err)
	}

	return s.baseURL + "/" + name, info.Size(), nil
}

// Path returns the filesystem path an artifact name maps to.
func (s *LocalStore) Path(name string) (string, error) {
	return s.safePath(name)
}

func (s *LocalStore) Remove(ctx context.Context, name string) error {
	path, err := s.safePath(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("results: remove %s: %w", path, err)
	}
	return nil
}

func (s *LocalStore) List(ctx context.Context) ([]Entry, error) {
	dirents, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("results: list %s: %w", s.dir, err)
	}

	entries := make([]Entry, 0, len(dirents))
	for _, d := range dirents {
		if d.IsDir() {
			continue
		}
		info, err := d.Info()
		if err != nil {
			continue
		}
		entries = append(entries, Entry{Name: d.Name(), Size: info.Size()})
	}
	return entries, nil
}

// safePath rejects names that would escape the download dir.
func (s *LocalStore) safePath(name string) (string, error) {
	if name == "" || strings.Contains(name, "/") || strings.Contains(name, "\\") || strings.Contains(name, "..") {
		return "", fmt.Errorf("results: invalid artifact name %q", name)
	}
	return filepath.Join(s.dir, name), nil
}
