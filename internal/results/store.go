// Package results stages job artifacts and hands out the links that the
// processes API returns to clients.
package results

import (
	"context"
	"io"
)

// Entry describes one staged artifact.
type Entry struct {
	Name string
	Size int64
}

// Store holds finished-job artifacts.
type Store interface {
	// Put stages the artifact under name and returns its public href
	// and its size in bytes.
	Put(ctx context.Context, name string, r io.Reader) (href string, size int64, err error)
	// Remove deletes a staged artifact.
	Remove(ctx context.Context, name string) error
	// List enumerates staged artifacts.
	List(ctx context.Context) ([]Entry, error)
}
