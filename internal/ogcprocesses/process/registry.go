// Package process holds the processor contract and the registry that maps
// process IDs to their implementations.
package process

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aquainfra/mitgcm-ogc-backend/internal/ogcprocesses/domain"
)

// Processor is implemented by every executable process.
type Processor interface {
	// Describe returns the process metadata document.
	Describe() domain.ProcessDescription
	// Execute runs the process. The jobID is used to name result
	// artifacts.
	Execute(ctx context.Context, jobID string, inputs map[string]string) (*Result, error)
}

// Result is what a processor hands back for a successful job.
type Result struct {
	// Message is a human-readable completion note.
	Message string
	// Outputs are the named result links.
	Outputs map[string]domain.Output
	// Files lists each staged artifact by name and size.
	Files []domain.OutputFile
	// OutputBytes is the total size of the staged artifacts.
	OutputBytes int64
}

// ExitError reports a nonzero exit from the external model binary.
type ExitError struct {
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("model run failed with exit code %d", e.Code)
}

// Registry maps process IDs to processors.
type Registry struct {
	mu         sync.RWMutex
	processors map[string]Processor
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{processors: make(map[string]Processor)}
}

// Register adds a processor under its described ID. Registering the same
// ID twice replaces the previous processor.
func (r *Registry) Register(p Processor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.processors[p.Describe().ID] = p
}

// Get returns the processor registered under id.
func (r *Registry) Get(id string) (Processor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.processors[id]
	if !ok {
		return nil, domain.ErrProcessNotFound
	}
	return p, nil
}

// List returns descriptions of all registered processes, sorted by ID.
func (r *Registry) List() []domain.ProcessDescription {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.ProcessDescription, 0, len(r.processors))
	for _, p := range r.processors {
		out = append(out, p.Describe())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
