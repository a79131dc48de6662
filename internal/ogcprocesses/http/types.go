package http

import (
	"context"
	"fmt"
	"strconv"

	"github.com/aquainfra/mitgcm-ogc-backend/internal/ogcprocesses/domain"
	"github.com/aquainfra/mitgcm-ogc-backend/internal/ogcprocesses/process"
	"github.com/aquainfra/mitgcm-ogc-backend/internal/ogcprocesses/service"
	"golang.org/x/time/rate"
)

// StatsProvider aggregates finished jobs per process. Optional: nil when
// no database is configured.
type StatsProvider interface {
	Stats(ctx context.Context, processID string) (*domain.ProcessStats, error)
}

// Handler handles HTTP requests for the processes surface.
type Handler struct {
	jobService *service.JobService
	registry   *process.Registry
	stats      StatsProvider
	limiter    *rate.Limiter
}

// New creates a new Handler. stats may be nil.
func New(jobService *service.JobService, registry *process.Registry, stats StatsProvider, execRatePerSecond float64) *Handler {
	var limiter *rate.Limiter
	if execRatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(execRatePerSecond), 1)
	}

	return &Handler{
		jobService: jobService,
		registry:   registry,
		stats:      stats,
		limiter:    limiter,
	}
}

// executeRequest is the body of POST /processes/:id/execution. Input
// values may arrive as strings or as JSON numbers; both are accepted.
type executeRequest struct {
	Inputs map[string]interface{} `json:"inputs"`
}

func (r *executeRequest) stringInputs() (map[string]string, error) {
	out := make(map[string]string, len(r.Inputs))
	for k, v := range r.Inputs {
		switch val := v.(type) {
		case string:
			out[k] = val
		case float64:
			out[k] = strconv.FormatFloat(val, 'f', -1, 64)
		case bool:
			out[k] = strconv.FormatBool(val)
		default:
			return nil, fmt.Errorf("input %q has unsupported type", k)
		}
	}
	return out, nil
}
