package domain

import "time"

// Job represents one execution of a registered process.
type Job struct {
	JobID       string            `json:"job_id"`
	ProcessID   string            `json:"process_id"`
	Status      string            `json:"status"` // accepted, running, successful, failed, dismissed
	Message     string            `json:"message,omitempty"`
	Inputs      map[string]string `json:"inputs,omitempty"`
	Outputs     map[string]Output `json:"outputs,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
}

// Job status constants, following the OGC API Processes status codes.
const (
	StatusAccepted   = "accepted"
	StatusRunning    = "running"
	StatusSuccessful = "successful"
	StatusFailed     = "failed"
	StatusDismissed  = "dismissed"
)

// Terminal reports whether a job in this status can still change.
func Terminal(status string) bool {
	return status == StatusSuccessful || status == StatusFailed || status == StatusDismissed
}

// Output is one named result of a finished job, addressed by link.
type Output struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Href        string `json:"href"`
}

// CreateJobRequest represents data needed to create a new job.
type CreateJobRequest struct {
	ProcessID string
	Inputs    map[string]string
}

// UpdateJobRequest represents data for updating a job.
type UpdateJobRequest struct {
	Status  *string
	Message *string
	Outputs map[string]Output
}

// ProcessDescription is the metadata document for a registered process.
type ProcessDescription struct {
	ID                string                      `json:"id"`
	Title             string                      `json:"title"`
	Description       string                      `json:"description"`
	Version           string                      `json:"version"`
	JobControlOptions []string                    `json:"jobControlOptions"`
	Inputs            map[string]InputDescription `json:"inputs"`
	Outputs           map[string]OutputMeta       `json:"outputs"`
}

// InputDescription documents one process input.
type InputDescription struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Type        string `json:"type"`
	Default     string `json:"default,omitempty"`
}

// OutputMeta documents one process output.
type OutputMeta struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// OutputFile records the name and size of one staged result artifact.
type OutputFile struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// JobSummary is the per-job accounting row persisted after a job finishes.
type JobSummary struct {
	ID          string            `json:"id"`
	JobID       string            `json:"job_id"`
	ProcessID   string            `json:"process_id"`
	Status      string            `json:"status"`
	Inputs      map[string]string `json:"inputs,omitempty"`
	ExitCode    int               `json:"exit_code"`
	DurationMs  int64             `json:"duration_ms"`
	OutputBytes int64             `json:"output_bytes"`
	Outputs     []OutputFile      `json:"outputs,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// ProcessStats aggregates finished jobs of one process.
type ProcessStats struct {
	ProcessID      string  `json:"process_id"`
	TotalJobs      int64   `json:"total_jobs"`
	FailedJobs     int64   `json:"failed_jobs"`
	MeanDurationMs float64 `json:"mean_duration_ms"`
}
