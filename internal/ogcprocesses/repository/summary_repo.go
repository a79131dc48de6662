package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aquainfra/mitgcm-ogc-backend/internal/ogcprocesses/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SummaryRepository handles PostgreSQL operations for job summaries.
type SummaryRepository struct {
	db *pgxpool.Pool
}

// NewSummaryRepository creates a new SummaryRepository.
func NewSummaryRepository(db *pgxpool.Pool) *SummaryRepository {
	return &SummaryRepository{db: db}
}

// EnsureSchema creates the job_summaries table when it does not exist yet.
func (r *SummaryRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS job_summaries (
			id           UUID PRIMARY KEY,
			job_id       TEXT UNIQUE NOT NULL,
			process_id   TEXT NOT NULL,
			status       TEXT NOT NULL,
			inputs       JSONB,
			exit_code    INT NOT NULL DEFAULT 0,
			duration_ms  BIGINT NOT NULL DEFAULT 0,
			output_bytes BIGINT NOT NULL DEFAULT 0,
			outputs      JSONB,
			created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to ensure job_summaries schema: %w", err)
	}
	return nil
}

// CreateOrUpdate creates or updates a job summary.
// Uses ON CONFLICT to upsert based on job_id.
func (r *SummaryRepository) CreateOrUpdate(ctx context.Context, summary *domain.JobSummary) error {
	if summary.ID == "" {
		summary.ID = uuid.New().String()
	}

	inputsJSON, err := json.Marshal(summary.Inputs)
	if err != nil {
		inputsJSON = []byte("{}")
	}

	outputsJSON, err := json.Marshal(summary.Outputs)
	if err != nil {
		outputsJSON = []byte("[]")
	}

	query := `
		INSERT INTO job_summaries (
			id, job_id, process_id, status, inputs,
			exit_code, duration_ms, output_bytes, outputs
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (job_id) DO UPDATE SET
			status = EXCLUDED.status,
			inputs = EXCLUDED.inputs,
			exit_code = EXCLUDED.exit_code,
			duration_ms = EXCLUDED.duration_ms,
			output_bytes = EXCLUDED.output_bytes,
			outputs = EXCLUDED.outputs,
			updated_at = NOW()
		RETURNING created_at, updated_at
	`

	err = r.db.QueryRow(
		ctx,
		query,
		summary.ID,
		summary.JobID,
		summary.ProcessID,
		summary.Status,
		inputsJSON,
		summary.ExitCode,
		summary.DurationMs,
		summary.OutputBytes,
		outputsJSON,
	).Scan(&summary.CreatedAt, &summary.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create or update summary: %w", err)
	}

	return nil
}

// GetByJobID retrieves the summary recorded for a job.
func (r *SummaryRepository) GetByJobID(ctx context.Context, jobID string) (*domain.JobSummary, error) {
	query := `
		SELECT id, job_id, process_id, status, inputs,
		       exit_code, duration_ms, output_bytes, outputs, created_at, updated_at
		FROM job_summaries
		WHERE job_id = $1
	`

	var (
		summary     domain.JobSummary
		inputsJSON  []byte
		outputsJSON []byte
	)
	err := r.db.QueryRow(ctx, query, jobID).Scan(
		&summary.ID,
		&summary.JobID,
		&summary.ProcessID,
		&summary.Status,
		&inputsJSON,
		&summary.ExitCode,
		&summary.DurationMs,
		&summary.OutputBytes,
		&outputsJSON,
		&summary.CreatedAt,
		&summary.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get summary: %w", err)
	}

	if len(inputsJSON) > 0 {
		if err := json.Unmarshal(inputsJSON, &summary.Inputs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal summary inputs: %w", err)
		}
	}

	if len(outputsJSON) > 0 {
		if err := json.Unmarshal(outputsJSON, &summary.Outputs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal summary outputs: %w", err)
		}
	}

	return &summary, nil
}

// Stats aggregates all finished jobs for one process.
func (r *SummaryRepository) Stats(ctx context.Context, processID string) (*domain.ProcessStats, error) {
	query := `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status = 'failed'),
		       COALESCE(AVG(duration_ms), 0)
		FROM job_summaries
		WHERE process_id = $1
	`

	stats := &domain.ProcessStats{ProcessID: processID}
	err := r.db.QueryRow(ctx, query, processID).Scan(
		&stats.TotalJobs,
		&stats.FailedJobs,
		&stats.MeanDurationMs,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate process stats: %w", err)
	}

	return stats, nil
}
