package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aquainfra/mitgcm-ogc-backend/internal/ogcprocesses/domain"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	jobKeyPrefix          = "ogc:job:"         // Key for job data: ogc:job:{job_id}
	processJobSetPrefix   = "ogc:process:"     // Set of job IDs per process: ogc:process:{process_id}:jobs
	jobEventChannelPrefix = "ogc:events:"      // Pub/Sub channel for job events: ogc:events:{job_id}
	jobTTL                = 7 * 24 * time.Hour // TTL for job records (7 days)
)

// JobRepository handles Redis operations for jobs.
type JobRepository struct {
	client *redis.Client
}

// NewJobRepository creates a new JobRepository.
func NewJobRepository(client *redis.Client) *JobRepository {
	return &JobRepository{client: client}
}

// Create stores a new job record.
func (r *JobRepository) Create(ctx context.Context, job *domain.Job) error {
	if job.JobID == "" {
		job.JobID = uuid.New().String()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	if job.UpdatedAt.IsZero() {
		job.UpdatedAt = time.Now()
	}

	jobData, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job data: %w", err)
	}

	jobKey := r.jobKey(job.JobID)
	processSetKey := r.processJobSetKey(job.ProcessID)

	// Pipeline keeps the record and its index in step.
	pipe := r.client.Pipeline()
	pipe.Set(ctx, jobKey, jobData, jobTTL)
	pipe.SAdd(ctx, processSetKey, job.JobID)
	pipe.Expire(ctx, processSetKey, jobTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}

	return nil
}

// GetByJobID retrieves a job by its ID.
func (r *JobRepository) GetByJobID(ctx context.Context, jobID string) (*domain.Job, error) {
	data, err := r.client.Get(ctx, r.jobKey(jobID)).Result()
	if err == redis.Nil {
		return nil, domain.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	var job domain.Job
	if err := json.Unmarshal([]byte(data), &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job data: %w", err)
	}

	return &job, nil
}

// Update overwrites an existing job record and publishes an update event.
func (r *JobRepository) Update(ctx context.Context, job *domain.Job) error {
	// Make sure the job still exists; otherwise Update would resurrect
	// an expired or dismissed record.
	if _, err := r.GetByJobID(ctx, job.JobID); err != nil {
		return err
	}

	job.UpdatedAt = time.Now()

	jobData, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job data: %w", err)
	}

	if err := r.client.Set(ctx, r.jobKey(job.JobID), jobData, jobTTL).Err(); err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}

	if job.Status != "" {
		r.client.Publish(ctx, r.jobEventChannel(job.JobID), jobData)
	}

	return nil
}

// ListByProcessID retrieves all job IDs recorded for a process.
func (r *JobRepository) ListByProcessID(ctx context.Context, processID string) ([]string, error) {
	jobIDs, err := r.client.SMembers(ctx, r.processJobSetKey(processID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs for process: %w", err)
	}
	return jobIDs, nil
}

// ListAll retrieves all job IDs across processes by scanning the job keys.
func (r *JobRepository) ListAll(ctx context.Context) ([]string, error) {
	var (
		cursor uint64
		ids    []string
	)
	for {
		keys, next, err := r.client.Scan(ctx, cursor, jobKeyPrefix+"*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan jobs: %w", err)
		}
		for _, k := range keys {
			ids = append(ids, k[len(jobKeyPrefix):])
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return ids, nil
}

// Delete removes a job record and its process index entry.
func (r *JobRepository) Delete(ctx context.Context, jobID string) error {
	job, err := r.GetByJobID(ctx, jobID)
	if err != nil {
		return err
	}

	pipe := r.client.Pipeline()
	pipe.Del(ctx, r.jobKey(jobID))
	pipe.SRem(ctx, r.processJobSetKey(job.ProcessID), jobID)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}

	return nil
}

// Helper methods for key generation
func (r *JobRepository) jobKey(jobID string) string {
	return fmt.Sprintf("%s%s", jobKeyPrefix, jobID)
}

func (r *JobRepository) processJobSetKey(processID string) string {
	return fmt.Sprintf("%s%s:jobs", processJobSetPrefix, processID)
}

func (r *JobRepository) jobEventChannel(jobID string) string {
	return fmt.Sprintf("%s%s", jobEventChannelPrefix, jobID)
}
