package service

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/aquainfra/mitgcm-ogc-backend/internal/ogcprocesses/domain"
	"github.com/aquainfra/mitgcm-ogc-backend/internal/ogcprocesses/process"
	"github.com/aquainfra/mitgcm-ogc-backend/internal/ogcprocesses/repository"
)

// SummaryRecorder persists per-job accounting rows. It is optional: the
// service runs without one when no database is configured.
type SummaryRecorder interface {
	CreateOrUpdate(ctx context.Context, summary *domain.JobSummary) error
}

// JobService handles business logic for process jobs.
type JobService struct {
	jobRepo     *repository.JobRepository
	summaries   SummaryRecorder
	registry    *process.Registry
	execTimeout time.Duration

	// sem caps concurrent model runs.
	sem chan struct{}

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// Options configures a JobService.
type Options struct {
	ExecTimeout       time.Duration
	MaxConcurrentJobs int
}

// NewJobService creates a new JobService. summaries may be nil.
func NewJobService(jobRepo *repository.JobRepository, summaries SummaryRecorder, registry *process.Registry, opt Options) *JobService {
	if opt.ExecTimeout == 0 {
		opt.ExecTimeout = 30 * time.Minute
	}
	if opt.MaxConcurrentJobs < 1 {
		opt.MaxConcurrentJobs = 1
	}

	return &JobService{
		jobRepo:     jobRepo,
		summaries:   summaries,
		registry:    registry,
		execTimeout: opt.ExecTimeout,
		sem:         make(chan struct{}, opt.MaxConcurrentJobs),
		cancels:     make(map[string]context.CancelFunc),
	}
}

// CreateJob records a new job in the accepted state.
func (s *JobService) CreateJob(ctx context.Context, req *domain.CreateJobRequest) (*domain.Job, error) {
	if _, err := s.registry.Get(req.ProcessID); err != nil {
		return nil, err
	}

	job := &domain.Job{
		ProcessID: req.ProcessID,
		Status:    domain.StatusAccepted,
		Inputs:    req.Inputs,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	if job.Inputs == nil {
		job.Inputs = make(map[string]string)
	}

	if err := s.jobRepo.Create(ctx, job); err != nil {
		return nil, err
	}

	return job, nil
}

// ExecuteSync runs the job to completion and returns the final record.
func (s *JobService) ExecuteSync(ctx context.Context, job *domain.Job) (*domain.Job, error) {
	return s.run(ctx, job)
}

// ExecuteAsync runs the job in the background. Progress is observable
// through the job record.
func (s *JobService) ExecuteAsync(job *domain.Job) {
	go func() {
		if _, err := s.run(context.Background(), job); err != nil {
			log.Printf("[jobs] async job %s finished with error: %v", job.JobID, err)
		}
	}()
}

// run drives one job through running to a terminal state.
func (s *JobService) run(ctx context.Context, job *domain.Job) (*domain.Job, error) {
	processor, err := s.registry.Get(job.ProcessID)
	if err != nil {
		return nil, err
	}

	s.sem <- struct{}{}
	defer func() { <-s.sem }()

	runCtx, cancel := context.WithTimeout(ctx, s.execTimeout)
	defer cancel()

	// job is reassigned by the UpdateJob calls below and is nil when one
	// of them fails, so the defer must not reach through it.
	jobID := job.JobID

	s.mu.Lock()
	s.cancels[jobID] = cancel
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.cancels, jobID)
		s.mu.Unlock()
	}()

	running := domain.StatusRunning
	job, err = s.UpdateJob(ctx, jobID, &domain.UpdateJobRequest{Status: &running})
	if err != nil {
		return nil, err
	}

	started := time.Now()
	result, execErr := processor.Execute(runCtx, job.JobID, job.Inputs)
	duration := time.Since(started)

	update := &domain.UpdateJobRequest{}
	exitCode := 0
	outputBytes := int64(0)
	var outputFiles []domain.OutputFile
	if execErr != nil {
		status := domain.StatusFailed
		msg := execErr.Error()
		update.Status = &status
		update.Message = &msg

		var xerr *process.ExitError
		if errors.As(execErr, &xerr) {
			exitCode = xerr.Code
		}
	} else {
		status := domain.StatusSuccessful
		update.Status = &status
		update.Message = &result.Message
		update.Outputs = result.Outputs
		outputFiles = result.Files
		outputBytes = result.OutputBytes
	}

	// The run context may already be cancelled (timeout or dismissal);
	// record the outcome with a fresh context so it is not lost.
	saveCtx, saveCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer saveCancel()

	job, err = s.UpdateJob(saveCtx, jobID, update)
	if err != nil {
		return nil, err
	}

	s.recordSummary(saveCtx, job, exitCode, duration, outputBytes, outputFiles)

	if execErr != nil {
		return job, execErr
	}
	return job, nil
}

func (s *JobService) recordSummary(ctx context.Context, job *domain.Job, exitCode int, duration time.Duration, outputBytes int64, files []domain.OutputFile) {
	if s.summaries == nil {
		return
	}

	summary := &domain.JobSummary{
		JobID:       job.JobID,
		ProcessID:   job.ProcessID,
		Status:      job.Status,
		Inputs:      job.Inputs,
		ExitCode:    exitCode,
		DurationMs:  duration.Milliseconds(),
		OutputBytes: outputBytes,
		Outputs:     files,
	}

	if err := s.summaries.CreateOrUpdate(ctx, summary); err != nil {
		log.Printf("[jobs] failed to record summary for job %s: %v", job.JobID, err)
	}
}

// GetJob retrieves a job by its ID.
func (s *JobService) GetJob(ctx context.Context, jobID string) (*domain.Job, error) {
	return s.jobRepo.GetByJobID(ctx, jobID)
}

// UpdateJob applies an update request, enforcing status transitions.
func (s *JobService) UpdateJob(ctx context.Context, jobID string, req *domain.UpdateJobRequest) (*domain.Job, error) {
	job, err := s.jobRepo.GetByJobID(ctx, jobID)
	if err != nil {
		return nil, err
	}

	if req.Status != nil {
		if !isValidStatus(*req.Status) {
			return nil, domain.ErrInvalidStatus
		}
		if domain.Terminal(job.Status) && *req.Status != job.Status {
			return nil, domain.ErrInvalidStatus
		}
		job.Status = *req.Status

		if domain.Terminal(job.Status) && job.CompletedAt == nil {
			now := time.Now()
			job.CompletedAt = &now
		}
	}

	if req.Message != nil {
		job.Message = *req.Message
	}

	if len(req.Outputs) > 0 {
		if job.Outputs == nil {
			job.Outputs = make(map[string]domain.Output)
		}
		for k, v := range req.Outputs {
			job.Outputs[k] = v
		}
	}

	if err := s.jobRepo.Update(ctx, job); err != nil {
		return nil, err
	}

	return job, nil
}

// DismissJob cancels a running job, or marks a pending one dismissed.
func (s *JobService) DismissJob(ctx context.Context, jobID string) (*domain.Job, error) {
	job, err := s.jobRepo.GetByJobID(ctx, jobID)
	if err != nil {
		return nil, err
	}

	if domain.Terminal(job.Status) {
		return nil, domain.ErrInvalidStatus
	}

	s.mu.Lock()
	if cancel, ok := s.cancels[jobID]; ok {
		cancel()
	}
	s.mu.Unlock()

	dismissed := domain.StatusDismissed
	return s.UpdateJob(ctx, jobID, &domain.UpdateJobRequest{Status: &dismissed})
}

// ListJobs retrieves all known job IDs.
func (s *JobService) ListJobs(ctx context.Context) ([]string, error) {
	return s.jobRepo.ListAll(ctx)
}

// ListJobsByProcess retrieves all job IDs for one process.
func (s *JobService) ListJobsByProcess(ctx context.Context, processID string) ([]string, error) {
	return s.jobRepo.ListByProcessID(ctx, processID)
}

// isValidStatus checks if a status is valid.
func isValidStatus(status string) bool {
	return status == domain.StatusAccepted ||
		status == domain.StatusRunning ||
		status == domain.StatusSuccessful ||
		status == domain.StatusFailed ||
		status == domain.StatusDismissed
}
