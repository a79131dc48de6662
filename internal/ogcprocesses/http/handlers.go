package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/aquainfra/mitgcm-ogc-backend/internal/ogcprocesses/domain"
	"github.com/gin-gonic/gin"
)

// exception writes an OGC API exception document.
func exception(c *gin.Context, status int, kind, detail string) {
	c.JSON(status, gin.H{
		"type":   kind,
		"status": status,
		"detail": detail,
	})
}

// ListProcesses lists all registered processes.
func (h *Handler) ListProcesses(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"processes": h.registry.List()})
}

// DescribeProcess returns the metadata document of one process.
func (h *Handler) DescribeProcess(c *gin.Context) {
	processor, err := h.registry.Get(c.Param("id"))
	if err != nil {
		exception(c, http.StatusNotFound, "no-such-process", "process not found: "+c.Param("id"))
		return
	}

	c.JSON(http.StatusOK, processor.Describe())
}

// Execute runs a process. Execution is synchronous by default; clients
// that send "Prefer: respond-async" get a job reference back instead.
func (h *Handler) Execute(c *gin.Context) {
	if h.limiter != nil && !h.limiter.Allow() {
		exception(c, http.StatusTooManyRequests, "rate-limited", "too many execution requests")
		return
	}

	processID := c.Param("id")
	if _, err := h.registry.Get(processID); err != nil {
		exception(c, http.StatusNotFound, "no-such-process", "process not found: "+processID)
		return
	}

	var body executeRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		exception(c, http.StatusBadRequest, "invalid-request", "invalid request body")
		return
	}

	inputs, err := body.stringInputs()
	if err != nil {
		exception(c, http.StatusBadRequest, "invalid-parameter", err.Error())
		return
	}

	job, err := h.jobService.CreateJob(c.Request.Context(), &domain.CreateJobRequest{
		ProcessID: processID,
		Inputs:    inputs,
	})
	if err != nil {
		exception(c, http.StatusServiceUnavailable, "job-store-unavailable", "failed to create job")
		return
	}

	if wantsAsync(c) {
		h.jobService.ExecuteAsync(job)
		c.Header("Location", "/jobs/"+job.JobID)
		c.JSON(http.StatusCreated, gin.H{"job": job})
		return
	}

	job, err = h.jobService.ExecuteSync(c.Request.Context(), job)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidParameter) {
			exception(c, http.StatusBadRequest, "invalid-parameter", err.Error())
			return
		}
		exception(c, http.StatusInternalServerError, "execution-failed", err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{"outputs": outputsDocument(job)})
}

// wantsAsync reports whether the client asked for asynchronous execution.
func wantsAsync(c *gin.Context) bool {
	return strings.Contains(strings.ToLower(c.GetHeader("Prefer")), "respond-async")
}

// outputsDocument renders the outputs object of a finished job, with the
// completion message alongside the named output links.
func outputsDocument(job *domain.Job) gin.H {
	doc := gin.H{"message": job.Message}
	for name, out := range job.Outputs {
		doc[name] = out
	}
	return doc
}

// ListJobs lists known job IDs, optionally filtered by process.
func (h *Handler) ListJobs(c *gin.Context) {
	var (
		ids []string
		err error
	)
	if processID := c.Query("processID"); processID != "" {
		ids, err = h.jobService.ListJobsByProcess(c.Request.Context(), processID)
	} else {
		ids, err = h.jobService.ListJobs(c.Request.Context())
	}
	if err != nil {
		exception(c, http.StatusInternalServerError, "job-store-unavailable", "failed to list jobs")
		return
	}

	if ids == nil {
		ids = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"jobs": ids})
}

// GetJob returns the status document of a job.
func (h *Handler) GetJob(c *gin.Context) {
	job, err := h.jobService.GetJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			exception(c, http.StatusNotFound, "no-such-job", "job not found")
			return
		}
		exception(c, http.StatusInternalServerError, "job-store-unavailable", "failed to get job")
		return
	}

	c.JSON(http.StatusOK, gin.H{"job": job})
}

// GetResults returns the outputs of a successful job.
func (h *Handler) GetResults(c *gin.Context) {
	job, err := h.jobService.GetJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			exception(c, http.StatusNotFound, "no-such-job", "job not found")
			return
		}
		exception(c, http.StatusInternalServerError, "job-store-unavailable", "failed to get job")
		return
	}

	switch job.Status {
	case domain.StatusSuccessful:
		c.JSON(http.StatusOK, gin.H{"outputs": outputsDocument(job)})
	case domain.StatusFailed:
		exception(c, http.StatusInternalServerError, "execution-failed", job.Message)
	default:
		exception(c, http.StatusNotFound, "result-not-ready", "job has not finished yet")
	}
}

// DismissJob cancels a running job (or drops an accepted one).
func (h *Handler) DismissJob(c *gin.Context) {
	job, err := h.jobService.DismissJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			exception(c, http.StatusNotFound, "no-such-job", "job not found")
			return
		}
		if errors.Is(err, domain.ErrInvalidStatus) {
			exception(c, http.StatusConflict, "job-finished", "job is already in a terminal state")
			return
		}
		exception(c, http.StatusInternalServerError, "job-store-unavailable", "failed to dismiss job")
		return
	}

	c.JSON(http.StatusOK, gin.H{"job": job})
}

// ProcessStats returns aggregate accounting for one process.
func (h *Handler) ProcessStats(c *gin.Context) {
	if h.stats == nil {
		exception(c, http.StatusNotImplemented, "stats-disabled", "no summary database configured")
		return
	}

	processID := c.Param("id")
	if _, err := h.registry.Get(processID); err != nil {
		exception(c, http.StatusNotFound, "no-such-process", "process not found: "+processID)
		return
	}

	stats, err := h.stats.Stats(c.Request.Context(), processID)
	if err != nil {
		exception(c, http.StatusInternalServerError, "stats-unavailable", "failed to aggregate stats")
		return
	}

	c.JSON(http.StatusOK, gin.H{"stats": stats})
}
