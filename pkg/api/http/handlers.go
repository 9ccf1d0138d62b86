package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/aescanero/classflow/internal/application/orchestrator"
	"github.com/aescanero/classflow/internal/application/workers"
	"github.com/aescanero/classflow/pkg/domain"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// JobCreateRequest represents a planning request
type JobCreateRequest struct {
	Request string         `json:"request" binding:"required"`
	Options map[string]any `json:"options"`

	// Run executes the job synchronously up to its first checkpoint.
	Run bool `json:"run"`
}

// JobResponse pairs a job with its summary and, after a run, the outcome
type JobResponse struct {
	Job     *domain.Job          `json:"job"`
	Summary domain.Summary       `json:"summary"`
	Outcome orchestrator.Outcome `json:"outcome,omitempty"`
	WaitFor string               `json:"wait_for,omitempty"`
}

// JobListItem is one row of the job listing
type JobListItem struct {
	ID      string           `json:"job_id"`
	Request string           `json:"request"`
	Status  domain.JobStatus `json:"status"`
	WaitFor string           `json:"wait_for,omitempty"`
	Tasks   int              `json:"tasks"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail represents error details
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	checks := gin.H{"orchestrator": "ok"}
	status, code := "healthy", http.StatusOK

	if s.health != nil {
		pool := s.health.GetStatus()
		checks["workers"] = pool
		if !pool.Healthy {
			status, code = "degraded", http.StatusServiceUnavailable
		}
	}

	c.JSON(code, gin.H{
		"status":    status,
		"timestamp": s.now().UTC().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleCreateJob plans a job and optionally runs it
func (s *Server) handleCreateJob(c *gin.Context) {
	var req JobCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.logger.Error("invalid request", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: ErrorDetail{
				Code:    "INVALID_REQUEST",
				Message: err.Error(),
			},
		})
		return
	}

	job, err := s.jobs.Plan(c.Request.Context(), req.Request, req.Options)
	if err != nil {
		s.writeError(c, err)
		return
	}

	resp := JobResponse{Job: job}
	if req.Run {
		res, err := s.jobs.Run(c.Request.Context(), job)
		if err != nil {
			s.writeError(c, err)
			return
		}
		resp.Job = res.Job
		resp.Outcome = res.Outcome
		resp.WaitFor = res.WaitFor
	}
	resp.Summary = s.jobs.Reflect(resp.Job)

	c.JSON(http.StatusCreated, resp)
}

// handleListJobs lists stored jobs, optionally filtered by ?status=
func (s *Server) handleListJobs(c *gin.Context) {
	jobs, err := s.jobs.ListJobsByStatus(c.Request.Context(), domain.JobStatus(c.Query("status")))
	if err != nil {
		s.writeError(c, err)
		return
	}

	items := make([]JobListItem, 0, len(jobs))
	for _, job := range jobs {
		items = append(items, JobListItem{
			ID:      job.ID,
			Request: job.Request,
			Status:  job.State.Status,
			WaitFor: job.State.WaitFor,
			Tasks:   len(job.Tasks),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"jobs":  items,
		"total": len(items),
	})
}

// handleGetJob returns the full job document
func (s *Server) handleGetJob(c *gin.Context) {
	job, err := s.jobs.GetJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, job)
}

// handleGetSummary returns the reflection summary of a job
func (s *Server) handleGetSummary(c *gin.Context) {
	job, err := s.jobs.GetJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"job_id":  job.ID,
		"summary": s.jobs.Reflect(job),
	})
}

// handleRunJob resumes a job synchronously
func (s *Server) handleRunJob(c *gin.Context) {
	res, err := s.jobs.Resume(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, JobResponse{
		Job:     res.Job,
		Summary: s.jobs.Reflect(res.Job),
		Outcome: res.Outcome,
		WaitFor: res.WaitFor,
	})
}

// handleResumeJob queues a job on the worker pool
func (s *Server) handleResumeJob(c *gin.Context) {
	if s.submitter == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error: ErrorDetail{
				Code:    "WORKERS_NOT_AVAILABLE",
				Message: "Worker pool is not configured",
			},
		})
		return
	}

	jobID := c.Param("id")
	if _, err := s.jobs.GetJob(c.Request.Context(), jobID); err != nil {
		s.writeError(c, err)
		return
	}

	if err := s.submitter.Submit(c.Request.Context(), jobID); err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"job_id":    jobID,
		"status":    "queued",
		"queued_at": s.now().UTC().Format(time.RFC3339),
	})
}

// handleListActions lists the registered action names
func (s *Server) handleListActions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"actions": s.jobs.Registry().Names(),
	})
}

// writeError maps domain errors to status codes
func (s *Server) writeError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, "INTERNAL_ERROR"
	switch {
	case errors.Is(err, domain.ErrJobNotFound):
		status, code = http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrJobRunning):
		status, code = http.StatusConflict, "JOB_RUNNING"
	case errors.Is(err, domain.ErrInvalidJob), errors.Is(err, domain.ErrCycleDetected):
		status, code = http.StatusUnprocessableEntity, "INVALID_JOB"
	case errors.Is(err, workers.ErrQueueFull):
		status, code = http.StatusServiceUnavailable, "QUEUE_FULL"
	}

	if status == http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err))
	}

	c.JSON(status, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: err.Error(),
		},
	})
}
