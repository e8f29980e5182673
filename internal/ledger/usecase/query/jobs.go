package query

import (
	"context"
	"fmt"

	"github.com/tair/part-ledger/internal/ledger/domain"
)

// JobSummary is a job header with its completion stats
type JobSummary struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	MappingPending bool     `json:"mapping_pending"`
	PartCount      int      `json:"part_count"`
	Stats          JobStats `json:"stats"`
}

// Summarize builds the summary of a fully loaded job
func Summarize(job *domain.Job) JobSummary {
	return JobSummary{
		ID:             job.ID,
		Name:           job.Name,
		MappingPending: job.MappingPending(),
		PartCount:      len(job.Parts),
		Stats:          ComputeStats(job),
	}
}

// ListJobsHandler handles list jobs query
type ListJobsHandler struct {
	repo domain.LedgerRepository
}

// NewListJobsHandler creates a new list jobs handler
func NewListJobsHandler(repo domain.LedgerRepository) *ListJobsHandler {
	return &ListJobsHandler{repo: repo}
}

// Handle executes the list jobs query
func (h *ListJobsHandler) Handle(ctx context.Context) ([]JobSummary, error) {
	headers, err := h.repo.ListJobs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	summaries := make([]JobSummary, 0, len(headers))
	for _, header := range headers {
		job, err := h.repo.GetJob(ctx, header.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load job %s: %w", header.ID, err)
		}
		summaries = append(summaries, Summarize(job))
	}
	return summaries, nil
}

// GetJobQuery represents the query to get one job
type GetJobQuery struct {
	JobID string
}

// GetJobHandler handles get job query
type GetJobHandler struct {
	repo domain.LedgerRepository
}

// NewGetJobHandler creates a new get job handler
func NewGetJobHandler(repo domain.LedgerRepository) *GetJobHandler {
	return &GetJobHandler{repo: repo}
}

// Handle executes the get job query
func (h *GetJobHandler) Handle(ctx context.Context, query GetJobQuery) (*domain.Job, error) {
	if query.JobID == "" {
		return nil, fmt.Errorf("job_id is required")
	}
	return h.repo.GetJob(ctx, query.JobID)
}
