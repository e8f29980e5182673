package query

import (
	"context"
	"math"

	"github.com/tair/part-ledger/internal/ledger/domain"
)

// JobStats is the completion summary of a job
type JobStats struct {
	RequiredTotal int `json:"required_total"`
	AssignedTotal int `json:"assigned_total"`
	CellCount     int `json:"cell_count"`
	Pct           int `json:"pct"`
}

// ComputeStats sums every cell of the job. Assigned is clamped per cell so a
// corrupt cell can never push the percentage past 100.
func ComputeStats(job *domain.Job) JobStats {
	var stats JobStats
	for _, part := range job.Parts {
		for loc, required := range part.Locations {
			stats.RequiredTotal += required
			stats.AssignedTotal += min(part.Assigned[loc], required)
			stats.CellCount++
		}
	}
	stats.Pct = percent(stats.AssignedTotal, stats.RequiredTotal)
	return stats
}

func percent(assigned, required int) int {
	if required <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(assigned) / float64(required)))
}

// JobStatsQuery represents the query to get a job's completion
type JobStatsQuery struct {
	JobID string
}

// JobStatsHandler handles job stats query
type JobStatsHandler struct {
	repo domain.LedgerRepository
}

// NewJobStatsHandler creates a new job stats handler
func NewJobStatsHandler(repo domain.LedgerRepository) *JobStatsHandler {
	return &JobStatsHandler{repo: repo}
}

// Handle executes the job stats query
func (h *JobStatsHandler) Handle(ctx context.Context, query JobStatsQuery) (*JobStats, error) {
	job, err := h.repo.GetJob(ctx, query.JobID)
	if err != nil {
		return nil, err
	}
	stats := ComputeStats(job)
	return &stats, nil
}
