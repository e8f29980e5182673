package query

import (
	"context"
	"fmt"
	"time"

	"github.com/tair/part-ledger/internal/ledger/domain"
)

// BackupQuery represents the query to snapshot the ledger
type BackupQuery struct {
	SelectedJobID string
}

// BackupHandler handles backup query
type BackupHandler struct {
	repo domain.LedgerRepository
	now  func() time.Time
}

// NewBackupHandler creates a new backup handler
func NewBackupHandler(repo domain.LedgerRepository) *BackupHandler {
	return &BackupHandler{repo: repo, now: time.Now}
}

// Handle executes the backup query
func (h *BackupHandler) Handle(ctx context.Context, query BackupQuery) (*domain.BackupPayload, error) {
	headers, err := h.repo.ListJobs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	jobs := make(map[string]*domain.Job, len(headers))
	for _, header := range headers {
		job, err := h.repo.GetJob(ctx, header.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load job %s: %w", header.ID, err)
		}
		jobs[job.ID] = job
	}

	return &domain.BackupPayload{
		Version:    domain.BackupVersion,
		ExportedAt: h.now().UTC(),
		State: &domain.BackupState{
			Jobs:          jobs,
			SelectedJobID: query.SelectedJobID,
		},
	}, nil
}
