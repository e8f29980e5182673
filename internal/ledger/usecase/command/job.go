package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/tair/part-ledger/internal/ledger/store"
	"github.com/tair/part-ledger/pkg/logger"
)

// RenameJobCommand represents the command to rekey a job
type RenameJobCommand struct {
	JobID    string
	NewJobID string
}

// RenameJobHandler handles rename job command
type RenameJobHandler struct {
	ledger *store.Ledger
}

// NewRenameJobHandler creates a new rename job handler
func NewRenameJobHandler(ledger *store.Ledger) *RenameJobHandler {
	return &RenameJobHandler{ledger: ledger}
}

// Handle executes the rename job command. It reports false without error when
// the new id is already taken.
func (h *RenameJobHandler) Handle(ctx context.Context, cmd RenameJobCommand) (bool, error) {
	if strings.TrimSpace(cmd.JobID) == "" {
		return false, fmt.Errorf("job_id is required")
	}

	renamed, err := h.ledger.RenameJob(ctx, cmd.JobID, cmd.NewJobID)
	if err != nil {
		return false, err
	}

	logger.Info(ctx).
		Str("job_id", cmd.JobID).
		Str("new_job_id", cmd.NewJobID).
		Bool("renamed", renamed).
		Msg("Rename job")
	return renamed, nil
}

// DeleteJobCommand represents the command to delete a job
type DeleteJobCommand struct {
	JobID string
}

// DeleteJobHandler handles delete job command
type DeleteJobHandler struct {
	ledger *store.Ledger
}

// NewDeleteJobHandler creates a new delete job handler
func NewDeleteJobHandler(ledger *store.Ledger) *DeleteJobHandler {
	return &DeleteJobHandler{ledger: ledger}
}

// Handle executes the delete job command
func (h *DeleteJobHandler) Handle(ctx context.Context, cmd DeleteJobCommand) error {
	if strings.TrimSpace(cmd.JobID) == "" {
		return fmt.Errorf("job_id is required")
	}

	if err := h.ledger.DeleteJob(ctx, cmd.JobID); err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}
	return nil
}
