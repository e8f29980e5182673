package command

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tair/part-ledger/internal/ledger/domain"
	"github.com/tair/part-ledger/internal/ledger/store"
	"github.com/tair/part-ledger/pkg/logger"
)

// RestoreCommand carries a raw backup document
type RestoreCommand struct {
	Payload []byte
}

// RestoreResult reports what was loaded
type RestoreResult struct {
	Jobs          int    `json:"jobs"`
	SelectedJobID string `json:"selected_job_id,omitempty"`
}

// RestoreHandler replaces the whole ledger with a backup
type RestoreHandler struct {
	ledger *store.Ledger
}

// NewRestoreHandler creates a new restore handler
func NewRestoreHandler(ledger *store.Ledger) *RestoreHandler {
	return &RestoreHandler{ledger: ledger}
}

// Handle executes the restore command. The payload is fully validated before
// anything is deleted, so a rejected payload leaves the ledger as it was.
func (h *RestoreHandler) Handle(ctx context.Context, cmd RestoreCommand) (*RestoreResult, error) {
	payload, err := DecodeBackup(cmd.Payload)
	if err != nil {
		return nil, err
	}

	if err := h.ledger.ReplaceAll(ctx, payload.State.Jobs); err != nil {
		return nil, fmt.Errorf("failed to restore ledger: %w", err)
	}

	logger.Info(ctx).
		Int("jobs", len(payload.State.Jobs)).
		Time("exported_at", payload.ExportedAt).
		Msg("Ledger restored from backup")

	return &RestoreResult{
		Jobs:          len(payload.State.Jobs),
		SelectedJobID: payload.State.SelectedJobID,
	}, nil
}

// DecodeBackup parses and validates a backup document
func DecodeBackup(raw []byte) (*domain.BackupPayload, error) {
	var payload domain.BackupPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidBackup, err)
	}
	if payload.State == nil || payload.State.Jobs == nil {
		return nil, fmt.Errorf("%w: missing state.jobs", domain.ErrInvalidBackup)
	}
	if payload.Version > domain.BackupVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", domain.ErrInvalidBackup, payload.Version)
	}
	for id, job := range payload.State.Jobs {
		if id == "" || job == nil {
			return nil, fmt.Errorf("%w: empty job entry", domain.ErrInvalidBackup)
		}
	}
	return &payload, nil
}
