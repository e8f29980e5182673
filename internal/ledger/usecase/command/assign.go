package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/tair/part-ledger/internal/ledger/domain"
	"github.com/tair/part-ledger/internal/ledger/store"
	"github.com/tair/part-ledger/pkg/logger"
)

// AssignmentResult is the part after an assignment update. Found is false
// when the job, part or location does not exist and nothing changed.
type AssignmentResult struct {
	Found bool         `json:"found"`
	Part  *domain.Part `json:"part,omitempty"`
}

// AdjustAssignmentCommand moves a cell's assigned quantity by Delta
type AdjustAssignmentCommand struct {
	JobID      string
	PartNumber string
	Location   string
	Delta      int
}

// AdjustAssignmentHandler handles adjust assignment command
type AdjustAssignmentHandler struct {
	ledger  *store.Ledger
	metrics *Metrics
}

// NewAdjustAssignmentHandler creates a new adjust assignment handler
func NewAdjustAssignmentHandler(ledger *store.Ledger, metrics *Metrics) *AdjustAssignmentHandler {
	return &AdjustAssignmentHandler{ledger: ledger, metrics: metrics}
}

// Handle executes the adjust assignment command
func (h *AdjustAssignmentHandler) Handle(ctx context.Context, cmd AdjustAssignmentCommand) (*AssignmentResult, error) {
	if err := validateCell(cmd.JobID, cmd.PartNumber); err != nil {
		return nil, err
	}

	part, found, err := h.ledger.UpdateAssigned(ctx, cmd.JobID, cmd.PartNumber, cmd.Location,
		func(assigned, required int) int { return addClamped(assigned, cmd.Delta, required) })
	if err != nil {
		return nil, fmt.Errorf("failed to adjust assignment: %w", err)
	}
	h.metrics.assignment("adjust", found)
	logMiss(ctx, "adjust", cmd.JobID, cmd.PartNumber, cmd.Location, found)

	return &AssignmentResult{Found: found, Part: part}, nil
}

// SetAssignmentCommand overwrites a cell's assigned quantity
type SetAssignmentCommand struct {
	JobID      string
	PartNumber string
	Location   string
	Value      int
}

// SetAssignmentHandler handles set assignment command
type SetAssignmentHandler struct {
	ledger  *store.Ledger
	metrics *Metrics
}

// NewSetAssignmentHandler creates a new set assignment handler
func NewSetAssignmentHandler(ledger *store.Ledger, metrics *Metrics) *SetAssignmentHandler {
	return &SetAssignmentHandler{ledger: ledger, metrics: metrics}
}

// Handle executes the set assignment command. Out-of-range values are clamped.
func (h *SetAssignmentHandler) Handle(ctx context.Context, cmd SetAssignmentCommand) (*AssignmentResult, error) {
	if err := validateCell(cmd.JobID, cmd.PartNumber); err != nil {
		return nil, err
	}

	part, found, err := h.ledger.UpdateAssigned(ctx, cmd.JobID, cmd.PartNumber, cmd.Location,
		func(_, _ int) int { return cmd.Value })
	if err != nil {
		return nil, fmt.Errorf("failed to set assignment: %w", err)
	}
	h.metrics.assignment("set", found)
	logMiss(ctx, "set", cmd.JobID, cmd.PartNumber, cmd.Location, found)

	return &AssignmentResult{Found: found, Part: part}, nil
}

// FillAssignmentCommand marks a part fully placed, at one location or at all
// of them when AllLocations is set
type FillAssignmentCommand struct {
	JobID        string
	PartNumber   string
	Location     string
	AllLocations bool
}

// FillAssignmentHandler handles fill assignment command
type FillAssignmentHandler struct {
	ledger  *store.Ledger
	metrics *Metrics
}

// NewFillAssignmentHandler creates a new fill assignment handler
func NewFillAssignmentHandler(ledger *store.Ledger, metrics *Metrics) *FillAssignmentHandler {
	return &FillAssignmentHandler{ledger: ledger, metrics: metrics}
}

// Handle executes the fill assignment command
func (h *FillAssignmentHandler) Handle(ctx context.Context, cmd FillAssignmentCommand) (*AssignmentResult, error) {
	if err := validateCell(cmd.JobID, cmd.PartNumber); err != nil {
		return nil, err
	}

	var (
		part  *domain.Part
		found bool
		err   error
		op    = "fill_one"
	)
	if cmd.AllLocations {
		op = "fill_all"
		part, found, err = h.ledger.FillPart(ctx, cmd.JobID, cmd.PartNumber)
	} else {
		part, found, err = h.ledger.UpdateAssigned(ctx, cmd.JobID, cmd.PartNumber, cmd.Location,
			func(_, required int) int { return required })
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fill assignment: %w", err)
	}
	h.metrics.assignment(op, found)
	logMiss(ctx, op, cmd.JobID, cmd.PartNumber, cmd.Location, found)

	return &AssignmentResult{Found: found, Part: part}, nil
}

// addClamped adds delta to assigned within [0, required] without overflowing
// on extreme deltas
func addClamped(assigned, delta, required int) int {
	if delta > required-assigned {
		return required
	}
	if delta < -assigned {
		return 0
	}
	return assigned + delta
}

func validateCell(jobID, partNumber string) error {
	if strings.TrimSpace(jobID) == "" {
		return fmt.Errorf("job_id is required")
	}
	if strings.TrimSpace(partNumber) == "" {
		return fmt.Errorf("part_number is required")
	}
	return nil
}

func logMiss(ctx context.Context, op, jobID, partNumber, location string, found bool) {
	if found {
		return
	}
	logger.Debug(ctx).
		Str("operation", op).
		Str("job_id", jobID).
		Str("part_number", partNumber).
		Str("location", location).
		Msg("Assignment target not found, nothing changed")
}
