package kafka

import (
	"context"

	"github.com/tair/part-ledger/internal/ledger/usecase/command"
)

// NewAssignmentEventHandler applies scan events through the adjust command.
// A miss (unknown job, part or location) is not an error.
func NewAssignmentEventHandler(adjust *command.AdjustAssignmentHandler) EventHandler {
	return func(ctx context.Context, event AssignmentRequestedEvent) error {
		_, err := adjust.Handle(ctx, command.AdjustAssignmentCommand{
			JobID:      event.JobID,
			PartNumber: event.PartNumber,
			Location:   event.Location,
			Delta:      event.Delta,
		})
		return err
	}
}
