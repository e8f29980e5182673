package command

import (
	"context"
	"fmt"

	"github.com/tair/part-ledger/internal/ledger/domain"
	"github.com/tair/part-ledger/internal/ledger/mapping"
	"github.com/tair/part-ledger/internal/ledger/store"
)

// ConfirmMappingCommand applies a human-confirmed mapping to a pending import
type ConfirmMappingCommand struct {
	JobID             string
	Mapping           domain.Mapping
	Strategy          Strategy
	ReplaceQtyOnMerge bool
	Progress          ProgressFunc
}

// ConfirmMappingHandler normalizes the pending rows and reconciles them
type ConfirmMappingHandler struct {
	ledger   *store.Ledger
	importer *ImportHandler
}

// NewConfirmMappingHandler creates a new confirm mapping handler
func NewConfirmMappingHandler(ledger *store.Ledger, importer *ImportHandler) *ConfirmMappingHandler {
	return &ConfirmMappingHandler{ledger: ledger, importer: importer}
}

// Handle executes the confirm mapping command. The pending import is cleared
// only when the reconciler ran to the end.
func (h *ConfirmMappingHandler) Handle(ctx context.Context, cmd ConfirmMappingCommand) (*ImportResult, error) {
	job, err := h.ledger.Job(ctx, cmd.JobID)
	if err != nil {
		return nil, err
	}
	if job.PendingImport == nil {
		return nil, domain.ErrNoPendingImport
	}

	pending := job.PendingImport
	if err := cmd.Mapping.Validate(pending.Width()); err != nil {
		return nil, err
	}

	tuples := mapping.NormalizeRows(pending.Rows, cmd.Mapping, pending.Headers)

	result, err := h.importer.Handle(ctx, ImportCommand{
		JobID:             job.ID,
		Tuples:            tuples,
		Strategy:          cmd.Strategy,
		ReplaceQtyOnMerge: cmd.ReplaceQtyOnMerge,
		Progress:          cmd.Progress,
	})
	if err != nil {
		return nil, err
	}

	if !result.Cancelled {
		if err := h.ledger.SetPendingImport(ctx, job.ID, nil); err != nil {
			return result, fmt.Errorf("failed to clear pending import: %w", err)
		}
	}
	return result, nil
}

// MappingConfirmer is the human confirmation step between the classifier's
// suggestion and the import. ok=false means the user cancelled.
type MappingConfirmer interface {
	Confirm(ctx context.Context, headers []string, suggested domain.Mapping) (m domain.Mapping, ok bool, err error)
}

// AcceptSuggestion confirms whatever the classifier suggested
type AcceptSuggestion struct{}

func (AcceptSuggestion) Confirm(_ context.Context, _ []string, suggested domain.Mapping) (domain.Mapping, bool, error) {
	return suggested, true, nil
}

// ImportFileCommand ingests a file and imports it in one call
type ImportFileCommand struct {
	IngestFileCommand
	Strategy          Strategy
	ReplaceQtyOnMerge bool
	Progress          ProgressFunc
}

// ImportFileHandler chains ingestion, confirmation and reconciliation
type ImportFileHandler struct {
	ingest    *IngestFileHandler
	confirm   *ConfirmMappingHandler
	confirmer MappingConfirmer
}

// NewImportFileHandler creates a new import file handler
func NewImportFileHandler(ingest *IngestFileHandler, confirm *ConfirmMappingHandler, confirmer MappingConfirmer) *ImportFileHandler {
	return &ImportFileHandler{ingest: ingest, confirm: confirm, confirmer: confirmer}
}

// Handle executes the import file command. A cancelled confirmation returns
// ErrMappingCancelled and leaves the rows pending on the job.
func (h *ImportFileHandler) Handle(ctx context.Context, cmd ImportFileCommand) (*ImportResult, error) {
	ingested, err := h.ingest.Handle(ctx, cmd.IngestFileCommand)
	if err != nil {
		return nil, err
	}

	m, ok, err := h.confirmer.Confirm(ctx, ingested.Headers, ingested.Suggested)
	if err != nil {
		return nil, fmt.Errorf("failed to confirm mapping: %w", err)
	}
	if !ok {
		return nil, domain.ErrMappingCancelled
	}

	return h.confirm.Handle(ctx, ConfirmMappingCommand{
		JobID:             ingested.JobID,
		Mapping:           m,
		Strategy:          cmd.Strategy,
		ReplaceQtyOnMerge: cmd.ReplaceQtyOnMerge,
		Progress:          cmd.Progress,
	})
}
