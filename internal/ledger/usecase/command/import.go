package command

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tair/part-ledger/internal/ledger/domain"
	"github.com/tair/part-ledger/internal/ledger/store"
	"github.com/tair/part-ledger/pkg/logger"
)

// DefaultBatchSize is used when ImportOptions.BatchSize is not positive
const DefaultBatchSize = 50

// Strategy decides what happens to a job's existing parts on import
type Strategy string

const (
	StrategyMerge   Strategy = "merge"
	StrategyReplace Strategy = "replace"
)

// ParseStrategy accepts "merge" (also the empty string) and "replace"
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", StrategyMerge:
		return StrategyMerge, nil
	case StrategyReplace:
		return StrategyReplace, nil
	}
	return "", fmt.Errorf("unknown import strategy %q", s)
}

// ProgressFunc is called after every batch with the tuples handled so far
type ProgressFunc func(processed, total int)

// ImportOptions tunes the reconciler
type ImportOptions struct {
	BatchSize int
}

// ImportCommand applies normalized tuples to a job
type ImportCommand struct {
	JobID             string
	Tuples            []domain.Tuple
	Strategy          Strategy
	ReplaceQtyOnMerge bool
	Progress          ProgressFunc
}

// TupleError is a tuple that could not be applied
type TupleError struct {
	Tuple domain.Tuple `json:"tuple"`
	Error string       `json:"error"`
}

// ImportResult summarizes one import
type ImportResult struct {
	ImportID      string       `json:"import_id"`
	JobID         string       `json:"job_id"`
	Strategy      Strategy     `json:"strategy"`
	TuplesTotal   int          `json:"tuples_total"`
	TuplesApplied int          `json:"tuples_applied"`
	PartsCreated  int          `json:"parts_created"`
	PartsExisting int          `json:"parts_existing"`
	CellsCreated  int          `json:"cells_created"`
	CellsUpdated  int          `json:"cells_updated"`
	PartsDeleted  int          `json:"parts_deleted"`
	Errors        []TupleError `json:"errors"`
	Cancelled     bool         `json:"cancelled"`
}

// ImportHandler is the import reconciler. Tuples are applied one at a time in
// input order; a failing tuple is recorded and the import moves on, so an
// import is best-effort rather than atomic.
type ImportHandler struct {
	ledger    *store.Ledger
	audit     domain.AuditSink
	metrics   *Metrics
	batchSize int
}

// NewImportHandler creates a new import handler
func NewImportHandler(ledger *store.Ledger, audit domain.AuditSink, metrics *Metrics, opts ImportOptions) *ImportHandler {
	if audit == nil {
		audit = domain.NopAuditSink{}
	}
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &ImportHandler{
		ledger:    ledger,
		audit:     audit,
		metrics:   metrics,
		batchSize: batchSize,
	}
}

// Handle executes the import command. Cancelling ctx stops the loop between
// tuples; whatever was applied stays applied and the result is flagged.
func (h *ImportHandler) Handle(ctx context.Context, cmd ImportCommand) (*ImportResult, error) {
	cmd.JobID = strings.TrimSpace(cmd.JobID)
	if cmd.JobID == "" {
		return nil, fmt.Errorf("job_id is required")
	}
	if cmd.Strategy == "" {
		cmd.Strategy = StrategyMerge
	}
	if cmd.Strategy != StrategyMerge && cmd.Strategy != StrategyReplace {
		return nil, fmt.Errorf("unknown import strategy %q", cmd.Strategy)
	}

	if _, _, err := h.ledger.EnsureJob(ctx, cmd.JobID, ""); err != nil {
		return nil, fmt.Errorf("failed to ensure job: %w", err)
	}

	result := &ImportResult{
		ImportID:    uuid.New().String(),
		JobID:       cmd.JobID,
		Strategy:    cmd.Strategy,
		TuplesTotal: len(cmd.Tuples),
		Errors:      []TupleError{},
	}

	if cmd.Strategy == StrategyReplace {
		deleted, err := h.ledger.ReplaceJobContents(ctx, cmd.JobID)
		if err != nil {
			return nil, err
		}
		result.PartsDeleted = deleted
	}

	overwrite := cmd.Strategy == StrategyMerge && cmd.ReplaceQtyOnMerge
	seen := make(map[string]bool)
	batchStart := 0
	batchErrors := 0

	for i, tuple := range cmd.Tuples {
		if ctx.Err() != nil {
			result.Cancelled = true
			break
		}

		change, err := h.apply(ctx, cmd.JobID, tuple, overwrite)
		if !seen[tuple.PartNumber] && (err == nil || change.PartCreated) {
			seen[tuple.PartNumber] = true
			if change.PartCreated {
				result.PartsCreated++
			} else {
				result.PartsExisting++
			}
		}

		if err != nil {
			result.Errors = append(result.Errors, TupleError{Tuple: tuple, Error: err.Error()})
			h.metrics.tuple(cmd.Strategy, "failed")
			logger.Warn(ctx).
				Err(err).
				Str("job_id", cmd.JobID).
				Str("part_number", tuple.PartNumber).
				Str("location", tuple.Location).
				Msg("Failed to apply import tuple")
		} else {
			result.TuplesApplied++
			h.metrics.tuple(cmd.Strategy, "applied")
			if change.CellCreated {
				result.CellsCreated++
			} else {
				result.CellsUpdated++
			}
		}

		if (i+1)%h.batchSize == 0 || i == len(cmd.Tuples)-1 {
			h.flush(ctx, result, cmd.Tuples[batchStart:i+1], result.Errors[batchErrors:])
			batchStart, batchErrors = i+1, len(result.Errors)
			if cmd.Progress != nil {
				cmd.Progress(i+1, len(cmd.Tuples))
			}
		}
	}

	if result.Cancelled && batchStart < result.TuplesApplied+len(result.Errors) {
		end := result.TuplesApplied + len(result.Errors)
		h.flush(ctx, result, cmd.Tuples[batchStart:end], result.Errors[batchErrors:])
	}

	logger.Info(ctx).
		Str("import_id", result.ImportID).
		Str("job_id", result.JobID).
		Str("strategy", string(result.Strategy)).
		Int("tuples", result.TuplesTotal).
		Int("applied", result.TuplesApplied).
		Int("parts_created", result.PartsCreated).
		Int("parts_existing", result.PartsExisting).
		Int("cells_created", result.CellsCreated).
		Int("cells_updated", result.CellsUpdated).
		Int("parts_deleted", result.PartsDeleted).
		Int("errors", len(result.Errors)).
		Bool("cancelled", result.Cancelled).
		Msg("Import finished")

	return result, nil
}

func (h *ImportHandler) apply(ctx context.Context, jobID string, tuple domain.Tuple, overwrite bool) (store.CellChange, error) {
	delta := tuple.Quantity
	if overwrite {
		current, err := h.ledger.RequiredAt(ctx, jobID, tuple.PartNumber, tuple.Location)
		if err != nil {
			return store.CellChange{}, fmt.Errorf("failed to read required quantity: %w", err)
		}
		delta = tuple.Quantity - current
	}
	return h.ledger.UpsertCell(ctx, jobID, tuple.PartNumber, tuple.Location, delta, tuple.Description)
}

func (h *ImportHandler) flush(ctx context.Context, result *ImportResult, tuples []domain.Tuple, errs []TupleError) {
	if len(tuples) == 0 {
		return
	}

	batch := domain.AuditBatch{
		BatchID:   uuid.New().String(),
		ImportID:  result.ImportID,
		JobID:     result.JobID,
		Strategy:  string(result.Strategy),
		Offset:    result.TuplesApplied + len(result.Errors) - len(tuples),
		Tuples:    tuples,
		Timestamp: time.Now().UTC(),
	}
	for _, e := range errs {
		batch.Errors = append(batch.Errors, domain.AuditError{Tuple: e.Tuple, Error: e.Error})
	}

	// audit writes outlive a cancelled import
	if err := h.audit.RecordBatch(context.WithoutCancel(ctx), batch); err != nil {
		logger.Warn(ctx).
			Err(err).
			Str("import_id", result.ImportID).
			Int("offset", batch.Offset).
			Msg("Failed to record import audit batch")
	}
}
