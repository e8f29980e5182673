package command

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/tair/part-ledger/internal/ledger/domain"
	"github.com/tair/part-ledger/internal/ledger/mapping"
	"github.com/tair/part-ledger/internal/ledger/store"
	"github.com/tair/part-ledger/internal/ledger/tabular"
	"github.com/tair/part-ledger/pkg/logger"
)

// IngestFileCommand represents an uploaded BOM export
type IngestFileCommand struct {
	JobID     string
	FileName  string
	Content   []byte
	HasHeader bool
}

// IngestResult is a job waiting for its column mapping
type IngestResult struct {
	JobID      string         `json:"job_id"`
	JobCreated bool           `json:"job_created"`
	Headers    []string       `json:"headers"`
	RowCount   int            `json:"row_count"`
	Suggested  domain.Mapping `json:"suggested_mapping"`
}

// IngestFileHandler parses a source file and parks its rows on the job
type IngestFileHandler struct {
	ledger *store.Ledger
}

// NewIngestFileHandler creates a new ingest file handler
func NewIngestFileHandler(ledger *store.Ledger) *IngestFileHandler {
	return &IngestFileHandler{ledger: ledger}
}

// Handle executes the ingest command. Parse failures and empty sources are
// returned before the ledger is touched.
func (h *IngestFileHandler) Handle(ctx context.Context, cmd IngestFileCommand) (*IngestResult, error) {
	rows, err := tabular.Parse(cmd.FileName, cmd.Content)
	if err != nil {
		return nil, err
	}

	width := tabular.Width(rows)
	headers := mapping.SyntheticHeaders(width)
	if cmd.HasHeader {
		for i, label := range rows[0] {
			if label = strings.TrimSpace(label); label != "" {
				headers[i] = label
			}
		}
		rows = rows[1:]
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no data rows", domain.ErrEmptySource)
	}

	jobID := strings.TrimSpace(cmd.JobID)
	if jobID == "" {
		jobID = JobIDFromFileName(cmd.FileName)
	}
	if jobID == "" {
		return nil, fmt.Errorf("job_id is required")
	}

	_, created, err := h.ledger.EnsureJob(ctx, jobID, cmd.FileName)
	if err != nil {
		return nil, err
	}

	pending := &domain.PendingImport{
		FileName:  cmd.FileName,
		Headers:   headers,
		Rows:      rows,
		HasHeader: cmd.HasHeader,
	}
	if err := h.ledger.SetPendingImport(ctx, jobID, pending); err != nil {
		return nil, fmt.Errorf("failed to store pending import: %w", err)
	}

	suggested := mapping.Classify(headers)

	logger.Info(ctx).
		Str("job_id", jobID).
		Str("file_name", cmd.FileName).
		Int("rows", len(rows)).
		Int("columns", width).
		Bool("job_created", created).
		Msg("File ingested, mapping pending")

	return &IngestResult{
		JobID:      jobID,
		JobCreated: created,
		Headers:    headers,
		RowCount:   len(rows),
		Suggested:  suggested,
	}, nil
}

// JobIDFromFileName is the file's base name without its extension
func JobIDFromFileName(fileName string) string {
	base := filepath.Base(strings.TrimSpace(fileName))
	if base == "." || base == string(filepath.Separator) {
		return ""
	}
	return strings.TrimSpace(strings.TrimSuffix(base, filepath.Ext(base)))
}
