package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/tair/part-ledger/internal/ledger/domain"
)

const auditTable = "ledger_import_audit"

// SQLAuditSink appends one row per import batch to ledger_import_audit
type SQLAuditSink struct {
	db *sql.DB
}

// NewSQLAuditSink creates a new SQL audit sink
func NewSQLAuditSink(db *sql.DB) *SQLAuditSink {
	return &SQLAuditSink{db: db}
}

var _ domain.AuditSink = (*SQLAuditSink)(nil)

// RecordBatch inserts the batch, tuples and errors serialized as JSON
func (s *SQLAuditSink) RecordBatch(ctx context.Context, batch domain.AuditBatch) error {
	payload, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("failed to marshal audit batch: %w", err)
	}

	query := `INSERT INTO ` + auditTable + ` (batch_id, import_id, job_id, strategy, batch_offset, tuple_count, error_count, payload, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err = s.db.ExecContext(ctx, query,
		batch.BatchID,
		batch.ImportID,
		batch.JobID,
		batch.Strategy,
		batch.Offset,
		len(batch.Tuples),
		len(batch.Errors),
		string(payload),
		batch.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit batch: %w", err)
	}
	return nil
}
