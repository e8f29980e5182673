package kafka

import (
	"time"

	"github.com/tair/part-ledger/internal/ledger/domain"
)

// AssignmentRequestedEvent is sent by a scanning station when parts are
// placed into (positive delta) or pulled from (negative delta) a location
type AssignmentRequestedEvent struct {
	EventID    string    `json:"event_id"`
	EventType  string    `json:"event_type"`
	JobID      string    `json:"job_id"`
	PartNumber string    `json:"part_number"`
	Location   string    `json:"location"`
	Delta      int       `json:"delta"`
	Station    string    `json:"station,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// ImportBatchRecordedEvent mirrors one audit batch of an import run
type ImportBatchRecordedEvent struct {
	EventID    string              `json:"event_id"`
	EventType  string              `json:"event_type"`
	BatchID    string              `json:"batch_id"`
	ImportID   string              `json:"import_id"`
	JobID      string              `json:"job_id"`
	Strategy   string              `json:"strategy"`
	Offset     int                 `json:"offset"`
	TupleCount int                 `json:"tuple_count"`
	ErrorCount int                 `json:"error_count"`
	Tuples     []domain.Tuple      `json:"tuples"`
	Errors     []domain.AuditError `json:"errors,omitempty"`
	Timestamp  time.Time           `json:"timestamp"`
}

// Event types
const (
	EventTypeAssignmentRequested = "assignment.requested"
	EventTypeImportBatchRecorded = "import.batch_recorded"
)

// Default topics; the service reads the real names from config
const (
	TopicImportAudit = "ledger-import-audit"
	TopicScans       = "ledger-scans"
)
