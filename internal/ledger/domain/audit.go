package domain

import (
	"context"
	"time"
)

// AuditError is a tuple the reconciler could not apply
type AuditError struct {
	Tuple Tuple  `json:"tuple"`
	Error string `json:"error"`
}

// AuditBatch describes one fixed-size slice of an import
type AuditBatch struct {
	BatchID   string       `json:"batch_id"`
	ImportID  string       `json:"import_id"`
	JobID     string       `json:"job_id"`
	Strategy  string       `json:"strategy"`
	Offset    int          `json:"offset"`
	Tuples    []Tuple      `json:"tuples"`
	Errors    []AuditError `json:"errors,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

// AuditSink records import batches somewhere durable. Failures are reported
// to the caller but never abort an import.
type AuditSink interface {
	RecordBatch(ctx context.Context, batch AuditBatch) error
}

// NopAuditSink drops every batch
type NopAuditSink struct{}

func (NopAuditSink) RecordBatch(context.Context, AuditBatch) error { return nil }
