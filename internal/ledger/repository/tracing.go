package repository

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tair/part-ledger/internal/ledger/domain"
)

var tracer = otel.Tracer("ledger-repository")

// TracingLedgerRepository wraps any ledger repository with a span per call
type TracingLedgerRepository struct {
	next domain.LedgerRepository
}

// NewTracingLedgerRepository creates a new repository with tracing
func NewTracingLedgerRepository(next domain.LedgerRepository) *TracingLedgerRepository {
	return &TracingLedgerRepository{next: next}
}

var _ domain.LedgerRepository = (*TracingLedgerRepository)(nil)

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, "repository."+name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (r *TracingLedgerRepository) GetJob(ctx context.Context, id string) (*domain.Job, error) {
	ctx, span := startSpan(ctx, "GetJob", attribute.String("job.id", id))
	job, err := r.next.GetJob(ctx, id)
	if err == nil {
		span.SetAttributes(attribute.Int("job.parts", len(job.Parts)))
	}
	endSpan(span, err)
	return job, err
}

func (r *TracingLedgerRepository) ListJobs(ctx context.Context) ([]*domain.Job, error) {
	ctx, span := startSpan(ctx, "ListJobs")
	jobs, err := r.next.ListJobs(ctx)
	span.SetAttributes(attribute.Int("jobs.count", len(jobs)))
	endSpan(span, err)
	return jobs, err
}

func (r *TracingLedgerRepository) SaveJob(ctx context.Context, job *domain.Job) (bool, error) {
	ctx, span := startSpan(ctx, "SaveJob",
		attribute.String("job.id", job.ID),
		attribute.Bool("job.mapping_pending", job.PendingImport != nil),
	)
	created, err := r.next.SaveJob(ctx, job)
	span.SetAttributes(attribute.Bool("job.created", created))
	endSpan(span, err)
	return created, err
}

func (r *TracingLedgerRepository) DeleteJob(ctx context.Context, id string) error {
	ctx, span := startSpan(ctx, "DeleteJob", attribute.String("job.id", id))
	err := r.next.DeleteJob(ctx, id)
	endSpan(span, err)
	return err
}

func (r *TracingLedgerRepository) RenameJob(ctx context.Context, oldID, newID string) error {
	ctx, span := startSpan(ctx, "RenameJob",
		attribute.String("job.id", oldID),
		attribute.String("job.new_id", newID),
	)
	err := r.next.RenameJob(ctx, oldID, newID)
	endSpan(span, err)
	return err
}

func (r *TracingLedgerRepository) GetPart(ctx context.Context, jobID, partNumber string) (*domain.Part, error) {
	ctx, span := startSpan(ctx, "GetPart",
		attribute.String("job.id", jobID),
		attribute.String("part.number", partNumber),
	)
	part, err := r.next.GetPart(ctx, jobID, partNumber)
	endSpan(span, err)
	return part, err
}

func (r *TracingLedgerRepository) ListPartsWithLocations(ctx context.Context, jobID string) ([]*domain.Part, error) {
	ctx, span := startSpan(ctx, "ListPartsWithLocations", attribute.String("job.id", jobID))
	parts, err := r.next.ListPartsWithLocations(ctx, jobID)
	span.SetAttributes(attribute.Int("parts.count", len(parts)))
	endSpan(span, err)
	return parts, err
}

func (r *TracingLedgerRepository) UpsertPart(ctx context.Context, jobID, partNumber, description string) (bool, error) {
	ctx, span := startSpan(ctx, "UpsertPart",
		attribute.String("job.id", jobID),
		attribute.String("part.number", partNumber),
	)
	created, err := r.next.UpsertPart(ctx, jobID, partNumber, description)
	span.SetAttributes(attribute.Bool("part.created", created))
	endSpan(span, err)
	return created, err
}

func (r *TracingLedgerRepository) DeleteParts(ctx context.Context, jobID string) (int, error) {
	ctx, span := startSpan(ctx, "DeleteParts", attribute.String("job.id", jobID))
	n, err := r.next.DeleteParts(ctx, jobID)
	span.SetAttributes(attribute.Int("parts.deleted", n))
	endSpan(span, err)
	return n, err
}

func (r *TracingLedgerRepository) UpsertLocationCell(ctx context.Context, jobID, partNumber, location string, required, assigned int) (bool, error) {
	ctx, span := startSpan(ctx, "UpsertLocationCell",
		attribute.String("job.id", jobID),
		attribute.String("part.number", partNumber),
		attribute.String("cell.location", location),
		attribute.Int("cell.required", required),
		attribute.Int("cell.assigned", assigned),
	)
	created, err := r.next.UpsertLocationCell(ctx, jobID, partNumber, location, required, assigned)
	span.SetAttributes(attribute.Bool("cell.created", created))
	endSpan(span, err)
	return created, err
}

func (r *TracingLedgerRepository) SetAssigned(ctx context.Context, jobID, partNumber, location string, assigned int) error {
	ctx, span := startSpan(ctx, "SetAssigned",
		attribute.String("job.id", jobID),
		attribute.String("part.number", partNumber),
		attribute.String("cell.location", location),
		attribute.Int("cell.assigned", assigned),
	)
	err := r.next.SetAssigned(ctx, jobID, partNumber, location, assigned)
	endSpan(span, err)
	return err
}

func (r *TracingLedgerRepository) UpdateAssigned(ctx context.Context, jobID, partNumber string, assigned map[string]int) error {
	ctx, span := startSpan(ctx, "UpdateAssigned",
		attribute.String("job.id", jobID),
		attribute.String("part.number", partNumber),
		attribute.Int("cells.count", len(assigned)),
	)
	err := r.next.UpdateAssigned(ctx, jobID, partNumber, assigned)
	endSpan(span, err)
	return err
}
