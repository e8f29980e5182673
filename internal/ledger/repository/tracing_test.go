package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/tair/part-ledger/internal/ledger/domain"
	"github.com/tair/part-ledger/internal/ledger/repository/memory"
)

func TestTracingLedgerRepository_RecordsSpans(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	ctx := context.Background()
	repo := NewTracingLedgerRepository(memory.NewLedgerRepository())

	_, err := repo.SaveJob(ctx, domain.NewJob("JOB1", "job1.csv"))
	require.NoError(t, err)
	_, err = repo.GetPart(ctx, "JOB1", "P1")
	assert.ErrorIs(t, err, domain.ErrPartNotFound)

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, "repository.SaveJob", spans[0].Name)
	assert.Equal(t, codes.Unset, spans[0].Status.Code)
	assert.Equal(t, "repository.GetPart", spans[1].Name)
	assert.Equal(t, codes.Error, spans[1].Status.Code)
	assert.Len(t, spans[1].Events, 1, "error recorded as span event")
}
