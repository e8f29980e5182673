package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tair/part-ledger/internal/ledger/domain"
)

const sampleCSV = "Part Number,Location,Cabinet,Qty,Description\n" +
	"P1,Room 1,Bay 2,3,Relay\n" +
	"P1,Room 1,Bay 2,2,\n" +
	"P2,Room 2,,abc,Fuse\n" +
	"P3,,,0,Lamp\n" +
	",Room 1,,4,Orphan\n" +
	"P4,,,,Terminal\n"

type stubConfirmer struct {
	mapping domain.Mapping
	ok      bool
	seen    []string
}

func (s *stubConfirmer) Confirm(_ context.Context, headers []string, suggested domain.Mapping) (domain.Mapping, bool, error) {
	s.seen = headers
	if s.mapping == (domain.Mapping{}) {
		return suggested, s.ok, nil
	}
	return s.mapping, s.ok, nil
}

func TestJobIDFromFileName(t *testing.T) {
	assert.Equal(t, "panel-42", JobIDFromFileName("/tmp/exports/panel-42.csv"))
	assert.Equal(t, "bom.v2", JobIDFromFileName("bom.v2.xlsx"))
	assert.Equal(t, "", JobIDFromFileName(""))
}

func TestIngest_StoresPendingImport(t *testing.T) {
	f := newFixture(t, nil, 50)
	ingest := NewIngestFileHandler(f.ledger)

	result, err := ingest.Handle(context.Background(), IngestFileCommand{
		FileName:  "panel-42.csv",
		Content:   []byte(sampleCSV),
		HasHeader: true,
	})
	require.NoError(t, err)

	assert.Equal(t, "panel-42", result.JobID)
	assert.True(t, result.JobCreated)
	assert.Equal(t, 6, result.RowCount)
	assert.Equal(t, domain.Mapping{Part: 0, Location: 1, Location2: 2, Quantity: 3, Description: 4}, result.Suggested)

	job := f.job(t, "panel-42")
	assert.True(t, job.MappingPending())
	assert.Equal(t, "panel-42.csv", job.Name)
	assert.Len(t, job.PendingImport.Rows, 6)
}

func TestIngest_WithoutHeaderUsesSyntheticLabels(t *testing.T) {
	f := newFixture(t, nil, 50)
	ingest := NewIngestFileHandler(f.ledger)

	result, err := ingest.Handle(context.Background(), IngestFileCommand{
		JobID:   "JOB1",
		Content: []byte("P1,A,2\nP2,B\n"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Column 1", "Column 2", "Column 3"}, result.Headers)
	assert.Equal(t, 2, result.RowCount)
	assert.Equal(t, domain.EmptyMapping(), result.Suggested)
}

func TestIngest_EmptySourceTouchesNothing(t *testing.T) {
	f := newFixture(t, nil, 50)
	ingest := NewIngestFileHandler(f.ledger)

	for _, content := range []string{"", "Part,Qty\n"} {
		_, err := ingest.Handle(context.Background(), IngestFileCommand{
			JobID:     "JOB1",
			Content:   []byte(content),
			HasHeader: true,
		})
		assert.ErrorIs(t, err, domain.ErrEmptySource)
	}

	jobs, err := f.ledger.Jobs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestConfirmMapping_NormalizesAndClearsPending(t *testing.T) {
	f := newFixture(t, nil, 50)
	ctx := context.Background()
	ingest := NewIngestFileHandler(f.ledger)
	confirm := NewConfirmMappingHandler(f.ledger, f.importer)

	ingested, err := ingest.Handle(ctx, IngestFileCommand{JobID: "JOB1", Content: []byte(sampleCSV), HasHeader: true})
	require.NoError(t, err)

	result, err := confirm.Handle(ctx, ConfirmMappingCommand{JobID: "JOB1", Mapping: ingested.Suggested})
	require.NoError(t, err)
	assert.Equal(t, 3, result.TuplesTotal, "invalid rows are dropped without being counted")
	assert.Empty(t, result.Errors)

	job := f.job(t, "JOB1")
	assert.Nil(t, job.PendingImport)
	require.Len(t, job.Parts, 2)
	assert.Equal(t, map[string]int{"Room 1 / Bay 2": 5}, job.Parts["P1"].Locations)
	assert.Equal(t, "Relay", job.Parts["P1"].Description)
	assert.Equal(t, map[string]int{domain.UnspecifiedLocation: 1}, job.Parts["P4"].Locations)

	_, err = confirm.Handle(ctx, ConfirmMappingCommand{JobID: "JOB1", Mapping: ingested.Suggested})
	assert.ErrorIs(t, err, domain.ErrNoPendingImport)
}

func TestConfirmMapping_RejectsOutOfRangeColumns(t *testing.T) {
	f := newFixture(t, nil, 50)
	ctx := context.Background()
	_, err := NewIngestFileHandler(f.ledger).Handle(ctx, IngestFileCommand{JobID: "JOB1", Content: []byte(sampleCSV), HasHeader: true})
	require.NoError(t, err)

	m := domain.EmptyMapping()
	m.Part = 5
	_, err = NewConfirmMappingHandler(f.ledger, f.importer).Handle(ctx, ConfirmMappingCommand{JobID: "JOB1", Mapping: m})
	assert.ErrorIs(t, err, domain.ErrInvalidMapping)
	assert.NotNil(t, f.job(t, "JOB1").PendingImport)

	_, err = NewConfirmMappingHandler(f.ledger, f.importer).Handle(ctx, ConfirmMappingCommand{JobID: "NOPE", Mapping: m})
	assert.ErrorIs(t, err, domain.ErrJobNotFound)
}

func newImportFileHandler(f *fixture, confirmer MappingConfirmer) *ImportFileHandler {
	return NewImportFileHandler(
		NewIngestFileHandler(f.ledger),
		NewConfirmMappingHandler(f.ledger, f.importer),
		confirmer,
	)
}

func TestImportFile_CancelledMappingKeepsPendingImport(t *testing.T) {
	f := newFixture(t, nil, 50)
	confirmer := &stubConfirmer{ok: false}

	_, err := newImportFileHandler(f, confirmer).Handle(context.Background(), ImportFileCommand{
		IngestFileCommand: IngestFileCommand{JobID: "JOB1", Content: []byte(sampleCSV), HasHeader: true},
	})
	assert.ErrorIs(t, err, domain.ErrMappingCancelled)
	assert.Equal(t, "Part Number", confirmer.seen[0])

	job := f.job(t, "JOB1")
	assert.True(t, job.MappingPending())
	assert.Len(t, job.PendingImport.Rows, 6)
}

func TestImportFile_ConfirmedMappingIsApplied(t *testing.T) {
	f := newFixture(t, nil, 50)
	m := domain.EmptyMapping()
	m.Part, m.Quantity = 0, 3

	result, err := newImportFileHandler(f, &stubConfirmer{mapping: m, ok: true}).Handle(context.Background(), ImportFileCommand{
		IngestFileCommand: IngestFileCommand{JobID: "JOB1", Content: []byte(sampleCSV), HasHeader: true},
		Strategy:          StrategyReplace,
	})
	require.NoError(t, err)
	assert.Equal(t, StrategyReplace, result.Strategy)

	job := f.job(t, "JOB1")
	assert.Equal(t, map[string]int{domain.UnspecifiedLocation: 5}, job.Parts["P1"].Locations)
	assert.Empty(t, job.Parts["P1"].Description)
}

func TestAcceptSuggestion(t *testing.T) {
	suggested := domain.Mapping{Part: 1, Location: -1, Location2: -1, Quantity: 0, Description: -1}
	m, ok, err := AcceptSuggestion{}.Confirm(context.Background(), nil, suggested)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, suggested, m)
}
