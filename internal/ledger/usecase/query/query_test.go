package query

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/tair/part-ledger/internal/ledger/domain"
	"github.com/tair/part-ledger/internal/ledger/repository/memory"
	"github.com/tair/part-ledger/internal/ledger/store"
)

func part(pn, desc string, cells map[string][2]int) *domain.Part {
	p := domain.NewPart(pn, desc)
	for loc, qa := range cells {
		p.Locations[loc] = qa[0]
		p.Assigned[loc] = qa[1]
	}
	return p
}

func sampleJob() *domain.Job {
	job := domain.NewJob("JOB1", "job1.csv")
	for _, p := range []*domain.Part{
		part("P2", "Fuse 5A", map[string][2]int{"A": {4, 4}, "B": {2, 0}}),
		part("P1", "Relay, 24VDC", map[string][2]int{"A": {5, 3}}),
		part("ABC-100", "Terminal", map[string][2]int{"C": {1, 1}}),
	} {
		job.Parts[p.PartNumber] = p
	}
	return job
}

func seededRepo(t *testing.T, job *domain.Job) *memory.LedgerRepository {
	t.Helper()
	repo := memory.NewLedgerRepository()
	require.NoError(t, store.NewLedger(repo).ReplaceAll(context.Background(), map[string]*domain.Job{job.ID: job}))
	return repo
}

func TestComputeStats(t *testing.T) {
	stats := ComputeStats(sampleJob())
	assert.Equal(t, JobStats{RequiredTotal: 12, AssignedTotal: 8, CellCount: 4, Pct: 67}, stats)

	empty := ComputeStats(domain.NewJob("E", ""))
	assert.Equal(t, 0, empty.Pct)

	corrupt := domain.NewJob("C", "")
	corrupt.Parts["X"] = part("X", "", map[string][2]int{"A": {2, 9}})
	assert.Equal(t, 100, ComputeStats(corrupt).Pct)
}

func TestFilterParts(t *testing.T) {
	job := sampleJob()

	tests := []struct {
		name   string
		filter PartFilter
		want   []string
	}{
		{"no filter ordered by part number", PartFilter{}, []string{"ABC-100", "P1", "P2"}},
		{"location", PartFilter{Location: "A"}, []string{"P1", "P2"}},
		{"text on description", PartFilter{Text: "relay"}, []string{"P1"}},
		{"text on part number", PartFilter{Text: "p2"}, []string{"P2"}},
		{"normalized text", PartFilter{Text: "abc100"}, []string{"ABC-100"}},
		{"unassigned only", PartFilter{UnassignedOnly: true}, []string{"P1", "P2"}},
		{"unassigned bypassed by location", PartFilter{Location: "C", UnassignedOnly: true}, []string{"ABC-100"}},
		{"no match", PartFilter{Text: "zzz"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			views := FilterParts(job, tt.filter)
			got := make([]string, 0, len(views))
			for _, v := range views {
				got = append(got, v.PartNumber)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFilterParts_LocationScopesTotals(t *testing.T) {
	views := FilterParts(sampleJob(), PartFilter{Location: "A", Text: "P2"})
	require.Len(t, views, 1)
	assert.Equal(t, 4, views[0].Required)
	assert.Equal(t, 4, views[0].Assigned)
	assert.Equal(t, 0, views[0].Remaining)
	assert.Len(t, views[0].Cells, 1)

	all := FilterParts(sampleJob(), PartFilter{Text: "P2"})
	assert.Equal(t, 6, all[0].Required)
	assert.Equal(t, 2, all[0].Remaining)
}

func TestReportRowsAndCSV(t *testing.T) {
	job := domain.NewJob("JOB1", "")
	job.Parts["P1"] = part("P1", "", map[string][2]int{"A": {5, 3}})
	job.Parts["P2"] = part("P2", `Relay, "miniature"`, map[string][2]int{"B": {1, 0}})

	content, err := WriteCSV(ReportRows(job))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(string(content), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Job,Part Number,Location,Required Qty,Assigned Qty,Remaining Qty,Description", lines[0])
	assert.Equal(t, "JOB1,P1,A,5,3,2,", lines[1])
	assert.Equal(t, `JOB1,P2,B,1,0,1,"Relay, ""miniature"""`, lines[2])
}

func TestWriteXLSX(t *testing.T) {
	content, err := WriteXLSX(ReportRows(sampleJob()))
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(content))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Report")
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, ReportHeader, rows[0])
	assert.Equal(t, []string{"JOB1", "ABC-100", "C", "1", "1", "0", "Terminal"}, rows[1])
}

func TestExportReportHandler(t *testing.T) {
	repo := seededRepo(t, sampleJob())
	h := NewExportReportHandler(repo)
	ctx := context.Background()

	csvResult, err := h.Handle(ctx, ExportQuery{JobID: "JOB1"})
	require.NoError(t, err)
	assert.Equal(t, "text/csv", csvResult.ContentType)
	assert.Equal(t, "JOB1-report.csv", csvResult.FileName)

	xlsxResult, err := h.Handle(ctx, ExportQuery{JobID: "JOB1", Format: "XLSX"})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(xlsxResult.Content, []byte("PK")))

	_, err = h.Handle(ctx, ExportQuery{JobID: "JOB1", Format: "pdf"})
	assert.Error(t, err)
	_, err = h.Handle(ctx, ExportQuery{JobID: "NOPE"})
	assert.ErrorIs(t, err, domain.ErrJobNotFound)
}

func TestListAndGetJobs(t *testing.T) {
	repo := seededRepo(t, sampleJob())
	ctx := context.Background()

	summaries, err := NewListJobsHandler(repo).Handle(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, 3, summaries[0].PartCount)
	assert.Equal(t, 67, summaries[0].Stats.Pct)
	assert.False(t, summaries[0].MappingPending)

	job, err := NewGetJobHandler(repo).Handle(ctx, GetJobQuery{JobID: "JOB1"})
	require.NoError(t, err)
	assert.Len(t, job.Parts, 3)

	stats, err := NewJobStatsHandler(repo).Handle(ctx, JobStatsQuery{JobID: "JOB1"})
	require.NoError(t, err)
	assert.Equal(t, 12, stats.RequiredTotal)
}

func TestBackupHandler(t *testing.T) {
	repo := seededRepo(t, sampleJob())
	h := NewBackupHandler(repo)
	fixed := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	h.now = func() time.Time { return fixed }

	payload, err := h.Handle(context.Background(), BackupQuery{SelectedJobID: "JOB1"})
	require.NoError(t, err)
	assert.Equal(t, domain.BackupVersion, payload.Version)
	assert.Equal(t, fixed, payload.ExportedAt)
	require.Contains(t, payload.State.Jobs, "JOB1")
	assert.Equal(t, 3, payload.State.Jobs["JOB1"].Parts["P1"].Assigned["A"])
	assert.Equal(t, "JOB1", payload.State.SelectedJobID)
}

func TestScanLookup(t *testing.T) {
	job := sampleJob()
	job.Parts["4006381333931"] = part("4006381333931", "Sensor", map[string][2]int{"D": {1, 0}})
	repo := seededRepo(t, job)
	h := NewScanLookupHandler(repo)
	ctx := context.Background()

	result, err := h.Handle(ctx, ScanLookupQuery{JobID: "JOB1", Code: "4006381333931"})
	require.NoError(t, err)
	assert.False(t, result.ChecksumBad)
	require.Len(t, result.Parts, 1)

	result, err = h.Handle(ctx, ScanLookupQuery{JobID: "JOB1", Code: "4006381333932"})
	require.NoError(t, err)
	assert.True(t, result.ChecksumBad, "bad check digit is advisory")
	assert.Empty(t, result.Parts)

	result, err = h.Handle(ctx, ScanLookupQuery{JobID: "JOB1", Code: " abc 100 "})
	require.NoError(t, err)
	assert.Equal(t, "abc100", result.Normalized)
	require.Len(t, result.Parts, 1)
	assert.Equal(t, "ABC-100", result.Parts[0].PartNumber)

	_, err = h.Handle(ctx, ScanLookupQuery{JobID: "JOB1", Code: "  "})
	assert.Error(t, err)
}
