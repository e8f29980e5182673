package query

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/tair/part-ledger/internal/ledger/domain"
)

// Export formats
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// ReportHeader is the first row of every export
var ReportHeader = []string{"Job", "Part Number", "Location", "Required Qty", "Assigned Qty", "Remaining Qty", "Description"}

// ReportRow is one part/location cell of the export
type ReportRow struct {
	JobID       string
	PartNumber  string
	Location    string
	Required    int
	Assigned    int
	Remaining   int
	Description string
}

func (r ReportRow) strings() []string {
	return []string{
		r.JobID,
		r.PartNumber,
		r.Location,
		strconv.Itoa(r.Required),
		strconv.Itoa(r.Assigned),
		strconv.Itoa(r.Remaining),
		r.Description,
	}
}

// ReportRows lists every cell of the job, parts and locations in ascending order
func ReportRows(job *domain.Job) []ReportRow {
	var rows []ReportRow
	for _, part := range job.SortedParts() {
		for _, loc := range part.LocationKeys() {
			required := part.Locations[loc]
			assigned := part.Assigned[loc]
			rows = append(rows, ReportRow{
				JobID:       job.ID,
				PartNumber:  part.PartNumber,
				Location:    loc,
				Required:    required,
				Assigned:    assigned,
				Remaining:   max(0, required-assigned),
				Description: part.Description,
			})
		}
	}
	return rows
}

// WriteCSV renders the report as comma separated text. Values holding a
// comma or a quote are quoted with internal quotes doubled.
func WriteCSV(rows []ReportRow) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(ReportHeader); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, row := range rows {
		if err := w.Write(row.strings()); err != nil {
			return nil, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush CSV: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteXLSX renders the report as a single-sheet workbook
func WriteXLSX(rows []ReportRow) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Report"
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true},
		Fill:   excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{{Type: "bottom", Color: "000000", Style: 1}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	header := make([]interface{}, len(ReportHeader))
	for i, h := range ReportHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(ReportHeader))
	if err := f.SetCellStyle(sheet, "A1", lastCol+"1", headerStyle); err != nil {
		return nil, fmt.Errorf("failed to style header: %w", err)
	}

	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		values := []interface{}{row.JobID, row.PartNumber, row.Location, row.Required, row.Assigned, row.Remaining, row.Description}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	widths := []float64{12, 20, 24, 12, 12, 14, 40}
	for i, w := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheet, col, col, w)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// ExportQuery represents the query to export a job report
type ExportQuery struct {
	JobID  string
	Format string
}

// ExportResult is a rendered report ready to download
type ExportResult struct {
	FileName    string
	ContentType string
	Content     []byte
}

// ExportReportHandler handles export report query
type ExportReportHandler struct {
	repo domain.LedgerRepository
}

// NewExportReportHandler creates a new export report handler
func NewExportReportHandler(repo domain.LedgerRepository) *ExportReportHandler {
	return &ExportReportHandler{repo: repo}
}

// Handle executes the export report query
func (h *ExportReportHandler) Handle(ctx context.Context, query ExportQuery) (*ExportResult, error) {
	format := strings.ToLower(strings.TrimSpace(query.Format))
	if format == "" {
		format = FormatCSV
	}
	if format != FormatCSV && format != FormatXLSX {
		return nil, fmt.Errorf("unsupported export format %q", query.Format)
	}

	job, err := h.repo.GetJob(ctx, query.JobID)
	if err != nil {
		return nil, err
	}
	rows := ReportRows(job)

	if format == FormatXLSX {
		content, err := WriteXLSX(rows)
		if err != nil {
			return nil, err
		}
		return &ExportResult{
			FileName:    job.ID + "-report.xlsx",
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Content:     content,
		}, nil
	}

	content, err := WriteCSV(rows)
	if err != nil {
		return nil, err
	}
	return &ExportResult{
		FileName:    job.ID + "-report.csv",
		ContentType: "text/csv",
		Content:     content,
	}, nil
}
