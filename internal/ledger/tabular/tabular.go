// Package tabular reads BOM exports into ordered rows of cell values.
package tabular

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/tair/part-ledger/internal/ledger/domain"
)

var zipMagic = []byte("PK\x03\x04")

// Parse picks a reader from the file name, falling back to sniffing the
// content for an xlsx (zip) container.
func Parse(fileName string, content []byte) ([][]string, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	if ext == ".xlsx" || ext == ".xlsm" || bytes.HasPrefix(content, zipMagic) {
		return ParseXLSX(content)
	}
	return ParseDelimited(content)
}

// ParseDelimited reads comma, semicolon or tab separated text. The delimiter
// is whichever of the three appears most often on the first line.
func ParseDelimited(content []byte) ([][]string, error) {
	content = bytes.TrimPrefix(content, []byte("\xef\xbb\xbf"))
	if len(bytes.TrimSpace(content)) == 0 {
		return nil, domain.ErrEmptySource
	}

	reader := csv.NewReader(bytes.NewReader(content))
	reader.Comma = sniffDelimiter(content)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var rows [][]string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse delimited text: %w: %w", domain.ErrUnreadableSource, err)
		}
		if blankRow(record) {
			continue
		}
		rows = append(rows, record)
	}

	if len(rows) == 0 {
		return nil, domain.ErrEmptySource
	}
	return rows, nil
}

// ParseXLSX reads the first sheet of a workbook
func ParseXLSX(content []byte) ([][]string, error) {
	if len(content) == 0 {
		return nil, domain.ErrEmptySource
	}

	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse Excel file: %w: %w", domain.ErrUnreadableSource, err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, domain.ErrEmptySource
	}

	all, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w: %w", domain.ErrUnreadableSource, err)
	}

	rows := make([][]string, 0, len(all))
	for _, row := range all {
		if !blankRow(row) {
			rows = append(rows, row)
		}
	}
	if len(rows) == 0 {
		return nil, domain.ErrEmptySource
	}
	return rows, nil
}

// Width is the cell count of the widest row
func Width(rows [][]string) int {
	w := 0
	for _, row := range rows {
		if len(row) > w {
			w = len(row)
		}
	}
	return w
}

func sniffDelimiter(content []byte) rune {
	firstLine := content
	if i := bytes.IndexByte(content, '\n'); i >= 0 {
		firstLine = content[:i]
	}

	best, bestCount := ',', bytes.Count(firstLine, []byte{','})
	for _, d := range []rune{';', '\t'} {
		if n := bytes.Count(firstLine, []byte(string(d))); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

func blankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
