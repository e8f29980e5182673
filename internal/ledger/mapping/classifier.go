// Package mapping turns raw tabular rows into normalized ledger tuples:
// it guesses column roles from header text, combines location columns and
// parses quantities.
package mapping

import (
	"fmt"
	"strings"

	"github.com/tair/part-ledger/internal/ledger/domain"
)

// Candidate substrings per role, highest priority first
var (
	PartCandidates = []string{
		"part number", "part no", "part #", "part num", "partnumber", "part",
		"catalog", "cat no", "cat #", "p/n", "item", "sku", "model",
	}
	LocationCandidates = []string{
		"location", "loc", "room", "area", "zone", "site",
	}
	SecondaryLocationCandidates = []string{
		"cabinet", "panel", "enclosure", "rack", "shelf", "sub location",
		"sublocation", "location 2", "bin", "slot", "position",
	}
	QuantityCandidates = []string{
		"qty", "quantity", "count", "amount", "required", "req", "total",
	}
	DescriptionCandidates = []string{
		"description", "desc", "name", "details",
	}
)

// Classify guesses the role of each column from its header text. It is a
// pure function of the header list.
func Classify(headers []string) domain.Mapping {
	normalized := make([]string, len(headers))
	for i, h := range headers {
		normalized[i] = strings.ToLower(strings.TrimSpace(h))
	}

	m := domain.EmptyMapping()
	m.Part = findColumn(normalized, PartCandidates, domain.NoColumn)
	m.Location = findColumn(normalized, LocationCandidates, domain.NoColumn)
	if m.Location != domain.NoColumn {
		m.Location2 = findColumn(normalized, SecondaryLocationCandidates, m.Location)
	}
	m.Quantity = findColumn(normalized, QuantityCandidates, domain.NoColumn)
	m.Description = findColumn(normalized, DescriptionCandidates, domain.NoColumn)
	return m
}

// findColumn tries candidates in priority order; for each one the first
// header (in column order) containing it wins.
func findColumn(headers, candidates []string, exclude int) int {
	for _, candidate := range candidates {
		for i, h := range headers {
			if i == exclude || h == "" {
				continue
			}
			if strings.Contains(h, candidate) {
				return i
			}
		}
	}
	return domain.NoColumn
}

// SyntheticHeaders labels columns "Column 1".."Column n" for sources
// without a header row
func SyntheticHeaders(n int) []string {
	headers := make([]string, n)
	for i := range headers {
		headers[i] = fmt.Sprintf("Column %d", i+1)
	}
	return headers
}
