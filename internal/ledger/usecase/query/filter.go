package query

import (
	"context"
	"strings"

	"github.com/tair/part-ledger/internal/ledger/domain"
	"github.com/tair/part-ledger/internal/ledger/mapping"
)

// PartFilter narrows a job's part list. Every field is optional.
type PartFilter struct {
	Location       string
	Text           string
	UnassignedOnly bool
}

// CellView is one location of a part
type CellView struct {
	Location  string `json:"location"`
	Required  int    `json:"required"`
	Assigned  int    `json:"assigned"`
	Remaining int    `json:"remaining"`
}

// PartView is a part with totals over the cells it shows
type PartView struct {
	PartNumber  string     `json:"part_number"`
	Description string     `json:"description"`
	Cells       []CellView `json:"cells"`
	Required    int        `json:"required"`
	Assigned    int        `json:"assigned"`
	Remaining   int        `json:"remaining"`
}

// FilterParts returns matching parts ordered by part number.
//
// A location filter keeps parts that have a cell there and scopes the view
// and its totals to that one cell. UnassignedOnly is ignored while a location
// filter is set.
func FilterParts(job *domain.Job, filter PartFilter) []PartView {
	location := strings.TrimSpace(filter.Location)
	text := strings.ToLower(strings.TrimSpace(filter.Text))
	normalized := mapping.NormalizeSearch(filter.Text)

	views := []PartView{}
	for _, part := range job.SortedParts() {
		if location != "" && !part.HasLocation(location) {
			continue
		}
		if text != "" && !matchesText(part, text, normalized) {
			continue
		}

		view := newPartView(part, location)
		if location == "" && filter.UnassignedOnly && view.Remaining == 0 {
			continue
		}
		views = append(views, view)
	}
	return views
}

func matchesText(part *domain.Part, text, normalized string) bool {
	if strings.Contains(strings.ToLower(part.PartNumber), text) ||
		strings.Contains(strings.ToLower(part.Description), text) {
		return true
	}
	if normalized == "" {
		return false
	}
	return strings.Contains(mapping.NormalizeSearch(part.PartNumber), normalized) ||
		strings.Contains(mapping.NormalizeSearch(part.Description), normalized)
}

func newPartView(part *domain.Part, location string) PartView {
	view := PartView{
		PartNumber:  part.PartNumber,
		Description: part.Description,
		Cells:       []CellView{},
	}
	for _, loc := range part.LocationKeys() {
		if location != "" && loc != location {
			continue
		}
		required := part.Locations[loc]
		assigned := min(part.Assigned[loc], required)
		cell := CellView{
			Location:  loc,
			Required:  required,
			Assigned:  assigned,
			Remaining: max(0, required-assigned),
		}
		view.Cells = append(view.Cells, cell)
		view.Required += cell.Required
		view.Assigned += cell.Assigned
		view.Remaining += cell.Remaining
	}
	return view
}

// FilterPartsQuery represents the query to list a job's parts
type FilterPartsQuery struct {
	JobID  string
	Filter PartFilter
}

// FilterPartsHandler handles filter parts query
type FilterPartsHandler struct {
	repo domain.LedgerRepository
}

// NewFilterPartsHandler creates a new filter parts handler
func NewFilterPartsHandler(repo domain.LedgerRepository) *FilterPartsHandler {
	return &FilterPartsHandler{repo: repo}
}

// Handle executes the filter parts query
func (h *FilterPartsHandler) Handle(ctx context.Context, query FilterPartsQuery) ([]PartView, error) {
	job, err := h.repo.GetJob(ctx, query.JobID)
	if err != nil {
		return nil, err
	}
	return FilterParts(job, query.Filter), nil
}
