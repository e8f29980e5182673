package query

import (
	"context"
	"fmt"
	"strings"

	"github.com/tair/part-ledger/internal/ledger/domain"
	"github.com/tair/part-ledger/internal/ledger/mapping"
	"github.com/tair/part-ledger/pkg/logger"
)

// ScanLookupQuery carries decoded barcode text
type ScanLookupQuery struct {
	JobID    string
	Code     string
	Location string
}

// ScanLookupResult lists the parts a scanned code matched
type ScanLookupResult struct {
	Code        string     `json:"code"`
	Normalized  string     `json:"normalized"`
	ChecksumBad bool       `json:"checksum_bad"`
	Parts       []PartView `json:"parts"`
}

// ScanLookupHandler handles scan lookup query
type ScanLookupHandler struct {
	repo domain.LedgerRepository
}

// NewScanLookupHandler creates a new scan lookup handler
func NewScanLookupHandler(repo domain.LedgerRepository) *ScanLookupHandler {
	return &ScanLookupHandler{repo: repo}
}

// Handle executes the scan lookup query. A failed GTIN check digit is only
// logged and flagged; the lookup still runs.
func (h *ScanLookupHandler) Handle(ctx context.Context, query ScanLookupQuery) (*ScanLookupResult, error) {
	code := strings.TrimSpace(query.Code)
	if code == "" {
		return nil, fmt.Errorf("code is required")
	}

	job, err := h.repo.GetJob(ctx, query.JobID)
	if err != nil {
		return nil, err
	}

	result := &ScanLookupResult{
		Code:       code,
		Normalized: mapping.NormalizeSearch(code),
	}

	if applicable, valid := mapping.CheckGTIN(code); applicable && !valid {
		result.ChecksumBad = true
		logger.Warn(ctx).
			Str("job_id", query.JobID).
			Str("code", code).
			Msg("Scanned code failed GTIN check digit")
	}

	result.Parts = FilterParts(job, PartFilter{Text: code, Location: query.Location})
	return result, nil
}
