package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/tair/part-ledger/internal/ledger/usecase/command"
	"github.com/tair/part-ledger/internal/ledger/usecase/query"
)

// GetStats handles GET /api/jobs/{id}/stats
// @Summary Required and assigned totals of a job
// @Tags reports
// @Produce json
// @Param id path string true "Job id"
// @Success 200 {object} Response{data=query.JobStats}
// @Router /api/jobs/{id}/stats [get]
func (h *LedgerHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.statsHandler.Handle(r.Context(), query.JobStatsQuery{JobID: mux.Vars(r)["id"]})
	if err != nil {
		respondErr(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    stats,
	})
}

// ListParts handles GET /api/jobs/{id}/parts
// @Summary List a job's parts with optional filters
// @Tags reports
// @Produce json
// @Param id path string true "Job id"
// @Param location query string false "Only this location"
// @Param q query string false "Part number or description text"
// @Param unassigned query bool false "Only parts with remaining quantity"
// @Success 200 {object} Response{data=[]query.PartView}
// @Router /api/jobs/{id}/parts [get]
func (h *LedgerHandler) ListParts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	unassigned := false
	if raw := q.Get("unassigned"); raw != "" {
		var err error
		if unassigned, err = strconv.ParseBool(raw); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid unassigned flag")
			return
		}
	}

	parts, err := h.partsHandler.Handle(r.Context(), query.FilterPartsQuery{
		JobID: mux.Vars(r)["id"],
		Filter: query.PartFilter{
			Location:       q.Get("location"),
			Text:           q.Get("q"),
			UnassignedOnly: unassigned,
		},
	})
	if err != nil {
		respondErr(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    parts,
	})
}

// Scan handles GET /api/jobs/{id}/scan
// @Summary Look up parts by decoded barcode text
// @Tags reports
// @Produce json
// @Param id path string true "Job id"
// @Param code query string true "Decoded barcode"
// @Param location query string false "Only this location"
// @Success 200 {object} Response{data=query.ScanLookupResult}
// @Router /api/jobs/{id}/scan [get]
func (h *LedgerHandler) Scan(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimSpace(r.URL.Query().Get("code"))
	if code == "" {
		respondError(w, http.StatusBadRequest, "code is required")
		return
	}

	result, err := h.scanHandler.Handle(r.Context(), query.ScanLookupQuery{
		JobID:    mux.Vars(r)["id"],
		Code:     code,
		Location: r.URL.Query().Get("location"),
	})
	if err != nil {
		respondErr(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    result,
	})
}

// Export handles GET /api/jobs/{id}/export
// @Summary Download the placement report
// @Tags reports
// @Produce text/csv
// @Param id path string true "Job id"
// @Param format query string false "csv (default) or xlsx"
// @Success 200 {file} file
// @Router /api/jobs/{id}/export [get]
func (h *LedgerHandler) Export(w http.ResponseWriter, r *http.Request) {
	format := strings.ToLower(r.URL.Query().Get("format"))
	if format != "" && format != query.FormatCSV && format != query.FormatXLSX {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("unsupported export format %q", format))
		return
	}

	result, err := h.exportHandler.Handle(r.Context(), query.ExportQuery{
		JobID:  mux.Vars(r)["id"],
		Format: format,
	})
	if err != nil {
		respondErr(w, r, err)
		return
	}

	sendFile(w, result.FileName, result.ContentType, result.Content)
}

// Backup handles GET /api/backup
// @Summary Download every job as one JSON document
// @Tags backup
// @Produce json
// @Param selected query string false "Job id to mark as selected"
// @Success 200 {object} domain.BackupPayload
// @Router /api/backup [get]
func (h *LedgerHandler) Backup(w http.ResponseWriter, r *http.Request) {
	payload, err := h.backupHandler.Handle(r.Context(), query.BackupQuery{
		SelectedJobID: r.URL.Query().Get("selected"),
	})
	if err != nil {
		respondErr(w, r, err)
		return
	}

	content, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		respondErr(w, r, fmt.Errorf("failed to encode backup: %w", err))
		return
	}

	name := fmt.Sprintf("ledger-backup-%s.json", payload.ExportedAt.Format("20060102-150405"))
	sendFile(w, name, "application/json", content)
}

// Restore handles POST /api/restore
// @Summary Replace every job with a backup document
// @Tags backup
// @Accept json
// @Produce json
// @Success 200 {object} Response{data=command.RestoreResult}
// @Failure 400 {object} Response
// @Router /api/restore [post]
func (h *LedgerHandler) Restore(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUploadBytes))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}

	result, err := h.restoreHandler.Handle(r.Context(), command.RestoreCommand{Payload: raw})
	if err != nil {
		respondErr(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Ledger restored successfully",
		Data:    result,
	})
}

func sendFile(w http.ResponseWriter, name, contentType string, content []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(len(content)))
	w.WriteHeader(http.StatusOK)
	w.Write(content)
}
