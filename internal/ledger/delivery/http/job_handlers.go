package http

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/tair/part-ledger/internal/ledger/domain"
	"github.com/tair/part-ledger/internal/ledger/usecase/command"
	"github.com/tair/part-ledger/internal/ledger/usecase/query"
)

// ImportFile handles POST /api/jobs/import
// @Summary Upload a BOM export
// @Description Parses the file, parks its rows on the job and suggests a column mapping
// @Tags jobs
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "CSV or XLSX export"
// @Param job_id formData string false "Job id, defaults to the file name"
// @Param has_header formData bool false "First row holds labels (default true)"
// @Success 201 {object} Response{data=command.IngestResult}
// @Router /api/jobs/import [post]
func (h *LedgerHandler) ImportFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Failed to read upload")
		return
	}

	hasHeader := true
	if raw := r.FormValue("has_header"); raw != "" {
		if hasHeader, err = strconv.ParseBool(raw); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid has_header")
			return
		}
	}

	result, err := h.ingestHandler.Handle(r.Context(), command.IngestFileCommand{
		JobID:     strings.TrimSpace(r.FormValue("job_id")),
		FileName:  header.Filename,
		Content:   content,
		HasHeader: hasHeader,
	})
	if err != nil {
		respondErr(w, r, err)
		return
	}

	status := http.StatusOK
	if result.JobCreated {
		status = http.StatusCreated
	}
	respondJSON(w, status, Response{
		Success: true,
		Message: "Source parsed, confirm the column mapping to import",
		Data:    result,
	})
}

// ConfirmMapping handles POST /api/jobs/{id}/mapping
// @Summary Confirm a column mapping and import the pending rows
// @Tags jobs
// @Accept json
// @Produce json
// @Param id path string true "Job id"
// @Success 200 {object} Response{data=command.ImportResult}
// @Router /api/jobs/{id}/mapping [post]
func (h *LedgerHandler) ConfirmMapping(w http.ResponseWriter, r *http.Request) {
	m := domain.EmptyMapping()
	req := struct {
		Mapping           *domain.Mapping `json:"mapping"`
		Strategy          string          `json:"strategy"`
		ReplaceQtyOnMerge bool            `json:"replace_qty_on_merge"`
	}{Mapping: &m}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Mapping == nil {
		respondError(w, http.StatusBadRequest, "mapping is required")
		return
	}

	strategy, err := command.ParseStrategy(req.Strategy)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.confirmHandler.Handle(r.Context(), command.ConfirmMappingCommand{
		JobID:             mux.Vars(r)["id"],
		Mapping:           *req.Mapping,
		Strategy:          strategy,
		ReplaceQtyOnMerge: req.ReplaceQtyOnMerge,
	})
	if err != nil {
		respondErr(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Import completed",
		Data:    result,
	})
}

// ListJobs handles GET /api/jobs
// @Summary List jobs with their stats
// @Tags jobs
// @Produce json
// @Success 200 {object} Response{data=[]query.JobSummary}
// @Router /api/jobs [get]
func (h *LedgerHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.listHandler.Handle(r.Context())
	if err != nil {
		respondErr(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    jobs,
	})
}

// GetJob handles GET /api/jobs/{id}
// @Summary Get a job with its parts
// @Tags jobs
// @Produce json
// @Param id path string true "Job id"
// @Success 200 {object} Response{data=domain.Job}
// @Failure 404 {object} Response
// @Router /api/jobs/{id} [get]
func (h *LedgerHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.getJobHandler.Handle(r.Context(), query.GetJobQuery{JobID: mux.Vars(r)["id"]})
	if err != nil {
		respondErr(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    job,
	})
}

// RenameJob handles PATCH /api/jobs/{id}
// @Summary Change a job's id
// @Tags jobs
// @Accept json
// @Produce json
// @Param id path string true "Job id"
// @Success 200 {object} Response
// @Router /api/jobs/{id} [patch]
func (h *LedgerHandler) RenameJob(w http.ResponseWriter, r *http.Request) {
	var req struct {
		JobID string `json:"job_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.JobID) == "" {
		respondError(w, http.StatusBadRequest, "job_id is required")
		return
	}

	id := mux.Vars(r)["id"]
	renamed, err := h.renameHandler.Handle(r.Context(), command.RenameJobCommand{
		JobID:    id,
		NewJobID: req.JobID,
	})
	if err != nil {
		respondErr(w, r, err)
		return
	}

	msg := "Job renamed successfully"
	if !renamed {
		msg = "Job not renamed"
	}
	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: msg,
		Data:    map[string]interface{}{"renamed": renamed, "job_id": req.JobID},
	})
}

// DeleteJob handles DELETE /api/jobs/{id}
// @Summary Delete a job and all its parts
// @Tags jobs
// @Param id path string true "Job id"
// @Success 200 {object} Response
// @Router /api/jobs/{id} [delete]
func (h *LedgerHandler) DeleteJob(w http.ResponseWriter, r *http.Request) {
	if err := h.deleteHandler.Handle(r.Context(), command.DeleteJobCommand{JobID: mux.Vars(r)["id"]}); err != nil {
		respondErr(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Job deleted successfully",
	})
}
