package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/tair/part-ledger/internal/ledger/usecase/command"
)

type assignmentRequest struct {
	PartNumber   string `json:"part_number"`
	Location     string `json:"location"`
	Delta        int    `json:"delta"`
	Value        int    `json:"value"`
	AllLocations bool   `json:"all_locations"`
}

func decodeAssignment(w http.ResponseWriter, r *http.Request) (assignmentRequest, bool) {
	var req assignmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return req, false
	}
	if strings.TrimSpace(req.PartNumber) == "" {
		respondError(w, http.StatusBadRequest, "part_number is required")
		return req, false
	}
	return req, true
}

// respondAssignment reports a miss as a successful no-op
func respondAssignment(w http.ResponseWriter, result *command.AssignmentResult) {
	msg := "Assignment updated"
	if !result.Found {
		msg = "No matching part location, nothing changed"
	}
	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: msg,
		Data:    result,
	})
}

// AdjustAssignment handles POST /api/jobs/{id}/assignments/adjust
// @Summary Move a cell's assigned quantity by a delta
// @Tags assignments
// @Accept json
// @Produce json
// @Param id path string true "Job id"
// @Success 200 {object} Response{data=command.AssignmentResult}
// @Router /api/jobs/{id}/assignments/adjust [post]
func (h *LedgerHandler) AdjustAssignment(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeAssignment(w, r)
	if !ok {
		return
	}

	result, err := h.adjustHandler.Handle(r.Context(), command.AdjustAssignmentCommand{
		JobID:      mux.Vars(r)["id"],
		PartNumber: req.PartNumber,
		Location:   req.Location,
		Delta:      req.Delta,
	})
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondAssignment(w, result)
}

// SetAssignment handles PUT /api/jobs/{id}/assignments
// @Summary Overwrite a cell's assigned quantity
// @Tags assignments
// @Accept json
// @Produce json
// @Param id path string true "Job id"
// @Success 200 {object} Response{data=command.AssignmentResult}
// @Router /api/jobs/{id}/assignments [put]
func (h *LedgerHandler) SetAssignment(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeAssignment(w, r)
	if !ok {
		return
	}

	result, err := h.setHandler.Handle(r.Context(), command.SetAssignmentCommand{
		JobID:      mux.Vars(r)["id"],
		PartNumber: req.PartNumber,
		Location:   req.Location,
		Value:      req.Value,
	})
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondAssignment(w, result)
}

// FillAssignment handles POST /api/jobs/{id}/assignments/fill
// @Summary Mark a part fully placed at one or all locations
// @Tags assignments
// @Accept json
// @Produce json
// @Param id path string true "Job id"
// @Success 200 {object} Response{data=command.AssignmentResult}
// @Router /api/jobs/{id}/assignments/fill [post]
func (h *LedgerHandler) FillAssignment(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeAssignment(w, r)
	if !ok {
		return
	}

	result, err := h.fillHandler.Handle(r.Context(), command.FillAssignmentCommand{
		JobID:        mux.Vars(r)["id"],
		PartNumber:   req.PartNumber,
		Location:     req.Location,
		AllLocations: req.AllLocations,
	})
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondAssignment(w, result)
}
