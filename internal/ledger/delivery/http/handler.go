package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tair/part-ledger/internal/ledger/domain"
	"github.com/tair/part-ledger/internal/ledger/store"
	"github.com/tair/part-ledger/internal/ledger/usecase/command"
	"github.com/tair/part-ledger/internal/ledger/usecase/query"
	"github.com/tair/part-ledger/pkg/logger"
)

// maxUploadBytes bounds import uploads and restore payloads
const maxUploadBytes = 64 << 20

// LedgerHandler handles HTTP requests for the part ledger
type LedgerHandler struct {
	// Command handlers
	ingestHandler  *command.IngestFileHandler
	confirmHandler *command.ConfirmMappingHandler
	renameHandler  *command.RenameJobHandler
	deleteHandler  *command.DeleteJobHandler
	adjustHandler  *command.AdjustAssignmentHandler
	setHandler     *command.SetAssignmentHandler
	fillHandler    *command.FillAssignmentHandler
	restoreHandler *command.RestoreHandler

	// Query handlers
	listHandler   *query.ListJobsHandler
	getJobHandler *query.GetJobHandler
	statsHandler  *query.JobStatsHandler
	partsHandler  *query.FilterPartsHandler
	scanHandler   *query.ScanLookupHandler
	exportHandler *query.ExportReportHandler
	backupHandler *query.BackupHandler

	metrics *httpMetrics
}

// NewLedgerHandler creates a new ledger handler
func NewLedgerHandler(
	ledger *store.Ledger,
	repo domain.LedgerRepository,
	importer *command.ImportHandler,
	metrics *command.Metrics,
	reg prometheus.Registerer,
) *LedgerHandler {
	return &LedgerHandler{
		ingestHandler:  command.NewIngestFileHandler(ledger),
		confirmHandler: command.NewConfirmMappingHandler(ledger, importer),
		renameHandler:  command.NewRenameJobHandler(ledger),
		deleteHandler:  command.NewDeleteJobHandler(ledger),
		adjustHandler:  command.NewAdjustAssignmentHandler(ledger, metrics),
		setHandler:     command.NewSetAssignmentHandler(ledger, metrics),
		fillHandler:    command.NewFillAssignmentHandler(ledger, metrics),
		restoreHandler: command.NewRestoreHandler(ledger),

		listHandler:   query.NewListJobsHandler(repo),
		getJobHandler: query.NewGetJobHandler(repo),
		statsHandler:  query.NewJobStatsHandler(repo),
		partsHandler:  query.NewFilterPartsHandler(repo),
		scanHandler:   query.NewScanLookupHandler(repo),
		exportHandler: query.NewExportReportHandler(repo),
		backupHandler: query.NewBackupHandler(repo),

		metrics: newHTTPMetrics(reg),
	}
}

type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// RegisterRoutes registers all ledger routes
func (h *LedgerHandler) RegisterRoutes(router *mux.Router) {
	route := func(path string, fn http.HandlerFunc, method string) {
		router.HandleFunc(path, h.metrics.middleware(path, fn)).Methods(method)
	}

	// Jobs
	route("/api/jobs", h.ListJobs, http.MethodGet)
	route("/api/jobs/import", h.ImportFile, http.MethodPost)
	route("/api/jobs/{id}", h.GetJob, http.MethodGet)
	route("/api/jobs/{id}", h.RenameJob, http.MethodPatch)
	route("/api/jobs/{id}", h.DeleteJob, http.MethodDelete)
	route("/api/jobs/{id}/mapping", h.ConfirmMapping, http.MethodPost)

	// Queries
	route("/api/jobs/{id}/stats", h.GetStats, http.MethodGet)
	route("/api/jobs/{id}/parts", h.ListParts, http.MethodGet)
	route("/api/jobs/{id}/scan", h.Scan, http.MethodGet)
	route("/api/jobs/{id}/export", h.Export, http.MethodGet)

	// Assignments
	route("/api/jobs/{id}/assignments/adjust", h.AdjustAssignment, http.MethodPost)
	route("/api/jobs/{id}/assignments", h.SetAssignment, http.MethodPut)
	route("/api/jobs/{id}/assignments/fill", h.FillAssignment, http.MethodPost)

	// Backup
	route("/api/backup", h.Backup, http.MethodGet)
	route("/api/restore", h.Restore, http.MethodPost)
}

// HealthChecker reports whether the persistence substrate is reachable
type HealthChecker func(ctx context.Context) error

// RegisterHealthCheck registers health check endpoint
func (h *LedgerHandler) RegisterHealthCheck(router *mux.Router, check HealthChecker) {
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			if err := check(r.Context()); err != nil {
				logger.Warn(r.Context()).Err(err).Msg("Health check failed")
				respondJSON(w, http.StatusServiceUnavailable, Response{
					Success: false,
					Error:   "Store unavailable",
				})
				return
			}
		}

		respondJSON(w, http.StatusOK, Response{
			Success: true,
			Message: "Ledger service is healthy",
		})
	}).Methods(http.MethodGet)
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, Response{Success: false, Error: message})
}

// respondErr maps domain errors to status codes and logs server faults
func respondErr(w http.ResponseWriter, r *http.Request, err error) {
	status := errorStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Error(r.Context()).
			Err(err).
			Str("path", r.URL.Path).
			Msg("Request failed")
	}
	respondError(w, status, err.Error())
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrJobNotFound), errors.Is(err, domain.ErrPartNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrJobExists), errors.Is(err, domain.ErrNoPendingImport):
		return http.StatusConflict
	case errors.Is(err, domain.ErrEmptySource),
		errors.Is(err, domain.ErrUnreadableSource),
		errors.Is(err, domain.ErrInvalidMapping),
		errors.Is(err, domain.ErrInvalidBackup),
		errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrMappingCancelled):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}
