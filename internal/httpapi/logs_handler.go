package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"central_logger/internal/logs"
	"central_logger/internal/middleware"
	"central_logger/internal/utils"
	"central_logger/pkg/logrecord"
)

// Request body limits, counted after gzip decoding
const (
	MaxRecordBodyBytes = logrecord.MaxRecordBytes
	MaxBatchBodyBytes  = 10 << 20
)

// LogsHandler serves ingestion and log queries for the authenticated tenant
type LogsHandler struct {
	service *logs.Service
	logger  *utils.Logger
}

// NewLogsHandler creates a new logs handler
func NewLogsHandler(service *logs.Service) *LogsHandler {
	return &LogsHandler{
		service: service,
		logger:  utils.NewLogger("logs-handler"),
	}
}

// CreateLogResponse is returned for a single ingested record
type CreateLogResponse struct {
	ID uuid.UUID `json:"id"`
}

// CreateBatchResponse is returned for an ingested batch
type CreateBatchResponse struct {
	IDs   []uuid.UUID `json:"ids"`
	Count int         `json:"count"`
}

// readBody reads at most limit bytes, answering 413 or 400 itself on failure
func readBody(w http.ResponseWriter, r *http.Request, limit int64) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			utils.RespondWithError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return nil, false
		}
		utils.RespondWithError(w, http.StatusBadRequest, "Failed to read request body")
		return nil, false
	}
	return body, true
}

// Create ingests one record (POST /api/v1/logs)
func (h *LogsHandler) Create(w http.ResponseWriter, r *http.Request) {
	tenantID, _ := middleware.GetTenantID(r.Context())

	body, ok := readBody(w, r, MaxRecordBodyBytes)
	if !ok {
		return
	}

	id, err := h.service.Ingest(r.Context(), tenantID, body)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, CreateLogResponse{ID: id})
}

// CreateBatch ingests up to logs.MaxBatchSize records atomically
// (POST /api/v1/logs/batch). The body is a JSON array of records.
func (h *LogsHandler) CreateBatch(w http.ResponseWriter, r *http.Request) {
	tenantID, _ := middleware.GetTenantID(r.Context())

	body, ok := readBody(w, r, MaxBatchBodyBytes)
	if !ok {
		return
	}

	var raws []json.RawMessage
	if err := json.Unmarshal(body, &raws); err != nil {
		badQuery(w, "body", "must be a JSON array of log records")
		return
	}

	ids, err := h.service.IngestBatch(r.Context(), tenantID, raws)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, CreateBatchResponse{IDs: ids, Count: len(ids)})
}

// Get returns one record (GET /api/v1/logs/{id})
func (h *LogsHandler) Get(w http.ResponseWriter, r *http.Request) {
	tenantID, _ := middleware.GetTenantID(r.Context())

	log, err := h.service.Get(r.Context(), tenantID, r.PathValue("id"))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, log)
}

// parseDate accepts a timestamp or a bare YYYY-MM-DD date (midnight UTC)
func parseDate(s string) (time.Time, bool) {
	if t, ok := logs.ParseTimestamp(s); ok {
		return t, true
	}
	t, err := time.Parse(time.DateOnly, s)
	return t, err == nil
}

// List returns a filtered page of records, newest first (GET /api/v1/logs)
func (h *LogsHandler) List(w http.ResponseWriter, r *http.Request) {
	tenantID, _ := middleware.GetTenantID(r.Context())
	query := r.URL.Query()

	q := logs.ListQuery{
		Environment: query.Get("environment"),
		Status:      query.Get("status"),
		Category:    query.Get("category"),
		TicketID:    query.Get("ticket_id"),
	}

	for _, p := range []struct {
		name string
		dst  *int
	}{
		{"page", &q.Page},
		{"page_size", &q.PageSize},
	} {
		raw := query.Get(p.name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			badQuery(w, p.name, "must be a positive integer")
			return
		}
		*p.dst = n
	}

	for _, p := range []struct {
		name string
		dst  **time.Time
	}{
		{"start_date", &q.StartDate},
		{"end_date", &q.EndDate},
	} {
		raw := query.Get(p.name)
		if raw == "" {
			continue
		}
		t, ok := parseDate(raw)
		if !ok {
			badQuery(w, p.name, "must be a date or RFC 3339 timestamp")
			return
		}
		*p.dst = &t
	}

	result, err := h.service.List(r.Context(), tenantID, q)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, result)
}
