package httpapi

import (
	"fmt"
	"net/http"
	"strconv"

	"central_logger/internal/metrics"
	"central_logger/internal/middleware"
	"central_logger/internal/utils"
)

// MetricsHandler serves windowed aggregates for the authenticated tenant
type MetricsHandler struct {
	aggregator *metrics.Aggregator
	logger     *utils.Logger
}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler(aggregator *metrics.Aggregator) *MetricsHandler {
	return &MetricsHandler{
		aggregator: aggregator,
		logger:     utils.NewLogger("metrics-handler"),
	}
}

// days reads the optional days parameter; 0 selects the default window
func days(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("days")
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		badQuery(w, "days", "must be an integer")
		return 0, false
	}
	if n == 0 {
		badQuery(w, "days", fmt.Sprintf("must be between 1 and %d", metrics.MaxDays))
		return 0, false
	}
	return n, true
}

// Overview handles GET /api/v1/metrics/overview
func (h *MetricsHandler) Overview(w http.ResponseWriter, r *http.Request) {
	tenantID, _ := middleware.GetTenantID(r.Context())
	n, ok := days(w, r)
	if !ok {
		return
	}

	overview, err := h.aggregator.Overview(r.Context(), tenantID, n)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, overview)
}

// Categories handles GET /api/v1/metrics/categories
func (h *MetricsHandler) Categories(w http.ResponseWriter, r *http.Request) {
	tenantID, _ := middleware.GetTenantID(r.Context())
	n, ok := days(w, r)
	if !ok {
		return
	}

	report, err := h.aggregator.Categories(r.Context(), tenantID, n)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, report)
}
