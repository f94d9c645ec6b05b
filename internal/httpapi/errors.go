package httpapi

import (
	"errors"
	"net/http"

	"central_logger/internal/logs"
	"central_logger/internal/metrics"
	"central_logger/internal/storage"
	"central_logger/internal/utils"
)

// respondError maps service errors to status codes. Unexpected errors are
// logged and reported without detail.
func respondError(w http.ResponseWriter, r *http.Request, logger *utils.Logger, err error) {
	var validationErr *logs.ValidationError
	var daysErr *metrics.ValidationError

	switch {
	case errors.As(err, &validationErr):
		utils.RespondWithErrorDetails(w, http.StatusBadRequest, "Validation failed", validationErr.Errors)
	case errors.As(err, &daysErr):
		utils.RespondWithErrorDetails(w, http.StatusBadRequest, "Validation failed", []logs.FieldError{
			{Field: daysErr.Field, Message: daysErr.Message},
		})
	case errors.Is(err, logs.ErrNotFound):
		utils.RespondWithError(w, http.StatusNotFound, "Log not found")
	case errors.Is(err, storage.ErrTenantRequired):
		utils.RespondWithError(w, http.StatusUnauthorized, "Missing API key")
	default:
		logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func badQuery(w http.ResponseWriter, field, message string) {
	utils.RespondWithErrorDetails(w, http.StatusBadRequest, "Validation failed", []logs.FieldError{
		{Field: field, Message: message},
	})
}
