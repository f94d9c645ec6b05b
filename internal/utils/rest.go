package utils

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// RespondWithError sends an error response
func RespondWithError(w http.ResponseWriter, code int, message string) {
	RespondWithJSON(w, code, ErrorResponse{Error: message})
}

// RespondWithErrorDetails sends an error response carrying structured details
func RespondWithErrorDetails(w http.ResponseWriter, code int, message string, details any) {
	RespondWithJSON(w, code, ErrorResponse{Error: message, Details: details})
}

// encodeFailure is sent when a payload cannot be encoded
const encodeFailure = `{"error":"Failed to encode response"}` + "\n"

// RespondWithJSON sends a JSON response. The payload is encoded before the
// status is written, so an unencodable payload yields a 500.
func RespondWithJSON(w http.ResponseWriter, code int, payload interface{}) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, encodeFailure)
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, err := w.Write(buf.Bytes())
	return err
}
