package utils

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRespondWithError(t *testing.T) {
	tests := []struct {
		name    string
		code    int
		message string
	}{
		{name: "bad request", code: http.StatusBadRequest, message: "Invalid JSON body"},
		{name: "unauthorized", code: http.StatusUnauthorized, message: "Missing API key"},
		{name: "not found", code: http.StatusNotFound, message: "Log not found"},
		{name: "internal server error", code: http.StatusInternalServerError, message: "Failed to store log"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			RespondWithError(w, tt.code, tt.message)

			if w.Code != tt.code {
				t.Errorf("RespondWithError() status = %d, want %d", w.Code, tt.code)
			}
			if ct := w.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("RespondWithError() Content-Type = %s, want application/json", ct)
			}
			if strings.Contains(w.Body.String(), "details") {
				t.Errorf("RespondWithError() body should omit details, got %s", w.Body.String())
			}

			var response ErrorResponse
			if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if response.Error != tt.message {
				t.Errorf("RespondWithError() message = %s, want %s", response.Error, tt.message)
			}
		})
	}
}

func TestRespondWithErrorDetails(t *testing.T) {
	w := httptest.NewRecorder()
	details := []map[string]string{{"field": "status", "message": "is required"}}

	RespondWithErrorDetails(w, http.StatusBadRequest, "Validation failed", details)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}

	var response struct {
		Error   string              `json:"error"`
		Details []map[string]string `json:"details"`
	}
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if response.Error != "Validation failed" {
		t.Errorf("error = %s, want Validation failed", response.Error)
	}
	if len(response.Details) != 1 || response.Details[0]["field"] != "status" {
		t.Errorf("details = %v, want one entry for status", response.Details)
	}
}

func TestRespondWithJSON(t *testing.T) {
	t.Run("struct payload", func(t *testing.T) {
		w := httptest.NewRecorder()

		payload := struct {
			ID    string `json:"id"`
			Count int    `json:"count"`
		}{ID: "5f0c", Count: 3}

		if err := RespondWithJSON(w, http.StatusCreated, payload); err != nil {
			t.Errorf("RespondWithJSON() error = %v, want nil", err)
		}
		if w.Code != http.StatusCreated {
			t.Errorf("RespondWithJSON() status = %d, want %d", w.Code, http.StatusCreated)
		}

		var response map[string]any
		if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		if response["id"] != "5f0c" {
			t.Errorf("RespondWithJSON() id = %v, want 5f0c", response["id"])
		}
		if int(response["count"].(float64)) != 3 {
			t.Errorf("RespondWithJSON() count = %v, want 3", response["count"])
		}
	})

	t.Run("unencodable payload", func(t *testing.T) {
		w := httptest.NewRecorder()

		if err := RespondWithJSON(w, http.StatusOK, map[string]any{"ch": make(chan int)}); err == nil {
			t.Error("RespondWithJSON() expected error for channel payload")
		}
		if w.Code != http.StatusInternalServerError {
			t.Errorf("RespondWithJSON() status = %d, want %d", w.Code, http.StatusInternalServerError)
		}
		var response ErrorResponse
		if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
			t.Fatalf("Failed to decode error body: %v", err)
		}
		if response.Error == "" {
			t.Error("RespondWithJSON() expected an error message in the body")
		}
	})

	t.Run("non-finite number", func(t *testing.T) {
		w := httptest.NewRecorder()

		if err := RespondWithJSON(w, http.StatusOK, map[string]float64{"avg": math.Inf(1)}); err == nil {
			t.Error("RespondWithJSON() expected error for +Inf")
		}
		if w.Code != http.StatusInternalServerError {
			t.Errorf("RespondWithJSON() status = %d, want %d", w.Code, http.StatusInternalServerError)
		}
		if ct := w.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("RespondWithJSON() Content-Type = %s, want application/json", ct)
		}
	})
}
