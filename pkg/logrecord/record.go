// Package logrecord defines the record a workflow execution produces and the
// collector ingests.
package logrecord

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Field limits the collector enforces on an ingested record.
const (
	MaxWorkflowVersionLen  = 50
	MaxTicketIDLen         = 255
	MaxCategoryLen         = 100
	MaxResolutionStatusLen = 100
	MaxMetrics             = 64

	// MaxRecordBytes bounds one encoded record.
	MaxRecordBytes = 1 << 20

	// MaxExecutionTimeSeconds is roughly 31 years.
	MaxExecutionTimeSeconds = 1e9
)

// Truncate shortens s to at most maxRunes characters.
func Truncate(s string, maxRunes int) string {
	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	n := 0
	for i := range s {
		if n == maxRunes {
			return s[:i]
		}
		n++
	}
	return s
}

// Status is the outcome of one execution.
type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusError   Status = "ERROR"
	StatusFailed  Status = "FAILED"
	StatusPartial Status = "PARTIAL"
)

// ParseStatus normalizes s and reports whether it is a known status.
func ParseStatus(s string) (Status, bool) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	switch st {
	case StatusSuccess, StatusError, StatusFailed, StatusPartial:
		return st, true
	}
	return "", false
}

const (
	EnvProduction  = "production"
	EnvStaging     = "staging"
	EnvDevelopment = "development"
)

// ValidEnvironment reports whether env is an accepted environment tag.
func ValidEnvironment(env string) bool {
	switch env {
	case EnvProduction, EnvStaging, EnvDevelopment:
		return true
	}
	return false
}

// Metrics holds scalar execution metrics (confidence, iterations, tool calls...).
type Metrics map[string]Value

// Record is one completed execution as sent to the collector. Identity,
// tenant and creation time are assigned by the collector.
type Record struct {
	Environment          string    `json:"environment"`
	WorkflowVersion      string    `json:"workflow_version,omitempty"`
	TicketID             string    `json:"ticket_id,omitempty"`
	ExecutedAt           time.Time `json:"executed_at"`
	ExecutionTimeSeconds *float64  `json:"execution_time_seconds,omitempty"`
	Status               Status    `json:"status"`
	Category             string    `json:"category,omitempty"`
	ResolutionStatus     string    `json:"resolution_status,omitempty"`
	Metrics              Metrics   `json:"metrics,omitempty"`
	Trace                *Value    `json:"trace,omitempty"`
}
