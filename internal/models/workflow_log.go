package models

import (
	"time"

	"github.com/google/uuid"

	"central_logger/pkg/logrecord"
)

// WorkflowLog is a stored execution record. Rows are never updated.
type WorkflowLog struct {
	ID                   uuid.UUID               `db:"id" json:"id"`
	TenantID             string                  `db:"tenant_id" json:"tenant_id"`
	Environment          string                  `db:"environment" json:"environment"`
	WorkflowVersion      *string                 `db:"workflow_version" json:"workflow_version"`
	TicketID             *string                 `db:"ticket_id" json:"ticket_id"`
	ExecutedAt           time.Time               `db:"executed_at" json:"executed_at"`
	ExecutionTimeSeconds *float64                `db:"execution_time_seconds" json:"execution_time_seconds"`
	Status               string                  `db:"status" json:"status"`
	Category             *string                 `db:"category" json:"category"`
	ResolutionStatus     *string                 `db:"resolution_status" json:"resolution_status"`
	Metrics              JSON[logrecord.Metrics] `db:"metrics" json:"metrics"`
	Trace                JSON[logrecord.Value]   `db:"trace" json:"trace"`
	CreatedAt            time.Time               `db:"created_at" json:"created_at"`
}

// NewWorkflowLog converts a validated record into a row for tenantID.
// Empty optional strings are stored as NULL.
func NewWorkflowLog(tenantID string, rec *logrecord.Record) *WorkflowLog {
	log := &WorkflowLog{
		TenantID:             tenantID,
		Environment:          rec.Environment,
		WorkflowVersion:      optional(rec.WorkflowVersion),
		TicketID:             optional(rec.TicketID),
		ExecutedAt:           rec.ExecutedAt.UTC(),
		ExecutionTimeSeconds: rec.ExecutionTimeSeconds,
		Status:               string(rec.Status),
		Category:             optional(rec.Category),
		ResolutionStatus:     optional(rec.ResolutionStatus),
	}
	if len(rec.Metrics) > 0 {
		log.Metrics = NewJSON(rec.Metrics)
	}
	if rec.Trace != nil {
		log.Trace = NewJSON(*rec.Trace)
	}
	return log
}

// Record converts the row back to its wire form.
func (l *WorkflowLog) Record() *logrecord.Record {
	rec := &logrecord.Record{
		Environment:          l.Environment,
		WorkflowVersion:      deref(l.WorkflowVersion),
		TicketID:             deref(l.TicketID),
		ExecutedAt:           l.ExecutedAt,
		ExecutionTimeSeconds: l.ExecutionTimeSeconds,
		Status:               logrecord.Status(l.Status),
		Category:             deref(l.Category),
		ResolutionStatus:     deref(l.ResolutionStatus),
	}
	if l.Metrics.Valid {
		rec.Metrics = l.Metrics.V
	}
	if l.Trace.Valid {
		trace := l.Trace.V
		rec.Trace = &trace
	}
	return rec
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
