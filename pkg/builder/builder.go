// Package builder turns the state of a finished workflow execution into a
// logrecord.Record. Building is pure: no network or disk access.
package builder

import (
	"encoding/json"
	"time"

	"central_logger/pkg/logrecord"
	"central_logger/pkg/privacy"
)

// ExecutionState is what the producing workflow knows once a ticket run ends.
type ExecutionState struct {
	TicketID         string
	Category         string
	Status           logrecord.Status
	ResolutionStatus string

	StartedAt  time.Time
	EndedAt    time.Time
	ExecutedAt time.Time

	// PII, hashed before inclusion
	RequesterEmail string
	RequesterName  string
	Subject        string

	// Metrics are copied when scalar; anything else is dropped. Keys go
	// through the sanitizer like trace fields.
	Metrics map[string]any

	// Trace is the decision trace, sanitized and depth-bounded.
	Trace any

	// Attributes are extra context fields; they go through the sanitizer.
	Attributes map[string]string
}

// Builder holds the per-deployment settings that are stamped on every record.
type Builder struct {
	Environment     string
	WorkflowVersion string
	Sanitizer       *privacy.Sanitizer
	MaxTraceDepth   int
}

// New returns a builder with the default trace depth bound.
func New(environment, workflowVersion string, sanitizer *privacy.Sanitizer) *Builder {
	return &Builder{
		Environment:     environment,
		WorkflowVersion: workflowVersion,
		Sanitizer:       sanitizer,
		MaxTraceDepth:   logrecord.DefaultLimits.MaxDepth - 2,
	}
}

// Build constructs the record for state. Fields are cut to the limits the
// collector enforces, so a valid state never produces a rejected record.
func (b *Builder) Build(state ExecutionState) *logrecord.Record {
	s := b.sanitizer()
	rec := &logrecord.Record{
		Environment:          b.Environment,
		WorkflowVersion:      logrecord.Truncate(b.WorkflowVersion, logrecord.MaxWorkflowVersionLen),
		TicketID:             logrecord.Truncate(state.TicketID, logrecord.MaxTicketIDLen),
		ExecutedAt:           executedAt(state).UTC(),
		ExecutionTimeSeconds: duration(state.StartedAt, state.EndedAt),
		Status:               state.Status,
		Category:             logrecord.Truncate(state.Category, logrecord.MaxCategoryLen),
		ResolutionStatus:     logrecord.Truncate(state.ResolutionStatus, logrecord.MaxResolutionStatusLen),
		Metrics:              scalarMetrics(s, state.Metrics),
	}

	if trace, ok := b.trace(s, state); ok {
		rec.Trace = &trace
		fitTrace(rec)
	}
	return rec
}

// fitTrace drops the trace steps, then the whole trace, while the encoded
// record is larger than the collector accepts.
func fitTrace(rec *logrecord.Record) {
	if encodedLen(rec) <= logrecord.MaxRecordBytes {
		return
	}
	if fields, ok := rec.Trace.Get("context"); ok {
		trace := logrecord.Object(map[string]logrecord.Value{
			"context": fields,
			"steps":   logrecord.String(logrecord.Truncated),
		})
		rec.Trace = &trace
		if encodedLen(rec) <= logrecord.MaxRecordBytes {
			return
		}
	}
	rec.Trace = nil
}

func encodedLen(rec *logrecord.Record) int {
	data, err := json.Marshal(rec)
	if err != nil {
		return logrecord.MaxRecordBytes + 1
	}
	return len(data)
}

func executedAt(state ExecutionState) time.Time {
	switch {
	case !state.ExecutedAt.IsZero():
		return state.ExecutedAt
	case !state.EndedAt.IsZero():
		return state.EndedAt
	}
	return state.StartedAt
}

func duration(start, end time.Time) *float64 {
	if start.IsZero() || end.IsZero() {
		return nil
	}
	secs := end.Sub(start).Seconds()
	switch {
	case secs < 0:
		secs = 0
	case secs > logrecord.MaxExecutionTimeSeconds:
		secs = logrecord.MaxExecutionTimeSeconds
	}
	return &secs
}

// metricLimits keeps the first MaxMetrics keys in sorted order.
var metricLimits = logrecord.Limits{
	MaxDepth:     2,
	MaxNodes:     logrecord.MaxMetrics + 1,
	MaxStringLen: logrecord.DefaultLimits.MaxStringLen,
}

func scalarMetrics(s *privacy.Sanitizer, in map[string]any) logrecord.Metrics {
	if len(in) == 0 {
		return nil
	}
	scalars := make(map[string]logrecord.Value, len(in))
	for k, raw := range in {
		v := logrecord.FromAny(raw, 1)
		if v.IsScalar() {
			scalars[k] = v
		}
	}

	clean := logrecord.Clamp(s.SanitizeValue(logrecord.Object(scalars)), metricLimits)
	out := make(logrecord.Metrics, len(clean.Fields()))
	for k, v := range clean.Fields() {
		out[k] = v
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func (b *Builder) sanitizer() *privacy.Sanitizer {
	if b.Sanitizer != nil {
		return b.Sanitizer
	}
	return unsalted
}

// unsalted still enforces the deny-list and hashing rules when a builder is
// created without a sanitizer.
var unsalted = privacy.New("")

func (b *Builder) trace(s *privacy.Sanitizer, state ExecutionState) (logrecord.Value, bool) {
	fields := make(map[string]logrecord.Value)

	ctxFields := make(map[string]string, len(state.Attributes)+3)
	for k, v := range state.Attributes {
		ctxFields[k] = v
	}
	ctxFields[privacy.FieldRequesterEmail] = state.RequesterEmail
	ctxFields[privacy.FieldRequesterName] = state.RequesterName
	ctxFields[privacy.FieldSubject] = state.Subject

	if sanitized := s.SanitizeFields(ctxFields); len(sanitized) > 0 {
		fields["context"] = logrecord.FromAny(sanitized, 0)
	}

	if state.Trace != nil {
		fields["steps"] = s.SanitizeValue(logrecord.FromAny(state.Trace, b.MaxTraceDepth))
	}

	if len(fields) == 0 {
		return logrecord.Value{}, false
	}
	return logrecord.Clamp(logrecord.Object(fields), logrecord.DefaultLimits), true
}
