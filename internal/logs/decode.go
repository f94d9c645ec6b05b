package logs

import (
	"errors"
	"fmt"
	"math"
	"time"
	"unicode/utf8"

	"central_logger/pkg/logrecord"
)

// payloadLimits bounds the whole request object; the trace sits one level
// below the root, so its own depth bound stays at DefaultLimits.MaxDepth.
var payloadLimits = logrecord.Limits{
	MaxDepth:     logrecord.DefaultLimits.MaxDepth + 1,
	MaxNodes:     logrecord.DefaultLimits.MaxNodes + logrecord.MaxMetrics + 16,
	MaxStringLen: logrecord.DefaultLimits.MaxStringLen,
}

// naive timestamps are read as UTC
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// ParseTimestamp reads an RFC 3339 timestamp; values without an offset are UTC.
func ParseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

type decoder struct {
	root logrecord.Value
	errs []FieldError
}

func (d *decoder) fail(field, format string, args ...any) {
	d.errs = append(d.errs, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

// member returns a present, non-null field
func (d *decoder) member(field string) (logrecord.Value, bool) {
	v, ok := d.root.Get(field)
	if !ok || v.IsNull() {
		return logrecord.Value{}, false
	}
	return v, true
}

func (d *decoder) requiredString(field string) (string, bool) {
	v, ok := d.member(field)
	if !ok {
		d.fail(field, "is required")
		return "", false
	}
	if v.Kind() != logrecord.KindString {
		d.fail(field, "must be a string")
		return "", false
	}
	return v.AsString(), true
}

func (d *decoder) optionalString(field string, maxLen int) string {
	v, ok := d.member(field)
	if !ok {
		return ""
	}
	if v.Kind() != logrecord.KindString {
		d.fail(field, "must be a string")
		return ""
	}
	s := v.AsString()
	if utf8.RuneCountInString(s) > maxLen {
		d.fail(field, "must be at most %d characters", maxLen)
		return ""
	}
	return s
}

// decodeRecord validates one JSON object and converts it into a record.
// Any tenant field in the payload is ignored.
func decodeRecord(raw []byte) (*logrecord.Record, []FieldError) {
	root, err := logrecord.Parse(raw, payloadLimits)
	if err != nil {
		var limitErr *logrecord.LimitError
		if errors.As(err, &limitErr) {
			return nil, []FieldError{{Field: "body", Message: limitErr.Error()}}
		}
		return nil, []FieldError{{Field: "body", Message: "must be valid JSON"}}
	}
	if root.Kind() != logrecord.KindObject {
		return nil, []FieldError{{Field: "body", Message: "must be a JSON object"}}
	}

	d := &decoder{root: root}
	rec := &logrecord.Record{}

	if env, ok := d.requiredString("environment"); ok {
		if !logrecord.ValidEnvironment(env) {
			d.fail("environment", "must be one of production, staging, development")
		}
		rec.Environment = env
	}

	if s, ok := d.requiredString("executed_at"); ok {
		t, ok := ParseTimestamp(s)
		if !ok {
			d.fail("executed_at", "must be an RFC 3339 timestamp")
		}
		rec.ExecutedAt = t
	}

	if s, ok := d.requiredString("status"); ok {
		status, ok := logrecord.ParseStatus(s)
		if !ok {
			d.fail("status", "must be one of SUCCESS, ERROR, FAILED, PARTIAL")
		}
		rec.Status = status
	}

	rec.WorkflowVersion = d.optionalString("workflow_version", logrecord.MaxWorkflowVersionLen)
	rec.TicketID = d.optionalString("ticket_id", logrecord.MaxTicketIDLen)
	rec.Category = d.optionalString("category", logrecord.MaxCategoryLen)
	rec.ResolutionStatus = d.optionalString("resolution_status", logrecord.MaxResolutionStatusLen)

	if v, ok := d.member("execution_time_seconds"); ok {
		switch {
		case v.Kind() != logrecord.KindNumber:
			d.fail("execution_time_seconds", "must be a number")
		case math.IsNaN(v.AsNumber()) || math.IsInf(v.AsNumber(), 0):
			d.fail("execution_time_seconds", "must be a finite number")
		case v.AsNumber() < 0:
			d.fail("execution_time_seconds", "must not be negative")
		case v.AsNumber() > logrecord.MaxExecutionTimeSeconds:
			d.fail("execution_time_seconds", "must be at most %g", float64(logrecord.MaxExecutionTimeSeconds))
		default:
			secs := v.AsNumber()
			rec.ExecutionTimeSeconds = &secs
		}
	}

	if v, ok := d.member("metrics"); ok {
		rec.Metrics = d.metrics(v)
	}

	trace, ok := d.member("trace")
	if !ok {
		trace, ok = d.member("payload")
	}
	if ok {
		rec.Trace = &trace
	}

	if len(d.errs) > 0 {
		return nil, d.errs
	}
	return rec, nil
}

func (d *decoder) metrics(v logrecord.Value) logrecord.Metrics {
	if v.Kind() != logrecord.KindObject {
		d.fail("metrics", "must be an object")
		return nil
	}
	fields := v.Fields()
	if len(fields) > logrecord.MaxMetrics {
		d.fail("metrics", "must have at most %d entries", logrecord.MaxMetrics)
		return nil
	}
	out := make(logrecord.Metrics, len(fields))
	for key, m := range fields {
		if !m.IsScalar() {
			d.fail("metrics."+key, "must be a number, string, boolean or null")
			continue
		}
		out[key] = m
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
