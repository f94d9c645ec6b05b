// Package metrics computes windowed, tenant-scoped aggregates over stored logs.
package metrics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"central_logger/internal/storage"
)

const (
	DefaultDays = 7
	MaxDays     = 90

	// Uncategorized names logs stored without a category
	Uncategorized = "uncategorized"
)

// ValidationError reports an out-of-range query parameter
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

// Store is the aggregate access the aggregator needs; *storage.LogRepository satisfies it.
type Store interface {
	Summary(ctx context.Context, tenantID string, since time.Time) (*storage.LogSummary, error)
	CategoryBreakdown(ctx context.Context, tenantID string, since time.Time) ([]storage.CategoryCount, error)
}

// Overview summarizes a tenant's executions in the window
type Overview struct {
	Total            int64   `json:"total"`
	SuccessRate      float64 `json:"success_rate"`
	AvgExecutionTime float64 `json:"avg_execution_time"`
	ErrorCount       int64   `json:"error_count"`
	PeriodDays       int     `json:"period_days"`
}

// CategoryStats is one category's share of the window
type CategoryStats struct {
	Category     string  `json:"category"`
	Count        int64   `json:"count"`
	SuccessCount int64   `json:"success_count"`
	SuccessRate  float64 `json:"success_rate"`
}

// CategoryReport lists categories by descending count
type CategoryReport struct {
	Data       []CategoryStats `json:"data"`
	PeriodDays int             `json:"period_days"`
}

// Aggregator computes overview and category metrics
type Aggregator struct {
	store Store
	now   func() time.Time
}

// Option configures an Aggregator
type Option func(*Aggregator)

// WithClock replaces time.Now, which anchors the window
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// NewAggregator creates an aggregator over store
func NewAggregator(store Store, opts ...Option) *Aggregator {
	a := &Aggregator{store: store, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// window validates days (0 selects DefaultDays) and returns the window start
func (a *Aggregator) window(days int) (int, time.Time, error) {
	if days == 0 {
		days = DefaultDays
	}
	if days < 1 || days > MaxDays {
		return 0, time.Time{}, &ValidationError{Field: "days", Message: fmt.Sprintf("must be between 1 and %d", MaxDays)}
	}
	return days, a.now().UTC().Add(-time.Duration(days) * 24 * time.Hour), nil
}

func rate(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return 100 * float64(part) / float64(total)
}

// Overview aggregates tenantID's logs executed in the last days days.
func (a *Aggregator) Overview(ctx context.Context, tenantID string, days int) (*Overview, error) {
	days, since, err := a.window(days)
	if err != nil {
		return nil, err
	}

	summary, err := a.store.Summary(ctx, tenantID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to compute overview: %w", err)
	}

	overview := &Overview{
		Total:       summary.Total,
		SuccessRate: rate(summary.SuccessCount, summary.Total),
		ErrorCount:  summary.ErrorCount,
		PeriodDays:  days,
	}
	if summary.AvgExecutionTime.Valid {
		overview.AvgExecutionTime = summary.AvgExecutionTime.Float64
	}
	return overview, nil
}

// Categories breaks tenantID's logs of the last days days down by category.
func (a *Aggregator) Categories(ctx context.Context, tenantID string, days int) (*CategoryReport, error) {
	days, since, err := a.window(days)
	if err != nil {
		return nil, err
	}

	rows, err := a.store.CategoryBreakdown(ctx, tenantID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to compute categories: %w", err)
	}

	// NULL and a literal "uncategorized" fold into one entry
	byName := make(map[string]*CategoryStats, len(rows))
	for _, row := range rows {
		name := Uncategorized
		if row.Category.Valid && row.Category.String != "" {
			name = row.Category.String
		}
		stats, ok := byName[name]
		if !ok {
			stats = &CategoryStats{Category: name}
			byName[name] = stats
		}
		stats.Count += row.Count
		stats.SuccessCount += row.SuccessCount
	}

	data := make([]CategoryStats, 0, len(byName))
	for _, stats := range byName {
		stats.SuccessRate = rate(stats.SuccessCount, stats.Count)
		data = append(data, *stats)
	}
	sort.Slice(data, func(i, j int) bool {
		if data[i].Count != data[j].Count {
			return data[i].Count > data[j].Count
		}
		return data[i].Category < data[j].Category
	})

	return &CategoryReport{Data: data, PeriodDays: days}, nil
}
