package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"central_logger/internal/models"
)

const logColumns = `id, tenant_id, environment, workflow_version, ticket_id, executed_at,
	execution_time_seconds, status, category, resolution_status, metrics, trace, created_at`

const insertLog = `
	INSERT INTO workflow_logs (` + logColumns + `)
	VALUES (:id, :tenant_id, :environment, :workflow_version, :ticket_id, :executed_at,
	        :execution_time_seconds, :status, :category, :resolution_status, :metrics, :trace, :created_at)
`

// LogRepository handles workflow log database operations. Every method is
// scoped to one tenant; no query reads or counts rows of another tenant.
type LogRepository struct {
	db *DB
}

// NewLogRepository creates a new workflow log repository
func NewLogRepository(db *DB) *LogRepository {
	return &LogRepository{db: db}
}

// LogFilter narrows List. Zero fields are ignored.
type LogFilter struct {
	Environment string
	Status      string
	Category    string
	TicketID    string
	StartDate   *time.Time
	EndDate     *time.Time
}

// LogSummary aggregates a tenant's logs in a window
type LogSummary struct {
	Total            int64           `db:"total"`
	SuccessCount     int64           `db:"success_count"`
	ErrorCount       int64           `db:"error_count"`
	AvgExecutionTime sql.NullFloat64 `db:"avg_execution_time"`
}

// CategoryCount is one row of CategoryBreakdown. Category is NULL for logs
// stored without one.
type CategoryCount struct {
	Category     sql.NullString `db:"category"`
	Count        int64          `db:"count"`
	SuccessCount int64          `db:"success_count"`
}

func (r *LogRepository) prepare(tenantID string, log *models.WorkflowLog, now time.Time) {
	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}
	log.TenantID = tenantID
	log.ExecutedAt = log.ExecutedAt.UTC()
	if log.CreatedAt.IsZero() {
		log.CreatedAt = now
	}
	log.CreatedAt = log.CreatedAt.UTC()
}

// Create inserts one log for tenantID, assigning its id and creation time.
// Any tenant already set on log is overwritten.
func (r *LogRepository) Create(ctx context.Context, tenantID string, log *models.WorkflowLog) error {
	if tenantID == "" {
		return ErrTenantRequired
	}
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	r.prepare(tenantID, log, time.Now())

	if _, err := r.db.conn.NamedExecContext(ctx, insertLog, log); err != nil {
		return fmt.Errorf("failed to create log: %w", err)
	}
	return nil
}

// CreateBatch inserts all logs in one transaction: either every log is
// stored or none is.
func (r *LogRepository) CreateBatch(ctx context.Context, tenantID string, logs []*models.WorkflowLog) (err error) {
	if tenantID == "" {
		return ErrTenantRequired
	}
	if len(logs) == 0 {
		return nil
	}
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareNamedContext(ctx, insertLog)
	if err != nil {
		return fmt.Errorf("failed to prepare batch insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for i, log := range logs {
		r.prepare(tenantID, log, now)
		if _, err = stmt.ExecContext(ctx, log); err != nil {
			return fmt.Errorf("failed to insert log %d of batch: %w", i, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	return nil
}

// GetByID retrieves a log of tenantID. Logs of other tenants are reported
// as ErrLogNotFound.
func (r *LogRepository) GetByID(ctx context.Context, tenantID string, id uuid.UUID) (*models.WorkflowLog, error) {
	if tenantID == "" {
		return nil, ErrTenantRequired
	}
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var log models.WorkflowLog
	query := r.db.conn.Rebind(`
		SELECT ` + logColumns + `
		FROM workflow_logs
		WHERE tenant_id = ? AND id = ?
	`)

	err := r.db.conn.GetContext(ctx, &log, query, tenantID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLogNotFound
		}
		return nil, fmt.Errorf("failed to get log: %w", err)
	}

	return &log, nil
}

func logWhere(tenantID string, filter LogFilter) (string, []interface{}) {
	clauses := []string{"tenant_id = ?"}
	args := []interface{}{tenantID}

	if filter.Environment != "" {
		clauses = append(clauses, "environment = ?")
		args = append(args, filter.Environment)
	}
	if filter.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.Category != "" {
		clauses = append(clauses, "category = ?")
		args = append(args, filter.Category)
	}
	if filter.TicketID != "" {
		clauses = append(clauses, "ticket_id = ?")
		args = append(args, filter.TicketID)
	}
	if filter.StartDate != nil {
		clauses = append(clauses, "executed_at >= ?")
		args = append(args, filter.StartDate.UTC())
	}
	if filter.EndDate != nil {
		clauses = append(clauses, "executed_at <= ?")
		args = append(args, filter.EndDate.UTC())
	}

	return "WHERE " + strings.Join(clauses, " AND "), args
}

// List returns one page of a tenant's logs, newest first, and the total
// number of logs matching filter.
func (r *LogRepository) List(ctx context.Context, tenantID string, filter LogFilter, limit, offset int) ([]*models.WorkflowLog, int64, error) {
	if tenantID == "" {
		return nil, 0, ErrTenantRequired
	}
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	where, args := logWhere(tenantID, filter)

	var total int64
	countQuery := r.db.conn.Rebind("SELECT COUNT(*) FROM workflow_logs " + where)
	if err := r.db.conn.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count logs: %w", err)
	}

	logs := []*models.WorkflowLog{}
	if total == 0 || int64(offset) >= total {
		return logs, total, nil
	}

	query := r.db.conn.Rebind(`
		SELECT ` + logColumns + `
		FROM workflow_logs ` + where + `
		ORDER BY executed_at DESC, id DESC
		LIMIT ? OFFSET ?
	`)
	args = append(args, limit, offset)

	if err := r.db.conn.SelectContext(ctx, &logs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list logs: %w", err)
	}

	return logs, total, nil
}

// Summary aggregates a tenant's logs executed at or after since.
func (r *LogRepository) Summary(ctx context.Context, tenantID string, since time.Time) (*LogSummary, error) {
	if tenantID == "" {
		return nil, ErrTenantRequired
	}
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	query := r.db.conn.Rebind(`
		SELECT
			COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN status = 'SUCCESS' THEN 1 ELSE 0 END), 0) AS success_count,
			COALESCE(SUM(CASE WHEN status IN ('ERROR', 'FAILED') THEN 1 ELSE 0 END), 0) AS error_count,
			AVG(execution_time_seconds) AS avg_execution_time
		FROM workflow_logs
		WHERE tenant_id = ? AND executed_at >= ?
	`)

	var summary LogSummary
	if err := r.db.conn.GetContext(ctx, &summary, query, tenantID, since.UTC()); err != nil {
		return nil, fmt.Errorf("failed to summarize logs: %w", err)
	}
	return &summary, nil
}

// CategoryBreakdown counts a tenant's logs per category since the given time,
// most frequent first.
func (r *LogRepository) CategoryBreakdown(ctx context.Context, tenantID string, since time.Time) ([]CategoryCount, error) {
	if tenantID == "" {
		return nil, ErrTenantRequired
	}
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	query := r.db.conn.Rebind(`
		SELECT
			category,
			COUNT(*) AS count,
			COALESCE(SUM(CASE WHEN status = 'SUCCESS' THEN 1 ELSE 0 END), 0) AS success_count
		FROM workflow_logs
		WHERE tenant_id = ? AND executed_at >= ?
		GROUP BY category
		ORDER BY count DESC, category
	`)

	var rows []CategoryCount
	if err := r.db.conn.SelectContext(ctx, &rows, query, tenantID, since.UTC()); err != nil {
		return nil, fmt.Errorf("failed to break down categories: %w", err)
	}
	return rows, nil
}
