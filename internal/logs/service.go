// Package logs implements ingestion and tenant-scoped querying of workflow logs.
package logs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"central_logger/internal/models"
	"central_logger/internal/storage"
	"central_logger/internal/utils"
	"central_logger/pkg/logrecord"
)

// MaxBatchSize is the largest accepted batch
const MaxBatchSize = 100

// Store is the persistence the service needs; *storage.LogRepository satisfies it.
type Store interface {
	Create(ctx context.Context, tenantID string, log *models.WorkflowLog) error
	CreateBatch(ctx context.Context, tenantID string, logs []*models.WorkflowLog) error
	GetByID(ctx context.Context, tenantID string, id uuid.UUID) (*models.WorkflowLog, error)
	List(ctx context.Context, tenantID string, filter storage.LogFilter, limit, offset int) ([]*models.WorkflowLog, int64, error)
}

// Archiver receives stored logs for secondary, best-effort archival.
// Archive must not block.
type Archiver interface {
	Archive(log *models.WorkflowLog)
}

// Service validates, stores and queries logs
type Service struct {
	store           Store
	archiver        Archiver
	defaultPageSize int
	maxPageSize     int
	logger          *utils.Logger
}

// Option configures a Service
type Option func(*Service)

// WithArchiver mirrors every stored log to a, typically the S3 archive sink
func WithArchiver(a Archiver) Option {
	return func(s *Service) { s.archiver = a }
}

// WithPageSizes overrides the default (50) and maximum (100) page sizes
func WithPageSizes(defaultSize, maxSize int) Option {
	return func(s *Service) {
		if defaultSize > 0 {
			s.defaultPageSize = defaultSize
		}
		if maxSize >= s.defaultPageSize {
			s.maxPageSize = maxSize
		}
	}
}

// NewService creates a log service on top of store
func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:           store,
		defaultPageSize: 50,
		maxPageSize:     100,
		logger:          utils.NewLogger("logs"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) archive(logs ...*models.WorkflowLog) {
	if s.archiver == nil {
		return
	}
	for _, log := range logs {
		s.archiver.Archive(log)
	}
}

// Ingest validates one raw record and stores it for tenantID.
func (s *Service) Ingest(ctx context.Context, tenantID string, raw json.RawMessage) (uuid.UUID, error) {
	if tenantID == "" {
		return uuid.Nil, storage.ErrTenantRequired
	}

	rec, errs := decodeRecord(raw)
	if errs != nil {
		return uuid.Nil, &ValidationError{Errors: errs}
	}

	log := models.NewWorkflowLog(tenantID, rec)
	if err := s.store.Create(ctx, tenantID, log); err != nil {
		return uuid.Nil, fmt.Errorf("failed to store log: %w", err)
	}

	s.logger.Debug("log ingested", "tenant", tenantID, "id", log.ID, "ticket_id", rec.TicketID, "status", rec.Status)
	s.archive(log)
	return log.ID, nil
}

// IngestBatch validates every element before writing any, then stores the
// whole batch atomically. Ids are returned in input order.
func (s *Service) IngestBatch(ctx context.Context, tenantID string, raws []json.RawMessage) ([]uuid.UUID, error) {
	if tenantID == "" {
		return nil, storage.ErrTenantRequired
	}
	if len(raws) == 0 {
		return nil, invalid("logs", "must contain at least one record")
	}
	if len(raws) > MaxBatchSize {
		return nil, invalid("logs", "must contain at most %d records", MaxBatchSize)
	}

	logs := make([]*models.WorkflowLog, 0, len(raws))
	var all []FieldError
	for i, raw := range raws {
		rec, errs := decodeRecord(raw)
		for _, fe := range errs {
			idx := i
			fe.Index = &idx
			all = append(all, fe)
		}
		if errs == nil {
			logs = append(logs, models.NewWorkflowLog(tenantID, rec))
		}
	}
	if len(all) > 0 {
		return nil, &ValidationError{Errors: all}
	}

	if err := s.store.CreateBatch(ctx, tenantID, logs); err != nil {
		return nil, fmt.Errorf("failed to store batch: %w", err)
	}

	ids := make([]uuid.UUID, len(logs))
	for i, log := range logs {
		ids[i] = log.ID
	}

	s.logger.Info("batch ingested", "tenant", tenantID, "count", len(ids))
	s.archive(logs...)
	return ids, nil
}

// Get returns one of tenantID's logs. Malformed ids and other tenants' logs
// yield ErrNotFound.
func (s *Service) Get(ctx context.Context, tenantID, id string) (*models.WorkflowLog, error) {
	if tenantID == "" {
		return nil, storage.ErrTenantRequired
	}
	logID, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrNotFound
	}

	log, err := s.store.GetByID(ctx, tenantID, logID)
	if err != nil {
		if errors.Is(err, storage.ErrLogNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get log: %w", err)
	}
	return log, nil
}

// ListQuery carries list filters and pagination. Zero Page and PageSize
// select the defaults.
type ListQuery struct {
	Environment string
	Status      string
	Category    string
	TicketID    string
	StartDate   *time.Time
	EndDate     *time.Time
	Page        int
	PageSize    int
}

// Pagination describes the returned page
type Pagination struct {
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Total    int64 `json:"total"`
	Pages    int64 `json:"pages"`
}

// Filters echoes the applied filters
type Filters struct {
	Environment *string    `json:"environment"`
	Status      *string    `json:"status"`
	Category    *string    `json:"category"`
	TicketID    *string    `json:"ticket_id"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
}

// ListResult is one page of logs
type ListResult struct {
	Data       []*models.WorkflowLog `json:"data"`
	Pagination Pagination            `json:"pagination"`
	Filters    Filters               `json:"filters"`
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (s *Service) normalize(q ListQuery) (ListQuery, error) {
	var errs []FieldError
	if q.Page == 0 {
		q.Page = 1
	}
	if q.Page < 1 {
		errs = append(errs, FieldError{Field: "page", Message: "must be at least 1"})
	}
	if q.PageSize == 0 {
		q.PageSize = s.defaultPageSize
	}
	if q.PageSize < 1 || q.PageSize > s.maxPageSize {
		errs = append(errs, FieldError{Field: "page_size", Message: fmt.Sprintf("must be between 1 and %d", s.maxPageSize)})
	} else if q.Page > 1 && q.Page-1 > math.MaxInt/q.PageSize {
		// the row offset (page-1)*page_size must fit in an int
		errs = append(errs, FieldError{Field: "page", Message: "is out of range"})
	}
	if q.Environment != "" && !logrecord.ValidEnvironment(q.Environment) {
		errs = append(errs, FieldError{Field: "environment", Message: "must be one of production, staging, development"})
	}
	if q.Status != "" {
		status, ok := logrecord.ParseStatus(q.Status)
		if !ok {
			errs = append(errs, FieldError{Field: "status", Message: "must be one of SUCCESS, ERROR, FAILED, PARTIAL"})
		}
		q.Status = string(status)
	}
	if q.StartDate != nil && q.EndDate != nil && q.EndDate.Before(*q.StartDate) {
		errs = append(errs, FieldError{Field: "end_date", Message: "must not be before start_date"})
	}
	if len(errs) > 0 {
		return q, &ValidationError{Errors: errs}
	}
	return q, nil
}

// List returns a page of tenantID's logs, newest first.
func (s *Service) List(ctx context.Context, tenantID string, q ListQuery) (*ListResult, error) {
	if tenantID == "" {
		return nil, storage.ErrTenantRequired
	}
	q, err := s.normalize(q)
	if err != nil {
		return nil, err
	}

	filter := storage.LogFilter{
		Environment: q.Environment,
		Status:      q.Status,
		Category:    q.Category,
		TicketID:    q.TicketID,
		StartDate:   q.StartDate,
		EndDate:     q.EndDate,
	}
	offset := (q.Page - 1) * q.PageSize

	logs, total, err := s.store.List(ctx, tenantID, filter, q.PageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list logs: %w", err)
	}
	if logs == nil {
		logs = []*models.WorkflowLog{}
	}

	return &ListResult{
		Data: logs,
		Pagination: Pagination{
			Page:     q.Page,
			PageSize: q.PageSize,
			Total:    total,
			Pages:    (total + int64(q.PageSize) - 1) / int64(q.PageSize),
		},
		Filters: Filters{
			Environment: nonEmpty(q.Environment),
			Status:      nonEmpty(q.Status),
			Category:    nonEmpty(q.Category),
			TicketID:    nonEmpty(q.TicketID),
			StartDate:   q.StartDate,
			EndDate:     q.EndDate,
		},
	}, nil
}
