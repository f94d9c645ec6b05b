// Package logging archives ingested workflow logs to object storage as
// per-tenant JSON Lines batches. Archival is best effort and never blocks
// or fails ingestion.
package logging

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"central_logger/internal/models"
	"central_logger/internal/utils"
)

// Sink receives stored logs for archival.
type Sink interface {
	Archive(log *models.WorkflowLog)
	Shutdown(ctx context.Context) error
}

// NoopSink discards every log.
type NoopSink struct{}

func NewNoopSink() *NoopSink {
	return &NoopSink{}
}

func (s *NoopSink) Archive(log *models.WorkflowLog) {}

func (s *NoopSink) Shutdown(ctx context.Context) error { return nil }

// BatchWriter persists one tenant's batch and returns where it was written.
type BatchWriter interface {
	WriteBatch(ctx context.Context, tenantID string, logs []*models.WorkflowLog) (string, error)
}

// BatchSinkConfig controls buffering of a BatchSink
type BatchSinkConfig struct {
	BufferSize    int           // queued logs before Archive starts dropping
	FlushSize     int           // flush a tenant once it has this many logs
	FlushInterval time.Duration // flush every tenant at least this often
	WriteTimeout  time.Duration // deadline for a single WriteBatch
}

// DefaultBatchSinkConfig returns the default buffering limits
func DefaultBatchSinkConfig() BatchSinkConfig {
	return BatchSinkConfig{
		BufferSize:    10000,
		FlushSize:     1000,
		FlushInterval: 5 * time.Minute,
		WriteTimeout:  30 * time.Second,
	}
}

// SinkStats counts archived, failed and dropped logs
type SinkStats struct {
	Archived int64
	Failed   int64
	Dropped  int64
	Batches  int64
}

// BatchSink groups logs per tenant and hands full or stale groups to a
// BatchWriter from a single background goroutine.
type BatchSink struct {
	cfg    BatchSinkConfig
	writer BatchWriter
	logger *utils.Logger

	logCh   chan *models.WorkflowLog
	doneCh  chan struct{}
	exited  chan struct{}
	ctx     context.Context
	cancel  context.CancelFunc
	pending map[string][]*models.WorkflowLog

	mu     sync.RWMutex
	closed bool

	archived atomic.Int64
	failed   atomic.Int64
	dropped  atomic.Int64
	batches  atomic.Int64
}

// SinkOption configures a BatchSink
type SinkOption func(*BatchSink)

// WithSinkLogger overrides the sink's logger
func WithSinkLogger(l *utils.Logger) SinkOption {
	return func(s *BatchSink) { s.logger = l }
}

// NewBatchSink starts a sink writing through writer
func NewBatchSink(cfg BatchSinkConfig, writer BatchWriter, opts ...SinkOption) *BatchSink {
	def := DefaultBatchSinkConfig()
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = def.BufferSize
	}
	if cfg.FlushSize <= 0 {
		cfg.FlushSize = def.FlushSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = def.FlushInterval
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &BatchSink{
		cfg:     cfg,
		writer:  writer,
		logger:  utils.NewLogger("archive"),
		logCh:   make(chan *models.WorkflowLog, cfg.BufferSize),
		doneCh:  make(chan struct{}),
		exited:  make(chan struct{}),
		ctx:     ctx,
		cancel:  cancel,
		pending: make(map[string][]*models.WorkflowLog),
	}
	for _, opt := range opts {
		opt(s)
	}
	go s.run()
	return s
}

// Archive queues log without blocking. It is dropped when the queue is full
// or the sink is shut down.
func (s *BatchSink) Archive(log *models.WorkflowLog) {
	if log == nil {
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		s.dropped.Add(1)
		return
	}

	select {
	case s.logCh <- log:
	default:
		s.dropped.Add(1)
		s.logger.Warn("archive queue full, dropping log", "tenant", log.TenantID, "id", log.ID)
	}
}

// Shutdown flushes everything queued. If ctx expires first, pending writes
// are cancelled and ctx.Err() is returned.
func (s *BatchSink) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	close(s.doneCh)

	select {
	case <-s.exited:
		s.cancel()
		return nil
	case <-ctx.Done():
		s.cancel()
		<-s.exited
		return ctx.Err()
	}
}

// Stats returns a snapshot of the sink counters
func (s *BatchSink) Stats() SinkStats {
	return SinkStats{
		Archived: s.archived.Load(),
		Failed:   s.failed.Load(),
		Dropped:  s.dropped.Load(),
		Batches:  s.batches.Load(),
	}
}

func (s *BatchSink) run() {
	defer close(s.exited)

	ticker := time.NewTicker(s.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case log := <-s.logCh:
			s.add(log)
		case <-ticker.C:
			s.flushAll()
		case <-s.doneCh:
			for {
				select {
				case log := <-s.logCh:
					s.add(log)
				default:
					s.flushAll()
					return
				}
			}
		}
	}
}

func (s *BatchSink) add(log *models.WorkflowLog) {
	batch := append(s.pending[log.TenantID], log)
	if len(batch) >= s.cfg.FlushSize {
		delete(s.pending, log.TenantID)
		s.flush(log.TenantID, batch)
		return
	}
	s.pending[log.TenantID] = batch
}

func (s *BatchSink) flushAll() {
	for tenantID, batch := range s.pending {
		delete(s.pending, tenantID)
		s.flush(tenantID, batch)
	}
}

func (s *BatchSink) flush(tenantID string, batch []*models.WorkflowLog) {
	if len(batch) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(s.ctx, s.cfg.WriteTimeout)
	defer cancel()

	key, err := s.writer.WriteBatch(ctx, tenantID, batch)
	if err != nil {
		s.failed.Add(int64(len(batch)))
		s.logger.Error("Failed to archive batch", "tenant", tenantID, "count", len(batch), "error", err)
		return
	}
	s.archived.Add(int64(len(batch)))
	s.batches.Add(1)
	s.logger.Debug("Archived batch", "tenant", tenantID, "count", len(batch), "key", key)
}
