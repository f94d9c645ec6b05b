// Package shipper delivers records to the collector without ever blocking
// or failing the producing workflow. Delivery is at-most-once.
package shipper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/klauspost/compress/gzip"

	"central_logger/internal/utils"
	"central_logger/pkg/logrecord"
)

// TransportError describes a failed delivery attempt.
type TransportError struct {
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("delivery failed: %v", e.Err)
	}
	return fmt.Sprintf("delivery failed: collector returned %d", e.StatusCode)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Stats counts delivery outcomes since the shipper was created.
type Stats struct {
	Sent    int64
	Failed  int64
	Dropped int64
}

// Shipper owns a bounded queue drained by a fixed set of workers.
type Shipper struct {
	cfg    Config
	client *http.Client
	logger *utils.Logger

	tasks  chan *logrecord.Record
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.RWMutex
	closed bool

	sent    atomic.Int64
	failed  atomic.Int64
	dropped atomic.Int64
}

// Option configures a Shipper.
type Option func(*Shipper)

// WithHTTPClient overrides the HTTP client. Its Timeout is not needed: every
// request carries its own deadline.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Shipper) { s.client = c }
}

// WithLogger overrides the diagnostics logger.
func WithLogger(l *utils.Logger) Option {
	return func(s *Shipper) { s.logger = l }
}

// New starts the workers. A shipper with Enabled false or no BaseURL accepts
// and discards every record.
func New(cfg Config, opts ...Option) *Shipper {
	cfg.normalize()

	ctx, cancel := context.WithCancel(context.Background())
	s := &Shipper{
		cfg:    cfg,
		client: &http.Client{},
		logger: utils.NewLogger("shipper"),
		ctx:    ctx,
		cancel: cancel,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.cfg.Enabled && s.cfg.BaseURL == "" {
		s.logger.Warn("delivery disabled: no collector URL configured")
		s.cfg.Enabled = false
	}
	if !s.cfg.Enabled {
		return s
	}

	s.tasks = make(chan *logrecord.Record, s.cfg.QueueSize)
	for i := 0; i < s.cfg.Workers; i++ {
		s.wg.Add(1)
		go s.worker()
	}
	return s
}

// Enabled reports whether records are actually sent.
func (s *Shipper) Enabled() bool { return s.cfg.Enabled }

// Deliver enqueues rec and returns immediately. The record is dropped when the
// shipper is disabled, closed, or its queue is full. rec must not be modified
// after the call.
func (s *Shipper) Deliver(rec *logrecord.Record) {
	if rec == nil || !s.cfg.Enabled {
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		s.dropped.Add(1)
		s.logger.Debug("shipper closed, dropping record", "ticket_id", rec.TicketID)
		return
	}

	select {
	case s.tasks <- rec:
	default:
		s.dropped.Add(1)
		s.logger.Warn("delivery queue full, dropping record",
			"ticket_id", rec.TicketID,
			"tenant", s.cfg.TenantID,
			"queue_size", s.cfg.QueueSize,
		)
	}
}

// Close stops accepting records and waits for queued ones to be attempted.
// If ctx expires first, in-flight requests are cancelled and ctx.Err() is
// returned.
func (s *Shipper) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	if s.tasks != nil {
		close(s.tasks)
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.cancel()
		return nil
	case <-ctx.Done():
		s.cancel()
		<-done
		return ctx.Err()
	}
}

// Stats returns a snapshot of the delivery counters.
func (s *Shipper) Stats() Stats {
	return Stats{
		Sent:    s.sent.Load(),
		Failed:  s.failed.Load(),
		Dropped: s.dropped.Load(),
	}
}

func (s *Shipper) worker() {
	defer s.wg.Done()
	for rec := range s.tasks {
		s.send(rec)
	}
}

func (s *Shipper) send(rec *logrecord.Record) {
	ctx, cancel := context.WithTimeout(s.ctx, s.cfg.Timeout)
	defer cancel()

	if err := s.post(ctx, rec); err != nil {
		s.failed.Add(1)
		s.logger.Warn("failed to deliver record",
			"ticket_id", rec.TicketID,
			"tenant", s.cfg.TenantID,
			"error", err,
		)
		return
	}
	s.sent.Add(1)
	s.logger.Debug("record delivered", "ticket_id", rec.TicketID)
}

func (s *Shipper) post(ctx context.Context, rec *logrecord.Record) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}

	encoding := ""
	if s.cfg.Compress {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		if _, err := zw.Write(body); err != nil {
			return fmt.Errorf("failed to compress record: %w", err)
		}
		if err := zw.Close(); err != nil {
			return fmt.Errorf("failed to compress record: %w", err)
		}
		body = buf.Bytes()
		encoding = "gzip"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.Endpoint(), bytes.NewReader(body))
	if err != nil {
		return &TransportError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if encoding != "" {
		req.Header.Set("Content-Encoding", encoding)
	}
	if s.cfg.APIKey != "" {
		req.Header.Set(s.cfg.APIKeyHeader, s.cfg.APIKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &TransportError{StatusCode: resp.StatusCode}
	}
	return nil
}
