package logging

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"central_logger/internal/models"
	"central_logger/internal/utils"
	"central_logger/pkg/logrecord"
)

type fakeWriter struct {
	mu      sync.Mutex
	batches map[string][][]*models.WorkflowLog
	err     error
	block   bool
}

func newFakeWriter() *fakeWriter {
	return &fakeWriter{batches: make(map[string][][]*models.WorkflowLog)}
}

func (w *fakeWriter) WriteBatch(ctx context.Context, tenantID string, logs []*models.WorkflowLog) (string, error) {
	if w.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if w.err != nil {
		return "", w.err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.batches[tenantID] = append(w.batches[tenantID], logs)
	return tenantID + "/batch.jsonl", nil
}

func (w *fakeWriter) tenantBatches(tenantID string) [][]*models.WorkflowLog {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([][]*models.WorkflowLog(nil), w.batches[tenantID]...)
}

func testLog(tenantID string) *models.WorkflowLog {
	log := models.NewWorkflowLog(tenantID, &logrecord.Record{
		Environment: logrecord.EnvProduction,
		ExecutedAt:  time.Date(2025, 12, 24, 10, 30, 0, 0, time.UTC),
		Status:      logrecord.StatusSuccess,
	})
	log.ID = uuid.New()
	return log
}

func quietSink(cfg BatchSinkConfig, w BatchWriter) *BatchSink {
	return NewBatchSink(cfg, w, WithSinkLogger(utils.NewLoggerTo(io.Discard, "archive")))
}

func TestNoopSink(t *testing.T) {
	sink := NewNoopSink()
	sink.Archive(testLog("acme"))

	if err := sink.Shutdown(context.Background()); err != nil {
		t.Errorf("Expected no error from NoopSink.Shutdown, got %v", err)
	}
}

func TestBatchSink_FlushesOnSize(t *testing.T) {
	w := newFakeWriter()
	sink := quietSink(BatchSinkConfig{FlushSize: 2, FlushInterval: time.Hour}, w)

	for i := 0; i < 4; i++ {
		sink.Archive(testLog("acme"))
	}

	assert.Eventually(t, func() bool { return len(w.tenantBatches("acme")) == 2 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, sink.Shutdown(context.Background()))

	for _, batch := range w.tenantBatches("acme") {
		assert.Len(t, batch, 2)
	}
	assert.Equal(t, SinkStats{Archived: 4, Batches: 2}, sink.Stats())
}

func TestBatchSink_GroupsByTenant(t *testing.T) {
	w := newFakeWriter()
	sink := quietSink(BatchSinkConfig{FlushSize: 100, FlushInterval: time.Hour}, w)

	for i := 0; i < 3; i++ {
		sink.Archive(testLog("acme"))
		sink.Archive(testLog("globex"))
	}
	sink.Archive(testLog("acme"))
	require.NoError(t, sink.Shutdown(context.Background()))

	acme := w.tenantBatches("acme")
	require.Len(t, acme, 1)
	assert.Len(t, acme[0], 4)
	for _, log := range acme[0] {
		assert.Equal(t, "acme", log.TenantID)
	}

	globex := w.tenantBatches("globex")
	require.Len(t, globex, 1)
	assert.Len(t, globex[0], 3)
	for _, log := range globex[0] {
		assert.Equal(t, "globex", log.TenantID)
	}
}

func TestBatchSink_FlushesOnInterval(t *testing.T) {
	w := newFakeWriter()
	sink := quietSink(BatchSinkConfig{FlushSize: 100, FlushInterval: 20 * time.Millisecond}, w)
	defer sink.Shutdown(context.Background())

	sink.Archive(testLog("acme"))

	assert.Eventually(t, func() bool { return len(w.tenantBatches("acme")) == 1 }, 2*time.Second, 5*time.Millisecond)
}

func TestBatchSink_WriteFailureCounted(t *testing.T) {
	w := newFakeWriter()
	w.err = errors.New("access denied")
	sink := quietSink(BatchSinkConfig{FlushSize: 100, FlushInterval: time.Hour}, w)

	sink.Archive(testLog("acme"))
	sink.Archive(testLog("acme"))
	require.NoError(t, sink.Shutdown(context.Background()))

	assert.Equal(t, SinkStats{Failed: 2}, sink.Stats())
}

func TestBatchSink_ArchiveNeverBlocks(t *testing.T) {
	w := newFakeWriter()
	w.block = true
	sink := quietSink(BatchSinkConfig{BufferSize: 1, FlushSize: 1, FlushInterval: time.Hour, WriteTimeout: time.Hour}, w)

	start := time.Now()
	for i := 0; i < 10; i++ {
		sink.Archive(testLog("acme"))
	}
	assert.Less(t, time.Since(start), 50*time.Millisecond)
	assert.GreaterOrEqual(t, sink.Stats().Dropped, int64(8))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, sink.Shutdown(ctx), context.DeadlineExceeded)
}

func TestBatchSink_ArchiveAfterShutdown(t *testing.T) {
	w := newFakeWriter()
	sink := quietSink(BatchSinkConfig{}, w)

	require.NoError(t, sink.Shutdown(context.Background()))
	require.NoError(t, sink.Shutdown(context.Background()))

	assert.NotPanics(t, func() { sink.Archive(testLog("acme")) })
	assert.Equal(t, int64(1), sink.Stats().Dropped)
	assert.Empty(t, w.tenantBatches("acme"))
}
