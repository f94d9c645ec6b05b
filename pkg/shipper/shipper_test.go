package shipper

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"central_logger/internal/utils"
	"central_logger/pkg/logrecord"
)

func testRecord(ticket string) *logrecord.Record {
	return &logrecord.Record{
		Environment: logrecord.EnvProduction,
		TicketID:    ticket,
		ExecutedAt:  time.Date(2025, 12, 24, 10, 30, 0, 0, time.UTC),
		Status:      logrecord.StatusSuccess,
		Category:    "billing_issue",
	}
}

func quietLogger() *utils.Logger {
	return utils.NewLoggerTo(io.Discard, "shipper")
}

func closeWithin(t *testing.T, s *Shipper, d time.Duration) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	return s.Close(ctx)
}

func TestDeliver_Success(t *testing.T) {
	var (
		mu       sync.Mutex
		received []logrecord.Record
		keys     []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, IngestPath, r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var rec logrecord.Record
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&rec)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		mu.Lock()
		received = append(received, rec)
		keys = append(keys, r.Header.Get("X-API-Key"))
		mu.Unlock()
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	s := New(Config{BaseURL: srv.URL + "/", APIKey: "key-1", Enabled: true}, WithLogger(quietLogger()))
	s.Deliver(testRecord("T-1"))
	require.NoError(t, closeWithin(t, s, 5*time.Second))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 1)
	assert.Equal(t, "T-1", received[0].TicketID)
	assert.Equal(t, "key-1", keys[0])
	assert.Equal(t, Stats{Sent: 1}, s.Stats())
}

func TestDeliver_ReturnsImmediatelyWhenCollectorHangs(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	s := New(Config{BaseURL: srv.URL, Enabled: true}, WithLogger(quietLogger()))

	start := time.Now()
	for i := 0; i < 10; i++ {
		s.Deliver(testRecord("T-slow"))
	}
	assert.Less(t, time.Since(start), 50*time.Millisecond)

	err := closeWithin(t, s, 100*time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDeliver_UnreachableCollector(t *testing.T) {
	s := New(Config{BaseURL: "http://127.0.0.1:1", Enabled: true, Timeout: time.Second}, WithLogger(quietLogger()))

	start := time.Now()
	s.Deliver(testRecord("T-1"))
	assert.Less(t, time.Since(start), 50*time.Millisecond)

	require.NoError(t, closeWithin(t, s, 5*time.Second))
	assert.Equal(t, int64(1), s.Stats().Failed)
}

func TestDeliver_NoRetryOnServerError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := New(Config{BaseURL: srv.URL, Enabled: true}, WithLogger(quietLogger()))
	s.Deliver(testRecord("T-1"))
	require.NoError(t, closeWithin(t, s, 5*time.Second))

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, Stats{Failed: 1}, s.Stats())
}

func TestDeliver_TimeoutCountsAsFailure(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	s := New(Config{BaseURL: srv.URL, Enabled: true, Timeout: 50 * time.Millisecond}, WithLogger(quietLogger()))
	s.Deliver(testRecord("T-1"))
	require.NoError(t, closeWithin(t, s, 5*time.Second))

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, int64(1), s.Stats().Failed)
}

func TestDeliver_QueueFullDrops(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	s := New(Config{BaseURL: srv.URL, Enabled: true, Workers: 1, QueueSize: 1}, WithLogger(quietLogger()))
	for i := 0; i < 5; i++ {
		s.Deliver(testRecord("T-full"))
	}
	assert.GreaterOrEqual(t, s.Stats().Dropped, int64(3))

	_ = closeWithin(t, s, 50*time.Millisecond)
}

func TestDeliver_Disabled(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	s := New(Config{BaseURL: srv.URL, Enabled: false}, WithLogger(quietLogger()))
	assert.False(t, s.Enabled())
	s.Deliver(testRecord("T-1"))
	require.NoError(t, closeWithin(t, s, time.Second))

	assert.Equal(t, int32(0), calls.Load())

	noURL := New(Config{Enabled: true}, WithLogger(quietLogger()))
	assert.False(t, noURL.Enabled())
}

func TestDeliver_AfterCloseIsDropped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	s := New(Config{BaseURL: srv.URL, Enabled: true}, WithLogger(quietLogger()))
	require.NoError(t, closeWithin(t, s, time.Second))
	require.NoError(t, closeWithin(t, s, time.Second))

	assert.NotPanics(t, func() { s.Deliver(testRecord("T-late")) })
	assert.Equal(t, int64(1), s.Stats().Dropped)
}

func TestDeliver_Gzip(t *testing.T) {
	got := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "gzip", r.Header.Get("Content-Encoding"))
		var rec logrecord.Record
		zr, err := gzip.NewReader(r.Body)
		if assert.NoError(t, err) {
			assert.NoError(t, json.NewDecoder(zr).Decode(&rec))
		}
		got <- rec.TicketID
	}))
	defer srv.Close()

	s := New(Config{BaseURL: srv.URL, Enabled: true, Compress: true}, WithLogger(quietLogger()))
	s.Deliver(testRecord("T-gz"))
	require.NoError(t, closeWithin(t, s, 5*time.Second))

	assert.Equal(t, "T-gz", <-got)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "workflow.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[central_logger]
base_url = "https://logs.example.com/"
api_key = "file-key"
enabled = true
timeout = "3s"
workers = 2
`), 0o600))

	t.Setenv("CENTRAL_LOGGER_API_KEY", "env-key")
	t.Setenv("CENTRAL_LOGGER_TENANT_ID", "acme")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "https://logs.example.com", cfg.BaseURL)
	assert.Equal(t, "https://logs.example.com/api/v1/logs", cfg.Endpoint())
	assert.Equal(t, "env-key", cfg.APIKey)
	assert.Equal(t, "acme", cfg.TenantID)
	assert.True(t, cfg.Enabled)
	assert.Equal(t, 3*time.Second, cfg.Timeout)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, DefaultQueueSize, cfg.QueueSize)
	assert.Equal(t, DefaultAPIKeyHeader, cfg.APIKeyHeader)
}

func TestLoadConfig_MissingFileAndBadEnv(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.False(t, cfg.Enabled)
	assert.Equal(t, DefaultTimeout, cfg.Timeout)

	t.Setenv("CENTRAL_LOGGER_ENABLED", "maybe")
	_, err = LoadConfig("")
	assert.Error(t, err)
}
