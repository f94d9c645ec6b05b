package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"central_logger/internal/auth"
	"central_logger/internal/config"
	"central_logger/internal/logging"
	"central_logger/internal/logs"
	"central_logger/internal/metrics"
	"central_logger/internal/middleware"
	"central_logger/internal/storage"
	"central_logger/internal/utils"
)

// Dependencies aggregates all services the HTTP layer needs.
type Dependencies struct {
	DB       *storage.DB
	Redis    *redis.Client // nil when REDIS_ADDRESS is unset
	Resolver auth.Resolver
	Logs     *logs.Service
	Metrics  *metrics.Aggregator
	Archive  logging.Sink
}

// NewDependencies connects to the database, the optional Redis cache and the
// optional archive bucket, and builds the services on top of them.
func NewDependencies(ctx context.Context, cfg *config.Config) (*Dependencies, error) {
	dbConfig := storage.DBConfig{
		Driver:              cfg.Database.Driver,
		DSN:                 cfg.Database.URL,
		MaxOpenConns:        cfg.Database.MaxOpenConns,
		MaxIdleConns:        cfg.Database.MaxIdleConns,
		ConnMaxLifetime:     cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime:     cfg.Database.ConnMaxIdleTime,
		QueryTimeout:        cfg.Database.QueryTimeout,
		CredentialCacheSize: cfg.Cache.CredentialCacheSize,
		CredentialCacheTTL:  cfg.Cache.CredentialCacheTTL,
	}

	db, err := storage.NewDB(dbConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	deps := &Dependencies{DB: db}

	if cfg.Redis.Address != "" {
		deps.Redis, err = storage.NewRedisClient(storage.RedisConfig{
			Address:      cfg.Redis.Address,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to initialize Redis: %w", err)
		}
	}

	deps.Archive = logging.NewNoopSink()
	if cfg.Archive.Enabled {
		writer, err := logging.NewS3Writer(ctx, logging.S3Config{
			Bucket:   cfg.Archive.S3Bucket,
			Region:   cfg.Archive.S3Region,
			Prefix:   cfg.Archive.S3Prefix,
			PodName:  cfg.Archive.PodName,
			Endpoint: cfg.Archive.S3Endpoint,
		})
		if err != nil {
			deps.closeClients()
			return nil, fmt.Errorf("failed to initialize archive: %w", err)
		}
		deps.Archive = logging.NewBatchSink(logging.BatchSinkConfig{
			BufferSize:    cfg.Archive.BufferSize,
			FlushSize:     cfg.Archive.FlushSize,
			FlushInterval: cfg.Archive.FlushInterval,
		}, writer)
	}

	deps.Resolver = NewResolver(cfg, db, deps.Redis)
	deps.Logs = logs.NewService(db.NewLogRepository(),
		logs.WithArchiver(deps.Archive),
		logs.WithPageSizes(cfg.Query.DefaultPageSize, cfg.Query.MaxPageSize),
	)
	deps.Metrics = metrics.NewAggregator(db.NewLogRepository())

	return deps, nil
}

// NewResolver selects the credential source. Database lookups are fronted by
// the Redis cache when a client is given.
func NewResolver(cfg *config.Config, db *storage.DB, redisClient *redis.Client) auth.Resolver {
	if cfg.Auth.Source != config.CredentialSourceDatabase {
		return auth.NewStaticResolver(cfg.Auth.Keys)
	}

	var resolver auth.Resolver = NewDatabaseResolver(db.NewCredentialRepository())
	if redisClient != nil {
		resolver = auth.NewCachedResolver(redisClient, resolver, cfg.Redis.CredentialTTL)
	}
	return resolver
}

func (d *Dependencies) closeClients() error {
	var errs []error
	if d.Redis != nil {
		errs = append(errs, d.Redis.Close())
	}
	if d.DB != nil {
		errs = append(errs, d.DB.Close())
	}
	return errors.Join(errs...)
}

// Shutdown flushes the archive and closes every client
func (d *Dependencies) Shutdown(ctx context.Context) error {
	var errs []error
	if d.Archive != nil {
		if err := d.Archive.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("archive shutdown: %w", err))
		}
	}
	errs = append(errs, d.closeClients())
	return errors.Join(errs...)
}

// NewRouter creates an HTTP handler with all dependencies wired up
func NewRouter(ctx context.Context, cfg *config.Config) (http.Handler, *Dependencies, error) {
	deps, err := NewDependencies(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return NewHandler(cfg, deps), deps, nil
}

// NewHandler mounts the API on deps
func NewHandler(cfg *config.Config, deps *Dependencies) http.Handler {
	mux := http.NewServeMux()
	registerRoutes(mux, deps, cfg)

	var handler http.Handler = mux
	handler = middleware.GzipRequestMiddleware(handler)
	handler = middleware.CORSMiddleware(cfg.AllowedOrigins)(handler)
	handler = middleware.RequestLoggerMiddleware(utils.NewLogger("http"))(handler)
	return handler
}

func registerRoutes(mux *http.ServeMux, deps *Dependencies, cfg *config.Config) {
	requireCredential := middleware.CredentialMiddleware(deps.Resolver, cfg.Auth.Header)
	protected := func(h http.HandlerFunc) http.Handler {
		return requireCredential(h)
	}

	logsHandler := NewLogsHandler(deps.Logs)
	mux.Handle("POST /api/v1/logs", protected(logsHandler.Create))
	mux.Handle("POST /api/v1/logs/batch", protected(logsHandler.CreateBatch))
	mux.Handle("GET /api/v1/logs", protected(logsHandler.List))
	mux.Handle("GET /api/v1/logs/{id}", protected(logsHandler.Get))

	metricsHandler := NewMetricsHandler(deps.Metrics)
	mux.Handle("GET /api/v1/metrics/overview", protected(metricsHandler.Overview))
	mux.Handle("GET /api/v1/metrics/categories", protected(metricsHandler.Categories))

	// Health check endpoint - public
	mux.HandleFunc("GET /health", healthHandler(deps.DB, cfg))
}

// HealthResponse reports service liveness
type HealthResponse struct {
	Status      string `json:"status"`
	Service     string `json:"service"`
	Environment string `json:"environment"`
}

func healthHandler(db *storage.DB, cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{Status: "healthy", Service: cfg.ServiceName, Environment: cfg.Environment}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := db.Health(ctx); err != nil {
			resp.Status = "unhealthy"
			utils.RespondWithJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
		utils.RespondWithJSON(w, http.StatusOK, resp)
	}
}
