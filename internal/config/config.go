package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Credential sources
const (
	CredentialSourceStatic   = "static"
	CredentialSourceDatabase = "database"
)

// Config holds configuration for the collector.
type Config struct {
	HTTPPort       string
	ServiceName    string
	Environment    string
	AllowedOrigins []string
	Database       DatabaseConfig
	Auth           AuthConfig
	Cache          CacheConfig
	Redis          RedisConfig
	Query          QueryConfig
	Archive        ArchiveConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver          string // "postgres" or "sqlite"
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	QueryTimeout    time.Duration
}

// AuthConfig selects where credentials are resolved from
type AuthConfig struct {
	Header string
	Source string            // "static" or "database"
	Keys   map[string]string // token -> tenant, static source only
}

// CacheConfig holds in-process cache settings
type CacheConfig struct {
	CredentialCacheSize int
	CredentialCacheTTL  time.Duration
}

// RedisConfig holds Redis connection settings. An empty Address disables
// the Redis credential cache.
type RedisConfig struct {
	Address       string
	Password      string
	DB            int
	PoolSize      int
	MinIdleConns  int
	DialTimeout   time.Duration
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	CredentialTTL time.Duration
}

// QueryConfig bounds list pagination
type QueryConfig struct {
	DefaultPageSize int
	MaxPageSize     int
}

// ArchiveConfig holds configuration for the S3 archive of ingested records
type ArchiveConfig struct {
	Enabled       bool          // Whether to mirror records to S3
	BufferSize    int           // In-memory queue size
	FlushSize     int           // Flush a tenant after this many records
	FlushInterval time.Duration // Flush everything after this duration
	S3Bucket      string
	S3Region      string
	S3Prefix      string // Prefix for S3 keys (e.g., "archive/")
	S3Endpoint    string // Optional S3-compatible endpoint (e.g., MinIO)
	PodName       string // Pod identifier for multi-pod deployments
}

func getEnvInt(key string, defaultValue int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(val)
	if err != nil {
		return defaultValue
	}

	return duration
}

func getEnvString(key string, defaultValue string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	return val
}

func getEnvBool(key string, defaultValue bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultValue
	}
	return b
}

func getEnvList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// parseAPIKeys decodes the API_KEYS JSON object of token -> tenant id.
func parseAPIKeys(raw string) (map[string]string, error) {
	keys := make(map[string]string)
	if strings.TrimSpace(raw) == "" {
		return keys, nil
	}
	if err := json.Unmarshal([]byte(raw), &keys); err != nil {
		return nil, fmt.Errorf("API_KEYS must be a JSON object of token to tenant: %w", err)
	}
	for token, tenant := range keys {
		if token == "" || tenant == "" {
			return nil, fmt.Errorf("API_KEYS contains an empty token or tenant")
		}
	}
	return keys, nil
}

func loadDatabase() (DatabaseConfig, error) {
	driver := getEnvString("DATABASE_DRIVER", "postgres")
	if driver != "postgres" && driver != "sqlite" {
		return DatabaseConfig{}, fmt.Errorf("DATABASE_DRIVER must be postgres or sqlite, got %q", driver)
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return DatabaseConfig{}, fmt.Errorf("DATABASE_URL is required")
	}

	return DatabaseConfig{
		Driver:          driver,
		URL:             dbURL,
		MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		ConnMaxIdleTime: getEnvDuration("DB_CONN_MAX_IDLE_TIME", 1*time.Minute),
		QueryTimeout:    getEnvDuration("DB_QUERY_TIMEOUT", 10*time.Second),
	}, nil
}

func loadRedis() RedisConfig {
	return RedisConfig{
		Address:       getEnvString("REDIS_ADDRESS", ""),
		Password:      getEnvString("REDIS_PASSWORD", ""),
		DB:            getEnvInt("REDIS_DB", 0),
		PoolSize:      getEnvInt("REDIS_POOL_SIZE", 10),
		MinIdleConns:  getEnvInt("REDIS_MIN_IDLE_CONNS", 2),
		DialTimeout:   getEnvDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		ReadTimeout:   getEnvDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		WriteTimeout:  getEnvDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		CredentialTTL: getEnvDuration("REDIS_CREDENTIAL_TTL", 10*time.Minute),
	}
}

// LoadStorage reads only the database and Redis settings. Tools that manage
// stored credentials use it, so they do not need API_KEYS or archive settings.
func LoadStorage() (*Config, error) {
	db, err := loadDatabase()
	if err != nil {
		return nil, err
	}
	return &Config{
		Database: db,
		Auth:     AuthConfig{Source: getEnvString("CREDENTIAL_SOURCE", CredentialSourceStatic)},
		Redis:    loadRedis(),
	}, nil
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	db, err := loadDatabase()
	if err != nil {
		return nil, err
	}

	source := getEnvString("CREDENTIAL_SOURCE", CredentialSourceStatic)
	if source != CredentialSourceStatic && source != CredentialSourceDatabase {
		return nil, fmt.Errorf("CREDENTIAL_SOURCE must be static or database, got %q", source)
	}

	keys, err := parseAPIKeys(os.Getenv("API_KEYS"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPPort:       getEnvString("HTTP_PORT", "8000"),
		ServiceName:    getEnvString("SERVICE_NAME", "central-logger"),
		Environment:    getEnvString("ENVIRONMENT", "development"),
		AllowedOrigins: getEnvList("ALLOWED_ORIGINS"),
		Database:       db,
		Auth: AuthConfig{
			Header: getEnvString("API_KEY_HEADER", "X-API-Key"),
			Source: source,
			Keys:   keys,
		},
		Cache: CacheConfig{
			CredentialCacheSize: getEnvInt("CACHE_CREDENTIAL_SIZE", 1000),
			CredentialCacheTTL:  getEnvDuration("CACHE_CREDENTIAL_TTL", 5*time.Minute),
		},
		Redis: loadRedis(),
		Query: QueryConfig{
			DefaultPageSize: getEnvInt("DEFAULT_PAGE_SIZE", 50),
			MaxPageSize:     getEnvInt("MAX_PAGE_SIZE", 100),
		},
		Archive: ArchiveConfig{
			Enabled:       getEnvBool("ARCHIVE_ENABLED", false),
			BufferSize:    getEnvInt("ARCHIVE_BUFFER_SIZE", 10000),
			FlushSize:     getEnvInt("ARCHIVE_FLUSH_SIZE", 1000),
			FlushInterval: getEnvDuration("ARCHIVE_FLUSH_INTERVAL", 5*time.Minute),
			S3Bucket:      getEnvString("ARCHIVE_S3_BUCKET", ""),
			S3Region:      getEnvString("ARCHIVE_S3_REGION", "us-east-1"),
			S3Prefix:      getEnvString("ARCHIVE_S3_PREFIX", "archive/"),
			S3Endpoint:    getEnvString("ARCHIVE_S3_ENDPOINT", ""),
			PodName:       getEnvString("POD_NAME", "collector-0"),
		},
	}

	if source == CredentialSourceStatic && len(keys) == 0 {
		return nil, fmt.Errorf("API_KEYS is required when CREDENTIAL_SOURCE is static")
	}
	if cfg.Query.DefaultPageSize < 1 || cfg.Query.MaxPageSize < cfg.Query.DefaultPageSize {
		return nil, fmt.Errorf("invalid page size bounds: default %d, max %d", cfg.Query.DefaultPageSize, cfg.Query.MaxPageSize)
	}
	if cfg.Archive.Enabled && cfg.Archive.S3Bucket == "" {
		return nil, fmt.Errorf("ARCHIVE_S3_BUCKET is required when ARCHIVE_ENABLED is true")
	}

	return cfg, nil
}
