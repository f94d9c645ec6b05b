package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"  // PostgreSQL driver
	_ "modernc.org/sqlite" // SQLite driver, registered as "sqlite"

	"central_logger/internal/models"
)

// Supported drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

func init() {
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// DB wraps the database connection and provides health checks
type DB struct {
	conn         *sqlx.DB
	driver       string
	queryTimeout time.Duration

	// Cache of token hash -> credential
	credentialCache *LRUCache[*models.Credential]
}

// DBConfig holds database configuration
type DBConfig struct {
	Driver string
	DSN    string

	// Pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration

	// Query timeouts
	QueryTimeout time.Duration

	// Cache settings
	CredentialCacheSize int
	CredentialCacheTTL  time.Duration
}

// DefaultDBConfig returns default database configuration
func DefaultDBConfig() DBConfig {
	return DBConfig{
		Driver: DriverPostgres,
		DSN:    "host=localhost port=5432 dbname=central_logger user=postgres sslmode=disable",

		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		ConnMaxIdleTime: 1 * time.Minute,

		QueryTimeout: 10 * time.Second,

		CredentialCacheSize: 1000,
		CredentialCacheTTL:  5 * time.Minute,
	}
}

// sqliteDSN adds the parameters the repositories rely on: times stored in a
// sortable text form and a busy timeout for concurrent writers.
func sqliteDSN(dsn string) string {
	var params []string
	if !strings.Contains(dsn, "_time_format=") {
		params = append(params, "_time_format=sqlite")
	}
	if !strings.Contains(dsn, "busy_timeout") {
		params = append(params, "_pragma=busy_timeout(5000)")
	}
	if len(params) == 0 {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(params, "&")
}

// NewDB creates a new database connection with caching
func NewDB(cfg DBConfig) (*DB, error) {
	dsn := cfg.DSN
	switch cfg.Driver {
	case DriverPostgres:
	case DriverSQLite:
		dsn = sqliteDSN(dsn)
		// SQLite serializes writers; one connection avoids lock contention
		cfg.MaxOpenConns = 1
		cfg.MaxIdleConns = 1
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, cfg.Driver)
	}

	conn, err := sqlx.Connect(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Configure connection pool
	conn.SetMaxOpenConns(cfg.MaxOpenConns)
	conn.SetMaxIdleConns(cfg.MaxIdleConns)
	conn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	conn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	db := &DB{
		conn:            conn,
		driver:          cfg.Driver,
		queryTimeout:    cfg.QueryTimeout,
		credentialCache: NewLRUCache[*models.Credential](cfg.CredentialCacheSize, cfg.CredentialCacheTTL),
	}

	return db, nil
}

// Close closes the database connection and clears caches
func (db *DB) Close() error {
	db.credentialCache.Clear()
	return db.conn.Close()
}

// Driver returns the active driver name
func (db *DB) Driver() string {
	return db.driver
}

// Ping checks if the database is reachable
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Health returns the health status of the database
func (db *DB) Health(ctx context.Context) error {
	if err := db.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	var result int
	err := db.conn.GetContext(ctx, &result, "SELECT 1")
	if err != nil {
		return fmt.Errorf("health check query failed: %w", err)
	}

	return nil
}

// withTimeout bounds a single repository call
func (db *DB) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if db.queryTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, db.queryTimeout)
}

// BeginTx starts a new transaction
func (db *DB) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return db.conn.BeginTxx(ctx, opts)
}

// GetCredentialCache returns the credential cache
func (db *DB) GetCredentialCache() *LRUCache[*models.Credential] {
	return db.credentialCache
}

// Repository factory methods

// NewLogRepository creates a new workflow log repository
func (db *DB) NewLogRepository() *LogRepository {
	return NewLogRepository(db)
}

// NewCredentialRepository creates a new credential repository
func (db *DB) NewCredentialRepository() *CredentialRepository {
	return NewCredentialRepository(db)
}
