package storage

import (
	"context"
	"fmt"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS workflow_logs (
		id                     UUID PRIMARY KEY,
		tenant_id              VARCHAR(255) NOT NULL,
		environment            VARCHAR(20) NOT NULL,
		workflow_version       VARCHAR(50),
		ticket_id              VARCHAR(255),
		executed_at            TIMESTAMPTZ NOT NULL,
		execution_time_seconds DOUBLE PRECISION,
		status                 VARCHAR(20) NOT NULL,
		category               VARCHAR(100),
		resolution_status      VARCHAR(100),
		metrics                JSONB,
		trace                  JSONB,
		created_at             TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS credentials (
		id         UUID PRIMARY KEY,
		tenant_id  VARCHAR(255) NOT NULL,
		name       VARCHAR(255) NOT NULL DEFAULT '',
		token_hash CHAR(64) NOT NULL UNIQUE,
		enabled    BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS workflow_logs (
		id                     TEXT PRIMARY KEY,
		tenant_id              TEXT NOT NULL,
		environment            TEXT NOT NULL,
		workflow_version       TEXT,
		ticket_id              TEXT,
		executed_at            DATETIME NOT NULL,
		execution_time_seconds REAL,
		status                 TEXT NOT NULL,
		category               TEXT,
		resolution_status      TEXT,
		metrics                TEXT,
		trace                  TEXT,
		created_at             DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS credentials (
		id         TEXT PRIMARY KEY,
		tenant_id  TEXT NOT NULL,
		name       TEXT NOT NULL DEFAULT '',
		token_hash TEXT NOT NULL UNIQUE,
		enabled    BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL
	)`,
}

// Indexes shared by both dialects. Every log index leads with tenant_id.
var indexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_workflow_logs_tenant_executed ON workflow_logs (tenant_id, executed_at)`,
	`CREATE INDEX IF NOT EXISTS idx_workflow_logs_tenant_status ON workflow_logs (tenant_id, status)`,
	`CREATE INDEX IF NOT EXISTS idx_workflow_logs_tenant_category ON workflow_logs (tenant_id, category)`,
	`CREATE INDEX IF NOT EXISTS idx_workflow_logs_tenant_ticket ON workflow_logs (tenant_id, ticket_id)`,
	`CREATE INDEX IF NOT EXISTS idx_credentials_tenant ON credentials (tenant_id)`,
}

// Migrate creates the schema for the active dialect. It is idempotent.
func (db *DB) Migrate(ctx context.Context) error {
	schema := postgresSchema
	if db.driver == DriverSQLite {
		schema = sqliteSchema
	}

	for _, stmt := range append(append([]string{}, schema...), indexes...) {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate schema: %w", err)
		}
	}
	return nil
}
