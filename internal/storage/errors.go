package storage

import "errors"

var (
	// ErrLogNotFound is returned when a log does not exist for the tenant
	ErrLogNotFound = errors.New("log not found")

	// ErrCredentialNotFound is returned when no enabled credential matches a token hash
	ErrCredentialNotFound = errors.New("credential not found")

	// ErrTenantRequired is returned when a tenant-scoped call has no tenant
	ErrTenantRequired = errors.New("tenant id is required")

	// ErrUnsupportedDriver is returned for database drivers other than postgres and sqlite
	ErrUnsupportedDriver = errors.New("unsupported database driver")
)
