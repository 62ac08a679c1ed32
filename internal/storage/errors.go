package storage

import "codeberg.org/mutker/vitalsctl/internal/errors"

const (
	// Configuration Errors
	ErrInvalidConfig  = errors.ErrInvalidConfig
	ErrInvalidBackend = errors.ErrorCode("storage_invalid_backend")
	ErrInvalidDBPath  = errors.ErrorCode("storage_invalid_db_path")
	ErrInvalidDSN     = errors.ErrorCode("storage_invalid_dsn")

	// Schema Errors
	ErrSchemaInitFailed       = errors.ErrorCode("storage_schema_init_failed")
	ErrSchemaValidationFailed = errors.ErrorCode("storage_schema_validation_failed")
	ErrSchemaMigrationFailed  = errors.ErrorCode("storage_schema_migration_failed")

	// Storage Errors
	ErrNotFound      = errors.ErrResourceNotFound
	ErrQuotaExceeded = errors.ErrResourceExhausted
	ErrStorageAccess = errors.ErrUnavailable
	ErrStorageInit   = errors.ErrInitFailed
	ErrStorageClose  = errors.ErrShutdownFailed
	ErrClosed        = errors.ErrorCode("storage_closed")
)

// IsNotFound reports whether err means the key holds no value.
func IsNotFound(err error) bool {
	return errors.HasCode(err, ErrNotFound)
}
