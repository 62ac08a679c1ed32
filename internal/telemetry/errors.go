package telemetry

import "codeberg.org/mutker/vitalsctl/internal/errors"

const (
	// Configuration Errors
	ErrInvalidConfig       = errors.ErrInvalidConfig
	ErrInvalidDBPath       = errors.ErrorCode("telemetry_invalid_db_path")
	ErrInvalidBatchSize    = errors.ErrorCode("telemetry_invalid_batch_size")
	ErrInvalidBatchTimeout = errors.ErrorCode("telemetry_invalid_batch_timeout")

	// Schema Errors
	ErrSchemaInitFailed  = errors.ErrorCode("telemetry_schema_init_failed")
	ErrTransactionFailed = errors.ErrorCode("telemetry_transaction_failed")

	// Storage Errors
	ErrStorageAccess = errors.ErrorCode("telemetry_storage_access_failed")
	ErrStorageInit   = errors.ErrInitFailed
	ErrStorageClose  = errors.ErrShutdownFailed

	// Recording Errors
	ErrRecordFailed     = errors.ErrorCode("telemetry_record_failed")
	ErrOperationTimeout = errors.ErrTimeout
)
