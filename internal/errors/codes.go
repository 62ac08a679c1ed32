package errors

// Common error codes
const (
	// System errors
	ErrInvalidArgument ErrorCode = "invalid_argument"
	ErrUnavailable     ErrorCode = "service_unavailable"

	// Configuration errors
	ErrInvalidConfig   ErrorCode = "invalid_configuration"
	ErrBindFlags       ErrorCode = "bind_flags_failed"
	ErrReadConfig      ErrorCode = "read_config_failed"
	ErrInvalidInterval ErrorCode = "invalid_interval"
	ErrInvalidLogLevel ErrorCode = "invalid_log_level"

	// Initialization errors
	ErrInitFailed     ErrorCode = "initialization_failed"
	ErrShutdownFailed ErrorCode = "shutdown_failed"

	// Resource errors
	ErrResourceNotFound  ErrorCode = "resource_not_found"
	ErrResourceExhausted ErrorCode = "resource_exhausted"

	// Application errors
	ErrInitApp     ErrorCode = "init_app_failed"
	ErrMainLoop    ErrorCode = "main_loop_failed"
	ErrServeAPI    ErrorCode = "serve_api_failed"
	ErrOpenStorage ErrorCode = "open_storage_failed"

	// Operation errors
	ErrTimeout ErrorCode = "operation_timeout"

	// Persistence errors
	ErrPersistence ErrorCode = "persistence_failed"
	ErrDecode      ErrorCode = "decode_failed"
	ErrEncode      ErrorCode = "encode_failed"

	// Delivery errors
	ErrDelivery ErrorCode = "delivery_failed"
)

// Common error messages
var errorMessages = map[ErrorCode]string{
	ErrInvalidArgument:   "Invalid argument provided",
	ErrUnavailable:       "Service unavailable",
	ErrInvalidConfig:     "Invalid configuration",
	ErrBindFlags:         "Failed to bind flags",
	ErrReadConfig:        "Failed to read config file",
	ErrInvalidInterval:   "Invalid interval value",
	ErrInvalidLogLevel:   "Invalid log level",
	ErrInitFailed:        "Initialization failed",
	ErrShutdownFailed:    "Shutdown failed",
	ErrResourceNotFound:  "Resource not found",
	ErrResourceExhausted: "Resource exhausted",
	ErrInitApp:           "Failed to initialize application",
	ErrMainLoop:          "Error in monitor loop",
	ErrServeAPI:          "Failed to serve HTTP API",
	ErrOpenStorage:       "Failed to open storage",
	ErrTimeout:           "Operation timed out",
	ErrPersistence:       "Failed to persist data",
	ErrDecode:            "Failed to decode stored data",
	ErrEncode:            "Failed to encode data",
	ErrDelivery:          "Failed to deliver alert",
}

// GetErrorMessage returns the message for a given error code
func GetErrorMessage(code ErrorCode) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}

	return string(code)
}
