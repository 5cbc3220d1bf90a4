package errors

const (
	// System errors
	ErrInternal        ErrorCode = "internal_error"
	ErrInvalidArgument ErrorCode = "invalid_argument"
	ErrAlreadyRunning  ErrorCode = "already_running"

	// Configuration errors
	ErrInvalidConfig     ErrorCode = "invalid_configuration"
	ErrReadConfig        ErrorCode = "read_config_failed"
	ErrBindFlags         ErrorCode = "bind_flags_failed"
	ErrInvalidInterval   ErrorCode = "invalid_interval"
	ErrInvalidLogLevel   ErrorCode = "invalid_log_level"
	ErrInvalidEfficiency ErrorCode = "invalid_target_efficiency"
	ErrInvalidGain       ErrorCode = "invalid_correction_gain"
	ErrInvalidDriver     ErrorCode = "invalid_metrics_driver"
	ErrInvalidBaudRate   ErrorCode = "invalid_baud_rate"

	// Lifecycle errors
	ErrInitFailed     ErrorCode = "initialization_failed"
	ErrShutdownFailed ErrorCode = "shutdown_failed"
	ErrTimeout        ErrorCode = "operation_timeout"

	// Application errors
	ErrInitApp     ErrorCode = "init_app_failed"
	ErrSession     ErrorCode = "session_failed"
	ErrInitMetrics ErrorCode = "init_metrics_failed"
	ErrServeAPI    ErrorCode = "serve_api_failed"
)

var errorMessages = map[ErrorCode]string{
	ErrInternal:          "Internal error occurred",
	ErrInvalidArgument:   "Invalid argument provided",
	ErrAlreadyRunning:    "Another instance is already running",
	ErrInvalidConfig:     "Invalid configuration",
	ErrReadConfig:        "Failed to read config file",
	ErrBindFlags:         "Failed to bind flags",
	ErrInvalidInterval:   "Invalid interval value",
	ErrInitFailed:        "Initialization failed",
	ErrShutdownFailed:    "Shutdown failed",
	ErrTimeout:           "Operation timed out",
	ErrInitApp:           "Failed to initialize application",
	ErrSession:           "Telemetry session failed",
	ErrInitMetrics:       "Failed to initialize metrics",
	ErrServeAPI:          "Status API failed",
	ErrInvalidEfficiency: "Target efficiency must be in (0, 1]",
	ErrInvalidGain:       "Correction gain must be in (0, 1)",
	ErrInvalidBaudRate:   "Baud rate must be positive",
}

// GetErrorMessage returns the message for a given error code
func GetErrorMessage(code ErrorCode) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}

	return string(code)
}

// Error lets a bare code serve as an errors.Is target.
func (c ErrorCode) Error() string {
	return GetErrorMessage(c)
}
