package telemetry

import "codeberg.org/mutker/turbinemon/internal/errors"

const (
	// Configuration Errors
	ErrInvalidConfig      = errors.ErrorCode("telemetry_invalid_config")
	ErrInvalidPollTimeout = errors.ErrorCode("telemetry_invalid_poll_timeout")

	// Frame Errors
	ErrParse = errors.ErrorCode("telemetry_parse_failed")

	// Transport Errors
	ErrOpen        = errors.ErrorCode("telemetry_open_failed")
	ErrTransport   = errors.ErrorCode("telemetry_transport_failed")
	ErrEndOfStream = errors.ErrorCode("telemetry_end_of_stream")
)

// IsParseError reports whether err is a recoverable malformed-line error.
func IsParseError(err error) bool {
	return errors.HasCode(err, ErrParse)
}

// IsTransportError reports whether err is fatal to the ingestion session.
func IsTransportError(err error) bool {
	return errors.HasCode(err, ErrTransport) || errors.HasCode(err, ErrOpen)
}

// IsEndOfStream reports whether the transport was exhausted cleanly.
func IsEndOfStream(err error) bool {
	return errors.HasCode(err, ErrEndOfStream)
}
