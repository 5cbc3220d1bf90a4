package monitor

import "codeberg.org/mutker/turbinemon/internal/errors"

const (
	ErrInvalidConfig = errors.ErrorCode("monitor_invalid_config")
	ErrStalled       = errors.ErrorCode("monitor_transport_stalled")
)
