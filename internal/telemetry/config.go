package telemetry

import (
	"time"

	"codeberg.org/mutker/turbinemon/internal/errors"
)

const (
	defaultPollTimeout   = time.Second
	defaultMaxLineLength = 4096
)

type Config struct {
	// PollTimeout bounds each wait for the next line.
	PollTimeout time.Duration
	// MaxLineLength caps a single line; longer lines fail the transport.
	MaxLineLength int
}

func DefaultConfig() Config {
	return Config{
		PollTimeout:   defaultPollTimeout,
		MaxLineLength: defaultMaxLineLength,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()
	if c.PollTimeout <= 0 {
		return errFactory.WithData(ErrInvalidPollTimeout, c.PollTimeout)
	}
	if c.MaxLineLength <= 0 {
		return errFactory.WithData(ErrInvalidConfig, c.MaxLineLength)
	}
	return nil
}
