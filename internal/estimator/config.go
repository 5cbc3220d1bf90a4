package estimator

import "codeberg.org/mutker/turbinemon/internal/errors"

const (
	defaultTargetEfficiency = 0.93
	defaultCorrectionGain   = 0.02
)

type Config struct {
	// TargetEfficiency is the efficiency the reference state drifts toward.
	TargetEfficiency float64
	// CorrectionGain scales each proportional drift step.
	CorrectionGain float64
}

func DefaultConfig() Config {
	return Config{
		TargetEfficiency: defaultTargetEfficiency,
		CorrectionGain:   defaultCorrectionGain,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()
	if !(c.TargetEfficiency > 0 && c.TargetEfficiency <= 1) {
		return errFactory.WithData(errors.ErrInvalidEfficiency, c.TargetEfficiency)
	}
	if !(c.CorrectionGain > 0 && c.CorrectionGain < 1) {
		return errFactory.WithData(errors.ErrInvalidGain, c.CorrectionGain)
	}
	return nil
}
