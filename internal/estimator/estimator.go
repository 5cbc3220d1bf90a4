// Package estimator tracks turbine expansion efficiency against a reference
// operating state that drifts toward a target efficiency.
package estimator

import (
	"codeberg.org/mutker/turbinemon/internal/errors"
	"codeberg.org/mutker/turbinemon/internal/telemetry"
	"codeberg.org/mutker/turbinemon/internal/thermo"
)

// State is the calibration state of an Estimator.
type State int

const (
	// Uncalibrated: no sample has been processed successfully yet.
	Uncalibrated State = iota
	// Tracking: the reference state is seeded. Terminal.
	Tracking
)

func (s State) String() string {
	if s == Tracking {
		return "tracking"
	}
	return "uncalibrated"
}

// ReferenceState is the smoothed operating point. Pressures gauge (Pa),
// temperatures K.
type ReferenceState struct {
	T1  float64
	P1  float64
	T2  float64
	P2  float64
	Eff float64
}

// Expansion holds the oracle results for one evaluation of an inlet/exit pair.
type Expansion struct {
	H1           float64 // inlet enthalpy, J/kg
	InletEntropy float64 // J/(kg K)
	H2s          float64 // saturated-vapor exit enthalpy at exit pressure, J/kg
	H2           float64 // actual exit enthalpy, J/kg
}

// Efficiency is -(h1 - h2) / (h1 - h2s).
func (x Expansion) Efficiency() float64 {
	return -(x.H1 - x.H2) / (x.H1 - x.H2s)
}

// Report is the output of one processing cycle.
type Report struct {
	Eff           float64
	EffRef        float64
	UnitEnergy    float64
	UnitEnergyRef float64

	Actual    Expansion
	Reference Expansion
	// State is the reference state after this cycle.
	State ReferenceState
	// Seeded is true for the sample that calibrated the estimator.
	Seeded bool
}

// Estimator is not safe for concurrent use; one goroutine owns it.
type Estimator struct {
	oracle thermo.Oracle
	cfg    Config
	state  State
	ref    ReferenceState
}

func New(oracle thermo.Oracle, cfg Config) (*Estimator, error) {
	errFactory := errors.New()

	if oracle == nil {
		return nil, errFactory.WithMessage(errors.ErrInvalidArgument, "nil property oracle")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	return &Estimator{
		oracle: oracle,
		cfg:    cfg,
	}, nil
}

// State returns the calibration state.
func (e *Estimator) State() State {
	return e.state
}

// Reference returns the reference state and whether it has been seeded.
func (e *Estimator) Reference() (ReferenceState, bool) {
	return e.ref, e.state == Tracking
}

// OnSample processes one sample. On a property error nothing is committed:
// the reference state and calibration state are exactly as before the call.
func (e *Estimator) OnSample(s telemetry.Sample) (Report, error) {
	actual, err := e.expand(s.T1, s.P1, s.T2, s.P2)
	if err != nil {
		return Report{}, err
	}

	eff := actual.Efficiency()
	report := Report{
		Eff:        eff,
		UnitEnergy: (actual.H1 - actual.H2) * eff,
		Actual:     actual,
	}

	ref := e.ref
	if e.state == Uncalibrated {
		ref = ReferenceState{T1: s.T1, P1: s.P1, T2: s.T2, P2: s.P2, Eff: eff}
		report.Seeded = true
	}

	// t2 is never corrected
	if ref.Eff < e.cfg.TargetEfficiency {
		step := e.cfg.CorrectionGain * (e.cfg.TargetEfficiency - ref.Eff)
		ref.T1 += ref.T1 * step
		ref.P1 += ref.P1 * step
		ref.P2 -= ref.P2 * step
	}

	reference, err := e.expand(ref.T1, ref.P1, ref.T2, ref.P2)
	if err != nil {
		return Report{}, err
	}
	ref.Eff = reference.Efficiency()

	report.EffRef = ref.Eff
	report.UnitEnergyRef = (reference.H1 - reference.H2) * ref.Eff
	report.Reference = reference
	report.State = ref

	e.ref = ref
	e.state = Tracking

	return report, nil
}

// expand runs the three oracle calls of one evaluation. The inlet and the
// saturated-vapor exit are evaluated at absolute pressure; the actual exit is
// evaluated at the raw gauge value. h2s comes from a quality=1 query, not an
// entropy-matched solve, so InletEntropy is reported but not used.
func (e *Estimator) expand(t1, p1, t2, p2 float64) (Expansion, error) {
	inlet, err := e.oracle.Evaluate(thermo.TP(t1, p1+thermo.AtmosphericPressure))
	if err != nil {
		return Expansion{}, err
	}

	saturated, err := e.oracle.Evaluate(thermo.PQ(p2+thermo.AtmosphericPressure, 1))
	if err != nil {
		return Expansion{}, err
	}

	exit, err := e.oracle.Evaluate(thermo.TP(t2, p2))
	if err != nil {
		return Expansion{}, err
	}

	return Expansion{
		H1:           inlet.Enthalpy,
		InletEntropy: inlet.Entropy,
		H2s:          saturated.Enthalpy,
		H2:           exit.Enthalpy,
	}, nil
}
