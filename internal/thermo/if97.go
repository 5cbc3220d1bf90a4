package thermo

import (
	"math"

	"codeberg.org/mutker/turbinemon/internal/errors"
)

const (
	// kJ/(kg K), IAPWS-IF97
	specificGasConstant = 0.461526

	minTemperature    = 273.15
	maxTemperature    = 1073.15
	region13Boundary  = 623.15
	maxPressureMPa    = 100.0
	minSatPressureMPa = 611.213e-6

	pascalPerMPa = 1e6
	joulePerKJ   = 1e3
)

// IF97 evaluates water and steam properties with the IAPWS Industrial
// Formulation 1997, regions 1, 2 and 4. It holds no state.
type IF97 struct{}

// NewIF97 returns the IAPWS-IF97 oracle.
func NewIF97() *IF97 {
	return &IF97{}
}

// Evaluate implements Oracle.
func (*IF97) Evaluate(q Query) (Result, error) {
	var (
		h, s float64
		err  error
	)

	switch q.Kind {
	case TemperaturePressure:
		h, s, err = evaluateTP(q)
	case PressureQuality:
		h, s, err = evaluatePQ(q)
	default:
		return Result{}, errors.New().WithMessage(errors.ErrInvalidArgument, "unknown query kind").WithData(q.Kind)
	}
	if err != nil {
		return Result{}, err
	}

	if math.IsNaN(h) || math.IsInf(h, 0) || math.IsNaN(s) || math.IsInf(s, 0) {
		return Result{}, errors.New().WithMessage(ErrNotConverged, "non-finite property result").WithData(q)
	}

	return Result{Enthalpy: h * joulePerKJ, Entropy: s * joulePerKJ}, nil
}

func evaluateTP(q Query) (h, s float64, err error) {
	t := q.Temperature
	p := q.Pressure / pascalPerMPa

	if !finite(t) || t < minTemperature || t > maxTemperature {
		return 0, 0, outOfRange("temperature outside IF97 range", q)
	}
	if !finite(p) || p <= 0 || p > maxPressureMPa {
		return 0, 0, outOfRange("pressure outside IF97 range", q)
	}

	if t <= region13Boundary {
		if p <= saturationPressure(t) {
			h, s = region2(t, p)
		} else {
			h, s = region1(t, p)
		}
		return h, s, nil
	}

	if p > boundary23Pressure(t) {
		return 0, 0, outOfRange("state lies in IF97 region 3", q)
	}
	h, s = region2(t, p)

	return h, s, nil
}

func evaluatePQ(q Query) (h, s float64, err error) {
	p := q.Pressure / pascalPerMPa

	if !finite(p) || p < minSatPressureMPa || p > saturationPressure(region13Boundary) {
		return 0, 0, outOfRange("saturation pressure outside IF97 range", q)
	}
	if !finite(q.Quality) || q.Quality < 0 || q.Quality > 1 {
		return 0, 0, outOfRange("quality must be within [0, 1]", q)
	}

	ts := saturationTemperature(p)
	hL, sL := region1(ts, p)
	hV, sV := region2(ts, p)

	h = hL + q.Quality*(hV-hL)
	s = sL + q.Quality*(sV-sL)

	return h, s, nil
}

// SaturationTemperature returns the saturation temperature (K) at an
// absolute pressure (Pa).
func SaturationTemperature(pressure float64) (float64, error) {
	p := pressure / pascalPerMPa
	if !finite(p) || p < minSatPressureMPa || p > 22.064 {
		return 0, outOfRange("saturation pressure outside IF97 range", PQ(pressure, 1))
	}

	return saturationTemperature(p), nil
}

func outOfRange(msg string, q Query) errors.Error {
	return errors.New().WithMessage(ErrOutOfRange, msg).WithData(q)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
