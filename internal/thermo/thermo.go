// Package thermo evaluates water/steam properties for the efficiency
// estimator. The Oracle interface is the only thing the estimator depends on;
// IF97 is the built-in implementation.
package thermo

import (
	"fmt"

	"codeberg.org/mutker/turbinemon/internal/errors"
)

// AtmosphericPressure is the fixed offset (Pa) converting gauge telemetry
// pressures to absolute.
const AtmosphericPressure = 101325.0

const (
	ErrOutOfRange   = errors.ErrorCode("thermo_out_of_range")
	ErrNotConverged = errors.ErrorCode("thermo_not_converged")
)

// QueryKind selects the pair of independent properties in a Query.
type QueryKind int

const (
	// TemperaturePressure fixes temperature (K) and absolute pressure (Pa).
	TemperaturePressure QueryKind = iota
	// PressureQuality fixes absolute pressure (Pa) and vapor quality.
	PressureQuality
)

func (k QueryKind) String() string {
	switch k {
	case TemperaturePressure:
		return "TP"
	case PressureQuality:
		return "PQ"
	default:
		return fmt.Sprintf("QueryKind(%d)", int(k))
	}
}

// Query identifies the thermodynamic state an Oracle evaluates.
type Query struct {
	Kind        QueryKind
	Temperature float64
	Pressure    float64
	Quality     float64
}

// TP builds a temperature/absolute-pressure query.
func TP(temperature, pressure float64) Query {
	return Query{Kind: TemperaturePressure, Temperature: temperature, Pressure: pressure}
}

// PQ builds an absolute-pressure/quality query. Quality 1 is saturated vapor.
func PQ(pressure, quality float64) Query {
	return Query{Kind: PressureQuality, Pressure: pressure, Quality: quality}
}

func (q Query) String() string {
	if q.Kind == PressureQuality {
		return fmt.Sprintf("PQ(p=%g Pa, q=%g)", q.Pressure, q.Quality)
	}
	return fmt.Sprintf("TP(t=%g K, p=%g Pa)", q.Temperature, q.Pressure)
}

// Result holds specific enthalpy (J/kg) and specific entropy (J/(kg K)).
type Result struct {
	Enthalpy float64
	Entropy  float64
}

// Oracle is a water/steam equation of state. Implementations must be safe
// for concurrent use and deterministic for identical queries.
type Oracle interface {
	Evaluate(q Query) (Result, error)
}

// IsPropertyError reports whether err means the oracle could not resolve a
// thermodynamic state.
func IsPropertyError(err error) bool {
	return errors.HasCode(err, ErrOutOfRange) || errors.HasCode(err, ErrNotConverged)
}
