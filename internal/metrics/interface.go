package metrics

import (
	"context"
	"time"
)

// Collector records efficiency reports for later inspection.
type Collector interface {
	Record(ctx context.Context, snapshot *Snapshot) error
	Recent(ctx context.Context, limit int) ([]Snapshot, error)
	Enabled() bool
	Close() error
}

// Repository is the storage backend behind a Collector.
type Repository interface {
	Record(snapshot *Snapshot) error
	Recent(ctx context.Context, limit int) ([]Snapshot, error)
	Close() error
}

// Snapshot is one persisted processing cycle.
type Snapshot struct {
	Timestamp  time.Time         `json:"timestamp"`
	Sample     SampleMetrics     `json:"sample"`
	Enthalpy   EnthalpyMetrics   `json:"enthalpy"`
	Efficiency EfficiencyMetrics `json:"efficiency"`
	Energy     EnergyMetrics     `json:"unit_energy"`
	Reference  ReferenceMetrics  `json:"reference"`
	Seeded     bool              `json:"seeded"`
}

// Domain value objects
type SampleMetrics struct {
	P1 float64 `json:"p1"`
	P2 float64 `json:"p2"`
	T1 float64 `json:"t1"`
	T2 float64 `json:"t2"`
}

type EnthalpyMetrics struct {
	H1  float64 `json:"h1"`
	H2s float64 `json:"h2s"`
	H2  float64 `json:"h2"`
}

type EfficiencyMetrics struct {
	Current          float64 `json:"current"`
	Reference        float64 `json:"reference"`
	Average          float64 `json:"average"`
	AverageReference float64 `json:"average_reference"`
}

type EnergyMetrics struct {
	Actual    float64 `json:"actual"`
	Reference float64 `json:"reference"`
}

type ReferenceMetrics struct {
	T1 float64 `json:"t1"`
	P1 float64 `json:"p1"`
	T2 float64 `json:"t2"`
	P2 float64 `json:"p2"`
}

// values returns the column values in reportColumns order.
func (s *Snapshot) values() []any {
	return []any{
		s.Timestamp.UnixNano(),
		s.Sample.P1, s.Sample.P2, s.Sample.T1, s.Sample.T2,
		s.Enthalpy.H1, s.Enthalpy.H2s, s.Enthalpy.H2,
		s.Efficiency.Current, s.Efficiency.Reference,
		s.Efficiency.Average, s.Efficiency.AverageReference,
		s.Energy.Actual, s.Energy.Reference,
		s.Reference.T1, s.Reference.P1, s.Reference.T2, s.Reference.P2,
	}
}

// scanTargets returns pointers in reportColumns order; the timestamp goes
// through ns.
func (s *Snapshot) scanTargets(ns *int64) []any {
	return []any{
		ns,
		&s.Sample.P1, &s.Sample.P2, &s.Sample.T1, &s.Sample.T2,
		&s.Enthalpy.H1, &s.Enthalpy.H2s, &s.Enthalpy.H2,
		&s.Efficiency.Current, &s.Efficiency.Reference,
		&s.Efficiency.Average, &s.Efficiency.AverageReference,
		&s.Energy.Actual, &s.Energy.Reference,
		&s.Reference.T1, &s.Reference.P1, &s.Reference.T2, &s.Reference.P2,
	}
}
