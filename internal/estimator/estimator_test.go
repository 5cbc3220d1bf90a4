package estimator_test

import (
	"math"
	"testing"

	"codeberg.org/mutker/turbinemon/internal/errors"
	"codeberg.org/mutker/turbinemon/internal/estimator"
	"codeberg.org/mutker/turbinemon/internal/telemetry"
	"codeberg.org/mutker/turbinemon/internal/thermo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// linearOracle returns h = 1000*T for TP queries and a fixed saturated
// enthalpy for PQ queries, so efficiencies are easy to reason about.
type linearOracle struct {
	satEnthalpy float64
	queries     []thermo.Query
	failAt      int // 1-based call index to fail, 0 never
}

func (o *linearOracle) Evaluate(q thermo.Query) (thermo.Result, error) {
	o.queries = append(o.queries, q)
	if o.failAt > 0 && len(o.queries) == o.failAt {
		return thermo.Result{}, errors.New().WithData(thermo.ErrNotConverged, q)
	}
	if q.Kind == thermo.PressureQuality {
		return thermo.Result{Enthalpy: o.satEnthalpy, Entropy: 7000}, nil
	}
	return thermo.Result{Enthalpy: 1000 * q.Temperature, Entropy: q.Temperature}, nil
}

var sample = telemetry.Sample{P1: 50000, P2: 1000, T1: 400, T2: 300}

func newEstimator(t *testing.T, oracle thermo.Oracle) *estimator.Estimator {
	t.Helper()
	est, err := estimator.New(oracle, estimator.DefaultConfig())
	require.NoError(t, err)
	return est
}

func TestNewValidation(t *testing.T) {
	_, err := estimator.New(nil, estimator.DefaultConfig())
	require.Error(t, err)

	cfg := estimator.DefaultConfig()
	cfg.TargetEfficiency = 1.5
	_, err = estimator.New(&linearOracle{}, cfg)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidEfficiency))

	cfg = estimator.DefaultConfig()
	cfg.CorrectionGain = 0
	_, err = estimator.New(&linearOracle{}, cfg)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidGain))
}

func TestQueryShapes(t *testing.T) {
	oracle := &linearOracle{satEnthalpy: 600e3}
	est := newEstimator(t, oracle)

	_, err := est.OnSample(sample)
	require.NoError(t, err)
	require.Len(t, oracle.queries, 6)

	assert.Equal(t, thermo.TP(400, 50000+thermo.AtmosphericPressure), oracle.queries[0])
	assert.Equal(t, thermo.PQ(1000+thermo.AtmosphericPressure, 1), oracle.queries[1])
	// exit state uses the gauge value as-is
	assert.Equal(t, thermo.TP(300, 1000), oracle.queries[2])
}

func TestSeedsOnFirstSample(t *testing.T) {
	// eff = 100/(500-400) = 1.0, above target, so no drift on the seeding cycle
	est := newEstimator(t, &linearOracle{satEnthalpy: 500e3})
	assert.Equal(t, estimator.Uncalibrated, est.State())
	_, ok := est.Reference()
	assert.False(t, ok)

	report, err := est.OnSample(sample)
	require.NoError(t, err)

	assert.True(t, report.Seeded)
	assert.Equal(t, estimator.Tracking, est.State())
	ref, ok := est.Reference()
	require.True(t, ok)
	assert.Equal(t, estimator.ReferenceState{T1: 400, P1: 50000, T2: 300, P2: 1000, Eff: 1}, ref)
	assert.InDelta(t, 1.0, report.Eff, 1e-12)
	assert.InDelta(t, 1.0, report.EffRef, 1e-12)

	next, err := est.OnSample(telemetry.Sample{P1: 1, P2: 2, T1: 410, T2: 305})
	require.NoError(t, err)
	assert.False(t, next.Seeded)
	ref, _ = est.Reference()
	assert.Equal(t, 400.0, ref.T1, "reference must not be reseeded")
}

func TestSeedingCycleDrifts(t *testing.T) {
	// eff = 100/(600-400) = 0.5, below target
	est := newEstimator(t, &linearOracle{satEnthalpy: 600e3})

	report, err := est.OnSample(sample)
	require.NoError(t, err)

	step := 0.02 * (0.93 - 0.5)
	ref, _ := est.Reference()
	assert.InDelta(t, 400*(1+step), ref.T1, 1e-9)
	assert.InDelta(t, 50000*(1+step), ref.P1, 1e-9)
	assert.InDelta(t, 1000*(1-step), ref.P2, 1e-9)
	assert.Equal(t, 300.0, ref.T2)

	assert.InDelta(t, 0.5, report.Eff, 1e-12)
	assert.InDelta(t, 100e3*0.5, report.UnitEnergy, 1e-6)

	wantEffRef := (ref.T1 - 300) / (600 - ref.T1)
	assert.InDelta(t, wantEffRef, report.EffRef, 1e-12)
	assert.InDelta(t, (ref.T1-300)*1000*wantEffRef, report.UnitEnergyRef, 1e-6)
	assert.Equal(t, report.State, ref)
}

func TestDriftConvergesFromBelow(t *testing.T) {
	est := newEstimator(t, &linearOracle{satEnthalpy: 600e3})

	prev := math.Inf(-1)
	var last estimator.Report
	for i := 0; i < 200; i++ {
		report, err := est.OnSample(sample)
		require.NoError(t, err)

		assert.Greater(t, report.EffRef, prev, "iteration %d", i)
		assert.Less(t, report.EffRef, 0.93, "iteration %d", i)
		assert.InDelta(t, 0.5, report.Eff, 1e-12)
		prev = report.EffRef
		last = report
	}

	assert.InDelta(t, 0.93, last.EffRef, 1e-3)
	assert.Equal(t, 300.0, last.State.T2)
}

func TestNoDriftAtOrAboveTarget(t *testing.T) {
	est := newEstimator(t, &linearOracle{satEnthalpy: 500e3})

	for i := 0; i < 5; i++ {
		_, err := est.OnSample(sample)
		require.NoError(t, err)
	}

	ref, _ := est.Reference()
	assert.Equal(t, 400.0, ref.T1)
	assert.Equal(t, 50000.0, ref.P1)
	assert.Equal(t, 1000.0, ref.P2)
}

func TestPropertyErrorLeavesStateUnchanged(t *testing.T) {
	for failAt := 1; failAt <= 6; failAt++ {
		oracle := &linearOracle{satEnthalpy: 600e3}
		est := newEstimator(t, oracle)

		_, err := est.OnSample(sample)
		require.NoError(t, err)
		before, _ := est.Reference()

		oracle.queries = nil
		oracle.failAt = failAt
		_, err = est.OnSample(telemetry.Sample{P1: 60000, P2: 900, T1: 420, T2: 310})
		require.Error(t, err, "fail at call %d", failAt)
		assert.True(t, thermo.IsPropertyError(err))
		assert.Len(t, oracle.queries, failAt, "no retry")

		after, ok := est.Reference()
		assert.True(t, ok)
		assert.Equal(t, before, after, "fail at call %d", failAt)
	}
}

func TestPropertyErrorBeforeCalibration(t *testing.T) {
	for failAt := 1; failAt <= 6; failAt++ {
		est := newEstimator(t, &linearOracle{satEnthalpy: 600e3, failAt: failAt})

		_, err := est.OnSample(sample)
		require.Error(t, err)
		assert.Equal(t, estimator.Uncalibrated, est.State())
		_, ok := est.Reference()
		assert.False(t, ok)
	}
}

func TestDeterministic(t *testing.T) {
	samples := []telemetry.Sample{
		sample,
		{P1: 52000, P2: 950, T1: 405, T2: 301},
		{P1: 48000, P2: 1020, T1: 398, T2: 299},
	}

	run := func() []estimator.Report {
		est := newEstimator(t, &linearOracle{satEnthalpy: 600e3})
		var out []estimator.Report
		for _, s := range samples {
			r, err := est.OnSample(s)
			require.NoError(t, err)
			out = append(out, r)
		}
		return out
	}

	assert.Equal(t, run(), run())
}

// Reference enthalpies evaluated with the published IAPWS-IF97 region 2 and
// region 4 equations for a 50 kPa(g) / 450 K inlet exhausting at 1 kPa.
const (
	refInletEnthalpy     = 2.8268276730e6  // TP(450 K, 151325 Pa)
	refInletEntropy      = 7.5402985572e3  // TP(450 K, 151325 Pa)
	refSaturatedEnthalpy = 2.6759659379e6  // PQ(102325 Pa, 1), Ts = 373.3997 K
	refExitEnthalpy      = 2.5884929755e6  // TP(320 K, 1000 Pa)
	refEfficiency        = -1.5798220626   // -(h1 - h2) / (h1 - h2s)
)

func TestIF97ReferenceSample(t *testing.T) {
	est := newEstimator(t, thermo.NewIF97())
	s := telemetry.Sample{P1: 50000, P2: 1000, T1: 450, T2: 320}

	report, err := est.OnSample(s)
	require.NoError(t, err)

	assert.InEpsilon(t, refInletEnthalpy, report.Actual.H1, 1e-6)
	assert.InEpsilon(t, refInletEntropy, report.Actual.InletEntropy, 1e-6)
	assert.InEpsilon(t, refSaturatedEnthalpy, report.Actual.H2s, 1e-6)
	assert.InEpsilon(t, refExitEnthalpy, report.Actual.H2, 1e-6)
	assert.InEpsilon(t, refEfficiency, report.Eff, 1e-6)

	assert.True(t, report.Seeded)

	for _, v := range []float64{report.Eff, report.UnitEnergy, report.EffRef, report.UnitEnergyRef} {
		assert.False(t, math.IsNaN(v) || math.IsInf(v, 0))
	}
}

func TestIF97FiniteOutputs(t *testing.T) {
	samples := []telemetry.Sample{
		{P1: 50000, P2: 1000, T1: 450, T2: 320},
		{P1: 200000, P2: 5000, T1: 500, T2: 330},
		{P1: 0, P2: 2000, T1: 400, T2: 340},
		{P1: 900000, P2: 10000, T1: 600, T2: 350},
	}

	est := newEstimator(t, thermo.NewIF97())
	for _, s := range samples {
		report, err := est.OnSample(s)
		require.NoError(t, err, "%+v", s)
		assert.False(t, math.IsNaN(report.Eff) || math.IsInf(report.Eff, 0), "%+v", s)
		assert.False(t, math.IsNaN(report.UnitEnergy) || math.IsInf(report.UnitEnergy, 0), "%+v", s)
	}
}

func TestIF97OutOfRangeExit(t *testing.T) {
	est := newEstimator(t, thermo.NewIF97())

	// exit is evaluated at gauge pressure, so a negative gauge reading fails
	_, err := est.OnSample(telemetry.Sample{P1: 50000, P2: -5000, T1: 450, T2: 320})
	require.Error(t, err)
	assert.True(t, thermo.IsPropertyError(err))
	assert.Equal(t, estimator.Uncalibrated, est.State())
}
