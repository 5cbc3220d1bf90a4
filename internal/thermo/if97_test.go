package thermo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Verification values from IAPWS-IF97, tables 5, 15, 35 and 36.
func TestRegion1Verification(t *testing.T) {
	tests := []struct {
		t, p, h, s float64
	}{
		{300, 3, 0.115331273e3, 0.392294792},
		{300, 80, 0.184142828e3, 0.368563852},
		{500, 3, 0.975542239e3, 0.258041912e1},
	}
	for _, tt := range tests {
		h, s := region1(tt.t, tt.p)
		assert.InEpsilon(t, tt.h, h, 1e-8, "h at T=%v p=%v", tt.t, tt.p)
		assert.InEpsilon(t, tt.s, s, 1e-8, "s at T=%v p=%v", tt.t, tt.p)
	}
}

func TestRegion2Verification(t *testing.T) {
	tests := []struct {
		t, p, h, s float64
	}{
		{300, 0.0035, 0.254991145e4, 0.852238967e1},
		{700, 0.0035, 0.333568375e4, 0.101749996e2},
		{700, 30, 0.263149474e4, 0.517540298e1},
	}
	for _, tt := range tests {
		h, s := region2(tt.t, tt.p)
		assert.InEpsilon(t, tt.h, h, 1e-8, "h at T=%v p=%v", tt.t, tt.p)
		assert.InEpsilon(t, tt.s, s, 1e-8, "s at T=%v p=%v", tt.t, tt.p)
	}
}

func TestSaturationLineVerification(t *testing.T) {
	assert.InEpsilon(t, 0.353658941e-2, saturationPressure(300), 1e-8)
	assert.InEpsilon(t, 0.263889776e1, saturationPressure(500), 1e-8)
	assert.InEpsilon(t, 0.123443146e2, saturationPressure(600), 1e-8)

	assert.InEpsilon(t, 0.372755919e3, saturationTemperature(0.1), 1e-8)
	assert.InEpsilon(t, 0.453035632e3, saturationTemperature(1), 1e-8)
	assert.InEpsilon(t, 0.584149488e3, saturationTemperature(10), 1e-8)
}

func TestBoundary23(t *testing.T) {
	assert.InEpsilon(t, 0.165291643e2, boundary23Pressure(0.62315e3), 1e-8)
}

func TestEvaluateTPUnits(t *testing.T) {
	oracle := NewIF97()

	res, err := oracle.Evaluate(TP(300, 3e6))
	require.NoError(t, err)
	assert.InEpsilon(t, 0.115331273e6, res.Enthalpy, 1e-8)
	assert.InEpsilon(t, 0.392294792e3, res.Entropy, 1e-8)

	res, err = oracle.Evaluate(TP(300, 3500))
	require.NoError(t, err)
	assert.InEpsilon(t, 0.254991145e7, res.Enthalpy, 1e-8)
}

func TestEvaluatePQ(t *testing.T) {
	oracle := NewIF97()
	p := 1e5

	vapor, err := oracle.Evaluate(PQ(p, 1))
	require.NoError(t, err)
	liquid, err := oracle.Evaluate(PQ(p, 0))
	require.NoError(t, err)
	mid, err := oracle.Evaluate(PQ(p, 0.5))
	require.NoError(t, err)

	// steam tables: hg(0.1 MPa) ~ 2675 kJ/kg, hf ~ 417.4 kJ/kg
	assert.InDelta(t, 2675.0e3, vapor.Enthalpy, 2e3)
	assert.InDelta(t, 417.4e3, liquid.Enthalpy, 1e3)
	assert.InEpsilon(t, (vapor.Enthalpy+liquid.Enthalpy)/2, mid.Enthalpy, 1e-12)
	assert.InEpsilon(t, (vapor.Entropy+liquid.Entropy)/2, mid.Entropy, 1e-12)

	ts := saturationTemperature(0.1)
	hV, sV := region2(ts, 0.1)
	assert.InEpsilon(t, hV*1e3, vapor.Enthalpy, 1e-12)
	assert.InEpsilon(t, sV*1e3, vapor.Entropy, 1e-12)
}

func TestEvaluateOutOfRange(t *testing.T) {
	oracle := NewIF97()

	tests := []struct {
		name string
		q    Query
	}{
		{"below triple point temperature", TP(250, 1e5)},
		{"above region 2 temperature", TP(1200, 1e5)},
		{"negative pressure", TP(320, -5000)},
		{"zero pressure", TP(320, 0)},
		{"region 3", TP(700, 50e6)},
		{"above 100 MPa", TP(400, 150e6)},
		{"NaN temperature", TP(math.NaN(), 1e5)},
		{"PQ below triple point", PQ(100, 1)},
		{"PQ above region 1 limit", PQ(20e6, 1)},
		{"PQ quality above one", PQ(1e5, 1.5)},
		{"PQ negative quality", PQ(1e5, -0.1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := oracle.Evaluate(tt.q)
			require.Error(t, err)
			assert.True(t, IsPropertyError(err))
		})
	}
}

func TestEvaluateDeterministic(t *testing.T) {
	oracle := NewIF97()
	q := TP(450, 151325)

	a, err := oracle.Evaluate(q)
	require.NoError(t, err)
	b, err := oracle.Evaluate(q)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestRegionSelectionAcrossSaturation(t *testing.T) {
	oracle := NewIF97()

	// 0.1 MPa saturates near 372.76 K
	liquid, err := oracle.Evaluate(TP(360, 1e5))
	require.NoError(t, err)
	vapor, err := oracle.Evaluate(TP(380, 1e5))
	require.NoError(t, err)

	assert.Less(t, liquid.Enthalpy, 500e3)
	assert.Greater(t, vapor.Enthalpy, 2600e3)
}

func TestSaturationTemperatureExported(t *testing.T) {
	ts, err := SaturationTemperature(1e6)
	require.NoError(t, err)
	assert.InEpsilon(t, 0.453035632e3, ts, 1e-8)

	_, err = SaturationTemperature(30e6)
	assert.True(t, IsPropertyError(err))
}
