package thermo

import "math"

// IAPWS-IF97 saturation-pressure equation coefficients.
var n4 = [10]float64{
	0.11670521452767e4,
	-0.72421316703206e6,
	-0.17073846940092e2,
	0.12020824702470e5,
	-0.32325550322333e7,
	0.14915108613530e2,
	-0.48232657361591e4,
	0.40511340542057e6,
	-0.23855557567849,
	0.65017534844798e3,
}

// saturationPressure returns ps in MPa for T in K (273.15 <= T <= 647.096).
func saturationPressure(t float64) float64 {
	theta := t + n4[8]/(t-n4[9])
	a := theta*theta + n4[0]*theta + n4[1]
	b := n4[2]*theta*theta + n4[3]*theta + n4[4]
	c := n4[5]*theta*theta + n4[6]*theta + n4[7]

	return math.Pow(2*c/(-b+math.Sqrt(b*b-4*a*c)), 4)
}

// saturationTemperature returns Ts in K for p in MPa (611.213 Pa <= p <= 22.064 MPa).
func saturationTemperature(p float64) float64 {
	beta := math.Pow(p, 0.25)
	e := beta*beta + n4[2]*beta + n4[5]
	f := n4[0]*beta*beta + n4[3]*beta + n4[6]
	g := n4[1]*beta*beta + n4[4]*beta + n4[7]
	d := 2 * g / (-f - math.Sqrt(f*f-4*e*g))

	return (n4[9] + d - math.Sqrt((n4[9]+d)*(n4[9]+d)-4*(n4[8]+n4[9]*d))) / 2
}

// B23 boundary between regions 2 and 3, p in MPa for T in K.
func boundary23Pressure(t float64) float64 {
	return 0.34805185628969e3 - 0.11671859879975e1*t + 0.10192970039326e-2*t*t
}
