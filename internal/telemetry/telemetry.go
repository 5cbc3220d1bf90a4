// Package telemetry turns a line-oriented transport into validated samples.
//
// Wire format: one ASCII line per sample, "p1,p2,t1,t2", pressures in Pa
// gauge and temperatures in K. Lines without any digit are diagnostics from
// the acquisition firmware and are discarded.
package telemetry

import (
	"math"
	"strconv"
	"strings"
	"unicode"

	"codeberg.org/mutker/turbinemon/internal/errors"
)

const fieldCount = 4

// ParseLine parses a single telemetry line. ok is false for diagnostic lines,
// which are not errors. A line with digits that is not exactly four finite
// comma-separated numbers yields a parse error.
func ParseLine(line string) (sample Sample, ok bool, err error) {
	errFactory := errors.New()

	line = strings.TrimSpace(line)
	if !hasDigit(line) {
		return Sample{}, false, nil
	}

	fields := strings.Split(line, ",")
	if len(fields) != fieldCount {
		return Sample{}, false, errFactory.WithMessage(ErrParse, "expected 4 fields").WithData(struct {
			Line   string
			Fields int
		}{
			Line:   line,
			Fields: len(fields),
		})
	}

	var values [fieldCount]float64
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return Sample{}, false, errFactory.Wrap(ErrParse, err)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Sample{}, false, errFactory.WithMessage(ErrParse, "non-finite field").WithData(line)
		}
		values[i] = v
	}

	return Sample{
		P1: values[0],
		P2: values[1],
		T1: values[2],
		T2: values[3],
	}, true, nil
}

func hasDigit(s string) bool {
	for _, r := range s {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
