// Package modify finalizes parsed CTD profiles: header augmentation, unit
// annotation, fluorometer relabelling and true depth replacement.
package modify

import (
	"fmt"
	"math"

	"github.com/ukaji3/ctdprofile-go/pkg/ctdprofile/parser"
)

// Gravity is the gravitational acceleration at 60°N (m/s²).
const Gravity = 9.818

// TrueDepth integrates depth from pressure (decibar) and density anomaly
// (sigma-t, kg/m³) with the trapezoidal rule. Samples with a missing density
// yield a missing depth and leave the integration state untouched.
func TrueDepth(pressure, sigmaT []float64) ([]float64, error) {
	if len(pressure) != len(sigmaT) {
		return nil, fmt.Errorf("pressure has %d samples, density has %d", len(pressure), len(sigmaT))
	}
	depths := make([]float64, len(pressure))
	if len(pressure) == 0 {
		return depths, nil
	}

	dens0 := (sigmaT[0] + 1000) / 1000
	p0 := 0.0
	depth := 0.0
	for i := range pressure {
		if parser.IsMissing(sigmaT[i]) {
			depths[i] = parser.MissingValue
			continue
		}
		rpres := pressure[i] * 10 // decibar to bar
		dens := (sigmaT[i] + 1000) / 1000
		depth += (rpres - p0) / ((dens + dens0) / 2 * Gravity)
		dens0 = dens
		p0 = rpres
		depths[i] = depth
	}
	return depths, nil
}

// RoundDepths rounds depths to three decimals, keeping missing values.
func RoundDepths(depths []float64) []float64 {
	out := make([]float64, len(depths))
	for i, v := range depths {
		if parser.IsMissing(v) {
			out[i] = parser.MissingValue
			continue
		}
		out[i] = math.Round(v*1000) / 1000
	}
	return out
}

// SpanLine renders the "# span" header line of a column.
func SpanLine(index int, lo, hi float64) string {
	return fmt.Sprintf("# span %d =%11.3f,%11.3f", index, lo, hi)
}

// missingSpanLine renders a span line for a column without valid data.
func missingSpanLine(index int) string {
	return fmt.Sprintf("# span %d = %s, %s", index, parser.MissingValueString, parser.MissingValueString)
}

// valueRange returns the smallest and largest value, skipping missing values.
func valueRange(values []float64) (lo, hi float64, ok bool) {
	for _, v := range values {
		if parser.IsMissing(v) {
			continue
		}
		if !ok {
			lo, hi, ok = v, v, true
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi, ok
}

// mean returns the mean of values, skipping missing values.
func mean(values []float64) (float64, bool) {
	sum := 0.0
	n := 0
	for _, v := range values {
		if parser.IsMissing(v) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}
