// Package drift separates reference drift from temperature effects.
//
// All deviations are relative to a baseline taken as the median of the first
// two samples. Time is measured in fractional days so that a fitted slope
// reads directly as drift per day.
package drift

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/fyrsmithlabs/a3drift/internal/calog"
	"github.com/fyrsmithlabs/a3drift/internal/dataset"
)

const (
	// TempcoMin and TempcoStep define the search grid in ppm/K. The grid
	// holds TempcoSteps candidates starting at TempcoMin.
	TempcoMin   = -0.5
	TempcoStep  = 0.001
	TempcoSteps = 1000

	// DaysPerYear extrapolates the daily drift rate.
	DaysPerYear = 365

	secondsPerDay = 24 * 60 * 60
)

// Baseline returns the median of the first two samples of xs.
func Baseline(xs []float64) (float64, error) {
	switch len(xs) {
	case 0:
		return 0, &dataset.ValidationError{Reason: "baseline of an empty series"}
	case 1:
		return xs[0], nil
	default:
		return (xs[0] + xs[1]) / 2, nil
	}
}

// Deviation returns the parts-per-million deviation of values from baseline.
func Deviation(values []float64, baseline float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = (v/baseline - 1) * 1e6
	}
	return out
}

// Difference returns values minus baseline.
func Difference(values []float64, baseline float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = v - baseline
	}
	return out
}

// Correct applies tempco to a deviation series: ppm + tempDiff*tempco.
func Correct(ppm, tempDiff []float64, tempco float64) []float64 {
	out := make([]float64, len(ppm))
	for i := range ppm {
		out[i] = ppm[i] + tempDiff[i]*tempco
	}
	return out
}

// ParseTimes parses log timestamps. They carry no zone and are kept as wall
// clock values in UTC.
func ParseTimes(values []string) ([]time.Time, error) {
	out := make([]time.Time, len(values))
	for i, v := range values {
		t, err := time.ParseInLocation(calog.TimeLayout, v, time.UTC)
		if err != nil {
			return nil, &dataset.ValidationError{Series: calog.TimeField, Reason: fmt.Sprintf("row %d: %v", i, err)}
		}
		out[i] = t
	}
	return out, nil
}

// Days converts timestamps to fractional days since the Unix epoch.
func Days(times []time.Time) []float64 {
	out := make([]float64, len(times))
	for i, t := range times {
		out[i] = float64(t.Unix()) / secondsPerDay
	}
	return out
}

// Line is a least-squares straight line y = Intercept + Slope*x.
type Line struct {
	Intercept float64
	Slope     float64
}

// Fit returns the least-squares line through (x, y).
func Fit(x, y []float64) Line {
	alpha, beta := stat.LinearRegression(x, y, nil, false)
	return Line{Intercept: alpha, Slope: beta}
}

// At evaluates the line at every x.
func (l Line) At(x []float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = l.Intercept + l.Slope*v
	}
	return out
}

// ResidualVariance is the population variance of y around its fitted line.
func ResidualVariance(x, y []float64) float64 {
	fitted := Fit(x, y).At(x)
	res := make([]float64, len(y))
	for i := range y {
		res[i] = y[i] - fitted[i]
	}
	return stat.PopVariance(res, nil)
}

// FindBestTempco scans the tempco grid in ascending order and returns the
// candidate whose corrected series has the lowest residual variance against
// its own linear trend, rounded to 4 decimals. Ties keep the first candidate.
func FindBestTempco(days, ppm, tempDiff []float64) float64 {
	best := 0.0
	minVariance := math.Inf(1)
	for i := 0; i < TempcoSteps; i++ {
		tempco := TempcoMin + float64(i)*TempcoStep
		if v := ResidualVariance(days, Correct(ppm, tempDiff, tempco)); v < minVariance {
			minVariance = v
			best = tempco
		}
	}
	return round4(best)
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}

// Trend is the linear fit of a corrected series.
type Trend struct {
	Line    Line
	Values  []float64
	PerDay  float64
	PerYear float64
}

// FitTrend fits corrected against days.
func FitTrend(days, corrected []float64) Trend {
	line := Fit(days, corrected)
	return Trend{
		Line:    line,
		Values:  line.At(days),
		PerDay:  line.Slope,
		PerYear: line.Slope * DaysPerYear,
	}
}
