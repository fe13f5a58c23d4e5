package drift

import (
	"strings"
	"time"

	"github.com/fyrsmithlabs/a3drift/internal/calog"
	"github.com/fyrsmithlabs/a3drift/internal/dataset"
)

// Names of the series and scalars Analyze adds to the dataset.
const (
	TempField     = "TEMP"
	TempDiffField = "temp_diff"
	TrendField    = "trend"
	TempcoScalar  = "tempco"
	PerDayScalar  = "drift_per_day"
	PerYearScalar = "drift_per_year"
)

// Options selects the constant and how the tempco is chosen.
type Options struct {
	Constant   string  // series label, e.g. CAL_72
	Tempco     float64 // used when AutoTempco is false
	AutoTempco bool
}

// Result is the analysed dataset plus typed views of its series.
type Result struct {
	Dataset *dataset.Dataset

	Constant  string
	Times     []time.Time
	Temp      []float64
	TempDiff  []float64
	PPM       []float64
	Corrected []float64
	Trend     Trend
	Tempco    float64
}

// PPMField is the raw deviation series name for constant, e.g. ppm_72.
func PPMField(constant string) string { return "ppm_" + suffix(constant) }

// CorrectedField is the corrected deviation series name, e.g. corr_72.
func CorrectedField(constant string) string { return "corr_" + suffix(constant) }

func suffix(constant string) string {
	return strings.TrimPrefix(constant, "CAL_")
}

// Analyze computes deviations, the tempco and the trend for ds and adds them
// to it. ds must hold TIME, TEMP and opts.Constant, equally long, with at
// least two rows. Time order is not checked.
func Analyze(ds *dataset.Dataset, opts Options) (*Result, error) {
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	if n := ds.Len(); n < 2 {
		return nil, &dataset.ValidationError{Reason: "at least two records are required"}
	}

	stamps, err := ds.Strings(calog.TimeField)
	if err != nil {
		return nil, err
	}
	times, err := ParseTimes(stamps)
	if err != nil {
		return nil, err
	}
	temp, err := ds.Floats(TempField)
	if err != nil {
		return nil, err
	}
	values, err := ds.Floats(opts.Constant)
	if err != nil {
		return nil, err
	}

	tempBase, _ := Baseline(temp)
	base, _ := Baseline(values)
	if base == 0 {
		return nil, &dataset.ValidationError{Series: opts.Constant, Reason: "baseline is zero"}
	}

	days := Days(times)
	tempDiff := Difference(temp, tempBase)
	ppm := Deviation(values, base)

	tempco := opts.Tempco
	if opts.AutoTempco {
		tempco = FindBestTempco(days, ppm, tempDiff)
	}
	corrected := Correct(ppm, tempDiff, tempco)
	trend := FitTrend(days, corrected)

	ds.SetFloats(TempDiffField, tempDiff)
	ds.SetFloats(PPMField(opts.Constant), ppm)
	ds.SetFloats(CorrectedField(opts.Constant), corrected)
	ds.SetFloats(TrendField, trend.Values)
	ds.SetScalar(TempcoScalar, tempco)
	ds.SetScalar(PerDayScalar, trend.PerDay)
	ds.SetScalar(PerYearScalar, trend.PerYear)

	return &Result{
		Dataset:   ds,
		Constant:  opts.Constant,
		Times:     times,
		Temp:      temp,
		TempDiff:  tempDiff,
		PPM:       ppm,
		Corrected: corrected,
		Trend:     trend,
		Tempco:    tempco,
	}, nil
}
