package drift

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/a3drift/internal/calog"
	"github.com/fyrsmithlabs/a3drift/internal/dataset"
)

func TestBaseline(t *testing.T) {
	b, err := Baseline([]float64{100, 101, 500})
	require.NoError(t, err)
	assert.Equal(t, 100.5, b)

	b, err = Baseline([]float64{42})
	require.NoError(t, err)
	assert.Equal(t, 42.0, b)

	_, err = Baseline(nil)
	assert.True(t, errors.Is(err, dataset.ErrValidation))
}

func TestDeviation(t *testing.T) {
	values := []float64{100.0, 100.0, 101.0}
	base, err := Baseline(values)
	require.NoError(t, err)
	assert.Equal(t, 100.0, base)

	assert.InDeltaSlice(t, []float64{0, 0, 10000}, Deviation(values, base), 1e-6)
}

func TestDifferenceAndCorrect(t *testing.T) {
	td := Difference([]float64{23, 23.5, 24}, 23)
	assert.Equal(t, []float64{0, 0.5, 1}, td)
	assert.InDeltaSlice(t, []float64{1, 2.1, 3.2}, Correct([]float64{1, 2, 3}, td, 0.2), 1e-12)
}

func TestParseTimesAndDays(t *testing.T) {
	times, err := ParseTimes([]string{"07/03/2024-09:05:01", "01/01/1970-12:00:00"})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 7, 9, 5, 1, 0, time.UTC), times[0])

	days := Days(times)
	assert.Equal(t, 0.5, days[1])

	_, err = ParseTimes([]string{"2024-03-07 09:05:01"})
	assert.True(t, errors.Is(err, dataset.ErrValidation))
}

// hourly returns n hourly days starting at 2024-03-01.
func hourly(n int) []float64 {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	times := make([]time.Time, n)
	for i := range times {
		times[i] = start.Add(time.Duration(i) * time.Hour)
	}
	return Days(times)
}

func TestFitTrend_Linear(t *testing.T) {
	days := []float64{19800, 19800.5, 19801, 19802, 19803.25}
	const slope = -0.0375

	corrected := make([]float64, len(days))
	for i, d := range days {
		corrected[i] = 3.2 + slope*(d-days[0])
	}

	trend := FitTrend(days, corrected)
	assert.InDelta(t, slope, trend.PerDay, 1e-9)
	assert.InDelta(t, slope*365, trend.PerYear, 1e-6)
	assert.InDeltaSlice(t, corrected, trend.Values, 1e-6)
}

func TestFindBestTempco_RecoversCoefficient(t *testing.T) {
	temps := []float64{23, 23, 23.4, 22.7, 23.9, 22.5, 23.2, 24.1, 22.9, 23.6, 23.3, 22.8}
	days := hourly(len(temps))

	base, err := Baseline(temps)
	require.NoError(t, err)
	tempDiff := Difference(temps, base)

	// A straight drift disturbed by -0.123 ppm/K of temperature.
	ppm := make([]float64, len(temps))
	for i := range ppm {
		ppm[i] = 0.8*(days[i]-days[0]) - 0.123*tempDiff[i]
	}

	assert.Equal(t, 0.123, FindBestTempco(days, ppm, tempDiff))
}

func TestFindBestTempco_Deterministic(t *testing.T) {
	temps := []float64{22.1, 22.4, 23.0, 22.8, 21.9, 22.6, 23.3}
	ppm := []float64{0, 0.4, 1.9, 1.1, -0.7, 0.5, 2.6}
	days := hourly(len(temps))
	tempDiff := Difference(temps, 22.25)

	first := FindBestTempco(days, ppm, tempDiff)
	for i := 0; i < 3; i++ {
		assert.Equal(t, first, FindBestTempco(days, ppm, tempDiff))
	}

	assert.GreaterOrEqual(t, first, -0.5)
	assert.LessOrEqual(t, first, 0.499)
	steps := (first - TempcoMin) / TempcoStep
	assert.InDelta(t, math.Round(steps), steps, 1e-6, "tempco lies on the 0.001 grid")
}

func TestFindBestTempco_FlatTemperatureKeepsFirstCandidate(t *testing.T) {
	days := hourly(5)
	ppm := []float64{0, 3, 1, 4, 2}
	tempDiff := make([]float64, 5)

	assert.Equal(t, -0.5, FindBestTempco(days, ppm, tempDiff))
}

func fixture(temps, cal []float64) *dataset.Dataset {
	ds := dataset.New()
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := range temps {
		ds.Append(calog.TimeField, dataset.TextValue(start.Add(time.Duration(i)*time.Hour).Format(calog.TimeLayout)))
	}
	ds.SetFloats(TempField, temps)
	ds.SetFloats("CAL_72", cal)
	return ds
}

func TestAnalyze_ConstantTemperature(t *testing.T) {
	ds := fixture([]float64{23, 23, 23, 23, 23}, []float64{100, 101, 102, 103, 104})

	res, err := Analyze(ds, Options{Constant: "CAL_72", AutoTempco: true})
	require.NoError(t, err)

	// Any tempco gives the same corrected series, so the first candidate wins.
	assert.Equal(t, -0.5, res.Tempco)

	want := make([]float64, 5)
	for i := range want {
		want[i] = ((100+float64(i))/100.5 - 1) * 1e6
	}
	assert.InDeltaSlice(t, want, res.PPM, 1e-6)
	assert.InDeltaSlice(t, want, res.Corrected, 1e-6)

	// 9950.25 ppm per hourly row.
	assert.InDelta(t, 24*1e6/100.5, res.Trend.PerDay, 1e-3)
	assert.InDelta(t, 365*24*1e6/100.5, res.Trend.PerYear, 1)

	for _, name := range []string{"ppm_72", "corr_72", TempDiffField, TrendField} {
		s, ok := ds.Series(name)
		require.True(t, ok, name)
		assert.Len(t, s, 5)
	}
	require.NoError(t, ds.Validate())
	tempco, ok := ds.Scalar(TempcoScalar)
	require.True(t, ok)
	assert.Equal(t, -0.5, tempco)
}

func TestAnalyze_ManualTempco(t *testing.T) {
	ds := fixture([]float64{23, 24, 25}, []float64{100, 100, 100})

	res, err := Analyze(ds, Options{Constant: "CAL_72", Tempco: 0.25})
	require.NoError(t, err)

	assert.Equal(t, 0.25, res.Tempco)
	assert.Equal(t, []float64{-0.5, 0.5, 1.5}, res.TempDiff)
	assert.InDeltaSlice(t, []float64{-0.125, 0.125, 0.375}, res.Corrected, 1e-12)
}

func TestAnalyze_Errors(t *testing.T) {
	tests := []struct {
		name string
		ds   *dataset.Dataset
		opts Options
	}{
		{"single record", fixture([]float64{23}, []float64{100}), Options{Constant: "CAL_72"}},
		{"missing constant", fixture([]float64{23, 23}, []float64{100, 100}), Options{Constant: "CAL_1_1"}},
		{"zero baseline", fixture([]float64{23, 23}, []float64{0, 0}), Options{Constant: "CAL_72"}},
		{"ragged", func() *dataset.Dataset {
			ds := fixture([]float64{23, 23}, []float64{100, 100})
			ds.SetFloats(TempField, []float64{23})
			return ds
		}(), Options{Constant: "CAL_72"}},
		{"text in temperature", func() *dataset.Dataset {
			ds := fixture([]float64{23, 23}, []float64{100, 100})
			ds.Set(TempField, []dataset.Value{dataset.NumberValue(23), dataset.TextValue("")})
			return ds
		}(), Options{Constant: "CAL_72"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Analyze(tt.ds, tt.opts)
			require.Error(t, err)
			assert.True(t, errors.Is(err, dataset.ErrValidation))
		})
	}
}

func TestFieldNames(t *testing.T) {
	assert.Equal(t, "ppm_72", PPMField("CAL_72"))
	assert.Equal(t, "corr_72", CorrectedField("CAL_72"))
	assert.Equal(t, "ppm_TEMP", PPMField("TEMP"))
}
