// Package report renders an analysed calibration log.
//
// Render writes a PNG chart with the temperature panel above the deviation
// panel. Summary formats the same figures for a terminal.
package report

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fyrsmithlabs/a3drift/internal/drift"
)

// Chart is everything a renderer needs. It holds no reference to the dataset.
type Chart struct {
	Title    string
	Constant string

	Times     []time.Time
	Temp      []float64
	PPM       []float64
	Corrected []float64
	Trend     []float64

	PerDay  float64
	PerYear float64
	Tempco  float64
}

// Renderer writes a chart image to path.
type Renderer interface {
	Render(chart Chart, path string) error
}

// FromResult builds a chart from an analysis result.
func FromResult(res *drift.Result, title string) Chart {
	return Chart{
		Title:     title,
		Constant:  res.Constant,
		Times:     res.Times,
		Temp:      res.Temp,
		PPM:       res.PPM,
		Corrected: res.Corrected,
		Trend:     res.Trend.Values,
		PerDay:    res.Trend.PerDay,
		PerYear:   res.Trend.PerYear,
		Tempco:    res.Tempco,
	}
}

// Title derives a chart title from a log path: the base name without its
// extension, underscores shown as spaces.
func Title(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return strings.ReplaceAll(base, "_", " ")
}

// Annotation is the drift text shown on the chart.
func (c Chart) Annotation() string {
	return fmt.Sprintf("24 Hour Drift: %.6f ppm/day\n1 Year Drift estimate: %.2f ppm/year\n%g ppm/K TC Gain correction",
		c.PerDay, c.PerYear, c.Tempco)
}

func (c Chart) constantName() string {
	return strings.ReplaceAll(c.Constant, "_", " ")
}
