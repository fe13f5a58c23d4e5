package report

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"os"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// TimeFormat labels the shared time axis.
const TimeFormat = "2006-01-02-15"

var (
	purple = color.RGBA{R: 128, B: 128, A: 255}
	gray   = color.RGBA{R: 128, G: 128, B: 128, A: 255}
	green  = color.RGBA{G: 128, A: 255}
	orange = color.RGBA{R: 255, G: 165, A: 255}
)

// PNG renders charts as PNG images.
type PNG struct {
	Width  vg.Length
	Height vg.Length
	DPI    int
}

// DefaultPNG is an 11x9 inch chart at 150 dpi.
var DefaultPNG = PNG{Width: 11 * vg.Inch, Height: 9 * vg.Inch, DPI: 150}

// Render writes chart to path with DefaultPNG.
func Render(chart Chart, path string) error {
	return DefaultPNG.Render(chart, path)
}

// Render implements Renderer.
func (r PNG) Render(chart Chart, path string) error {
	if len(chart.Times) == 0 {
		return errors.New("render: chart has no points")
	}

	temp, err := temperaturePlot(chart)
	if err != nil {
		return fmt.Errorf("render temperature: %w", err)
	}
	dev, err := deviationPlot(chart)
	if err != nil {
		return fmt.Errorf("render deviation: %w", err)
	}

	img := vgimg.NewWith(vgimg.UseWH(r.Width, r.Height), vgimg.UseDPI(r.DPI))
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows:      2,
		Cols:      1,
		PadTop:    vg.Points(8),
		PadBottom: vg.Points(8),
		PadLeft:   vg.Points(8),
		PadRight:  vg.Points(16),
		PadY:      vg.Points(12),
	}
	plots := [][]*plot.Plot{{temp}, {dev}}
	canvases := plot.Align(plots, tiles, dc)
	for j := range plots {
		plots[j][0].Draw(canvases[j][0])
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("render: write png: %w", err)
	}
	return f.Close()
}

func xys(chart Chart, ys []float64) plotter.XYs {
	pts := make(plotter.XYs, len(ys))
	for i, y := range ys {
		pts[i].X = float64(chart.Times[i].Unix())
		pts[i].Y = y
	}
	return pts
}

func timeAxis(p *plot.Plot) {
	p.X.Tick.Marker = plot.TimeTicks{Format: TimeFormat}
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = draw.XRight
	p.X.Tick.Label.YAlign = draw.YCenter
}

func dashedGrid() *plotter.Grid {
	g := plotter.NewGrid()
	g.Vertical.Dashes = []vg.Length{vg.Points(3), vg.Points(3)}
	g.Horizontal.Dashes = []vg.Length{vg.Points(3), vg.Points(3)}
	g.Vertical.Width = vg.Points(0.5)
	g.Horizontal.Width = vg.Points(0.5)
	return g
}

func temperaturePlot(chart Chart) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = chart.Title
	p.Y.Label.Text = "Temperature [°C]"
	timeAxis(p)
	p.Add(dashedGrid())

	line, points, err := plotter.NewLinePoints(xys(chart, chart.Temp))
	if err != nil {
		return nil, err
	}
	line.Color = purple
	points.Shape = draw.CrossGlyph{}
	points.Color = purple
	p.Add(line, points)
	p.Legend.Add("Temperature", line, points)
	p.Legend.Top = true
	p.Legend.Left = true

	lo, hi := bounds(chart.Temp)
	p.Y.Min = math.Min(15, lo-1)
	p.Y.Max = hi + 2
	return p, nil
}

func deviationPlot(chart Chart) (*plot.Plot, error) {
	p := plot.New()
	p.X.Label.Text = "Time"
	p.Y.Label.Text = "Deviation from first ACALs [µV/V]"
	timeAxis(p)
	p.Add(dashedGrid())

	name := chart.constantName()

	raw, err := plotter.NewScatter(xys(chart, chart.PPM))
	if err != nil {
		return nil, err
	}
	raw.Shape = draw.RingGlyph{}
	raw.Color = gray

	corrLine, corrPoints, err := plotter.NewLinePoints(xys(chart, chart.Corrected))
	if err != nil {
		return nil, err
	}
	corrLine.Color = green
	corrPoints.Shape = draw.TriangleGlyph{}
	corrPoints.Color = green

	trend, err := plotter.NewLine(xys(chart, chart.Trend))
	if err != nil {
		return nil, err
	}
	trend.Color = orange
	trend.Dashes = []vg.Length{vg.Points(6), vg.Points(4)}

	p.Add(raw, corrLine, corrPoints, trend)
	p.Legend.Add("PPM "+name, raw)
	p.Legend.Add("Corrected PPM "+name, corrLine, corrPoints)
	p.Legend.Add("Trend Line", trend)
	p.Legend.Top = true

	lo, hi := bounds(chart.PPM, chart.Corrected, chart.Trend)
	p.Y.Min = lo - 0.5
	p.Y.Max = hi + 0.5

	// Pin the annotation to the lower left corner of the data area.
	xmin := math.Inf(1)
	for _, pt := range xys(chart, chart.PPM) {
		xmin = math.Min(xmin, pt.X)
	}
	note, err := plotter.NewLabels(plotter.XYLabels{
		XYs:    plotter.XYs{{X: xmin, Y: p.Y.Min + 0.15*(p.Y.Max-p.Y.Min)}},
		Labels: []string{chart.Annotation()},
	})
	if err != nil {
		return nil, err
	}
	p.Add(note)
	return p, nil
}

func bounds(series ...[]float64) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, s := range series {
		for _, v := range s {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	return lo, hi
}
