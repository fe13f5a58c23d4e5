package report

import (
	"fmt"
	"strings"

	"github.com/NimbleMarkets/ntcharts/sparkline"
	"github.com/charmbracelet/lipgloss"
)

const (
	sparklineWidth  = 40
	sparklineHeight = 3
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("51")).
			Bold(true).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("45"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("231")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	sparklineStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51"))

	containerStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(0, 1)
)

// Summary formats the drift figures of chart with sparklines of the
// temperature and the corrected deviation.
func Summary(chart Chart) string {
	var b strings.Builder

	b.WriteString(headerStyle.Render(" "+chart.Title+" ") + "\n")
	if n := len(chart.Times); n > 0 {
		b.WriteString(dimStyle.Render(fmt.Sprintf("%d records, %s .. %s",
			n, chart.Times[0].Format(TimeFormat), chart.Times[n-1].Format(TimeFormat))) + "\n")
	}
	b.WriteString("\n")

	row := func(label, value string) {
		b.WriteString(labelStyle.Render(fmt.Sprintf("  %-22s", label)) + valueStyle.Render(value) + "\n")
	}
	row("24 Hour Drift:", fmt.Sprintf("%.6f ppm/day", chart.PerDay))
	row("1 Year Drift estimate:", fmt.Sprintf("%.2f ppm/year", chart.PerYear))
	row("TC Gain correction:", fmt.Sprintf("%g ppm/K", chart.Tempco))

	b.WriteString("\n")
	b.WriteString(labelStyle.Render("  Temperature") + "\n")
	b.WriteString(createSparkline(chart.Temp) + "\n")
	b.WriteString(labelStyle.Render("  Corrected PPM "+chart.constantName()) + "\n")
	b.WriteString(createSparkline(chart.Corrected))

	return containerStyle.Render(b.String())
}

// createSparkline draws the last sparklineWidth points of data.
func createSparkline(data []float64) string {
	if len(data) == 0 {
		return dimStyle.Render(fmt.Sprintf("%*s", sparklineWidth, "no data"))
	}

	// Bars grow from zero, so draw the distance to the series minimum.
	lo, _ := bounds(data)
	spark := sparkline.New(sparklineWidth, sparklineHeight)
	for _, v := range data {
		spark.Push(v - lo)
	}
	spark.Draw()

	return sparklineStyle.Render(spark.View())
}
