package acquisition

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
)

// Console prints the colour-coded operator status lines. It is separate from
// the structured log: these lines are meant to be read on the bench.
type Console struct {
	mu  sync.Mutex
	out io.Writer

	banner   lipgloss.Style
	identity lipgloss.Style
	reading  lipgloss.Style
	constant lipgloss.Style
	cycle    lipgloss.Style
	failure  lipgloss.Style
	dim      lipgloss.Style

	bar progress.Model
}

// NewConsole returns a Console writing to out. Colours are dropped when out
// is not a terminal.
func NewConsole(out io.Writer) *Console {
	r := lipgloss.NewRenderer(out)
	return &Console{
		out: out,
		banner: r.NewStyle().
			Foreground(lipgloss.Color("11")).
			Background(lipgloss.Color("4")).
			Bold(true).
			Padding(0, 1),
		identity: r.NewStyle().Foreground(lipgloss.Color("10")).Bold(true),
		reading:  r.NewStyle().Foreground(lipgloss.Color("15")).Bold(true),
		constant: r.NewStyle().Foreground(lipgloss.Color("13")).Bold(true),
		cycle:    r.NewStyle().Foreground(lipgloss.Color("14")).Bold(true),
		failure:  r.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		dim:      r.NewStyle().Foreground(lipgloss.Color("245")),
		bar: progress.New(
			progress.WithGradient("#00ffff", "#ff00ff"),
			progress.WithWidth(30),
			progress.WithoutPercentage(),
		),
	}
}

func (c *Console) println(style lipgloss.Style, format string, args ...interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, style.Render(fmt.Sprintf(format, args...)))
}

// Banner prints the campaign start line.
func (c *Console) Banner(cycles int, logPath string) {
	if c == nil {
		return
	}
	c.println(c.banner, "-n- A3 ADC stability data collection: %d ACAL cycles into %s", cycles, logPath)
}

// Identity prints the instrument identity found during setup.
func (c *Console) Identity(id string, gpibAddress int) {
	if c == nil {
		return
	}
	c.println(c.identity, "-i- %s detected on GPIB %d", id, gpibAddress)
}

// Connected prints the adapter connection line.
func (c *Console) Connected() {
	if c == nil {
		return
	}
	c.println(c.dim, "Prologix adapter connected.")
}

// Temperature prints the pre-ACAL temperature reading.
func (c *Console) Temperature(value string) {
	if c == nil {
		return
	}
	c.println(c.reading, "-i- internal TEMP? = %s C", value)
}

// Constant prints the tracked constant after a successful cycle.
func (c *Console) Constant(query, value string) {
	if c == nil {
		return
	}
	c.println(c.constant, "-i- %s value = %s", query, value)
}

// Failure prints a cycle or setup error.
func (c *Console) Failure(what string, err error) {
	if c == nil {
		return
	}
	c.println(c.failure, "-e- Error during %s: %v", what, err)
}

// CycleDone prints the per-cycle completion line with a progress bar.
func (c *Console) CycleDone(cycle, total int, ok bool) {
	if c == nil {
		return
	}
	status := "done"
	if !ok {
		status = "failed"
	}
	bar := c.bar.ViewAs(float64(cycle) / float64(total))
	c.println(c.cycle, "-i- ACAL cycle %d %s %s %d/%d", cycle-1, status, bar, cycle, total)
}

// Finished prints the campaign end line.
func (c *Console) Finished(succeeded, failed int) {
	if c == nil {
		return
	}
	c.println(c.banner, "All done! %d records written, %d cycles failed.", succeeded, failed)
}
