package output

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"fopsim/internal/grid"
	"fopsim/internal/simulation"
	"fopsim/internal/visuals"
)

// ChartWriter collects the provincial intervals of a run and writes them as
// Mermaid charts in <variant>_intervals.md when closed.
type ChartWriter struct {
	path      string
	variant   simulation.Variant
	arrivals  []visuals.Band
	holdovers []visuals.Band
}

// NewChartWriter creates the sink; nothing is written until Close.
func NewChartWriter(dir string, v simulation.Variant) *ChartWriter {
	return &ChartWriter{path: filepath.Join(dir, string(v)+"_intervals.md"), variant: v}
}

func (c *ChartWriter) WriteDay(_ context.Context, out *simulation.DayOutput) error {
	if out.Variant != c.variant {
		return fmt.Errorf("chart writer for %s got a %s day", c.variant, out.Variant)
	}
	a := out.Intervals.Arrivals[grid.Province]
	c.arrivals = append(c.arrivals, visuals.Band{Date: out.Date, Low: a.Low, High: a.High})
	if h := out.Intervals.Holdovers; h != nil {
		c.holdovers = append(c.holdovers, visuals.Band{Date: out.Date, Low: h[grid.Province].Low, High: h[grid.Province].High})
	}
	return nil
}

// Render returns the markdown document.
func (c *ChartWriter) Render() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s fire occurrence, %s\n\n", strings.ToUpper(string(c.variant[:1]))+string(c.variant[1:]), grid.Province)
	sb.WriteString("## Arrivals\n\n")
	sb.WriteString(visuals.GenerateBandChart("Arrivals interval", "Fires", c.arrivals))
	sb.WriteString("\n")
	if len(c.holdovers) > 0 {
		sb.WriteString("\n## Holdovers\n\n")
		sb.WriteString(visuals.GenerateBandChart("Holdovers interval", "Fires", c.holdovers))
		sb.WriteString("\n")
	}
	return sb.String()
}

// Close writes the file when at least one day was collected.
func (c *ChartWriter) Close() error {
	if len(c.arrivals) == 0 {
		return nil
	}
	if err := os.WriteFile(c.path, []byte(c.Render()), 0644); err != nil {
		return fmt.Errorf("write %s: %w", c.path, err)
	}
	return nil
}
