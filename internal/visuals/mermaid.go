// Package visuals renders Mermaid charts of a run's daily interval series.
package visuals

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// maxPoints is where Mermaid xychart labels start to overlap.
const maxPoints = 60

// Band is one day's interval for a region.
type Band struct {
	Date time.Time
	Low  int
	High int
}

// GenerateBandChart creates a Mermaid xychart-beta with the low and high
// bounds of a daily interval series as two lines.
func GenerateBandChart(title, yLabel string, bands []Band) string {
	if len(bands) == 0 {
		return ""
	}

	// Subsample points if the chart is too wide for Mermaid's layout engine
	step := 1
	if len(bands) > maxPoints {
		step = int(math.Ceil(float64(len(bands)) / maxPoints))
	}

	var labels, lows, highs []string
	maxY := 0
	for i, b := range bands {
		if b.High > maxY {
			maxY = b.High
		}
		if i%step != 0 && i != len(bands)-1 {
			continue
		}
		labels = append(labels, fmt.Sprintf("\"%s\"", b.Date.Format("Jan02")))
		lows = append(lows, fmt.Sprintf("%d", b.Low))
		highs = append(highs, fmt.Sprintf("%d", b.High))
	}

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("xychart-beta\n")
	sb.WriteString(fmt.Sprintf("    title \"%s\"\n", title))
	sb.WriteString(fmt.Sprintf("    x-axis [%s]\n", strings.Join(labels, ", ")))
	sb.WriteString(fmt.Sprintf("    y-axis \"%s\" 0 --> %d\n", yLabel, maxY+int(math.Max(1, float64(maxY)*0.2))))
	sb.WriteString(fmt.Sprintf("    line [%s]\n", strings.Join(lows, ", ")))
	sb.WriteString(fmt.Sprintf("    line [%s]\n", strings.Join(highs, ", ")))
	sb.WriteString("```")
	return sb.String()
}
