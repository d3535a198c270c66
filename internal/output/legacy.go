// Package output writes simulated days to the files the mapping and reporting
// tools consume.
package output

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"fopsim/internal/grid"
	"fopsim/internal/simulation"
)

// LegacyVersion names the column layout produced by LegacyWriter. Changing a
// column requires a new version.
const LegacyVersion = "legacy-v1"

// Legacy file names, relative to the output directory.
const (
	LightningIntervalsFile = "AB-predictions.out"
	LightningGridsFile     = "AB-grids.out"
	HumanIntervalsFile     = "AB-Human_FOP_Predictions.out"
	HumanGridsFile         = "AB-Human_FOP_grids.out"
)

const (
	lightningIntervalFormat = "%4d %3d %2d %2d %6.4f  %3d %7d    %3d %3d  %3d %3d    %3d %3d  %3d %3d     %3d %3d  %3d %3d     %3d %3d  %3d %3d     %3d %3d %3d\n"
	lightningGridFormat     = "%5d %4d %2d %2d %9.3f %9.3f %7.5f %7.5f %7.5f\n"
	humanGridHeader         = "fishnet_id,date,day_of_year,latitude,longitude,region_ci,expected_arrivals,probability\n"
)

// LegacyWriter appends days to the fixed-layout interval and grid files.
type LegacyWriter struct {
	variant   simulation.Variant
	intervals *bufio.Writer
	grids     *bufio.Writer
	closers   []io.Closer
}

// NewLegacyWriter creates (truncating) the variant's two files in dir.
func NewLegacyWriter(dir string, v simulation.Variant) (*LegacyWriter, error) {
	intervalsName, gridsName := LightningIntervalsFile, LightningGridsFile
	if v == simulation.Human {
		intervalsName, gridsName = HumanIntervalsFile, HumanGridsFile
	}

	fi, err := os.Create(filepath.Join(dir, intervalsName))
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", intervalsName, err)
	}
	fg, err := os.Create(filepath.Join(dir, gridsName))
	if err != nil {
		_ = fi.Close()
		return nil, fmt.Errorf("create %s: %w", gridsName, err)
	}
	return newLegacyWriter(v, fi, fg, fi, fg), nil
}

// NewLegacyStreamWriter writes to caller-owned streams.
func NewLegacyStreamWriter(v simulation.Variant, intervals, grids io.Writer) *LegacyWriter {
	return newLegacyWriter(v, intervals, grids)
}

func newLegacyWriter(v simulation.Variant, intervals, grids io.Writer, closers ...io.Closer) *LegacyWriter {
	w := &LegacyWriter{
		variant:   v,
		intervals: bufio.NewWriter(intervals),
		grids:     bufio.NewWriter(grids),
		closers:   closers,
	}
	if v == simulation.Human {
		_, _ = w.grids.WriteString(humanGridHeader)
	}
	return w
}

// WriteDay appends one interval row and every grid row of the day.
func (w *LegacyWriter) WriteDay(_ context.Context, out *simulation.DayOutput) error {
	if out.Variant != w.variant {
		return fmt.Errorf("legacy writer for %s got a %s day", w.variant, out.Variant)
	}

	if w.variant == simulation.Lightning {
		if _, err := io.WriteString(w.intervals, FormatLightningInterval(out)); err != nil {
			return err
		}
		for _, c := range out.Cells {
			if _, err := io.WriteString(w.grids, FormatLightningGrid(out.Date, c)); err != nil {
				return err
			}
		}
	} else {
		if _, err := io.WriteString(w.intervals, FormatHumanInterval(out)); err != nil {
			return err
		}
		for _, c := range out.Cells {
			if _, err := io.WriteString(w.grids, FormatHumanGrid(out, c)); err != nil {
				return err
			}
		}
	}

	// Flush per day so a later failure leaves every emitted day on disk.
	if err := w.intervals.Flush(); err != nil {
		return err
	}
	return w.grids.Flush()
}

// Close flushes and closes any files the writer opened.
func (w *LegacyWriter) Close() error {
	errs := []error{w.intervals.Flush(), w.grids.Flush()}
	for _, c := range w.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// FormatLightningInterval renders the lightning interval row: date fields,
// mean ignitions, observed fires, lightning strikes, then for the province
// and each sub-region the holdover and arrival bounds, then three reserved
// zero columns.
func FormatLightningInterval(out *simulation.DayOutput) string {
	iv := out.Intervals
	var hold [grid.NumRegions]simulation.Interval
	if iv.Holdovers != nil {
		hold = *iv.Holdovers
	}
	arr := iv.Arrivals

	args := []any{
		out.Year, out.Day, int(out.Date.Month()), out.Date.Day(),
		iv.MeanIgnitions, iv.ObservedFires, iv.LightningStrikes,
	}
	for _, r := range grid.Regions {
		args = append(args, hold[r].Low, hold[r].High, arr[r].Low, arr[r].High)
	}
	args = append(args, 0, 0, 0)
	return fmt.Sprintf(lightningIntervalFormat, args...)
}

// FormatLightningGrid renders one lightning grid row.
func FormatLightningGrid(date time.Time, c simulation.CellExpectation) string {
	return fmt.Sprintf(lightningGridFormat,
		c.Cell.ID, date.Year(), int(date.Month()), date.Day(),
		c.Cell.Lat, c.Cell.Lon, c.Arrivals, c.Holdovers, c.Ignitions)
}

// FormatHumanInterval renders the space-separated human interval row.
func FormatHumanInterval(out *simulation.DayOutput) string {
	line := fmt.Sprintf("%d %d %d %d", out.Year, out.Day, int(out.Date.Month()), out.Date.Day())
	for _, r := range grid.Regions {
		iv := out.Intervals.Arrivals[r]
		line += fmt.Sprintf(" %d %d", iv.Low, iv.High)
	}
	return line + "\n"
}

// FormatHumanGrid renders one human grid row.
func FormatHumanGrid(out *simulation.DayOutput, c simulation.CellExpectation) string {
	return fmt.Sprintf("%d,%s,%d,%.6f,%.6f,%s,%.5f,%.6f\n",
		c.Cell.ID, out.Date.Format(time.DateOnly), out.Day,
		c.Cell.Lat, c.Cell.Lon, c.Cell.Region, c.Arrivals, c.ArrivalProbability)
}
