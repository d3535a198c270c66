package output

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jonas-p/go-shp"

	"fopsim/internal/simulation"
)

// ShapefileWriter writes one point shapefile per day for the mapping tools.
type ShapefileWriter struct {
	dir     string
	variant simulation.Variant
}

// NewShapefileWriter writes into dir.
func NewShapefileWriter(dir string, v simulation.Variant) *ShapefileWriter {
	return &ShapefileWriter{dir: dir, variant: v}
}

// ShapefileName returns the file written for a day.
func ShapefileName(v simulation.Variant, date time.Time) string {
	prefix := "ltg_grid_"
	if v == simulation.Human {
		prefix = "hmn_grid_"
	}
	return prefix + date.Format(time.DateOnly) + ".shp"
}

func shapefileFields(v simulation.Variant) []shp.Field {
	fields := []shp.Field{
		shp.NumberField("GRID", 10),
		shp.NumberField("YEAR", 4),
		shp.NumberField("MONTH", 2),
		shp.NumberField("DAY", 2),
		shp.StringField("REGION", 12),
		shp.FloatField("ARR", 12, 5),
	}
	if v == simulation.Lightning {
		return append(fields, shp.FloatField("HOLD", 12, 5), shp.FloatField("IGN", 12, 5))
	}
	return append(fields, shp.FloatField("PROB", 12, 6))
}

func (s *ShapefileWriter) WriteDay(_ context.Context, out *simulation.DayOutput) error {
	path := filepath.Join(s.dir, ShapefileName(out.Variant, out.Date))
	w, err := shp.Create(path, shp.POINT)
	if err != nil {
		return fmt.Errorf("create shapefile %s: %w", path, err)
	}
	werr := writePoints(w, out)
	w.Close()
	if werr != nil {
		return werr
	}

	// go-shp v0.1.1 creates the attribute table as "<base>dbf".
	base := strings.TrimSuffix(path, ".shp")
	if err := os.Rename(base+"dbf", base+".dbf"); err != nil {
		return fmt.Errorf("shapefile attribute table: %w", err)
	}
	return nil
}

func writePoints(w *shp.Writer, out *simulation.DayOutput) error {
	if err := w.SetFields(shapefileFields(out.Variant)); err != nil {
		return fmt.Errorf("shapefile fields: %w", err)
	}

	for _, c := range out.Cells {
		row := int(w.Write(&shp.Point{X: c.Cell.Lon, Y: c.Cell.Lat}))
		attrs := []any{
			c.Cell.ID, out.Year, int(out.Date.Month()), out.Date.Day(),
			c.Cell.Region.Key(), c.Arrivals,
		}
		if out.Variant == simulation.Lightning {
			attrs = append(attrs, c.Holdovers, c.Ignitions)
		} else {
			attrs = append(attrs, c.ArrivalProbability)
		}
		for field, v := range attrs {
			if err := w.WriteAttribute(row, field, v); err != nil {
				return fmt.Errorf("shapefile row %d: %w", row, err)
			}
		}
	}
	return nil
}
